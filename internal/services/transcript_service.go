package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/northcall/voicebridge/internal/models"
	pgrepo "github.com/northcall/voicebridge/internal/repositories/postgres"
	"github.com/northcall/voicebridge/internal/utils"
)

type TranscriptService interface {
	Append(ctx context.Context, callSID, from, role, content string, embedding []float32, metadataJSON []byte) (*models.TranscriptEntry, error)
	ListByCall(ctx context.Context, callSID string, limit int) ([]models.TranscriptEntry, error)
}

type transcriptService struct {
	transcripts pgrepo.TranscriptRepo
}

func NewTranscriptService(transcripts pgrepo.TranscriptRepo) TranscriptService {
	return &transcriptService{transcripts: transcripts}
}

func (s *transcriptService) Append(ctx context.Context, callSID, from, role, content string, embedding []float32, metadataJSON []byte) (*models.TranscriptEntry, error) {
	const op = "TranscriptService.Append"

	if callSID == "" || role == "" || content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_sid, role, and content are required", nil)
	}

	row := &models.TranscriptEntry{
		ID:        uuid.NewString(),
		CallSID:   callSID,
		From:      from,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  datatypes.JSON(metadataJSON),
	}

	if len(embedding) > 0 {
		row.Embedding = pgvector.NewVector(embedding)
	}

	if err := s.transcripts.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert transcript entry", err)
	}
	return row, nil
}

func (s *transcriptService) ListByCall(ctx context.Context, callSID string, limit int) ([]models.TranscriptEntry, error) {
	const op = "TranscriptService.ListByCall"

	if callSID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_sid is required", nil)
	}

	rows, err := s.transcripts.ListByCall(ctx, callSID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list transcripts", err)
	}
	return rows, nil
}

package llm

import (
	"context"
	"errors"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) StreamReply(ctx context.Context, system string, history []Message) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		if len(history) == 0 {
			errs <- errors.New("empty generation context")
			return
		}

		last := history[len(history)-1]
		if last.Role != "user" {
			errs <- errors.New("generation context must end with a user message")
			return
		}

		m := v.client.GenerativeModel(v.modelName)
		if system != "" {
			m.SystemInstruction = &vertexgenai.Content{
				Parts: []vertexgenai.Part{vertexgenai.Text(system)},
			}
		}

		cs := m.StartChat()
		for _, msg := range history[:len(history)-1] {
			role := "user"
			if msg.Role == "assistant" {
				role = "model"
			}
			cs.History = append(cs.History, &vertexgenai.Content{
				Role:  role,
				Parts: []vertexgenai.Part{vertexgenai.Text(msg.Text)},
			})
		}

		it := cs.SendMessageStream(ctx, vertexgenai.Text(last.Text))
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- err
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if t, ok := part.(vertexgenai.Text); ok && string(t) != "" {
						out <- string(t)
					}
				}
			}
		}
	}()

	return out, errs
}

package llm

import "context"

// Message is one turn of generation context.
type Message struct {
	Role string // "user" | "assistant"
	Text string
}

type Provider interface {
	// StreamReply returns a stream of text chunks (incremental) for the
	// next assistant reply. The history window is ordered oldest-first and
	// ends with the user message being answered.
	StreamReply(ctx context.Context, system string, history []Message) (chunks <-chan string, errs <-chan error)
	Close() error
}

package llm

import (
	"context"
	"time"
)

// Unavailable is the sentinel reply used when no backend is configured or a
// call fails. It is safe to show to players.
const Unavailable = "(my language model is unavailable right now)"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	ForceJSON   bool
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}

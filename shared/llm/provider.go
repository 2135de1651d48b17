// Package llm talks to hosted chat-completion APIs.
// Each Provider handles its own HTTP details, authentication,
// request/response formatting and error mapping.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when a completion carries no message.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrStreamClosed is returned by Recv after Close.
	ErrStreamClosed = errors.New("llm: stream closed")
)

// Request is a single-turn chat completion.
type Request struct {
	Model             string
	System            string
	Prompt            string
	MaxTokens         int
	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
	Stop              []string
}

// Stream yields text deltas until io.EOF.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider is an abstraction over LLM API providers.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// Stream starts a streaming completion. Errors opening the stream are
	// returned here; errors mid-stream come from Recv.
	Stream(ctx context.Context, req Request) (Stream, error)
	// Complete runs a non-streaming completion and returns the message text.
	Complete(ctx context.Context, req Request) (string, error)
}

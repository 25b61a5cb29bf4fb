// Package provider abstracts the text-generation backends Quill can use.
// Implementations exist for the Anthropic API (direct or via AWS Bedrock)
// and the OpenAI API; the orchestrator only sees the Provider interface.
package provider

import (
	"context"
	"errors"
)

// ErrProvider is the base classification for any text-generation failure:
// network, auth, rate limiting, or an empty completion. Callers check for
// it with errors.Is and treat all subtypes identically.
var ErrProvider = errors.New("provider error")

// Default generation settings applied when a Request leaves them zero.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

// Request describes one generation call.
type Request struct {
	// Prompt is the user-role input text.
	Prompt string
	// System is the optional system instruction.
	System string
	// Temperature is the sampling temperature; zero means the default.
	Temperature float64
	// MaxTokens caps the completion length; zero means the default.
	MaxTokens int64
}

// withDefaults returns a copy of the request with zero fields filled in.
func (r Request) withDefaults() Request {
	if r.Temperature == 0 {
		r.Temperature = DefaultTemperature
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	return r
}

// Provider generates text from a prompt. Implementations are safe for
// sequential use by one workflow; the tracker they share is safe for
// concurrent reads.
type Provider interface {
	// Generate runs one blocking request and returns the completion text.
	// Failures of any kind wrap ErrProvider.
	Generate(ctx context.Context, req Request) (string, error)
	// Name identifies the backend for logs and status output.
	Name() string
}

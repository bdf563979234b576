// Package genai is the boundary to the hosted text-generation service.
// The core treats it as prompt-in, text-out; service failures (auth,
// quota, timeouts) propagate to the caller untouched.
package genai

import "context"

// Params controls decoding for a single generation call. A nil *Params on
// Generate falls back to the client defaults.
type Params struct {
	DecodingMethod string
	Temperature    float64
	MaxNewTokens   int
	MinNewTokens   int
	RandomSeed     int64
}

const (
	DecodingGreedy = "greedy"
	DecodingSample = "sample"
)

type Generator interface {
	Generate(ctx context.Context, prompt string, params *Params) (string, error)
}

// StreamGenerator is the optional streaming variant: a finite, not
// restartable token sequence. The error channel delivers at most one error
// and both channels are closed when the stream ends.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, prompt string, params *Params) (<-chan string, <-chan error)
}

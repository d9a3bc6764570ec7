// Package embed abstracts the external embedding model behind a small
// Provider interface with an OpenAI-compatible implementation and a
// deterministic local one for development and tests.
package embed

import (
	"context"
	"errors"
	"fmt"
)

// Provider maps text to fixed-dimension vectors. Implementations must be
// safe for concurrent use.
type Provider interface {
	// Embed returns one vector per input text, aligned by position.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the fixed vector length this provider produces.
	Dimension() int
}

// ProviderError wraps any transport or model failure from a Provider so the
// engine can distinguish provider outages from its own errors.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err originated from an embedding Provider.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

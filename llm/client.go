package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrServiceUnavailable means the generation endpoint could not be reached.
	ErrServiceUnavailable = errors.New("generation service unavailable")
	// ErrTimeout means no response arrived within the bounded wait.
	ErrTimeout = errors.New("generation timed out")
)

// Client is a synchronous text-in/text-out generation client.
// maxTokens <= 0 means the backend default.
type Client interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Streamer is implemented by clients that can yield tokens incrementally.
type Streamer interface {
	GenerateStream(ctx context.Context, prompt string, maxTokens int) (<-chan string, <-chan error)
}

// wrapTransportErr maps transport failures onto the package sentinels so
// callers can branch with errors.Is.
func wrapTransportErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

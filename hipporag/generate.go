package hipporag

import (
	"context"
	"fmt"
	"time"

	"github.com/Ctrl-Creeper/HippoRAG/llm"
)

// Generate sends a prompt to the configured generation client and blocks
// until the response arrives or the configured timeout elapses.
func (m *Manager) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if m.LLM == nil {
		return "", fmt.Errorf("%w: no generation client configured", llm.ErrServiceUnavailable)
	}

	if _, ok := ctx.Deadline(); !ok && m.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.Config.Timeout))
		defer cancel()
	}

	out, err := m.LLM.Generate(ctx, prompt, maxTokens)
	if err != nil {
		m.log.WithError(err).Warn("generation failed")
		return "", err
	}
	return out, nil
}

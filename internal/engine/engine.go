package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

// Engine is the reasoning boundary. Implementations are stateless; the caller
// supplies full context on every call.
type Engine interface {
	Complete(ctx context.Context, msgs []*schema.Message) (string, error)
}

// Func adapts a plain function to the Engine interface.
type Func func(ctx context.Context, msgs []*schema.Message) (string, error)

func (f Func) Complete(ctx context.Context, msgs []*schema.Message) (string, error) {
	return f(ctx, msgs)
}

// ChatEngine backs the Engine interface with an eino chat model.
type ChatEngine struct {
	model model.BaseChatModel
}

func NewChatEngine(m model.BaseChatModel) *ChatEngine {
	return &ChatEngine{model: m}
}

func (e *ChatEngine) Complete(ctx context.Context, msgs []*schema.Message) (string, error) {
	out, err := e.model.Generate(ctx, msgs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", models.ErrReasoningTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", models.ErrReasoningFailed, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: model returned no message", models.ErrReasoningFailed)
	}
	return out.Content, nil
}

const maxRetryDelay = 30 * time.Second

// CallWithRetry runs one reasoning call under the per-call timeout, retrying
// with exponential backoff. A session deadline stops the retry loop early;
// exhausted retries surface the last failure for the caller to degrade on.
func CallWithRetry(ctx context.Context, eng Engine, msgs []*schema.Message, cfg models.SessionConfig) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.RetryBaseDelay << (attempt - 1)
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", models.ErrSessionDeadline, lastErr)
			case <-time.After(delay):
			}
		}

		callCtx := ctx
		cancel := func() {}
		if cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, cfg.CallTimeout)
		}
		text, err := eng.Complete(callCtx, msgs)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// Session-level cancellation, not a per-call fault.
			return "", fmt.Errorf("%w: %v", models.ErrSessionDeadline, lastErr)
		}
	}

	return "", lastErr
}

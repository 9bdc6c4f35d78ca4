package scorer

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single call to a context-aware scorer.
const DefaultTimeout = 2 * time.Second

// ErrScoringTimeout is logged when a context-aware scorer misses its deadline.
var ErrScoringTimeout = errors.New("scoring timed out")

// ContextScorer is a scorer that may block or fail, such as one backed by a model.
type ContextScorer interface {
	ScoreContext(ctx context.Context, content string, basePriority float64) (float64, error)
}

// Fallback calls a ContextScorer under a deadline and falls back to the
// lexical score on timeout or error.
type Fallback struct {
	inner   ContextScorer
	timeout time.Duration
	logger  *slog.Logger
}

// NewFallback wraps inner. A non-positive timeout selects DefaultTimeout.
func NewFallback(inner ContextScorer, timeout time.Duration, logger *slog.Logger) *Fallback {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		inner:   inner,
		timeout: timeout,
		logger:  logger.With("component", "scorer"),
	}
}

func (f *Fallback) Score(ctx context.Context, content string, basePriority float64) float64 {
	if content == "" {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type result struct {
		v   float64
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := f.inner.ScoreContext(ctx, content, basePriority)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			f.logger.Warn("context scorer failed, using lexical score", "error", r.err)
			return Score(content, basePriority)
		}
		return Clamp01(r.v)
	case <-ctx.Done():
		err := ErrScoringTimeout
		if errors.Is(ctx.Err(), context.Canceled) {
			err = errors.Wrap(ctx.Err(), "scoring")
		}
		f.logger.Warn("context scorer unavailable, using lexical score", "error", err, "timeout", f.timeout)
		return Score(content, basePriority)
	}
}

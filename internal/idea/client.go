package idea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ankits1802/finetune-api/internal/fingerprint"
	"github.com/ankits1802/finetune-api/internal/logger"
	"github.com/ankits1802/finetune-api/internal/metrics"
	"github.com/ankits1802/finetune-api/internal/observability"
)

var sentryMetrics = metrics.NewSentryMetrics()

// ErrGenerationFailed is returned once the idea service has exhausted its
// retries or returned output that never validated.
var ErrGenerationFailed = errors.New("music idea generation failed")

const (
	// maxAttempts is the total number of provider calls, not the number
	// of retries.
	maxAttempts = 3

	// backoffBase doubles between attempts: 1s after the first failure,
	// 2s after the second.
	backoffBase = time.Second
)

// AttemptRecorder receives the number of provider calls an idea request
// took. Satisfied by the CloudWatch metrics client.
type AttemptRecorder interface {
	RecordIdeaAttempts(provider string, attempts int, success bool)
}

// Client wraps a Provider with bounded-retry fault handling and attaches
// the locally computed fingerprint to successful results. No partial
// state is retained between attempts.
type Client struct {
	provider Provider
	recorder AttemptRecorder

	// sleep is replaceable in tests so backoff is observable without
	// waiting real seconds.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithAttemptRecorder forwards per-request attempt counts to the given
// recorder.
func WithAttemptRecorder(recorder AttemptRecorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// WithSleep replaces the backoff sleep. Tests use this to keep retry
// paths fast.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient creates an idea client around the given provider.
func NewClient(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestIdea asks the provider for musical characteristics, retrying
// transient failures with exponential backoff. Missing output fields are
// treated as failures and retried like any other failure; only the final
// failure after exhausting attempts is surfaced.
func (c *Client) RequestIdea(ctx context.Context, text string) (*MusicalIdea, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: input text is empty", ErrGenerationFailed)
	}

	trace := observability.GetClient().StartTrace(ctx, "idea.request", map[string]interface{}{
		"provider": c.provider.Name(),
	})
	defer trace.Finish()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := backoffBase << (attempt - 2)
			logger.Warn("Idea generation attempt failed, backing off", logger.Fields{
				"attempt":  attempt - 1,
				"wait_ms":  wait.Milliseconds(),
				"provider": c.provider.Name(),
			})
			if err := c.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
			}
		}

		gen := trace.Generation("idea.attempt", map[string]interface{}{"attempt": attempt})
		gen.Input(text)
		out, err := c.provider.GenerateIdea(ctx, &Request{Text: text})
		if err == nil {
			err = validateIdea(out)
		}
		if err != nil {
			gen.SetLevel("ERROR")
			gen.Finish()
			lastErr = err
			continue
		}
		gen.Output(out)
		gen.Finish()
		c.recordAttempts(ctx, attempt, true)

		return &MusicalIdea{
			TempoBPM:    clampTempo(out.Tempo),
			Key:         out.Key,
			Style:       out.Style,
			Fingerprint: fingerprint.Hash(text),
		}, nil
	}

	logger.Error("All idea generation attempts failed", lastErr, logger.Fields{
		"attempts": maxAttempts,
		"provider": c.provider.Name(),
	})
	c.recordAttempts(ctx, maxAttempts, false)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrGenerationFailed, maxAttempts, lastErr)
}

func (c *Client) recordAttempts(ctx context.Context, attempts int, success bool) {
	sentryMetrics.RecordIdeaAttempts(ctx, c.provider.Name(), attempts, success)
	if c.recorder != nil {
		c.recorder.RecordIdeaAttempts(c.provider.Name(), attempts, success)
	}
}

// validateIdea rejects responses missing any of the required fields.
func validateIdea(out *ProviderIdea) error {
	if out == nil {
		return fmt.Errorf("no output received")
	}
	if out.Tempo <= 0 {
		return fmt.Errorf("output missing tempo")
	}
	if strings.TrimSpace(out.Key) == "" {
		return fmt.Errorf("output missing key")
	}
	if strings.TrimSpace(out.Style) == "" {
		return fmt.Errorf("output missing style")
	}
	return nil
}

func clampTempo(tempo float64) float64 {
	if tempo < TempoMin {
		return TempoMin
	}
	if tempo > TempoMax {
		return TempoMax
	}
	return tempo
}

// sleepContext waits for d unless the context is cancelled first. The
// timer is always released so a superseded request never leaves one
// firing against a stale session.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

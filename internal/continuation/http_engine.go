package continuation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ankits1802/finetune-api/internal/sequence"
	"github.com/getsentry/sentry-go"
)

const (
	continuationsPath     = "/v1/continuations"
	defaultRequestTimeout = 60 * time.Second
	maxErrorResponseChars = 200
)

// HTTPEngine implements Engine against a magenta-style model server that
// accepts a quantized seed and returns the extended sequence as JSON.
type HTTPEngine struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPEngine creates an engine client for the given base URL.
func NewHTTPEngine(baseURL string) *HTTPEngine {
	return &HTTPEngine{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Continue posts the request to the engine and decodes the extended
// sequence. Any failure wraps ErrContinuationFailed.
func (e *HTTPEngine) Continue(ctx context.Context, req *Request) (*sequence.NoteSequence, error) {
	startTime := time.Now()
	log.Printf("🎼 CONTINUATION REQUEST STARTED (steps=%d, temperature=%.2f)", req.Steps, req.Temperature)

	transaction := sentry.StartTransaction(ctx, "continuation.continue")
	defer transaction.Finish()

	body, err := json.Marshal(req)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: marshal request: %w", ErrContinuationFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+continuationsPath, bytes.NewReader(body))
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: build request: %w", ErrContinuationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	span := transaction.StartChild("continuation.api_call")
	resp, err := e.httpClient.Do(httpReq)
	span.Finish()
	if err != nil {
		log.Printf("❌ CONTINUATION REQUEST FAILED after %v: %v", time.Since(startTime), err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("%w: %w", ErrContinuationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorResponseChars))
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: engine returned %d: %s", ErrContinuationFailed, resp.StatusCode, snippet)
	}

	var out sequence.NoteSequence
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: decode response: %w", ErrContinuationFailed, err)
	}
	if len(out.Notes) == 0 {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: engine returned an empty sequence", ErrContinuationFailed)
	}

	log.Printf("✅ CONTINUATION COMPLETED in %v (notes=%d, totalTime=%.2f)",
		time.Since(startTime), len(out.Notes), out.TotalTime)
	transaction.SetTag("success", "true")
	return &out, nil
}

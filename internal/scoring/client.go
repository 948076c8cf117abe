// Package scoring is the HTTP client for the external scoring and adaptive
// sequencing service. The engine consumes its decisions verbatim: which
// module comes next, at what difficulty, and when the attempt is complete.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/config"
	"github.com/satforge/exam-engine/internal/model"
)

// ErrAttemptNotFound is returned when the service has no active attempt
// with the given identifier.
var ErrAttemptNotFound = errors.New("attempt not found")

// TransientError wraps any network or server failure that the student may
// simply retry. The session state is untouched when one is returned.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient scoring failure: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable scoring failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Client talks to the scoring service.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a scoring client from configuration.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.ScoringBaseURL,
		http:    &http.Client{Timeout: cfg.ScoringTimeout},
		log:     log.With().Str("component", "scoring_client").Logger(),
	}
}

// FetchCurrentModule returns the attempt's current module, including the
// server-side remainder when the module was already partially spent.
func (c *Client) FetchCurrentModule(ctx context.Context, token string, attemptID uuid.UUID) (*model.Module, error) {
	url := fmt.Sprintf("%s/attempts/%s/current-module", c.baseURL, attemptID)

	var module model.Module
	if err := c.do(ctx, http.MethodGet, url, token, nil, &module); err != nil {
		return nil, err
	}
	return &module, nil
}

// SubmitModule sends the complete per-question record set for the active
// module and returns the service's outcome: scored results plus either the
// next module definition or attempt completion.
func (c *Client) SubmitModule(ctx context.Context, token string, attemptID uuid.UUID, sub *model.ModuleSubmission) (*model.ModuleOutcome, error) {
	url := fmt.Sprintf("%s/attempts/%s/submit-module", c.baseURL, attemptID)

	var outcome model.ModuleOutcome
	if err := c.do(ctx, http.MethodPost, url, token, sub, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// AbandonAttempt tells the service the student gave up on the attempt.
func (c *Client) AbandonAttempt(ctx context.Context, token string, attemptID uuid.UUID) error {
	url := fmt.Sprintf("%s/attempts/%s/abandon", c.baseURL, attemptID)
	return c.do(ctx, http.MethodPost, url, token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, url, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrAttemptNotFound
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("url", url).
			Bytes("body", snippet).
			Msg("Scoring service rejected request")
		return &TransientError{Err: fmt.Errorf("scoring service returned %d", resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

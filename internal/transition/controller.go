// Package transition orchestrates module boundaries: submitting a finished
// module to the scoring service and applying its decision; next module,
// attempt complete, or a retryable failure that leaves everything intact.
package transition

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/model"
	"github.com/satforge/exam-engine/internal/session"
)

// ErrOutcomeWithoutModule is returned when the scoring service reports an
// unfinished attempt but supplies no next module to load.
var ErrOutcomeWithoutModule = errors.New("scoring outcome carries neither completion nor a next module")

// ScoringService is the slice of the scoring client the controller needs.
type ScoringService interface {
	FetchCurrentModule(ctx context.Context, token string, attemptID uuid.UUID) (*model.Module, error)
	SubmitModule(ctx context.Context, token string, attemptID uuid.UUID, sub *model.ModuleSubmission) (*model.ModuleOutcome, error)
	AbandonAttempt(ctx context.Context, token string, attemptID uuid.UUID) error
}

// Controller drives one student's module transitions against their session
// store. Per attempt it is a three-state machine: Active while the student
// answers, Submitting while the network call is in flight, then back to
// Active (failure), a fresh Active module (next-module-ready) or an empty
// session (completed).
type Controller struct {
	scoring ScoringService
	log     zerolog.Logger
}

// NewController creates a transition controller.
func NewController(scoring ScoringService, log zerolog.Logger) *Controller {
	return &Controller{
		scoring: scoring,
		log:     log.With().Str("component", "transition").Logger(),
	}
}

// StartModule fetches the attempt's current module and seeds the session
// store. Initialize is resume-aware: re-seeding the module already active
// preserves in-progress answers, flags and cursor.
func (c *Controller) StartModule(ctx context.Context, store *session.Store, token string, attemptID uuid.UUID) (*model.Module, error) {
	module, err := c.scoring.FetchCurrentModule(ctx, token, attemptID)
	if err != nil {
		return nil, fmt.Errorf("fetch current module: %w", err)
	}

	store.Initialize(ctx, attemptID, module)
	return module, nil
}

// SubmitModule submits the active module. The store is marked Submitting
// first, then the full record set is assembled: one entry per question,
// unanswered ones included with an explicit empty value. No answer or flag
// mutation is accepted until the call resolves.
//
// On failure the store returns to Active exactly as it was: TimeLeft is
// whatever the clock last wrote (it keeps ticking during the round-trip),
// never reset, so a retry grants no extra time.
func (c *Controller) SubmitModule(ctx context.Context, store *session.Store, token string, attemptID uuid.UUID) (*model.ModuleOutcome, error) {
	if err := store.BeginSubmit(); err != nil {
		return nil, err
	}

	sub, err := store.BuildSubmission()
	if err != nil {
		store.FailSubmit()
		return nil, err
	}

	outcome, err := c.scoring.SubmitModule(ctx, token, attemptID, sub)
	if err != nil {
		store.FailSubmit()
		return nil, err
	}

	switch {
	case outcome == nil:
		store.FailSubmit()
		return nil, ErrOutcomeWithoutModule
	case outcome.TestCompleted:
		store.Reset(ctx)
		c.log.Info().Str("attempt_id", attemptID.String()).Msg("Attempt completed")
	case outcome.NextModule != nil:
		store.Initialize(ctx, attemptID, outcome.NextModule)
		c.log.Info().
			Str("attempt_id", attemptID.String()).
			Str("next_module", outcome.NextModule.ID.String()).
			Str("difficulty", string(outcome.NextModule.Difficulty)).
			Msg("Next module ready")
	default:
		// Neither completion nor a next module: resolve back to Active and
		// surface as retryable.
		store.FailSubmit()
		return nil, ErrOutcomeWithoutModule
	}

	return outcome, nil
}

// Abandon tells the scoring service the attempt is over and clears the
// session. The zoom preference survives.
func (c *Controller) Abandon(ctx context.Context, store *session.Store, token string, attemptID uuid.UUID) error {
	if err := c.scoring.AbandonAttempt(ctx, token, attemptID); err != nil {
		return fmt.Errorf("abandon attempt: %w", err)
	}
	store.Reset(ctx)
	return nil
}

// Package session owns the in-progress exam state for one student: the
// answer/flag ledger, the question cursor, the countdown field, and the
// durable persistence that lets a session survive a reload or crash.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/model"
	"github.com/satforge/exam-engine/internal/slot"
)

var (
	// ErrNoActiveModule is returned by operations that require a loaded module.
	ErrNoActiveModule = errors.New("no active module")
	// ErrSubmitting is returned when a mutation is attempted while the
	// module's submission is in flight. The module is immutable from the
	// moment submission begins, so a late local edit can never be silently
	// dropped by the server response re-seeding the store.
	ErrSubmitting = errors.New("module submission in flight")
	// ErrSubmitInFlight is returned by BeginSubmit when a submission is
	// already running.
	ErrSubmitInFlight = errors.New("submission already in flight")
)

// Store holds one student's ExamSession. All mutations go through its
// methods and are applied atomically under a mutex; after every mutation
// the persisted subset is written to the student's durable slot.
//
// Persistence failures are logged and swallowed: the engine keeps operating
// in-memory, trading crash-recovery guarantees for continued usability.
type Store struct {
	mu         sync.Mutex
	sess       *model.ExamSession
	submitting bool

	slots    slot.Store
	slotName string
	zoomName string
	log      zerolog.Logger
}

// NewStore creates a session store persisting to the given slot names.
func NewStore(slots slot.Store, slotName, zoomName string, log zerolog.Logger) *Store {
	return &Store{
		sess:     model.NewExamSession(),
		slots:    slots,
		slotName: slotName,
		zoomName: zoomName,
		log:      log.With().Str("component", "session_store").Logger(),
	}
}

// Initialize seeds the store for a module. If the store already holds the
// same attempt and the same module, the in-progress answers, flags and
// cursor are preserved; this is the resume-after-reload path. Any other
// module resets all three. In both cases the module snapshot is replaced,
// the countdown is seeded and the review overlay is closed.
func (s *Store) Initialize(ctx context.Context, attemptID uuid.UUID, module *model.Module) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resuming := s.sess.AttemptID != nil && *s.sess.AttemptID == attemptID &&
		s.sess.CurrentModule != nil && s.sess.CurrentModule.ID == module.ID

	if !resuming {
		s.sess.CurrentQuestionIndex = 0
		s.sess.Answers = make(map[uuid.UUID]string)
		s.sess.Flags = make(map[uuid.UUID]bool)
		s.sess.TimeSpent = make(map[uuid.UUID]int)
		s.sess.TimeLeft = module.InitialTimeLeft()
	} else if module.RemainingSeconds != nil {
		// Server-side remainder wins over whatever the local clock held.
		s.sess.TimeLeft = *module.RemainingSeconds
	}

	s.sess.AttemptID = &attemptID
	s.sess.CurrentModule = module
	s.sess.IsReviewOpen = false
	s.submitting = false

	s.persist(ctx)
}

// ClearModule drops the active module and resets the cursor while retaining
// the attempt, answers and flags. Used when the student navigates away
// transiently, not when the attempt finishes.
func (s *Store) ClearModule(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess.CurrentModule = nil
	s.sess.CurrentQuestionIndex = 0
	s.sess.IsReviewOpen = false
	s.submitting = false

	s.persist(ctx)
}

// Reset clears everything except the zoom preference. Called once an
// attempt is fully completed or abandoned. The durable slot is dropped.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zoom := s.sess.ZoomLevel
	s.sess = model.NewExamSession()
	s.sess.ZoomLevel = zoom
	s.submitting = false

	if err := s.slots.Delete(ctx, s.slotName); err != nil {
		s.log.Warn().Err(err).Str("slot", s.slotName).Msg("Failed to drop session slot")
	}
}

// SetAnswer upserts the answer value for a question. The value's shape is
// not validated; grid-in validation is a submission-time server concern.
func (s *Store) SetAnswer(ctx context.Context, questionID uuid.UUID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return ErrSubmitting
	}
	s.sess.Answers[questionID] = value
	s.persist(ctx)
	return nil
}

// ToggleFlag flips the marked-for-review state for a question. Absent
// entries default to false, so the first toggle sets true. Returns the
// new flag state.
func (s *Store) ToggleFlag(ctx context.Context, questionID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return false, ErrSubmitting
	}
	next := !s.sess.Flags[questionID]
	s.sess.Flags[questionID] = next
	s.persist(ctx)
	return next, nil
}

// SetQuestionIndex moves the cursor. Out-of-range input is clamped to the
// active module's bounds: the navigation UI only ever offers valid indices,
// so clamping keeps the operation total without modeling a caller error as
// recoverable engine state.
func (s *Store) SetQuestionIndex(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.CurrentModule == nil {
		return ErrNoActiveModule
	}
	if index < 0 {
		index = 0
	}
	if max := len(s.sess.CurrentModule.Questions) - 1; index > max {
		index = max
	}
	s.sess.CurrentQuestionIndex = index
	s.persist(ctx)
	return nil
}

// Tick decrements the countdown by one second, clamped at zero, and charges
// the second to the question under the cursor. Reaching zero signals
// nothing by itself; expiry handling belongs to whichever view observes it.
func (s *Store) Tick(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.TimeLeft > 0 {
		s.sess.TimeLeft--
		if m := s.sess.CurrentModule; m != nil && s.sess.CurrentQuestionIndex < len(m.Questions) {
			qid := m.Questions[s.sess.CurrentQuestionIndex].ID
			s.sess.TimeSpent[qid]++
		}
		s.persist(ctx)
	}
	return s.sess.TimeLeft
}

// SetReviewOpen toggles the review overview screen. Transient UI state.
func (s *Store) SetReviewOpen(ctx context.Context, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess.IsReviewOpen = open
	// Not part of the persisted subset, but sibling fields may have changed
	// since the last write; persisting keeps the slot fresh.
	s.persist(ctx)
}

// SetZoom clamps and stores the display-scale preference. The zoom level
// lives in its own slot so it survives Reset.
func (s *Store) SetZoom(ctx context.Context, level float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess.ZoomLevel = model.ClampZoom(level)
	s.persist(ctx)
	s.persistZoom(ctx)
	return s.sess.ZoomLevel
}

// BeginSubmit marks the module immutable for the duration of a submission.
// The countdown keeps ticking while the call is in flight; slow networks
// are charged as engaged time, matching the product behavior.
func (s *Store) BeginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.CurrentModule == nil {
		return ErrNoActiveModule
	}
	if s.submitting {
		return ErrSubmitInFlight
	}
	s.submitting = true
	return nil
}

// FailSubmit resolves a failed submission back to the active state. No
// local state is discarded and TimeLeft is left exactly as the clock last
// set it; a retry never grants extra time.
func (s *Store) FailSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
}

// Submitting reports whether a submission is in flight.
func (s *Store) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// BuildSubmission assembles one complete record per question of the active
// module: the recorded answer (explicitly empty when unanswered), the flag
// state and the accumulated time-on-question. Partial submissions are not
// supported.
func (s *Store) BuildSubmission() (*model.ModuleSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.sess.CurrentModule
	if m == nil {
		return nil, ErrNoActiveModule
	}

	records := make([]model.AnswerRecord, 0, len(m.Questions))
	elapsed := 0
	for _, q := range m.Questions {
		spent := s.sess.TimeSpent[q.ID]
		elapsed += spent
		records = append(records, model.AnswerRecord{
			QuestionID:       q.ID,
			Answer:           s.sess.Answers[q.ID],
			IsFlagged:        s.sess.Flags[q.ID],
			TimeSpentSeconds: spent,
		})
	}

	return &model.ModuleSubmission{
		ModuleID:         m.ID,
		Answers:          records,
		TimeSpentSeconds: elapsed,
	}, nil
}

// View returns a copy of the current session for readers. The module
// pointer is shared; modules are server-owned and never mutated here.
func (s *Store) View() model.ExamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() model.ExamSession {
	cp := *s.sess
	cp.Answers = make(map[uuid.UUID]string, len(s.sess.Answers))
	for k, v := range s.sess.Answers {
		cp.Answers[k] = v
	}
	cp.Flags = make(map[uuid.UUID]bool, len(s.sess.Flags))
	for k, v := range s.sess.Flags {
		cp.Flags[k] = v
	}
	cp.TimeSpent = make(map[uuid.UUID]int, len(s.sess.TimeSpent))
	for k, v := range s.sess.TimeSpent {
		cp.TimeSpent[k] = v
	}
	return cp
}

// persist writes the durable subset to the live slot. Callers must hold mu.
func (s *Store) persist(ctx context.Context) {
	payload, err := encodeSnapshot(s.sess)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode session snapshot")
		return
	}
	if err := s.slots.Save(ctx, s.slotName, payload); err != nil {
		s.log.Warn().Err(err).Str("slot", s.slotName).Msg("Session persistence failed, continuing in-memory")
	}
}

// persistZoom writes the zoom preference to its own slot. Callers must hold mu.
func (s *Store) persistZoom(ctx context.Context) {
	if err := s.slots.Save(ctx, s.zoomName, encodeZoom(s.sess.ZoomLevel)); err != nil {
		s.log.Warn().Err(err).Str("slot", s.zoomName).Msg("Zoom persistence failed")
	}
}

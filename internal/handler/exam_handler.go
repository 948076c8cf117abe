package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/middleware"
	"github.com/satforge/exam-engine/internal/model"
	"github.com/satforge/exam-engine/internal/recovery"
	"github.com/satforge/exam-engine/internal/render"
	"github.com/satforge/exam-engine/internal/response"
	"github.com/satforge/exam-engine/internal/scoring"
	"github.com/satforge/exam-engine/internal/session"
	"github.com/satforge/exam-engine/internal/transition"
	"github.com/satforge/exam-engine/internal/validator"
)

// ExamHandler serves the exam-taking endpoints: session bootstrap, the
// answer/flag ledger, cursor and review navigation, module submission and
// crash recovery.
type ExamHandler struct {
	registry   *session.Registry
	controller *transition.Controller
	guard      *recovery.Guard
	renderer   render.Renderer
	log        zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	registry *session.Registry,
	controller *transition.Controller,
	guard *recovery.Guard,
	renderer render.Renderer,
	log zerolog.Logger,
) *ExamHandler {
	return &ExamHandler{
		registry:   registry,
		controller: controller,
		guard:      guard,
		renderer:   renderer,
		log:        log.With().Str("component", "exam_handler").Logger(),
	}
}

// sessionState is the reload payload: the persisted session plus the
// rendered content of the question under the cursor.
type sessionState struct {
	Session  model.ExamSession `json:"session"`
	Rendered []render.Segment  `json:"rendered_question,omitempty"`
}

// StartModule godoc
// POST /api/v1/exam/attempts/:attempt_id/module
// Fetches the attempt's current module from the scoring service and seeds
// the session. Re-seeding the module already active preserves in-progress
// answers, flags and cursor (the reload-resume path).
func (h *ExamHandler) StartModule(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	module, err := h.controller.StartModule(c.Request.Context(), store, middleware.GetToken(c), attemptID)
	if err != nil {
		switch {
		case errors.Is(err, scoring.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		case scoring.IsTransient(err):
			response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"module":  module,
		"session": store.View(),
	})
}

// GetState godoc
// GET /api/v1/exam/attempts/:attempt_id/state
// Returns the full session for a page reload: answers, flags, cursor and
// remaining time as last persisted, review overlay closed.
func (h *ExamHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	view, ok := h.viewForAttempt(c, store, attemptID)
	if !ok {
		return
	}

	state := sessionState{Session: view}
	if m := view.CurrentModule; m != nil && view.CurrentQuestionIndex < len(m.Questions) {
		state.Rendered = h.renderer.Render(m.Questions[view.CurrentQuestionIndex].QuestionText)
	}
	response.Success(c, http.StatusOK, state)
}

// SetAnswer godoc
// PUT /api/v1/exam/attempts/:attempt_id/answers/:question_id
// Upserts the answer for a question. The question need not be the one
// under the cursor. Rejected while a submission is in flight.
func (h *ExamHandler) SetAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	if _, ok := h.viewForAttempt(c, store, attemptID); !ok {
		return
	}

	if err := store.SetAnswer(c.Request.Context(), questionID, req.Value); err != nil {
		h.failMutation(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": questionID, "value": req.Value})
}

// ToggleFlag godoc
// POST /api/v1/exam/attempts/:attempt_id/flags/:question_id
// Flips the marked-for-review state. Rejected while a submission is in flight.
func (h *ExamHandler) ToggleFlag(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	if _, ok := h.viewForAttempt(c, store, attemptID); !ok {
		return
	}

	flagged, err := store.ToggleFlag(c.Request.Context(), questionID)
	if err != nil {
		h.failMutation(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": questionID, "flagged": flagged})
}

// SetCursor godoc
// PUT /api/v1/exam/attempts/:attempt_id/cursor
// Moves the current-question cursor. Out-of-range indices are clamped.
// Jumping from the review grid goes through here; it never touches answers.
func (h *ExamHandler) SetCursor(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	var req model.SetCursorRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	if _, ok := h.viewForAttempt(c, store, attemptID); !ok {
		return
	}

	if err := store.SetQuestionIndex(c.Request.Context(), req.Index); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrNoActiveModule)
		return
	}

	view := store.View()
	state := sessionState{Session: view}
	if m := view.CurrentModule; m != nil && view.CurrentQuestionIndex < len(m.Questions) {
		state.Rendered = h.renderer.Render(m.Questions[view.CurrentQuestionIndex].QuestionText)
	}
	response.Success(c, http.StatusOK, state)
}

// SetReview godoc
// PUT /api/v1/exam/attempts/:attempt_id/review
// Opens or closes the review overview and returns the derived counts the
// review screen needs, including whether a submit warrants confirmation.
func (h *ExamHandler) SetReview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	var req model.SetReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	if _, ok := h.viewForAttempt(c, store, attemptID); !ok {
		return
	}

	store.SetReviewOpen(c.Request.Context(), req.Open)
	overview, err := store.Overview()
	if err != nil {
		response.Fail(c, http.StatusConflict, response.ErrNoActiveModule)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"review_open": req.Open, "overview": overview})
}

// SetZoom godoc
// PUT /api/v1/exam/preferences/zoom
// Stores the display-scale preference, clamped to the supported range.
// Survives attempt completion and reset.
func (h *ExamHandler) SetZoom(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SetZoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	level := store.SetZoom(c.Request.Context(), req.Level)
	response.Success(c, http.StatusOK, gin.H{"zoom_level": level})
}

// ClearModule godoc
// DELETE /api/v1/exam/attempts/:attempt_id/module
// Unloads the active module when the student navigates away transiently.
// The attempt, answers and flags are retained; the cursor resets. Not the
// abandon path; nothing is reported to the scoring service.
func (h *ExamHandler) ClearModule(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	if _, ok := h.viewForAttempt(c, store, attemptID); !ok {
		return
	}

	store.ClearModule(c.Request.Context())
	response.Success(c, http.StatusOK, sessionState{Session: store.View()})
}

// SubmitModule godoc
// POST /api/v1/exam/attempts/:attempt_id/submit-module
// Submits the active module. On success the session is re-seeded with the
// next module or fully reset on completion; on failure nothing changes and
// the student may retry.
func (h *ExamHandler) SubmitModule(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	if _, ok := h.viewForAttempt(c, store, attemptID); !ok {
		return
	}

	outcome, err := h.controller.SubmitModule(c.Request.Context(), store, middleware.GetToken(c), attemptID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSubmitInFlight):
			response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
		case errors.Is(err, session.ErrNoActiveModule):
			response.Fail(c, http.StatusConflict, response.ErrNoActiveModule)
		case errors.Is(err, scoring.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		default:
			// Transient by the error-handling contract: the student retries,
			// nothing was discarded.
			response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
		}
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

// Abandon godoc
// DELETE /api/v1/exam/attempts/:attempt_id
// Abandons the attempt server-side and clears the session. The zoom
// preference survives.
func (h *ExamHandler) Abandon(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	if err := h.controller.Abandon(c.Request.Context(), store, middleware.GetToken(c), attemptID); err != nil {
		if errors.Is(err, scoring.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
			return
		}
		response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"abandoned": true})
}

// Recover godoc
// POST /api/v1/exam/attempts/recover
// The recovery screen's reload action: drops the in-memory session and
// re-mounts it from the durable slot, restoring answers and flags as
// committed before the fault. A submission that was in flight during the
// fault is treated as failed and must be re-initiated.
func (h *ExamHandler) Recover(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	store, err := h.registry.Rehydrate(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrRecoveryNoBackup)
		return
	}
	response.Success(c, http.StatusOK, sessionState{Session: store.View()})
}

// ─── Helpers ────────────────────────────────────────────────────────

func parseAttemptID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// viewForAttempt returns the session view after checking the path's
// attempt is the one the session holds.
func (h *ExamHandler) viewForAttempt(c *gin.Context, store *session.Store, attemptID uuid.UUID) (model.ExamSession, bool) {
	view := store.View()
	if view.AttemptID == nil || *view.AttemptID != attemptID {
		response.Fail(c, http.StatusConflict, response.ErrAttemptMismatch)
		return model.ExamSession{}, false
	}
	return view, true
}

func (h *ExamHandler) failMutation(c *gin.Context, err error) {
	if errors.Is(err, session.ErrSubmitting) {
		response.Fail(c, http.StatusConflict, response.ErrModuleLocked)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

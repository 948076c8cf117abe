package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/config"
	"github.com/satforge/exam-engine/internal/countdown"
	"github.com/satforge/exam-engine/internal/handler"
	"github.com/satforge/exam-engine/internal/model"
	"github.com/satforge/exam-engine/internal/recovery"
	"github.com/satforge/exam-engine/internal/render"
	"github.com/satforge/exam-engine/internal/response"
	"github.com/satforge/exam-engine/internal/router"
	"github.com/satforge/exam-engine/internal/scoring"
	"github.com/satforge/exam-engine/internal/service"
	"github.com/satforge/exam-engine/internal/session"
	"github.com/satforge/exam-engine/internal/slot"
	"github.com/satforge/exam-engine/internal/transition"
	"github.com/satforge/exam-engine/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type stubScoring struct {
	currentModule *model.Module
	fetchErr      error
	outcome       *model.ModuleOutcome
	submitErr     error
	abandonErr    error
}

func (s *stubScoring) FetchCurrentModule(_ context.Context, _ string, _ uuid.UUID) (*model.Module, error) {
	return s.currentModule, s.fetchErr
}

func (s *stubScoring) SubmitModule(_ context.Context, _ string, _ uuid.UUID, _ *model.ModuleSubmission) (*model.ModuleOutcome, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.outcome, nil
}

func (s *stubScoring) AbandonAttempt(_ context.Context, _ string, _ uuid.UUID) error {
	return s.abandonErr
}

type testEnv struct {
	router   *gin.Engine
	token    string
	registry *session.Registry
	slots    *slot.MemoryStore
}

func newTestEnv(t *testing.T, stub *stubScoring) *testEnv {
	t.Helper()

	cfg := &config.Config{
		GinMode:   gin.TestMode,
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
	}

	log := zerolog.Nop()
	slots := slot.NewMemoryStore()
	authService := service.NewAuthService(cfg)
	registry := session.NewRegistry(slots, log)
	clocks := countdown.NewManager(log)
	controller := transition.NewController(stub, log)
	guard := recovery.NewGuard(slots, log)

	handlers := &router.Handlers{
		Exam:  handler.NewExamHandler(registry, controller, guard, render.NewMathSegmenter(), log),
		Clock: handler.NewClockHandler(registry, clocks, log, nil),
	}

	token, err := authService.GenerateStudentToken(1)
	require.NoError(t, err)

	return &testEnv{
		router:   router.SetupRouter(authService, guard, handlers, cfg),
		token:    token,
		registry: registry,
		slots:    slots,
	}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+e.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func stubModule(questions int) *model.Module {
	m := &model.Module{
		ID:               uuid.New(),
		Section:          model.SectionReadingWriting,
		ModuleType:       model.ModuleType1,
		Difficulty:       model.DifficultyStandard,
		TimeLimitMinutes: 32,
	}
	for i := 0; i < questions; i++ {
		m.Questions = append(m.Questions, model.QuestionView{
			ID:             uuid.New(),
			QuestionNumber: i + 1,
			QuestionText:   fmt.Sprintf("Question %d with $x_%d$", i+1, i+1),
			QuestionType:   model.QuestionMultipleChoice,
		})
	}
	return m
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestStartModule_SeedsAndReturnsSession(t *testing.T) {
	module := stubModule(3)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	w := env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	sess := data["session"].(map[string]interface{})
	assert.Equal(t, attemptID.String(), sess["attempt_id"])
	assert.Equal(t, float64(32*60), sess["time_left"])
}

func TestStartModule_AttemptNotFound(t *testing.T) {
	env := newTestEnv(t, &stubScoring{fetchErr: scoring.ErrAttemptNotFound})

	w := env.do(http.MethodPost, "/api/v1/exam/attempts/"+uuid.NewString()+"/module", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrAttemptNotFound))
}

func TestStartModule_InvalidAttemptID(t *testing.T) {
	env := newTestEnv(t, &stubScoring{})

	w := env.do(http.MethodPost, "/api/v1/exam/attempts/not-a-uuid/module", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrInvalidID))
}

func TestRoutes_RequireAuth(t *testing.T) {
	env := newTestEnv(t, &stubScoring{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exam/attempts/"+uuid.NewString()+"/state", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetState_AttemptMismatch(t *testing.T) {
	module := stubModule(2)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	w := env.do(http.MethodGet, "/api/v1/exam/attempts/"+uuid.NewString()+"/state", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrAttemptMismatch))
}

func TestGetState_ReturnsRenderedQuestion(t *testing.T) {
	module := stubModule(2)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	w := env.do(http.MethodGet, "/api/v1/exam/attempts/"+attemptID.String()+"/state", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.NotEmpty(t, data["rendered_question"])
}

func TestClearModule_KeepsLedger(t *testing.T) {
	module := stubModule(3)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	qid := module.Questions[0].ID
	require.Equal(t, http.StatusOK, env.do(http.MethodPut,
		"/api/v1/exam/attempts/"+attemptID.String()+"/answers/"+qid.String(),
		model.SetAnswerRequest{Value: "A"}).Code)

	w := env.do(http.MethodDelete, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil)
	require.Equal(t, http.StatusOK, w.Code)

	view := env.registry.ForStudent(context.Background(), 1).View()
	assert.Nil(t, view.CurrentModule)
	assert.Equal(t, 0, view.CurrentQuestionIndex)
	require.NotNil(t, view.AttemptID)
	assert.Equal(t, attemptID, *view.AttemptID)
	assert.Equal(t, "A", view.Answers[qid])
}

func TestSetAnswer_RoundTrip(t *testing.T) {
	module := stubModule(3)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	qid := module.Questions[1].ID
	w := env.do(http.MethodPut,
		"/api/v1/exam/attempts/"+attemptID.String()+"/answers/"+qid.String(),
		model.SetAnswerRequest{Value: "B"})
	require.Equal(t, http.StatusOK, w.Code)

	store := env.registry.ForStudent(context.Background(), 1)
	assert.Equal(t, "B", store.View().Answers[qid])
}

func TestSetAnswer_ValidationError(t *testing.T) {
	module := stubModule(2)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	w := env.do(http.MethodPut,
		"/api/v1/exam/attempts/"+attemptID.String()+"/answers/"+module.Questions[0].ID.String(),
		map[string]interface{}{"value": ""})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrValidation))
}

func TestToggleFlag_RoundTrip(t *testing.T) {
	module := stubModule(2)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	path := "/api/v1/exam/attempts/" + attemptID.String() + "/flags/" + module.Questions[0].ID.String()

	w := env.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeData(t, w)["flagged"])

	w = env.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeData(t, w)["flagged"])
}

func TestSetCursor_ClampsAndRenders(t *testing.T) {
	module := stubModule(3)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	w := env.do(http.MethodPut,
		"/api/v1/exam/attempts/"+attemptID.String()+"/cursor",
		model.SetCursorRequest{Index: 50})

	require.Equal(t, http.StatusOK, w.Code)
	sess := decodeData(t, w)["session"].(map[string]interface{})
	assert.Equal(t, float64(2), sess["current_question_index"])
}

func TestSetReview_ReturnsOverview(t *testing.T) {
	module := stubModule(3)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	require.Equal(t, http.StatusOK, env.do(http.MethodPut,
		"/api/v1/exam/attempts/"+attemptID.String()+"/answers/"+module.Questions[0].ID.String(),
		model.SetAnswerRequest{Value: "A"}).Code)

	w := env.do(http.MethodPut,
		"/api/v1/exam/attempts/"+attemptID.String()+"/review",
		model.SetReviewRequest{Open: true})

	require.Equal(t, http.StatusOK, w.Code)
	overview := decodeData(t, w)["overview"].(map[string]interface{})
	assert.Equal(t, float64(1), overview["answered"])
	assert.Equal(t, float64(2), overview["unanswered"])
	assert.Equal(t, true, overview["needs_confirmation"])
}

func TestSetZoom_Clamped(t *testing.T) {
	env := newTestEnv(t, &stubScoring{})

	w := env.do(http.MethodPut, "/api/v1/exam/preferences/zoom", model.SetZoomRequest{Level: 3.0})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ZoomMax, decodeData(t, w)["zoom_level"])
}

func TestSubmitModule_AdvancesToNextModule(t *testing.T) {
	first := stubModule(2)
	next := stubModule(2)
	next.ModuleType = model.ModuleType2
	next.Difficulty = model.DifficultyHarder

	stub := &stubScoring{
		currentModule: first,
		outcome: &model.ModuleOutcome{
			ModuleScore: model.ModuleScore{Correct: 2, Total: 2},
			NextModule:  next,
		},
	}
	env := newTestEnv(t, stub)

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	w := env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/submit-module", nil)
	require.Equal(t, http.StatusOK, w.Code)

	store := env.registry.ForStudent(context.Background(), 1)
	view := store.View()
	require.NotNil(t, view.CurrentModule)
	assert.Equal(t, next.ID, view.CurrentModule.ID)
}

func TestSubmitModule_FailureLeavesSessionIntact(t *testing.T) {
	module := stubModule(2)
	stub := &stubScoring{
		currentModule: module,
		submitErr:     &scoring.TransientError{Err: fmt.Errorf("scoring down")},
	}
	env := newTestEnv(t, stub)

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodPut,
		"/api/v1/exam/attempts/"+attemptID.String()+"/answers/"+module.Questions[0].ID.String(),
		model.SetAnswerRequest{Value: "C"}).Code)

	w := env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/submit-module", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrSubmitFailed))

	store := env.registry.ForStudent(context.Background(), 1)
	view := store.View()
	assert.Equal(t, "C", view.Answers[module.Questions[0].ID])
	assert.False(t, store.Submitting())
}

func TestAbandon_ClearsSession(t *testing.T) {
	module := stubModule(2)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	w := env.do(http.MethodDelete, "/api/v1/exam/attempts/"+attemptID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	store := env.registry.ForStudent(context.Background(), 1)
	assert.Nil(t, store.View().CurrentModule)
}

func TestRecover_RestoresCommittedState(t *testing.T) {
	module := stubModule(2)
	env := newTestEnv(t, &stubScoring{currentModule: module})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	qid := module.Questions[0].ID
	require.Equal(t, http.StatusOK, env.do(http.MethodPut,
		"/api/v1/exam/attempts/"+attemptID.String()+"/answers/"+qid.String(),
		model.SetAnswerRequest{Value: "D"}).Code)

	w := env.do(http.MethodPost, "/api/v1/exam/attempts/recover", nil)
	require.Equal(t, http.StatusOK, w.Code)

	sess := decodeData(t, w)["session"].(map[string]interface{})
	answers := sess["answers"].(map[string]interface{})
	assert.Equal(t, "D", answers[qid.String()])
}

func TestSubmitModule_EmptyOutcomeIsRetryable(t *testing.T) {
	module := stubModule(1)
	env := newTestEnv(t, &stubScoring{currentModule: module, outcome: nil})

	attemptID := uuid.New()
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/module", nil).Code)

	w := env.do(http.MethodPost, "/api/v1/exam/attempts/"+attemptID.String()+"/submit-module", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	store := env.registry.ForStudent(context.Background(), 1)
	assert.False(t, store.Submitting())
	assert.NotNil(t, store.View().CurrentModule)
}

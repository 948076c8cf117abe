package model

import (
	"github.com/google/uuid"
)

// Zoom preference bounds. The zoom level is a display-scale preference that
// persists across exams, unlike the rest of the session.
const (
	ZoomMin     = 0.75
	ZoomMax     = 1.5
	ZoomDefault = 1.0
)

// ClampZoom forces a zoom level into the supported range.
func ClampZoom(z float64) float64 {
	if z < ZoomMin {
		return ZoomMin
	}
	if z > ZoomMax {
		return ZoomMax
	}
	return z
}

// ExamSession is the whole in-progress exam state for one student. It is
// exclusively owned by the session store; every other component goes through
// the store's operations and never mutates fields directly.
type ExamSession struct {
	// AttemptID identifies the server-side test attempt. Nil when no exam
	// is active.
	AttemptID *uuid.UUID `json:"attempt_id"`
	// CurrentModule is the active module snapshot, or nil.
	CurrentModule *Module `json:"current_module"`
	// CurrentQuestionIndex is the zero-based cursor into
	// CurrentModule.Questions.
	CurrentQuestionIndex int `json:"current_question_index"`
	// Answers maps question ID to the submitted answer value (option id or
	// free-text grid-in value). Absence means unanswered.
	Answers map[uuid.UUID]string `json:"answers"`
	// Flags maps question ID to the marked-for-review state. Absence is
	// equivalent to false.
	Flags map[uuid.UUID]bool `json:"flags"`
	// TimeLeft is the remaining seconds in the current module, clamped at 0.
	TimeLeft int `json:"time_left"`
	// IsReviewOpen tracks whether the review overview screen is displayed.
	// Transient UI state; never persisted, defaults to closed on reload.
	IsReviewOpen bool `json:"is_review_open"`
	// ZoomLevel is the display-scale preference in [ZoomMin, ZoomMax].
	ZoomLevel float64 `json:"zoom_level"`
	// TimeSpent accumulates seconds-on-question per question ID for the
	// active module, advanced as the cursor moves.
	TimeSpent map[uuid.UUID]int `json:"time_spent"`
}

// NewExamSession returns an empty session with the default zoom level.
func NewExamSession() *ExamSession {
	return &ExamSession{
		Answers:   make(map[uuid.UUID]string),
		Flags:     make(map[uuid.UUID]bool),
		TimeSpent: make(map[uuid.UUID]int),
		ZoomLevel: ZoomDefault,
	}
}

// ─── Request payloads ───────────────────────────────────────────────

// SetAnswerRequest records a student's answer for one question.
type SetAnswerRequest struct {
	Value string `json:"value" binding:"required,max=500"`
}

// SetCursorRequest moves the current-question cursor.
type SetCursorRequest struct {
	Index int `json:"index" binding:"min=0"`
}

// SetReviewRequest opens or closes the review overview screen.
type SetReviewRequest struct {
	Open bool `json:"open"`
}

// SetZoomRequest updates the display-scale preference.
type SetZoomRequest struct {
	Level float64 `json:"level" binding:"required,min=0.1,max=10"`
}

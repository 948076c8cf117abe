package model

import (
	"github.com/google/uuid"
)

// AnswerRecord is one complete per-question record in a module submission.
// The scoring service always receives one record per module question;
// "no answer" is an explicit empty value, never an omitted entry.
type AnswerRecord struct {
	QuestionID       uuid.UUID `json:"question_id"`
	Answer           string    `json:"answer"`
	IsFlagged        bool      `json:"is_flagged"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
}

// ModuleSubmission is the full payload sent to the scoring service when a
// module is finished.
type ModuleSubmission struct {
	ModuleID         uuid.UUID      `json:"module_id"`
	Answers          []AnswerRecord `json:"answers"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
}

// QuestionResult is the scored outcome for a single question, returned by
// the scoring service after submission.
type QuestionResult struct {
	QuestionID     uuid.UUID      `json:"question_id"`
	QuestionNumber int            `json:"question_number"`
	IsCorrect      bool           `json:"is_correct"`
	CorrectAnswer  []string       `json:"correct_answer"`
	UserAnswer     string         `json:"user_answer"`
	Domain         QuestionDomain `json:"domain,omitempty"`
}

// DomainBreakdown aggregates correctness per content domain.
type DomainBreakdown struct {
	Domain   QuestionDomain `json:"domain"`
	Correct  int            `json:"correct"`
	Total    int            `json:"total"`
	Accuracy float64        `json:"accuracy"`
}

// ModuleScore is the raw correct/total pair for a submitted module.
type ModuleScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// ModuleOutcome is the scoring service's decision about what happens after
// a module submission: either the next module to load, or attempt
// completion. The engine never computes any of this; adaptive sequencing
// is entirely server-decided.
type ModuleOutcome struct {
	ModuleScore     ModuleScore       `json:"module_score"`
	Section         Section           `json:"section"`
	ModuleType      ModuleType        `json:"module_type"`
	QuestionResults []QuestionResult  `json:"question_results"`
	DomainBreakdown []DomainBreakdown `json:"domain_breakdown"`
	TestCompleted   bool              `json:"test_completed"`
	TotalScore      *int              `json:"total_score,omitempty"`
	// NextModule is the full definition of the module to load next.
	// Nil when TestCompleted is true.
	NextModule *Module `json:"next_module,omitempty"`
}

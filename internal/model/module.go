package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Section enumerates the two digital SAT sections.
type Section string

const (
	SectionReadingWriting Section = "reading_writing"
	SectionMath           Section = "math"
)

// ModuleType enumerates the two timed blocks within a section.
// Module 2 difficulty adapts to Module 1 performance, server-side.
type ModuleType string

const (
	ModuleType1 ModuleType = "module_1"
	ModuleType2 ModuleType = "module_2"
)

// ModuleDifficulty enumerates the adaptive difficulty variants of a module.
type ModuleDifficulty string

const (
	DifficultyStandard ModuleDifficulty = "standard"
	DifficultyEasier   ModuleDifficulty = "easier"
	DifficultyHarder   ModuleDifficulty = "harder"
)

// QuestionType enumerates how a question is answered.
type QuestionType string

const (
	QuestionMultipleChoice     QuestionType = "multiple_choice"
	QuestionMultipleChoiceMath QuestionType = "multiple_choice_math"
	// QuestionProducedResponse is a grid-in: free-text numeric entry.
	QuestionProducedResponse QuestionType = "student_produced_response"
)

// QuestionDomain is the content-category tag used for breakdown reporting.
type QuestionDomain string

const (
	DomainCraftAndStructure    QuestionDomain = "craft_and_structure"
	DomainInformationAndIdeas  QuestionDomain = "information_and_ideas"
	DomainStandardEnglish      QuestionDomain = "standard_english_conventions"
	DomainExpressionOfIdeas    QuestionDomain = "expression_of_ideas"
	DomainAlgebra              QuestionDomain = "algebra"
	DomainAdvancedMath         QuestionDomain = "advanced_math"
	DomainProblemSolvingData   QuestionDomain = "problem_solving_data_analysis"
	DomainGeometryTrigonometry QuestionDomain = "geometry_trigonometry"
)

// Option is a single multiple-choice option (A–D).
type Option struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
	ImageAlt string `json:"image_alt,omitempty"`
}

// AnswerConstraints describe acceptable grid-in input. The engine never
// enforces these; they are forwarded to the client for input hints.
type AnswerConstraints struct {
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	AllowFraction bool     `json:"allow_fraction"`
	AllowDecimal  bool     `json:"allow_decimal"`
	AllowNegative bool     `json:"allow_negative"`
}

// Passage is the reading passage linked to a question, if any.
type Passage struct {
	ID      int             `json:"id"`
	Title   string          `json:"title,omitempty"`
	Content string          `json:"content"`
	Source  string          `json:"source,omitempty"`
	Author  string          `json:"author,omitempty"`
	Figures json.RawMessage `json:"figures,omitempty"`
}

// QuestionView is a question as seen by the student during a module.
// It never carries the correct answer or explanation; those are invisible
// client-side until the module is scored.
type QuestionView struct {
	ID                uuid.UUID          `json:"id"`
	QuestionNumber    int                `json:"question_number"`
	QuestionText      string             `json:"question_text"`
	QuestionType      QuestionType       `json:"question_type"`
	ImageURL          string             `json:"question_image_url,omitempty"`
	ImageAlt          string             `json:"question_image_alt,omitempty"`
	Options           []Option           `json:"options,omitempty"`
	AnswerConstraints *AnswerConstraints `json:"answer_constraints,omitempty"`
	Passage           *Passage           `json:"passage,omitempty"`
	Domain            QuestionDomain     `json:"domain,omitempty"`
	Difficulty        string             `json:"difficulty,omitempty"`
}

// Module is one timed block of questions within an attempt. It is owned by
// the scoring service and cached client-side for the session's duration.
type Module struct {
	ID               uuid.UUID        `json:"id"`
	Section          Section          `json:"section"`
	ModuleType       ModuleType       `json:"module_type"`
	Difficulty       ModuleDifficulty `json:"difficulty"`
	Questions        []QuestionView   `json:"questions"`
	TimeLimitMinutes int              `json:"time_limit_minutes"`
	// TimeMultiplier applies extended-time accommodations (1, 1.5 or 2).
	// Zero means no multiplier configured.
	TimeMultiplier float64 `json:"time_multiplier,omitempty"`
	// RemainingSeconds resumes a partially spent module after reload.
	// Nil means the module starts with its full time limit.
	RemainingSeconds *int `json:"remaining_seconds,omitempty"`
}

// InitialTimeLeft returns the countdown seed for this module: the
// server-supplied remainder when resuming, otherwise the full limit
// adjusted by the accommodation multiplier.
func (m *Module) InitialTimeLeft() int {
	if m.RemainingSeconds != nil {
		return *m.RemainingSeconds
	}
	seconds := m.TimeLimitMinutes * 60
	if m.TimeMultiplier > 0 {
		seconds = int(float64(seconds) * m.TimeMultiplier)
	}
	return seconds
}

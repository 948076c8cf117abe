package session

// Overview is the derived question summary shown on the review screen.
// It is recomputed from the ledger on every call and never stored, so the
// counts cannot drift from the answers and flags they summarize.
type Overview struct {
	TotalQuestions       int `json:"total_questions"`
	Answered             int `json:"answered"`
	Unanswered           int `json:"unanswered"`
	Flagged              int `json:"flagged"`
	CurrentQuestionIndex int `json:"current_question_index"`
	// NeedsConfirmation mirrors the review screen's submit gate: any
	// unanswered or flagged question warrants a confirmation step. The
	// engine still accepts a submit regardless once the student confirms.
	NeedsConfirmation bool `json:"needs_confirmation"`
	// Questions lists per-question status in module order.
	Questions []QuestionStatus `json:"questions"`
}

// QuestionStatus is one row of the review screen's question grid.
type QuestionStatus struct {
	QuestionNumber int    `json:"question_number"`
	Answered       bool   `json:"answered"`
	Flagged        bool   `json:"flagged"`
	Current        bool   `json:"current"`
}

// Overview derives the review summary for the active module. Returns
// ErrNoActiveModule when no module is loaded.
func (s *Store) Overview() (*Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.sess.CurrentModule
	if m == nil {
		return nil, ErrNoActiveModule
	}

	ov := &Overview{
		TotalQuestions:       len(m.Questions),
		CurrentQuestionIndex: s.sess.CurrentQuestionIndex,
		Questions:            make([]QuestionStatus, 0, len(m.Questions)),
	}

	for i, q := range m.Questions {
		_, answered := s.sess.Answers[q.ID]
		flagged := s.sess.Flags[q.ID]

		if answered {
			ov.Answered++
		} else {
			ov.Unanswered++
		}
		if flagged {
			ov.Flagged++
		}
		ov.Questions = append(ov.Questions, QuestionStatus{
			QuestionNumber: q.QuestionNumber,
			Answered:       answered,
			Flagged:        flagged,
			Current:        i == s.sess.CurrentQuestionIndex,
		})
	}

	ov.NeedsConfirmation = ov.Unanswered > 0 || ov.Flagged > 0
	return ov, nil
}

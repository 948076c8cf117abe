package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/satforge/exam-engine/internal/model"
	"github.com/satforge/exam-engine/internal/slot"
)

// snapshotVersion guards the persisted wire shape. Adding a transient field
// to ExamSession never changes what crash recovery restores: only the
// fields below are ever written to a slot.
const snapshotVersion = 1

// snapshot is the persisted subset of an ExamSession. IsReviewOpen is
// intentionally excluded; the overlay defaults to closed on reload.
type snapshot struct {
	Version              int                  `json:"version"`
	AttemptID            *uuid.UUID           `json:"attempt_id"`
	CurrentModule        *model.Module        `json:"current_module"`
	CurrentQuestionIndex int                  `json:"current_question_index"`
	Answers              map[uuid.UUID]string `json:"answers"`
	Flags                map[uuid.UUID]bool   `json:"flags"`
	TimeLeft             int                  `json:"time_left"`
	ZoomLevel            float64              `json:"zoom_level"`
	TimeSpent            map[uuid.UUID]int    `json:"time_spent"`
}

func encodeSnapshot(sess *model.ExamSession) ([]byte, error) {
	return json.Marshal(snapshot{
		Version:              snapshotVersion,
		AttemptID:            sess.AttemptID,
		CurrentModule:        sess.CurrentModule,
		CurrentQuestionIndex: sess.CurrentQuestionIndex,
		Answers:              sess.Answers,
		Flags:                sess.Flags,
		TimeLeft:             sess.TimeLeft,
		ZoomLevel:            sess.ZoomLevel,
		TimeSpent:            sess.TimeSpent,
	})
}

func decodeSnapshot(payload []byte) (*model.ExamSession, error) {
	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	sess := model.NewExamSession()
	sess.AttemptID = snap.AttemptID
	sess.CurrentModule = snap.CurrentModule
	sess.CurrentQuestionIndex = snap.CurrentQuestionIndex
	if snap.Answers != nil {
		sess.Answers = snap.Answers
	}
	if snap.Flags != nil {
		sess.Flags = snap.Flags
	}
	if snap.TimeSpent != nil {
		sess.TimeSpent = snap.TimeSpent
	}
	sess.TimeLeft = snap.TimeLeft
	if snap.ZoomLevel != 0 {
		sess.ZoomLevel = model.ClampZoom(snap.ZoomLevel)
	}
	return sess, nil
}

func encodeZoom(level float64) []byte {
	return []byte(strconv.FormatFloat(level, 'f', -1, 64))
}

func decodeZoom(payload []byte) (float64, error) {
	level, err := strconv.ParseFloat(string(payload), 64)
	if err != nil {
		return 0, fmt.Errorf("parse zoom level: %w", err)
	}
	return model.ClampZoom(level), nil
}

// Hydrate replaces the store's session with the contents of its live slot.
// Used on process start and by the crash-recovery reload action. A missing
// slot hydrates an empty session; the zoom slot is consulted either way so
// the preference outlives attempts.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := s.slots.Load(ctx, s.slotName)
	switch {
	case err == nil:
		sess, decErr := decodeSnapshot(payload)
		if decErr != nil {
			return decErr
		}
		s.sess = sess
	case errors.Is(err, slot.ErrNotFound):
		s.sess = model.NewExamSession()
	default:
		return err
	}

	if zoomPayload, zerr := s.slots.Load(ctx, s.zoomName); zerr == nil {
		if level, perr := decodeZoom(zoomPayload); perr == nil {
			s.sess.ZoomLevel = level
		}
	}

	s.submitting = false
	return nil
}

package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/slot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ForStudentReturnsSameStore(t *testing.T) {
	reg := NewRegistry(slot.NewMemoryStore(), zerolog.Nop())
	ctx := context.Background()

	a := reg.ForStudent(ctx, 7)
	b := reg.ForStudent(ctx, 7)
	other := reg.ForStudent(ctx, 8)

	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
}

func TestRegistry_ForStudentHydratesFromSlot(t *testing.T) {
	slots := slot.NewMemoryStore()
	ctx := context.Background()

	// Seed the slot through a throwaway store keyed like student 7's.
	seed := NewStore(slots, "student:7:exam_session", "student:7:zoom_level", zerolog.Nop())
	attemptID := uuid.New()
	module := testModule(3)
	seed.Initialize(ctx, attemptID, module)
	require.NoError(t, seed.SetAnswer(ctx, module.Questions[0].ID, "A"))

	reg := NewRegistry(slots, zerolog.Nop())
	store := reg.ForStudent(ctx, 7)

	view := store.View()
	require.NotNil(t, view.AttemptID)
	assert.Equal(t, attemptID, *view.AttemptID)
	assert.Equal(t, "A", view.Answers[module.Questions[0].ID])
}

func TestRegistry_RehydrateReloadsFromSlot(t *testing.T) {
	slots := slot.NewMemoryStore()
	ctx := context.Background()

	reg := NewRegistry(slots, zerolog.Nop())
	store := reg.ForStudent(ctx, 7)

	attemptID := uuid.New()
	module := testModule(3)
	store.Initialize(ctx, attemptID, module)
	require.NoError(t, store.SetAnswer(ctx, module.Questions[1].ID, "C"))

	// Rehydrate reloads from the durable slot; committed state comes back.
	reloaded, err := reg.Rehydrate(ctx, 7)
	require.NoError(t, err)
	assert.Same(t, store, reloaded)

	view := reloaded.View()
	assert.Equal(t, "C", view.Answers[module.Questions[1].ID])
	assert.False(t, reloaded.Submitting())
}

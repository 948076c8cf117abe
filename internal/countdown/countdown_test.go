package countdown

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/model"
	"github.com/satforge/exam-engine/internal/session"
	"github.com/satforge/exam-engine/internal/slot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockStore(t *testing.T, seconds int) *session.Store {
	t.Helper()
	store := session.NewStore(slot.NewMemoryStore(), "student:1:exam_session", "student:1:zoom_level", zerolog.Nop())
	module := &model.Module{
		ID:               uuid.New(),
		Section:          model.SectionMath,
		ModuleType:       model.ModuleType1,
		TimeLimitMinutes: 35,
		RemainingSeconds: &seconds,
	}
	module.Questions = append(module.Questions, model.QuestionView{ID: uuid.New(), QuestionNumber: 1})
	store.Initialize(context.Background(), uuid.New(), module)
	return store
}

func TestClock_TicksWhileAttached(t *testing.T) {
	store := newClockStore(t, 10)
	clock := NewClock(store, zerolog.Nop())

	ticks, detach := clock.Attach()
	defer detach()

	select {
	case remaining := <-ticks:
		assert.Equal(t, 9, remaining)
	case <-time.After(3 * TickPeriod):
		t.Fatal("no tick received")
	}
}

func TestClock_DetachedClockStandsStill(t *testing.T) {
	store := newClockStore(t, 10)
	clock := NewClock(store, zerolog.Nop())

	_, detach := clock.Attach()
	detach()

	time.Sleep(2 * TickPeriod)
	assert.Equal(t, 10, store.View().TimeLeft)
}

func TestClock_SecondViewDoesNotDoubleTick(t *testing.T) {
	store := newClockStore(t, 100)
	clock := NewClock(store, zerolog.Nop())

	ticksA, detachA := clock.Attach()
	defer detachA()
	_, detachB := clock.Attach()
	defer detachB()

	var first int
	select {
	case first = <-ticksA:
	case <-time.After(3 * TickPeriod):
		t.Fatal("no tick received")
	}
	assert.Equal(t, 99, first)
}

func TestClock_KeepsRunningUntilLastDetach(t *testing.T) {
	store := newClockStore(t, 100)
	clock := NewClock(store, zerolog.Nop())

	_, detachA := clock.Attach()
	ticksB, detachB := clock.Attach()
	defer detachB()

	detachA()

	select {
	case remaining := <-ticksB:
		assert.Less(t, remaining, 100)
	case <-time.After(3 * TickPeriod):
		t.Fatal("clock stopped after first detach")
	}
}

func TestManager_OneClockPerStudent(t *testing.T) {
	store := newClockStore(t, 10)
	mgr := NewManager(zerolog.Nop())

	a := mgr.ForStudent(1, store)
	b := mgr.ForStudent(1, store)
	require.Same(t, a, b)

	mgr.StopAll()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 10, store.View().TimeLeft)
}

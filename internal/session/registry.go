package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/config"
	"github.com/satforge/exam-engine/internal/slot"
)

// Registry hands out the single session store for each student, hydrating
// it from the durable slot the first time the student is seen after a
// process start.
type Registry struct {
	mu     sync.Mutex
	stores map[int]*Store
	slots  slot.Store
	log    zerolog.Logger
}

// NewRegistry creates an empty registry backed by the given slot store.
func NewRegistry(slots slot.Store, log zerolog.Logger) *Registry {
	return &Registry{
		stores: make(map[int]*Store),
		slots:  slots,
		log:    log.With().Str("component", "session_registry").Logger(),
	}
}

// ForStudent returns the student's session store, creating and hydrating
// it on first access. Hydration failures degrade to an empty session;
// the student restarts the module rather than the engine refusing service.
func (r *Registry) ForStudent(ctx context.Context, userID int) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[userID]; ok {
		return store
	}

	store := NewStore(
		r.slots,
		config.SlotKey.SessionSlot(userID),
		config.SlotKey.ZoomSlot(userID),
		r.log,
	)
	if err := store.Hydrate(ctx); err != nil {
		r.log.Warn().Err(err).Int("user_id", userID).Msg("Session hydration failed, starting empty")
	}
	r.stores[userID] = store
	return store
}

// Rehydrate drops the in-memory store and reloads it from the durable
// slot. This is the recovery screen's hard-reload action: answers and
// flags come back exactly as committed before the fault.
func (r *Registry) Rehydrate(ctx context.Context, userID int) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	store := r.stores[userID]
	if store == nil {
		store = NewStore(
			r.slots,
			config.SlotKey.SessionSlot(userID),
			config.SlotKey.ZoomSlot(userID),
			r.log,
		)
		r.stores[userID] = store
	}
	if err := store.Hydrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

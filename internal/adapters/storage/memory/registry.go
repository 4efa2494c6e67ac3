package memory

import (
	"context"
	"fmt"
	"sync"

	"videobridge/internal/domain"
)

type sessionTable struct {
	// insertion order of request ids, so DrainSession returns entries in the
	// order the engine issued them
	order []string
	items map[string]*domain.PendingRequest
}

// Registry is the in-memory table of in-flight fetch requests, keyed by
// (session, request id). Safe for concurrent use from multiple in-flight
// fetch tasks.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*sessionTable
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*sessionTable)}
}

// Register inserts a new entry. A live id reused while one is pending is a
// protocol violation and fails with domain.ErrDuplicateRequest; reuse after
// resolution is legal.
func (r *Registry) Register(ctx context.Context, sessionID int64, params domain.DataRequestParameters) (domain.PendingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.sessions[sessionID]
	if t == nil {
		t = &sessionTable{items: make(map[string]*domain.PendingRequest, 4)}
		r.sessions[sessionID] = t
	}
	if _, ok := t.items[params.ID]; ok {
		return domain.PendingRequest{}, fmt.Errorf("%w: id %q still pending in session %d", domain.ErrDuplicateRequest, params.ID, sessionID)
	}
	pr := &domain.PendingRequest{SessionID: sessionID, Params: params, Canceled: params.Canceled}
	t.items[params.ID] = pr
	t.order = append(t.order, params.ID)
	return *pr, nil
}

// MarkCanceled sets the canceled flag. Returns false when the id is already
// retired; late cancellation after delivery is tolerated since the two can
// race.
func (r *Registry) MarkCanceled(ctx context.Context, sessionID int64, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.sessions[sessionID]
	if t == nil {
		return false
	}
	pr, ok := t.items[id]
	if !ok {
		return false
	}
	pr.Canceled = true
	return true
}

// Resolve removes and returns the entry, failing with
// domain.ErrUnknownRequest when absent (never seen, already resolved, or
// drained at disposal).
func (r *Registry) Resolve(ctx context.Context, sessionID int64, id string) (domain.PendingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.sessions[sessionID]
	if t == nil {
		return domain.PendingRequest{}, fmt.Errorf("%w: id %q in session %d", domain.ErrUnknownRequest, id, sessionID)
	}
	pr, ok := t.items[id]
	if !ok {
		return domain.PendingRequest{}, fmt.Errorf("%w: id %q in session %d", domain.ErrUnknownRequest, id, sessionID)
	}
	delete(t.items, id)
	for i, rid := range t.order {
		if rid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return *pr, nil
}

// DrainSession removes and returns all entries for a session in insertion
// order, each implicitly treated as canceled. Used at disposal.
func (r *Registry) DrainSession(ctx context.Context, sessionID int64) []domain.PendingRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.sessions[sessionID]
	if t == nil {
		return nil
	}
	delete(r.sessions, sessionID)
	out := make([]domain.PendingRequest, 0, len(t.items))
	for _, id := range t.order {
		pr := t.items[id]
		pr.Canceled = true
		out = append(out, *pr)
	}
	return out
}

// PendingCount reports the number of in-flight entries for a session.
func (r *Registry) PendingCount(ctx context.Context, sessionID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.sessions[sessionID]
	if t == nil {
		return 0
	}
	return len(t.items)
}

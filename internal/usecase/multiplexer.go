package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"videobridge/internal/domain"
)

// Multiplexer fans engine events out per playback session: one independent
// event stream and one fetch correlator per session id. It is the single
// owner of per-session state; consumption of one session's stream never
// blocks another's.
type Multiplexer struct {
	registry RequestRegistry
	logger   *zerolog.Logger

	mu       sync.RWMutex
	sink     DataSink
	sessions map[int64]*session
}

func NewMultiplexer(registry RequestRegistry, logger *zerolog.Logger) *Multiplexer {
	return &Multiplexer{
		registry: registry,
		logger:   logger,
		sessions: make(map[int64]*session),
	}
}

// SetSink binds the engine-side delivery transport. Must be called before the
// first Deliver.
func (m *Multiplexer) SetSink(sink DataSink) {
	m.mu.Lock()
	m.sink = sink
	m.mu.Unlock()
}

// Open creates the event stream and correlator state for a session handle
// the engine just assigned. The returned channel is closed on Dispose or
// when the engine stream ends.
func (m *Multiplexer) Open(sessionID int64) (<-chan domain.VideoEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; ok {
		return nil, fmt.Errorf("session %d already open", sessionID)
	}
	s := newSession(sessionID)
	m.sessions[sessionID] = s
	go s.pump()
	return s.out, nil
}

// OnEngineEvent routes one decoded event to the session's correlator and
// stream. FetchData registers the request before it is surfaced;
// CancelFetchData for an id already retired is ignored (the fetch may have
// been delivered or the session disposed first).
func (m *Multiplexer) OnEngineEvent(ctx context.Context, sessionID int64, ev domain.VideoEvent) error {
	m.mu.RLock()
	s := m.sessions[sessionID]
	m.mu.RUnlock()
	if s == nil {
		return fmt.Errorf("%w: %d", domain.ErrUnknownSession, sessionID)
	}
	switch e := ev.(type) {
	case domain.FetchData:
		if _, err := m.registry.Register(ctx, sessionID, e.Request); err != nil {
			return err
		}
	case domain.CancelFetchData:
		if !m.registry.MarkCanceled(ctx, sessionID, e.Request.ID) {
			m.logger.Debug().Int64("session", sessionID).Str("request", e.Request.ID).
				Msg("ignoring cancel for retired request")
			return nil
		}
	}
	s.push(ev)
	return nil
}

// Deliver is the application's response to a FetchData notification. The
// entry is retired and the bytes are forwarded to the engine even when the
// request was marked canceled: cancellation is advisory, and the engine
// decides whether to discard late data. Delivering for an id never seen or
// already resolved fails with domain.ErrUnknownRequest.
func (m *Multiplexer) Deliver(ctx context.Context, sessionID int64, requestID string, headers map[string]string, data []byte) error {
	m.mu.RLock()
	s := m.sessions[sessionID]
	sink := m.sink
	m.mu.RUnlock()
	if s == nil {
		return fmt.Errorf("%w: %d", domain.ErrUnknownSession, sessionID)
	}
	if sink == nil {
		return fmt.Errorf("deliver: no data sink bound")
	}
	pr, err := m.registry.Resolve(ctx, sessionID, requestID)
	if err != nil {
		return err
	}
	if pr.Canceled {
		m.logger.Debug().Int64("session", sessionID).Str("request", requestID).
			Msg("forwarding delivery for canceled request")
	}
	return sink.DeliverData(ctx, sessionID, requestID, headers, data)
}

// Dispose tears a session down: drains all pending requests (implicit
// cancel), closes the event stream, and returns the drained entries. Any
// delivery arriving afterward fails.
func (m *Multiplexer) Dispose(ctx context.Context, sessionID int64) ([]domain.PendingRequest, error) {
	m.mu.Lock()
	s := m.sessions[sessionID]
	if s != nil {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if s == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownSession, sessionID)
	}
	drained := m.registry.DrainSession(ctx, sessionID)
	s.close()
	if len(drained) > 0 {
		m.logger.Info().Int64("session", sessionID).Int("drained", len(drained)).
			Msg("disposed session with pending requests")
	}
	return drained, nil
}

// Sessions snapshots the active sessions for the ops API, ordered by id.
func (m *Multiplexer) Sessions(ctx context.Context) []domain.Session {
	m.mu.RLock()
	out := make([]domain.Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		out = append(out, domain.Session{
			ID:        id,
			StartedAt: s.startedAt,
			Pending:   m.registry.PendingCount(ctx, id),
		})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close disposes every remaining session. Used when the engine stream ends
// or the process shuts down; stream end is a normal terminal condition, not
// an error.
func (m *Multiplexer) Close(ctx context.Context) {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		_, _ = m.Dispose(ctx, id)
	}
}

// session is the per-handle event stream. Events are queued under the
// session's own lock and forwarded by a dedicated pump goroutine, so a slow
// consumer on one session never backs up the shared engine read loop or
// another session.
type session struct {
	id        int64
	startedAt time.Time

	mu     sync.Mutex
	queue  []domain.VideoEvent
	closed bool
	wake   chan struct{}
	done   chan struct{}
	out    chan domain.VideoEvent
}

func newSession(id int64) *session {
	return &session{
		id:        id,
		startedAt: time.Now().UTC(),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		out:       make(chan domain.VideoEvent),
	}
}

func (s *session) push(ev domain.VideoEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
}

func (s *session) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-s.wake:
			case <-s.done:
				return
			}
			continue
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}

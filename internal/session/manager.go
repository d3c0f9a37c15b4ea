package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/audio-cnn-visualizer/internal/metrics"
	"github.com/skypro1111/audio-cnn-visualizer/internal/view"
)

const maxCleanupInterval = 30 * time.Second

var (
	// ErrNotFound reports an unknown or expired session id
	ErrNotFound = errors.New("session not found")
	// ErrBusy reports an upload while another analysis is in flight
	ErrBusy = errors.New("analysis already in progress")
)

// Session is the display state of one viewer
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time

	fileName   string
	inFlight   bool
	generation uint64 // bumped by every Begin and Reset
	displayed  uint64 // generation of the current view or error
	view       *view.View
	lastError  string

	mu sync.RWMutex
}

// Ticket identifies one in-flight analysis
type Ticket struct {
	SessionID  string
	Generation uint64
}

// State is a read-only snapshot of a session
type State struct {
	ID           string     `json:"id"`
	Busy         bool       `json:"busy"`
	FileName     string     `json:"file_name,omitempty"`
	Generation   uint64     `json:"generation"`
	View         *view.View `json:"view,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActivity time.Time  `json:"last_activity"`
}

// Manager manages all sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger
	timeout  time.Duration
	metrics  *metrics.Metrics

	// Cleanup management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a session manager and starts its cleanup routine. m may be nil.
func NewManager(logger *slog.Logger, timeout time.Duration, m *metrics.Metrics) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	mgr := &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
		timeout:  timeout,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr
}

// Create registers a new empty session
func (m *Manager) Create() *Session {
	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordSessionCreated()
		m.metrics.SetActiveSessions(count)
	}

	m.logger.Debug("Session created", slog.String("session_id", s.ID))
	return s
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Get returns a snapshot of a session
func (m *Manager) Get(id string) (State, error) {
	s, err := m.get(id)
	if err != nil {
		return State{}, err
	}
	return s.State(), nil
}

// Begin marks the start of an analysis for fileName. The displayed view is
// cleared; a second Begin before Commit fails with ErrBusy.
func (m *Manager) Begin(id, fileName string) (Ticket, error) {
	s, err := m.get(id)
	if err != nil {
		return Ticket{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		if m.metrics != nil {
			m.metrics.RecordBusyRejection()
		}
		return Ticket{}, ErrBusy
	}

	s.inFlight = true
	s.generation++
	s.fileName = fileName
	s.view = nil
	s.lastError = ""
	s.LastActivity = time.Now()

	return Ticket{SessionID: id, Generation: s.generation}, nil
}

// Commit stores the outcome of the analysis identified by t. Exactly one of
// v and failure should be set. It reports whether the outcome is now
// displayed; results superseded by a newer Begin or Reset are discarded.
func (m *Manager) Commit(t Ticket, v *view.View, failure error) bool {
	s, err := m.get(t.SessionID)
	if err != nil {
		m.recordStale(t, "session gone")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Generation == s.generation {
		s.inFlight = false
	}

	if t.Generation != s.generation || t.Generation <= s.displayed {
		m.recordStale(t, "superseded")
		return false
	}

	s.displayed = t.Generation
	s.view = v
	s.lastError = ""
	if failure != nil {
		s.lastError = failure.Error()
	}
	s.LastActivity = time.Now()

	return true
}

func (m *Manager) recordStale(t Ticket, reason string) {
	if m.metrics != nil {
		m.metrics.RecordStaleResult()
	}
	m.logger.Debug("Discarding stale analysis result",
		slog.String("session_id", t.SessionID),
		slog.Uint64("generation", t.Generation),
		slog.String("reason", reason),
	)
}

// Reset clears the displayed view and releases the in-flight guard. An
// analysis still running will be discarded when it commits.
func (m *Manager) Reset(id string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.inFlight = false
	s.fileName = ""
	s.view = nil
	s.lastError = ""
	s.LastActivity = time.Now()
	return nil
}

// Remove deletes a session
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	if m.metrics != nil {
		m.metrics.SetActiveSessions(count)
	}
	return nil
}

// Count returns the number of sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stop stops the cleanup routine
func (m *Manager) Stop() {
	m.cancel()
	<-m.cleanup

	m.logger.Info("Session manager stopped", slog.Int("remaining_sessions", m.Count()))
}

// startCleanupRoutine periodically removes idle sessions
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	interval := maxCleanupInterval
	if m.timeout > 0 && m.timeout/2 < interval {
		interval = m.timeout / 2
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Debug("Session cleanup routine started",
		slog.Duration("timeout", m.timeout),
		slog.Duration("check_interval", interval),
	)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanupExpiredSessions()
		}
	}
}

// cleanupExpiredSessions removes idle sessions. Sessions with an analysis in
// flight are kept.
func (m *Manager) cleanupExpiredSessions() {
	if m.timeout <= 0 {
		return
	}

	now := time.Now()

	m.mu.Lock()
	expired := 0
	for id, s := range m.sessions {
		s.mu.RLock()
		idle := now.Sub(s.LastActivity) > m.timeout && !s.inFlight
		s.mu.RUnlock()

		if idle {
			delete(m.sessions, id)
			expired++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if expired == 0 {
		return
	}

	m.logger.Info("Cleaned up expired sessions", slog.Int("expired_count", expired))
	if m.metrics != nil {
		for i := 0; i < expired; i++ {
			m.metrics.RecordSessionExpired()
		}
		m.metrics.SetActiveSessions(count)
	}
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		ID:           s.ID,
		Busy:         s.inFlight,
		FileName:     s.fileName,
		Generation:   s.generation,
		View:         s.view,
		Error:        s.lastError,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

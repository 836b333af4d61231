package session

import (
	"errors"
	"sync"
	"time"

	"sttstream/internal/logger"
	"sttstream/internal/recognizer"
)

// Default reaper tuning, grounded on the teacher's Manager
// (sessionTimeout/CleanupInterval) and on
// original_source/core/voice/routes/websocket.py's cleanup_old_sessions
// (60s tick, 30min max age).
const (
	DefaultMaxAge          = 30 * time.Minute
	DefaultCleanupInterval = 60 * time.Second
)

// Manager owns every live Session and is the only component allowed to
// create, look up, or remove them. Generalizes the teacher's
// internal/session/manager.go Manager, fixing the one behavioral gap the
// distillation's Python original enforces but the teacher's Go version
// doesn't: session creation is idempotent (original
// SessionManager.create_session returns the existing session rather than
// clobbering it).
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	factory *recognizer.Factory

	maxAge          time.Duration
	cleanupInterval time.Duration
	cleanupStop     chan struct{}
	cleanupOnce     sync.Once

	created uint64
	removed uint64
}

func NewManager(factory *recognizer.Factory) *Manager {
	m := &Manager{
		sessions:        make(map[string]*Session),
		factory:         factory,
		maxAge:          DefaultMaxAge,
		cleanupInterval: DefaultCleanupInterval,
		cleanupStop:     make(chan struct{}),
	}
	m.startCleanupRoutine()
	return m
}

func (m *Manager) startCleanupRoutine() {
	ticker := time.NewTicker(m.cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.cleanupInactiveSessions()
			case <-m.cleanupStop:
				return
			}
		}
	}()
}

func (m *Manager) cleanupInactiveSessions() {
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.IdleSince() > m.maxAge {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		logger.Info("session_reaped_idle", "session_id", id)
		m.RemoveSession(id)
	}
}

// CreateSession returns the existing session for id if one is already
// live, otherwise constructs a new one via the recognizer factory and
// registers it. This idempotency mirrors
// original_source/core/voice/models/audio_session.py's
// SessionManager.create_session.
func (m *Manager) CreateSession(id string, meta Metadata, cfg TranscriptionConfig) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}

	rec, err := m.factory.Create(cfg.Engine, recognizer.Options{
		Language:     meta.Language,
		SampleRate:   meta.SampleRate,
		ModelSize:    cfg.ModelSize,
		PartialWords: cfg.PartialResults,
		Encoding:     meta.Encoding,
	})
	if err != nil {
		if !errors.Is(err, recognizer.ErrEngineUnavailable) {
			return nil, err
		}
		// No engine could be constructed for cfg.Engine (e.g. the default
		// "auto" has nothing registered as available). Per spec.md §7 the
		// session is still created and still accepts audio; it just never
		// produces transcripts until a "config" message picks a working
		// engine. The dispatcher no-ops on a nil Rec.
		logger.Warn("session_created_without_recognizer", "session_id", id, "engine", cfg.Engine, "error", err.Error())
		rec = nil
	}

	s := NewSession(id, meta, cfg, rec)
	m.sessions[id] = s
	m.created++
	return s, nil
}

// GetSession returns the session for id, touching its idle-reaper clock.
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// RemoveSession closes and unregisters the session for id. Idempotent.
func (m *Manager) RemoveSession(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.removed++
	}
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// Count returns the number of live sessions, for /health.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stats returns a snapshot of the live-session count and the created/removed
// totals.
func (m *Manager) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]any{
		"active_sessions": len(m.sessions),
		"created_total":   m.created,
		"removed_total":   m.removed,
	}
}

// Shutdown stops the reaper and closes every live session.
func (m *Manager) Shutdown() {
	m.cleanupOnce.Do(func() { close(m.cleanupStop) })

	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.RemoveSession(id)
	}
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/common/metrics"
	"deal-wizard/internal/models"
	financialsync "deal-wizard/internal/steps/financial-sync"
)

// Manager keeps live sessions in memory. Sessions are never persisted; they
// end on submission, abandonment or idle expiry.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	deps      *Dependencies
	publisher financialsync.Publisher
	ttl       time.Duration
	now       func() time.Time
	logger    logger.Logger
}

func NewManager(deps *Dependencies, publisher financialsync.Publisher, ttl time.Duration, log logger.Logger) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		deps:      deps,
		publisher: publisher,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger.ForComponent(log, "session-manager"),
	}
}

func (m *Manager) Create() *Session {
	id := uuid.New().String()
	s := New(id, m.deps, m.logger)
	s.now = m.now
	s.createdAt = m.now()
	s.lastActivity = s.createdAt

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.WizardSessionsActive.Set(float64(n))
	m.logger.Info("Session started", map[string]interface{}{"sessionId": id})
	return s
}

// Get returns a live session. Expired sessions are discarded on access.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	if m.expired(s) {
		m.remove(id, "expired")
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return s, nil
}

func (m *Manager) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.IdleSince()) > m.ttl
}

// Delete abandons a session.
func (m *Manager) Delete(id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	m.remove(id, "abandoned")
	return nil
}

// Complete discards a submitted session.
func (m *Manager) Complete(id string) {
	m.remove(id, "submitted")
}

func (m *Manager) remove(id, reason string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Close()
	metrics.WizardSessionsActive.Set(float64(n))
	m.logger.Info("Session ended", map[string]interface{}{"sessionId": id, "reason": reason})
}

// Sweep removes every expired session and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		if m.expired(s) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.remove(id, "expired")
	}
	return len(expired)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Flush publishes the session's queued design-change events in order.
// Delivery failures are logged; the events are not retried.
func (m *Manager) Flush(ctx context.Context, s *Session) {
	if m.publisher == nil {
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	for _, evt := range s.DrainEvents() {
		if err := m.publisher.Publish(ctx, evt); err != nil {
			m.logger.Error("Design change publish failed", map[string]interface{}{
				"sessionId":      evt.SessionID,
				"revision":       evt.Revision,
				"idempotencyKey": evt.IdempotencyKey,
				"error":          err.Error(),
			})
		}
	}
}

// ApplyProForma routes an out-of-band pro forma to its session.
func (m *Manager) ApplyProForma(sessionID string, pf *models.ProForma) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	return s.ApplyProForma(pf)
}

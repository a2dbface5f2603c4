package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cribbage-server/pkg/cribbage"
)

// ErrSessionNotFound is an error when a session ID has no live session
var ErrSessionNotFound = errors.New("session not found")

// Hooks are fired on session lifecycle events. Each hook fires at most
// once per session and is not retried.
type Hooks struct {
	OnSessionReady func(sessionID string)
	OnSessionEnded func(sessionID string, winnerID int64)
}

// Manager is a registry of live sessions keyed by session ID.
// It carries no ambient global state; construct one and pass it to
// whoever needs to create or look up sessions.
type Manager struct {
	logger logrus.FieldLogger
	opts   Options
	hooks  Hooks

	mu       sync.Mutex
	sessions map[string]*Scheduler
}

// NewManager returns a new session registry
func NewManager(logger logrus.FieldLogger, opts Options, hooks Hooks) *Manager {
	return &Manager{
		logger:   logger,
		opts:     opts,
		hooks:    hooks,
		sessions: make(map[string]*Scheduler),
	}
}

// CreateSession builds a game for the two players, starts its
// scheduler, and returns the new session ID. Seats present in
// strategies are computer-controlled; leave a seat out for a human.
func (m *Manager) CreateSession(playerIDs []int64, strategies map[int64]cribbage.Strategy, gameOptions cribbage.Options) (string, error) {
	id := uuid.New().String()

	game, err := cribbage.NewGame(m.logger.WithField("session", id), playerIDs, gameOptions)
	if err != nil {
		return "", err
	}

	scheduler := NewScheduler(id, m.logger, game, strategies, m.opts, func(winnerID int64) {
		if m.hooks.OnSessionEnded != nil {
			m.hooks.OnSessionEnded(id, winnerID)
		}
	})

	m.mu.Lock()
	m.sessions[id] = scheduler
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"session": id,
		"players": playerIDs,
	}).Info("session created")

	// the ready hook must fire before the run loop can produce any
	// other lifecycle event
	if m.hooks.OnSessionReady != nil {
		m.hooks.OnSessionReady(id)
	}

	scheduler.Start()

	return id, nil
}

// Get returns the scheduler for the session ID
func (m *Manager) Get(sessionID string) (*Scheduler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scheduler, ok := m.sessions[sessionID]
	return scheduler, ok
}

// EndSession shuts down and forgets the session
func (m *Manager) EndSession(sessionID string) error {
	m.mu.Lock()
	scheduler, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	scheduler.Close()
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

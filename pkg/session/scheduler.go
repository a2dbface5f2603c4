package session

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cribbage-server/internal/rng"
	"cribbage-server/pkg/cribbage"
	"cribbage-server/pkg/playable"
)

// ErrSessionClosed is an error when an action is submitted to a closed session
var ErrSessionClosed = errors.New("session is closed")

// Options configures the per-session scheduler
type Options struct {
	// TurnTimeout is how long a seat may sit on its turn before the
	// scheduler resolves it with a fallback move. Zero disables it.
	TurnTimeout time.Duration

	// ThinkingDelay is the artificial pause before a computer seat
	// makes its move
	ThinkingDelay time.Duration
}

type eventKind int

const (
	eventTurnTimeout eventKind = iota
	eventStrategyMove
)

// event is a scheduled occurrence tagged with the state version it was
// scheduled against. Only the first event to reach the run loop for a
// given version is applied; the rest are stale and dropped.
type event struct {
	kind     eventKind
	version  uint64
	playerID int64
}

type actionRequest struct {
	playerID int64
	payload  *playable.PayloadIn
	reply    chan error
}

type stateRequest struct {
	playerID int64
	reply    chan stateReply
}

type stateReply struct {
	state *cribbage.State
	err   error
}

// Scheduler serializes all access to a single game. Actions may be
// submitted concurrently, but the run loop applies them one at a time,
// so the game state only ever has one writer.
type Scheduler struct {
	id         string
	logger     logrus.FieldLogger
	game       *cribbage.Game
	strategies map[int64]cribbage.Strategy
	fallback   cribbage.Strategy
	opts       Options

	version   uint64
	turnTimer *time.Timer

	actions chan actionRequest
	states  chan stateRequest
	events  chan event
	quit    chan struct{}
	done    chan struct{}

	onEnded   func(winnerID int64)
	endedOnce sync.Once
	closeOnce sync.Once
}

// NewScheduler creates a scheduler for the game. Seats present in
// strategies are computer-controlled. onEnded is invoked exactly once,
// from the run loop, when the game reaches its terminal phase.
func NewScheduler(id string, logger logrus.FieldLogger, game *cribbage.Game, strategies map[int64]cribbage.Strategy, opts Options, onEnded func(winnerID int64)) *Scheduler {
	fallback, _ := cribbage.NewStrategy(cribbage.StrategyRandom, rng.Crypto{})

	if strategies == nil {
		strategies = make(map[int64]cribbage.Strategy)
	}

	return &Scheduler{
		id:         id,
		logger:     logger.WithField("session", id),
		game:       game,
		strategies: strategies,
		fallback:   fallback,
		opts:       opts,
		actions:    make(chan actionRequest),
		states:     make(chan stateRequest),
		events:     make(chan event, 16),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		onEnded:    onEnded,
	}
}

// ID returns the session identifier
func (s *Scheduler) ID() string {
	return s.id
}

// Start deals the game and starts the run loop
func (s *Scheduler) Start() {
	go s.runLoop()
}

// Close shuts down the run loop. Safe to call more than once.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
}

// Submit queues an action and waits for the serialized result.
// A rejected action leaves the game untouched.
func (s *Scheduler) Submit(playerID int64, payload *playable.PayloadIn) error {
	req := actionRequest{
		playerID: playerID,
		payload:  payload,
		reply:    make(chan error, 1),
	}

	select {
	case s.actions <- req:
	case <-s.done:
		return ErrSessionClosed
	}

	select {
	case err := <-req.reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

// PlayerState returns a snapshot of the game for the player. The
// snapshot is produced inside the run loop, so it is always consistent.
func (s *Scheduler) PlayerState(playerID int64) (*cribbage.State, error) {
	req := stateRequest{
		playerID: playerID,
		reply:    make(chan stateReply, 1),
	}

	select {
	case s.states <- req:
	case <-s.done:
		return nil, ErrSessionClosed
	}

	select {
	case reply := <-req.reply:
		return reply.state, reply.err
	case <-s.done:
		return nil, ErrSessionClosed
	}
}

func (s *Scheduler) runLoop() {
	defer close(s.done)
	defer s.stopTurnTimer()

	s.logger.Debug("starting session run loop")

	if err := s.game.Start(); err != nil {
		s.logger.WithError(err).Error("could not start game")
		return
	}

	s.afterStateChange()

	ticker := time.NewTicker(s.game.Interval())
	defer ticker.Stop()

	for {
		select {
		case req := <-s.actions:
			req.reply <- s.applyAction(req.playerID, req.payload)
		case req := <-s.states:
			state, err := s.game.PlayerState(req.playerID)
			req.reply <- stateReply{state: state, err: err}
		case ev := <-s.events:
			s.handleEvent(ev)
		case <-ticker.C:
			changed, err := s.game.Tick()
			if err != nil {
				s.logger.WithError(err).Error("tick failed")
				return
			}

			if changed {
				s.version++
				s.afterStateChange()
			}
		case <-s.quit:
			s.logger.Debug("terminating session run loop")
			return
		}
	}
}

// applyAction runs an action through the game. Ordinary rejections are
// surfaced to the caller with the state untouched; an invariant
// violation is fatal and tears the session down.
func (s *Scheduler) applyAction(playerID int64, payload *playable.PayloadIn) error {
	_, updateState, err := s.game.Action(playerID, payload)
	if err != nil {
		if cribbage.IsInvariantError(err) {
			s.logger.WithError(err).Error("halting session")
			go s.Close()
			return err
		}

		s.logger.WithError(err).WithField("player", playerID).Debug("action rejected")
		return err
	}

	if updateState {
		s.version++
		s.afterStateChange()
	}

	return nil
}

// handleEvent applies a scheduled event, dropping it if it raced an
// action that already changed the state it was aimed at
func (s *Scheduler) handleEvent(ev event) {
	if ev.version != s.version {
		// an action beat this event to the run loop
		s.logger.WithFields(logrus.Fields{
			"event":   ev.kind,
			"version": ev.version,
		}).Debug("dropping stale event")
		return
	}

	if _, over := s.game.GetEndOfGameDetails(); over {
		return
	}

	switch ev.kind {
	case eventTurnTimeout:
		s.resolveStalledSeats()
	case eventStrategyMove:
		s.playStrategyMove(ev.playerID)
	}
}

// resolveStalledSeats advances every seat the game is waiting on by
// generating a legal fallback move. A seat with its own strategy uses
// it; a human seat gets the baseline random move.
func (s *Scheduler) resolveStalledSeats() {
	for _, playerID := range s.game.PlayerIDs() {
		if !s.game.NeedsAction(playerID) {
			continue
		}

		strategy, ok := s.strategies[playerID]
		if !ok {
			strategy = s.fallback
		}

		state, err := s.game.PlayerState(playerID)
		if err != nil {
			s.logger.WithError(err).Error("could not get player state")
			continue
		}

		payload, ok := strategy.NextAction(state)
		if !ok {
			continue
		}

		s.logger.WithField("player", playerID).Debug("turn timed out; applying fallback move")
		if err := s.applyAction(playerID, payload); err != nil {
			s.logger.WithError(err).WithField("player", playerID).Error("fallback move rejected")
		}
	}
}

func (s *Scheduler) playStrategyMove(playerID int64) {
	if !s.game.NeedsAction(playerID) {
		return
	}

	strategy, ok := s.strategies[playerID]
	if !ok {
		return
	}

	state, err := s.game.PlayerState(playerID)
	if err != nil {
		s.logger.WithError(err).Error("could not get player state")
		return
	}

	payload, ok := strategy.NextAction(state)
	if !ok {
		return
	}

	if err := s.applyAction(playerID, payload); err != nil {
		s.logger.WithError(err).WithField("player", playerID).Error("strategy move rejected")
	}
}

// afterStateChange re-arms the per-turn timeout and schedules moves
// for any computer seat the game is now waiting on. Both are tagged
// with the current version so they cannot fire against a state that
// has since moved on.
func (s *Scheduler) afterStateChange() {
	s.stopTurnTimer()

	if details, over := s.game.GetEndOfGameDetails(); over {
		s.endedOnce.Do(func() {
			s.logger.WithField("winner", details.Winner).Info("session ended")
			if s.onEnded != nil {
				s.onEnded(details.Winner)
			}
		})
		return
	}

	version := s.version

	if s.opts.TurnTimeout > 0 {
		s.turnTimer = time.AfterFunc(s.opts.TurnTimeout, func() {
			s.sendEvent(event{kind: eventTurnTimeout, version: version})
		})
	}

	for _, playerID := range s.game.PlayerIDs() {
		strategy, ok := s.strategies[playerID]
		if !ok || !s.game.NeedsAction(playerID) {
			continue
		}

		if state, err := s.game.PlayerState(playerID); err == nil {
			strategy.SyncState(state)
		}

		id := playerID
		time.AfterFunc(s.opts.ThinkingDelay, func() {
			s.sendEvent(event{kind: eventStrategyMove, version: version, playerID: id})
		})
	}
}

func (s *Scheduler) sendEvent(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Scheduler) stopTurnTimer() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
}

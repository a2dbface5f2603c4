package main

import (
	"flag"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cribbage-server/internal/config"
	"cribbage-server/internal/rng"
	"cribbage-server/pkg/cribbage"
	"cribbage-server/pkg/session"
)

var games = flag.Int("games", 0, "number of games to simulate (overrides config)")
var difficulty = flag.String("difficulty", "", "strategy for the second seat (overrides config)")

const player1 = int64(1)
const player2 = int64(2)

func main() {
	flag.Parse()
	setupLogger()

	cfg := config.Instance()

	n := cfg.Simulation.Games
	if *games > 0 {
		n = *games
	}

	name := cfg.Difficulty
	if *difficulty != "" {
		name = *difficulty
	}

	wins := make(map[int64]int)
	var mu sync.Mutex
	var wg sync.WaitGroup

	var manager *session.Manager
	manager = session.NewManager(logrus.StandardLogger(), session.Options{
		TurnTimeout:   time.Duration(cfg.TurnTimeoutSeconds) * time.Second,
		ThinkingDelay: 0,
	}, session.Hooks{
		OnSessionEnded: func(sessionID string, winnerID int64) {
			mu.Lock()
			wins[winnerID]++
			mu.Unlock()

			// shut the finished session down so its run loop exits
			if err := manager.EndSession(sessionID); err != nil {
				logrus.WithError(err).WithField("session", sessionID).Warn("could not end session")
			}

			wg.Done()
		},
	})

	start := time.Now()
	for i := 0; i < n; i++ {
		baseline, err := cribbage.NewStrategy(cribbage.StrategyRandom, rng.Crypto{})
		if err != nil {
			logrus.WithError(err).Fatal("could not create strategy")
		}

		challenger, err := cribbage.NewStrategy(name, rng.Crypto{})
		if err != nil {
			logrus.WithError(err).Fatal("could not create strategy")
		}

		wg.Add(1)
		id, err := manager.CreateSession([]int64{player1, player2}, map[int64]cribbage.Strategy{
			player1: baseline,
			player2: challenger,
		}, cribbage.Options{
			Seed:          cfg.Simulation.Seed,
			RoundEndDelay: time.Millisecond,
		})
		if err != nil {
			logrus.WithError(err).Fatal("could not create session")
		}

		logrus.WithField("session", id).Debug("simulation started")
	}

	wg.Wait()

	logrus.WithFields(logrus.Fields{
		"games":        n,
		"baselineWins": wins[player1],
		"winsFor":      name,
		"wins":         wins[player2],
		"elapsed":      time.Since(start).String(),
	}).Info("simulation complete")
}

func setupLogger() {
	if lvl := config.Instance().Log.Level; lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			logrus.WithError(err).Fatal("could not parse level")
		}

		logrus.SetLevel(level)
	}
}

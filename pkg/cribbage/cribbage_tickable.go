package cribbage

import "time"

// Interval returns how often Tick() should be called
func (g *Game) Interval() time.Duration {
	return 250 * time.Millisecond
}

// Tick tries to advance the game. The only time-driven transition is
// the pause between the crib being counted and the next deal.
func (g *Game) Tick() (bool, error) {
	if g.phase != PhaseRoundEnd {
		return false, nil
	}

	if time.Now().Before(g.nextDealAt) {
		return false, nil
	}

	if err := g.nextRound(); err != nil {
		return false, err
	}

	return true, nil
}

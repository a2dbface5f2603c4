package cribbage

import (
	"cribbage-server/pkg/deck"
)

// Participant is a player in a cribbage game
type Participant struct {
	PlayerID int64

	// hand is the cards the player can still act with. It shrinks
	// during pegging and is restored from kept for the count.
	hand deck.Hand

	// kept is the four cards the player held onto after the discard
	kept deck.Hand

	frontPeg int
	backPeg  int

	hasDiscarded bool
	handScored   bool
}

func newParticipant(playerID int64) *Participant {
	return &Participant{
		PlayerID: playerID,
	}
}

// newRound resets the per-round state. The pegs are not touched.
func (p *Participant) newRound() {
	p.hand = deck.Hand{}
	p.kept = nil
	p.hasDiscarded = false
	p.handScored = false
}

// addPoints advances the front peg, leaving the back peg where the
// front peg was. The front peg never passes the winning hole.
func (p *Participant) addPoints(points, winningScore int) {
	if points <= 0 {
		return
	}

	p.backPeg = p.frontPeg
	p.frontPeg += points
	if p.frontPeg > winningScore {
		p.frontPeg = winningScore
	}
}

// Score returns the player's score (i.e., the front peg position)
func (p *Participant) Score() int {
	return p.frontPeg
}

// canPlay returns true if the player holds at least one card that can
// be played without pushing the running sum past 31
func (p *Participant) canPlay(runningSum int) bool {
	for _, c := range p.hand {
		if runningSum+c.Value() <= pileLimit {
			return true
		}
	}

	return false
}

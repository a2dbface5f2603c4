package cribbage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cribbage-server/pkg/deck"
)

func TestParticipant_addPoints(t *testing.T) {
	a := assert.New(t)

	p := newParticipant(1)
	a.Equal(0, p.Score())

	p.addPoints(2, 120)
	a.Equal(2, p.frontPeg)
	a.Equal(0, p.backPeg)
	a.Equal(2, p.Score())

	p.addPoints(5, 120)
	a.Equal(7, p.frontPeg)
	a.Equal(2, p.backPeg)

	// zero and negative awards never move the pegs
	p.addPoints(0, 120)
	p.addPoints(-3, 120)
	a.Equal(7, p.frontPeg)
	a.Equal(2, p.backPeg)

	// the front peg stops at the winning hole
	p.frontPeg = 119
	p.addPoints(12, 120)
	a.Equal(120, p.frontPeg)
	a.Equal(119, p.backPeg)
}

func TestParticipant_newRound(t *testing.T) {
	a := assert.New(t)

	p := newParticipant(1)
	p.hand = deck.CardsFromString("2c,3d")
	p.kept = deck.CardsFromString("2c,3d")
	p.hasDiscarded = true
	p.handScored = true
	p.frontPeg = 50
	p.backPeg = 48

	p.newRound()
	a.Empty(p.hand)
	a.Nil(p.kept)
	a.False(p.hasDiscarded)
	a.False(p.handScored)

	// the pegs survive across rounds
	a.Equal(50, p.frontPeg)
	a.Equal(48, p.backPeg)
}

func TestParticipant_canPlay(t *testing.T) {
	a := assert.New(t)

	p := newParticipant(1)
	p.hand = deck.CardsFromString("13s,9c")

	a.True(p.canPlay(0))
	a.True(p.canPlay(21))  // 21+10=31 is legal
	a.True(p.canPlay(22))  // the nine still fits
	a.False(p.canPlay(23)) // 23+9=32
	a.False(p.canPlay(31))

	p.hand = deck.Hand{}
	a.False(p.canPlay(0))
}

package cribbage

import (
	"cribbage-server/pkg/deck"
)

// participantJSON is the caller-visible view of a participant.
// Hand is only populated when the viewer is entitled to see the cards.
type participantJSON struct {
	PlayerID     int64     `json:"playerId"`
	Score        int       `json:"score"`
	FrontPeg     int       `json:"frontPeg"`
	BackPeg      int       `json:"backPeg"`
	HandCount    int       `json:"handCount"`
	Hand         deck.Hand `json:"hand,omitempty"`
	IsDealer     bool      `json:"isDealer"`
	HasDiscarded bool      `json:"hasDiscarded"`
	HasScoredHand bool     `json:"hasScoredHand"`
}

// GameState is the overall state of the game
// These values must be safe for someone to snoop on
type GameState struct {
	Name          string             `json:"name"`
	Round         int                `json:"round"`
	Phase         Phase              `json:"phase"`
	DealerID      int64              `json:"dealerId"`
	CurrentTurn   int64              `json:"currentTurn"`
	Starter       *deck.Card         `json:"starter"`
	Pile          deck.Hand          `json:"pile"`
	PileSum       int                `json:"pileSum"`
	CribCount     int                `json:"cribCount"`
	Crib          deck.Hand          `json:"crib,omitempty"`
	CribScored    bool               `json:"cribScored"`
	DeckRemaining int                `json:"deckRemaining"`
	Participants  []*participantJSON `json:"participants"`
	Winner        int64              `json:"winner,omitempty"`
}

// State represents the state of the game as seen by one player
type State struct {
	Participant *participantJSON `json:"participant"`
	GameState   *GameState       `json:"gameState"`
}

// handsAreVisible reports whether both players' cards are legitimately
// mutually visible (once the count starts, hands are face up)
func (g *Game) handsAreVisible() bool {
	switch g.phase {
	case PhaseScoring, PhaseRoundEnd, PhaseFinished:
		return true
	}

	return false
}

func (g *Game) participantJSON(p *Participant, revealHand bool) *participantJSON {
	pj := &participantJSON{
		PlayerID:      p.PlayerID,
		Score:         p.Score(),
		FrontPeg:      p.frontPeg,
		BackPeg:       p.backPeg,
		HandCount:     len(p.hand),
		IsDealer:      p == g.dealer(),
		HasDiscarded:  p.hasDiscarded,
		HasScoredHand: p.handScored,
	}

	if revealHand {
		pj.Hand = p.hand.Clone()
	}

	return pj
}

// PlayerState returns a snapshot of the game for the given player.
// The snapshot is a copy: the opponent's unplayed cards are reduced to
// a count, and mutating anything in the snapshot never touches the
// authoritative state.
func (g *Game) PlayerState(playerID int64) (*State, error) {
	viewer, ok := g.idToParticipant[playerID]
	if !ok {
		return nil, ErrNotInGame
	}

	visible := g.handsAreVisible()

	participants := make([]*participantJSON, len(g.participants))
	for i, p := range g.participants {
		participants[i] = g.participantJSON(p, p == viewer || visible)
	}

	gs := &GameState{
		Name:          g.Name(),
		Round:         g.round,
		Phase:         g.phase,
		DealerID:      g.dealer().PlayerID,
		CurrentTurn:   g.CurrentTurn(),
		Pile:          g.pile.Clone(),
		PileSum:       g.pile.Sum(),
		CribCount:     len(g.crib),
		CribScored:    g.cribScored,
		DeckRemaining: g.deck.CardsLeft(),
		Participants:  participants,
	}

	if g.starter != nil {
		gs.Starter = g.starter.Clone()
	}

	// the crib is face down until the dealer counts it
	if g.cribScored {
		gs.Crib = g.crib.Clone()
	}

	if winner, ok := g.Winner(); ok {
		gs.Winner = winner
	}

	return &State{
		Participant: g.participantJSON(viewer, true),
		GameState:   gs,
	}, nil
}

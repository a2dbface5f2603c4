package cribbage

import (
	"fmt"

	"cribbage-server/internal/rng"
	"cribbage-server/pkg/deck"
	"cribbage-server/pkg/playable"
)

// Strategy decides the next action for a computer-controlled seat.
// NextAction must be pure with respect to the snapshot it is given:
// the authoritative state changes between invocations, so a strategy
// must never hold on to a previous snapshot. SyncState is how a
// stateful strategy is told about a state it did not cause.
type Strategy interface {
	// NextAction returns the action the seat should take, or false if
	// the seat has nothing to do in the given state
	NextAction(state *State) (*playable.PayloadIn, bool)

	// SyncState informs the strategy of the latest state
	SyncState(state *State)
}

// strategy difficulty names
const (
	StrategyRandom = "random"
	StrategyGreedy = "greedy"
)

// NewStrategy returns a strategy from the closed set of difficulty
// names
func NewStrategy(name string, r rng.Generator) (Strategy, error) {
	switch name {
	case StrategyRandom:
		return &randomStrategy{r: r}, nil
	case StrategyGreedy:
		return &greedyStrategy{r: r}, nil
	}

	return nil, fmt.Errorf("unknown strategy: %s", name)
}

// playableIndices returns the hand indices that can legally be played
// onto the pile
func playableIndices(state *State) []int {
	indices := make([]int, 0, len(state.Participant.Hand))
	for i, c := range state.Participant.Hand {
		if state.GameState.PileSum+c.Value() <= pileLimit {
			indices = append(indices, i)
		}
	}

	return indices
}

func isMyTurn(state *State) bool {
	return state.GameState.CurrentTurn == state.Participant.PlayerID
}

// randomStrategy selects uniformly at random among the legal options
type randomStrategy struct {
	r rng.Generator
}

func (s *randomStrategy) NextAction(state *State) (*playable.PayloadIn, bool) {
	switch state.GameState.Phase {
	case PhaseDiscard:
		if state.Participant.HasDiscarded {
			return nil, false
		}

		first := s.r.Intn(len(state.Participant.Hand))
		second := s.r.Intn(len(state.Participant.Hand) - 1)
		if second >= first {
			second++
		}

		return &playable.PayloadIn{
			Action:         ActionDiscard,
			AdditionalData: playable.AdditionalData{"indices": []int{first, second}},
		}, true
	case PhaseCut:
		if !isMyTurn(state) {
			return nil, false
		}

		return &playable.PayloadIn{
			Action:         ActionCut,
			AdditionalData: playable.AdditionalData{"offset": s.r.Intn(state.GameState.DeckRemaining)},
		}, true
	case PhasePegging:
		if !isMyTurn(state) {
			return nil, false
		}

		indices := playableIndices(state)
		if len(indices) == 0 {
			return &playable.PayloadIn{Action: ActionEndTurn}, true
		}

		return &playable.PayloadIn{
			Action:         ActionPlay,
			AdditionalData: playable.AdditionalData{"index": indices[s.r.Intn(len(indices))]},
		}, true
	case PhaseScoring:
		return claimAction(state)
	}

	return nil, false
}

func (s *randomStrategy) SyncState(*State) {
	// stateless; nothing to reconcile
}

// greedyStrategy maximizes immediate points: it keeps the discard
// leaving the best four-card hand and plays the card worth the most
// pegging points right now
type greedyStrategy struct {
	r rng.Generator
}

func (s *greedyStrategy) NextAction(state *State) (*playable.PayloadIn, bool) {
	switch state.GameState.Phase {
	case PhaseDiscard:
		if state.Participant.HasDiscarded {
			return nil, false
		}

		return &playable.PayloadIn{
			Action:         ActionDiscard,
			AdditionalData: playable.AdditionalData{"indices": s.bestDiscard(state.Participant.Hand)},
		}, true
	case PhaseCut:
		if !isMyTurn(state) {
			return nil, false
		}

		return &playable.PayloadIn{
			Action:         ActionCut,
			AdditionalData: playable.AdditionalData{"offset": s.r.Intn(state.GameState.DeckRemaining)},
		}, true
	case PhasePegging:
		if !isMyTurn(state) {
			return nil, false
		}

		indices := playableIndices(state)
		if len(indices) == 0 {
			return &playable.PayloadIn{Action: ActionEndTurn}, true
		}

		best := indices[0]
		bestPoints := -1
		for _, index := range indices {
			pile := state.GameState.Pile.Clone()
			pile.AddCard(state.Participant.Hand[index])
			if points := ScorePegging(pile); points > bestPoints {
				best = index
				bestPoints = points
			}
		}

		return &playable.PayloadIn{
			Action:         ActionPlay,
			AdditionalData: playable.AdditionalData{"index": best},
		}, true
	case PhaseScoring:
		return claimAction(state)
	}

	return nil, false
}

// bestDiscard finds the two cards whose removal leaves the
// highest-scoring four-card hand. The starter is unknown at discard
// time, so the kept hand is scored on its own.
func (s *greedyStrategy) bestDiscard(hand deck.Hand) []int {
	best := []int{0, 1}
	bestScore := -1

	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			kept := make(deck.Hand, 0, len(hand)-2)
			for k, c := range hand {
				if k != i && k != j {
					kept = append(kept, c)
				}
			}

			if score := ScoreHand(kept, nil, false).Total(); score > bestScore {
				best = []int{i, j}
				bestScore = score
			}
		}
	}

	return best
}

func (s *greedyStrategy) SyncState(*State) {
	// stateless; nothing to reconcile
}

// claimAction produces the count claim the seat owes during the
// scoring phase: hand first, then the crib if the seat is the dealer
func claimAction(state *State) (*playable.PayloadIn, bool) {
	if !isMyTurn(state) {
		return nil, false
	}

	if !state.Participant.HasScoredHand {
		return &playable.PayloadIn{Action: ActionClaimHandScore}, true
	}

	if state.Participant.IsDealer && !state.GameState.CribScored {
		return &playable.PayloadIn{Action: ActionClaimCribScore}, true
	}

	return nil, false
}

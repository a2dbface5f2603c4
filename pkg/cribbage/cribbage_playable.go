package cribbage

import (
	"fmt"

	"cribbage-server/pkg/playable"
)

// action constants accepted by Action()
const (
	ActionDiscard        = "discard"
	ActionCut            = "cut"
	ActionPlay           = "play"
	ActionEndTurn        = "endTurn"
	ActionClaimHandScore = "claimHandScore"
	ActionClaimCribScore = "claimCribScore"
)

// Name returns the name of the game
// Part of the Playable interface
func (g *Game) Name() string {
	return "Cribbage"
}

// Action is called when a caller performs an action
// Part of the Playable interface
func (g *Game) Action(playerID int64, message *playable.PayloadIn) (playerResponse *playable.Response, updateState bool, err error) {
	switch message.Action {
	case ActionDiscard:
		indices, ok := message.AdditionalData.GetIntSlice("indices")
		if !ok {
			return nil, false, ErrDiscardCount
		}

		if err := g.Discard(playerID, indices); err != nil {
			return nil, false, err
		}
	case ActionCut:
		offset, ok := message.AdditionalData.GetInt("offset")
		if !ok {
			return nil, false, ErrIllegalIndex
		}

		if err := g.Cut(playerID, offset); err != nil {
			return nil, false, err
		}
	case ActionPlay:
		index, ok := message.AdditionalData.GetInt("index")
		if !ok {
			return nil, false, ErrIllegalIndex
		}

		if err := g.PlayCard(playerID, index); err != nil {
			return nil, false, err
		}
	case ActionEndTurn:
		if err := g.EndTurn(playerID); err != nil {
			return nil, false, err
		}
	case ActionClaimHandScore:
		if err := g.ClaimHand(playerID); err != nil {
			return nil, false, err
		}
	case ActionClaimCribScore:
		if err := g.ClaimCrib(playerID); err != nil {
			return nil, false, err
		}
	default:
		return nil, false, fmt.Errorf("unknown action: %s", message.Action)
	}

	return playable.OK(message.Context), true, nil
}

// GetPlayerState returns the state of the game for the player
// Part of the Playable interface
func (g *Game) GetPlayerState(playerID int64) (*playable.Response, error) {
	state, err := g.PlayerState(playerID)
	if err != nil {
		return nil, err
	}

	return &playable.Response{
		Key:   "game",
		Value: "cribbage",
		Data:  state,
	}, nil
}

// GetEndOfGameDetails returns the final results
// Part of the Playable interface
func (g *Game) GetEndOfGameDetails() (*playable.GameOverDetails, bool) {
	winner, ok := g.Winner()
	if !ok {
		return nil, false
	}

	finalScores := make(map[int64]int)
	for _, p := range g.participants {
		finalScores[p.PlayerID] = p.Score()
	}

	return &playable.GameOverDetails{
		Winner:      winner,
		FinalScores: finalScores,
		Log: map[string]interface{}{
			"rounds": g.round + 1,
			"winner": winner,
		},
	}, true
}

// LogChan returns a channel where log messages will be sent
// Part of the Playable interface
func (g *Game) LogChan() <-chan []*playable.LogMessage {
	return g.logChan
}

package cribbage

import "encoding/json"

// Phase is a discrete stage of a cribbage round
type Phase int

// game phases
const (
	// PhaseWaiting is before the first deal
	PhaseWaiting Phase = iota
	// PhaseDiscard is when both players send two cards to the crib
	PhaseDiscard
	// PhaseCut is when the non-dealer cuts the deck for the starter
	PhaseCut
	// PhasePegging is the alternating play up to 31
	PhasePegging
	// PhaseScoring is when hands and the crib are counted
	PhaseScoring
	// PhaseRoundEnd is the pause between the crib being counted and the next deal
	PhaseRoundEnd
	// PhaseFinished is the terminal phase once a player pegs out
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseDiscard:
		return "discard"
	case PhaseCut:
		return "cut"
	case PhasePegging:
		return "pegging"
	case PhaseScoring:
		return "scoring"
	case PhaseRoundEnd:
		return "round-end"
	case PhaseFinished:
		return "finished"
	}

	return "unknown"
}

// MarshalJSON encodes the phase using its name
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

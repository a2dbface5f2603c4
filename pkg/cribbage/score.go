package cribbage

import (
	"sort"

	"cribbage-server/pkg/deck"
)

// pileLimit is the running-sum cap during pegging
const pileLimit = 31

// HandTally is the per-category breakdown of a counted hand or crib
type HandTally struct {
	Fifteens int `json:"fifteens"`
	Pairs    int `json:"pairs"`
	Runs     int `json:"runs"`
	Flush    int `json:"flush"`
	Nob      int `json:"nob"`
}

// Total returns the combined score of the tally
func (t HandTally) Total() int {
	return t.Fifteens + t.Pairs + t.Runs + t.Flush + t.Nob
}

// ScoreHand counts a four-card hand against the starter card.
// The starter may be nil, in which case only the four hand cards are
// counted (used by strategies evaluating a discard before the cut).
// A crib only scores a flush if the starter matches as well.
func ScoreHand(hand deck.Hand, starter *deck.Card, isCrib bool) HandTally {
	cards := make(deck.Hand, 0, 5)
	cards = append(cards, hand...)
	if starter != nil {
		cards = append(cards, starter)
	}

	tally := HandTally{
		Fifteens: scoreFifteens(cards),
		Pairs:    scorePairs(cards),
		Runs:     scoreRuns(cards),
		Flush:    scoreFlush(hand, starter, isCrib),
	}

	if starter != nil {
		for _, c := range hand {
			if c.Rank == deck.Jack && c.Suit == starter.Suit {
				tally.Nob = 1
				break
			}
		}
	}

	return tally
}

// scoreFifteens counts two points for every distinct subset of cards
// summing to fifteen. Subsets of any size count, so all 2^n-1 of them
// are checked.
func scoreFifteens(cards deck.Hand) int {
	points := 0
	for mask := 1; mask < 1<<len(cards); mask++ {
		sum := 0
		for i, c := range cards {
			if mask&(1<<i) != 0 {
				sum += c.Value()
			}
		}

		if sum == 15 {
			points += 2
		}
	}

	return points
}

// scorePairs counts two points per pair. A rank held m times is worth
// m*(m-1), which is every pair within the multiplicity counted once.
func scorePairs(cards deck.Hand) int {
	points := 0
	for _, count := range rankCounts(cards) {
		points += count * (count - 1)
	}

	return points
}

// scoreRuns finds the longest run of consecutive ranks among the
// distinct ranks present. Duplicated ranks inside the run multiply its
// value, so a double run of three counts twice (6 points). Shorter runs
// inside the longest one are never credited separately.
func scoreRuns(cards deck.Hand) int {
	counts := rankCounts(cards)

	bestLength := 0
	bestCombinations := 0

	length := 0
	combinations := 1
	for rank := deck.Ace; rank <= deck.King; rank++ {
		count := counts[rank]
		if count == 0 {
			length = 0
			combinations = 1
			continue
		}

		length++
		combinations *= count
		if length > bestLength {
			bestLength = length
			bestCombinations = combinations
		}
	}

	if bestLength < 3 {
		return 0
	}

	return bestLength * bestCombinations
}

func scoreFlush(hand deck.Hand, starter *deck.Card, isCrib bool) int {
	if len(hand) == 0 {
		return 0
	}

	suit := hand[0].Suit
	for _, c := range hand[1:] {
		if c.Suit != suit {
			return 0
		}
	}

	if starter != nil && starter.Suit == suit {
		return len(hand) + 1
	}

	// the crib flush must include the starter
	if isCrib {
		return 0
	}

	return len(hand)
}

func rankCounts(cards deck.Hand) map[int]int {
	counts := make(map[int]int)
	for _, c := range cards {
		counts[c.Rank]++
	}

	return counts
}

// ScorePegging counts the points earned by the most recently played
// card in the pile. The pile must already include that card. Flushes
// and nobs never score during pegging.
func ScorePegging(pile deck.Hand) int {
	n := len(pile)
	if n == 0 {
		return 0
	}

	points := 0

	sum := pile.Sum()
	if sum == 15 || sum == pileLimit {
		points += 2
	}

	// consecutive same-rank cards at the end of the pile:
	// a pair is 2, three of a kind is 6, four of a kind is 12
	sameRank := 1
	for i := n - 2; i >= 0 && pile[i].Rank == pile[n-1].Rank; i-- {
		sameRank++
	}
	points += sameRank * (sameRank - 1)

	// the longest terminal run wins; shorter runs contained in it are
	// not counted again
	for length := n; length >= 3; length-- {
		if isRun(pile[n-length:]) {
			points += length
			break
		}
	}

	return points
}

// isRun returns true if the cards, sorted by rank, form a strictly
// consecutive sequence with no duplicate ranks
func isRun(cards deck.Hand) bool {
	ranks := make([]int, len(cards))
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	sort.Ints(ranks)

	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			return false
		}
	}

	return true
}

package deck

import (
	"strings"
)

// Hand represents a collection of cards
type Hand []*Card

func (h Hand) Len() int {
	return len(h)
}

func (h Hand) Less(i, j int) bool {
	if cmp := strings.Compare(string(h[i].Suit), string(h[j].Suit)); cmp != 0 {
		return cmp < 0
	}

	return h[i].Rank < h[j].Rank
}

func (h Hand) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// AddCard adds a card to the hand
func (h *Hand) AddCard(card *Card) {
	*h = append(*h, card)
}

// HasCard returns true if the hand contains the specified card
func (h *Hand) HasCard(card *Card) bool {
	for _, c := range *h {
		if c.Equal(card) {
			return true
		}
	}

	return false
}

// Discard will discard the specified card
// Returns true if the card was found and removed.
func (h *Hand) Discard(card *Card) bool {
	for i, c := range *h {
		if c.Equal(card) {
			*h = append((*h)[:i:i], (*h)[i+1:]...)
			return true
		}
	}

	return false
}

// RemoveAt removes and returns the card at the specified index, or nil
// if the index is out of range.
func (h *Hand) RemoveAt(index int) *Card {
	if index < 0 || index >= len(*h) {
		return nil
	}

	card := (*h)[index]
	*h = append((*h)[:index:index], (*h)[index+1:]...)

	return card
}

// Sum returns the combined counting value of the cards in the hand
func (h Hand) Sum() int {
	sum := 0
	for _, c := range h {
		sum += c.Value()
	}

	return sum
}

// FirstCard returns the first card in the hand or nil if the cards are empty
func (h Hand) FirstCard() *Card {
	if len(h) == 0 {
		return nil
	}

	return h[0]
}

// LastCard returns the last card in the hand or nil if the cards are empty
func (h Hand) LastCard() *Card {
	n := len(h)
	if n == 0 {
		return nil
	}

	return h[n-1]
}

func (h Hand) String() string {
	return CardsToString(h)
}

// Clone returns a deep copy of the hand. The cards themselves are
// copied, so a write through a cloned card never reaches the original.
func (h Hand) Clone() Hand {
	h2 := make(Hand, len(h))
	for i, c := range h {
		h2[i] = c.Clone()
	}

	return h2
}

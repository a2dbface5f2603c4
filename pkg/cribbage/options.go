package cribbage

import "time"

// Options provides options for a cribbage game
type Options struct {
	// WinningScore is the front-peg position that ends the game
	WinningScore int
	// RoundEndDelay is how long the game sits in the round-end phase
	// before the next deal
	RoundEndDelay time.Duration
	// Seed is the shuffle seed. Leave at 0 for a random shuffle;
	// set to a positive value in tests for a deterministic deal.
	Seed int64
}

// DefaultOptions returns the default set of options
func DefaultOptions() Options {
	return Options{
		WinningScore:  120,
		RoundEndDelay: 2 * time.Second,
	}
}

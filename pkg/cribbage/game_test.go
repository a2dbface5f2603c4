package cribbage

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cribbage-server/internal/rng"
	"cribbage-server/pkg/deck"
)

func newTestGame(t *testing.T) *Game {
	t.Helper()

	game, err := NewGame(logrus.StandardLogger(), []int64{1, 2}, Options{Seed: 1})
	require.NoError(t, err)
	require.NoError(t, game.Start())

	return game
}

// stackHands replaces the dealt hands so tests can play out exact
// scenarios. The deck is rebuilt from the remaining cards to keep all
// 52 accounted for.
func stackHands(t *testing.T, game *Game, dealerHand, poneHand string) {
	t.Helper()

	h0 := deck.Hand(deck.CardsFromString(dealerHand))
	h1 := deck.Hand(deck.CardsFromString(poneHand))

	game.participants[game.dealerIndex].hand = h0
	game.participants[game.poneIndex()].hand = h1

	remaining := make([]*deck.Card, 0, 40)
	for _, c := range deck.New().Cards {
		if !h0.HasCard(c) && !h1.HasCard(c) {
			remaining = append(remaining, c)
		}
	}

	game.deck.Cards = remaining
	require.NoError(t, game.checkCardCount())
}

// cutOffsetOf finds where a card sits in the remaining deck
func cutOffsetOf(t *testing.T, game *Game, card string) int {
	t.Helper()

	want := deck.CardFromString(card)
	for i, c := range game.deck.Cards {
		if c.Equal(want) {
			return i
		}
	}

	t.Fatalf("card %s is not in the deck", card)
	return -1
}

func TestNewGame(t *testing.T) {
	a := assert.New(t)

	game, err := NewGame(logrus.StandardLogger(), []int64{1}, Options{})
	a.EqualError(err, "cribbage requires exactly two players")
	a.Nil(game)

	game, err = NewGame(logrus.StandardLogger(), []int64{1, 2, 3}, Options{})
	a.EqualError(err, "cribbage requires exactly two players")
	a.Nil(game)

	game, err = NewGame(logrus.StandardLogger(), []int64{7, 7}, Options{})
	a.EqualError(err, "players must be distinct")
	a.Nil(game)

	game, err = NewGame(logrus.StandardLogger(), []int64{1, 2}, Options{})
	a.NoError(err)
	a.Equal(PhaseWaiting, game.Phase())
	a.Equal(120, game.options.WinningScore)
	a.Equal([]int64{1, 2}, game.PlayerIDs())
}

func TestGame_Start(t *testing.T) {
	a := assert.New(t)

	game, err := NewGame(logrus.StandardLogger(), []int64{1, 2}, Options{Seed: 1})
	require.NoError(t, err)

	a.NoError(game.Start())
	a.Equal(PhaseDiscard, game.Phase())
	a.Equal(6, len(game.participants[0].hand))
	a.Equal(6, len(game.participants[1].hand))
	a.Equal(40, game.deck.CardsLeft())

	// the non-dealer is the first actor, but both owe the crib
	a.Equal(int64(2), game.CurrentTurn())
	a.True(game.NeedsAction(1))
	a.True(game.NeedsAction(2))
	a.False(game.NeedsAction(3))

	a.Equal(ErrInvalidPhase, game.Start())
}

func TestGame_Discard(t *testing.T) {
	a := assert.New(t)

	game := newTestGame(t)
	stackHands(t, game, "13s,13h,13d,13c,9c,9d", "6s,7s,8s,2h,3d,4c")

	a.Equal(ErrNotInGame, game.Discard(99, []int{0, 1}))
	a.Equal(ErrDiscardCount, game.Discard(2, []int{0}))
	a.Equal(ErrDiscardCount, game.Discard(2, []int{0, 1, 2}))
	a.Equal(ErrDiscardCount, game.Discard(2, []int{3, 3}))
	a.Equal(ErrIllegalIndex, game.Discard(2, []int{0, 6}))
	a.Equal(ErrIllegalIndex, game.Discard(2, []int{-1, 0}))

	// nothing was mutated by the rejections
	a.Equal(6, len(game.idToParticipant[2].hand))
	a.Equal(0, len(game.crib))

	a.NoError(game.Discard(2, []int{3, 4}))
	a.Equal("6s,7s,8s,4c", game.idToParticipant[2].hand.String())
	a.Equal("6s,7s,8s,4c", game.idToParticipant[2].kept.String())
	a.Equal(2, len(game.crib))
	a.Equal(PhaseDiscard, game.Phase())

	a.Equal(ErrAlreadyDiscarded, game.Discard(2, []int{0, 1}))

	a.NoError(game.Discard(1, []int{3, 5}))
	a.Equal("13s,13h,13d,9c", game.idToParticipant[1].hand.String())
	a.Equal(4, len(game.crib))

	a.Equal(PhaseCut, game.Phase())
	a.Equal(int64(2), game.CurrentTurn())

	a.Equal(ErrInvalidPhase, game.Discard(2, []int{0, 1}))
}

func TestGame_Cut(t *testing.T) {
	a := assert.New(t)

	game := newTestGame(t)
	stackHands(t, game, "13s,13h,13d,13c,9c,9d", "6s,7s,8s,2h,3d,4c")

	a.Equal(ErrInvalidPhase, game.Cut(2, 0))

	require.NoError(t, game.Discard(2, []int{3, 4}))
	require.NoError(t, game.Discard(1, []int{3, 5}))

	a.Equal(ErrIsNotPlayersTurn, game.Cut(1, 0))
	a.Equal(ErrNotInGame, game.Cut(99, 0))
	a.Equal(ErrIllegalIndex, game.Cut(2, -1))
	a.Equal(ErrIllegalIndex, game.Cut(2, 40))
	a.Nil(game.starter)

	offset := cutOffsetOf(t, game, "5c")
	a.NoError(game.Cut(2, offset))
	a.Equal("5c", deck.CardToString(game.starter))
	a.Equal(PhasePegging, game.Phase())
	a.Equal(int64(2), game.CurrentTurn())
	a.Equal(39, game.deck.CardsLeft())

	a.Equal(ErrInvalidPhase, game.Cut(2, 0))
}

// walks a full pegging sequence from a stacked deal: the pone's run
// cards against the dealer's court cards
func TestGame_pegging(t *testing.T) {
	a := assert.New(t)

	game := newTestGame(t)
	stackHands(t, game, "13s,13h,13d,13c,9c,9d", "6s,7s,8s,2h,3d,4c")
	require.NoError(t, game.Discard(2, []int{3, 4}))
	require.NoError(t, game.Discard(1, []int{3, 5}))
	require.NoError(t, game.Cut(2, cutOffsetOf(t, game, "5c")))

	a.Equal(ErrIsNotPlayersTurn, game.PlayCard(1, 0))

	a.NoError(game.PlayCard(2, 0)) // 6s
	a.Equal(6, game.RunningSum())
	a.Equal(0, game.idToParticipant[2].Score())
	a.Equal(int64(1), game.CurrentTurn())

	a.Equal(ErrIllegalIndex, game.PlayCard(1, 4))
	a.NoError(game.PlayCard(1, 0)) // Ks
	a.Equal(16, game.RunningSum())
	a.Equal(0, game.idToParticipant[1].Score())

	// after the 7s the dealer holds only nines and kings, so the pile
	// resets with a go for the pone
	a.NoError(game.PlayCard(2, 0)) // 7s
	a.Equal(0, game.RunningSum())
	a.Equal(1, game.idToParticipant[2].Score())
	a.Equal(int64(1), game.CurrentTurn())

	a.NoError(game.PlayCard(1, 2)) // 9c
	a.Equal(9, game.RunningSum())

	a.NoError(game.PlayCard(2, 0)) // 8s
	a.Equal(17, game.RunningSum())

	a.NoError(game.PlayCard(1, 0)) // Kh
	a.Equal(27, game.RunningSum())

	// 4c lands exactly on 31: two points plus the go
	a.NoError(game.PlayCard(2, 0))
	a.Equal(0, game.RunningSum())
	a.Equal(4, game.idToParticipant[2].Score())
	a.Equal(int64(1), game.CurrentTurn())

	// the dealer plays out their last card and takes the last-card point
	a.NoError(game.PlayCard(1, 0)) // Kd
	a.Equal(1, game.idToParticipant[1].Score())

	// both hands are empty, so the round moves to the count with the
	// original kept hands restored
	a.Equal(PhaseScoring, game.Phase())
	a.Equal("13s,13h,13d,9c", game.idToParticipant[1].hand.String())
	a.Equal("6s,7s,8s,4c", game.idToParticipant[2].hand.String())
	a.Equal(0, game.RunningSum())
	a.Equal(int64(2), game.CurrentTurn())
}

func TestGame_PlayCard_rejectsPlaysOver31(t *testing.T) {
	a := assert.New(t)

	game := newTestGame(t)
	stackHands(t, game, "13s,9c,9d,1d,12h,11h", "6s,7s,8s,4c,2h,3d")
	require.NoError(t, game.Discard(1, []int{4, 5}))
	require.NoError(t, game.Discard(2, []int{4, 5}))
	require.NoError(t, game.Cut(2, cutOffsetOf(t, game, "5c")))

	require.NoError(t, game.PlayCard(2, 0)) // 6s
	require.NoError(t, game.PlayCard(1, 0)) // Ks
	require.NoError(t, game.PlayCard(2, 0)) // 7s
	a.Equal(23, game.RunningSum())
	a.Equal(int64(1), game.CurrentTurn())

	// the nine would make 32; the play is rejected, not clamped
	a.Equal(ErrExceedsThirtyOne, game.PlayCard(1, 0))
	a.Equal(23, game.RunningSum())
	a.Equal(3, len(game.idToParticipant[1].hand))
	a.Equal(int64(1), game.CurrentTurn())

	// the ace is fine
	a.NoError(game.PlayCard(1, 2))
	a.Equal(24, game.RunningSum())
}

func TestGame_pegging_fifteenAdvancesFrontPeg(t *testing.T) {
	a := assert.New(t)

	game := newTestGame(t)
	stackHands(t, game, "8d,13s,13h,13d,9c,9d", "7s,2h,3d,4c,6s,10s")
	require.NoError(t, game.Discard(1, []int{4, 5}))
	require.NoError(t, game.Discard(2, []int{4, 5}))
	require.NoError(t, game.Cut(2, cutOffsetOf(t, game, "12c")))

	require.NoError(t, game.PlayCard(2, 0)) // 7s
	a.Equal(7, game.RunningSum())

	require.NoError(t, game.PlayCard(1, 0)) // 8d makes fifteen
	a.Equal(15, game.RunningSum())
	a.Equal(2, game.idToParticipant[1].Score())
	a.Equal(2, game.idToParticipant[1].frontPeg)
	a.Equal(0, game.idToParticipant[1].backPeg)
}

func TestGame_EndTurn(t *testing.T) {
	a := assert.New(t)

	game := newTestGame(t)
	stackHands(t, game, "13s,13h,13d,13c,9c,9d", "6s,7s,8s,2h,3d,4c")

	a.Equal(ErrInvalidPhase, game.EndTurn(2))

	require.NoError(t, game.Discard(2, []int{3, 4}))
	require.NoError(t, game.Discard(1, []int{3, 5}))
	require.NoError(t, game.Cut(2, cutOffsetOf(t, game, "5c")))

	a.Equal(ErrNotInGame, game.EndTurn(99))
	a.Equal(ErrIsNotPlayersTurn, game.EndTurn(1))

	// the pone can always play on a fresh pile
	a.Equal(ErrMustPlay, game.EndTurn(2))
}

func TestGame_scoring(t *testing.T) {
	a := assert.New(t)

	game := newTestGame(t)
	stackHands(t, game, "13s,13h,13d,13c,9c,9d", "6s,7s,8s,2h,3d,4c")
	require.NoError(t, game.Discard(2, []int{3, 4}))
	require.NoError(t, game.Discard(1, []int{3, 5}))
	require.NoError(t, game.Cut(2, cutOffsetOf(t, game, "5c")))

	a.Equal(ErrInvalidPhase, game.ClaimHand(2))

	for _, play := range []struct {
		playerID int64
		index    int
	}{
		{2, 0}, {1, 0}, {2, 0}, {1, 2}, {2, 0}, {1, 0}, {2, 0}, {1, 0},
	} {
		require.NoError(t, game.PlayCard(play.playerID, play.index))
	}

	require.Equal(t, PhaseScoring, game.Phase())

	// pone: 4 (go and 31) + pegging; dealer: 1 for last card
	poneStart := game.idToParticipant[2].Score()
	dealerStart := game.idToParticipant[1].Score()

	// the non-dealer counts first
	a.Equal(ErrIsNotPlayersTurn, game.ClaimHand(1))
	a.Equal(ErrHandNotScored, game.ClaimCrib(1))

	// 6s,7s,8s,4c + 5c: two fifteens and a run of five
	a.NoError(game.ClaimHand(2))
	a.Equal(poneStart+9, game.idToParticipant[2].Score())
	a.Equal(ErrIsNotPlayersTurn, game.ClaimHand(2))

	// 13s,13h,13d,9c + 5c: three fifteens and a pair royal
	a.NoError(game.ClaimHand(1))
	a.Equal(dealerStart+12, game.idToParticipant[1].Score())
	a.Equal(ErrAlreadyScored, game.ClaimHand(1))

	a.Equal(ErrIsNotPlayersTurn, game.ClaimCrib(2))

	// crib is 2h,3d,13c,9d + 5c: two fifteens
	a.NoError(game.ClaimCrib(1))
	a.Equal(dealerStart+16, game.idToParticipant[1].Score())

	a.Equal(PhaseRoundEnd, game.Phase())
	a.Equal(ErrInvalidPhase, game.ClaimCrib(1))
}

func TestGame_Tick_dealsNextRound(t *testing.T) {
	a := assert.New(t)

	game := newTestGame(t)
	stackHands(t, game, "13s,13h,13d,13c,9c,9d", "6s,7s,8s,2h,3d,4c")
	require.NoError(t, game.Discard(2, []int{3, 4}))
	require.NoError(t, game.Discard(1, []int{3, 5}))
	require.NoError(t, game.Cut(2, cutOffsetOf(t, game, "5c")))

	// nothing to do outside the round-end pause
	changed, err := game.Tick()
	a.NoError(err)
	a.False(changed)

	for _, play := range []struct {
		playerID int64
		index    int
	}{
		{2, 0}, {1, 0}, {2, 0}, {1, 2}, {2, 0}, {1, 0}, {2, 0}, {1, 0},
	} {
		require.NoError(t, game.PlayCard(play.playerID, play.index))
	}

	require.NoError(t, game.ClaimHand(2))
	require.NoError(t, game.ClaimHand(1))
	require.NoError(t, game.ClaimCrib(1))
	require.Equal(t, PhaseRoundEnd, game.Phase())

	// the pause hasn't elapsed yet
	changed, err = game.Tick()
	a.NoError(err)
	a.False(changed)
	a.Equal(PhaseRoundEnd, game.Phase())

	game.nextDealAt = time.Now().Add(-time.Second)
	changed, err = game.Tick()
	a.NoError(err)
	a.True(changed)

	// the deal rotates and everything resets for the new round
	a.Equal(PhaseDiscard, game.Phase())
	a.Equal(1, game.Round())
	a.Equal(int64(2), game.dealer().PlayerID)
	a.Equal(int64(1), game.CurrentTurn())
	a.Equal(6, len(game.participants[0].hand))
	a.Equal(6, len(game.participants[1].hand))
	a.Nil(game.starter)
	a.Equal(0, len(game.crib))
}

func TestGame_winningScoreClampsAndFinishes(t *testing.T) {
	a := assert.New(t)

	game := newTestGame(t)
	stackHands(t, game, "8d,13s,13h,13d,9c,9d", "7s,2h,3d,4c,6s,10s")
	require.NoError(t, game.Discard(1, []int{4, 5}))
	require.NoError(t, game.Discard(2, []int{4, 5}))
	require.NoError(t, game.Cut(2, cutOffsetOf(t, game, "12c")))

	game.participants[0].frontPeg = 119

	require.NoError(t, game.PlayCard(2, 0)) // 7s
	require.NoError(t, game.PlayCard(1, 0)) // 8d makes fifteen for two

	a.Equal(PhaseFinished, game.Phase())
	a.Equal(120, game.participants[0].frontPeg)
	a.Equal(119, game.participants[0].backPeg)

	winner, ok := game.Winner()
	a.True(ok)
	a.Equal(int64(1), winner)

	details, over := game.GetEndOfGameDetails()
	a.True(over)
	a.Equal(int64(1), details.Winner)
	a.Equal(120, details.FinalScores[1])

	// the game is terminal
	a.Equal(ErrGameIsOver, game.PlayCard(2, 0))
	a.Equal(ErrGameIsOver, game.Discard(2, []int{0, 1}))
	a.Equal(ErrGameIsOver, game.EndTurn(2))
	a.Equal(ErrGameIsOver, game.ClaimHand(2))
	a.Equal(ErrGameIsOver, game.ClaimCrib(1))
}

// plays random full games and checks that every card stays accounted
// for and the running sum never leaves [0, 31]
func TestGame_fullGameConservation(t *testing.T) {
	game, err := NewGame(logrus.StandardLogger(), []int64{1, 2}, Options{Seed: 7})
	require.NoError(t, err)
	require.NoError(t, game.Start())

	strategy, err := NewStrategy(StrategyRandom, rng.Crypto{})
	require.NoError(t, err)

	for i := 0; i < 20000 && game.Phase() != PhaseFinished; i++ {
		if game.Phase() == PhaseRoundEnd {
			game.nextDealAt = time.Now().Add(-time.Second)
			_, err := game.Tick()
			require.NoError(t, err)
			continue
		}

		for _, id := range game.PlayerIDs() {
			if !game.NeedsAction(id) {
				continue
			}

			state, err := game.PlayerState(id)
			require.NoError(t, err)

			payload, ok := strategy.NextAction(state)
			require.True(t, ok, "strategy must always have a move when the game waits on it")

			_, _, err = game.Action(id, payload)
			require.NoError(t, err)

			require.NoError(t, game.checkCardCount())
			require.GreaterOrEqual(t, game.RunningSum(), 0)
			require.LessOrEqual(t, game.RunningSum(), 31)
			break
		}
	}

	require.Equal(t, PhaseFinished, game.Phase())

	winner, ok := game.Winner()
	require.True(t, ok)
	assert.Equal(t, 120, game.idToParticipant[winner].Score())
}

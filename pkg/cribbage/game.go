package cribbage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"cribbage-server/pkg/deck"
	"cribbage-server/pkg/playable"
)

const (
	dealSize         = 6
	keptHandSize     = 4
	requiredDiscards = 2
	lastCardBonus    = 1
)

// Game is an individual game of two-player cribbage.
// None of the methods are safe for concurrent use; the session
// scheduler is responsible for serializing access.
type Game struct {
	logger          logrus.FieldLogger
	options         Options
	deck            *deck.Deck
	participants    []*Participant
	idToParticipant map[int64]*Participant

	phase       Phase
	round       int
	dealerIndex int
	turnIndex   int

	crib    deck.Hand
	starter *deck.Card

	// pile holds the current pegging run. Earlier runs this round are
	// retired to played so every card stays accounted for.
	pile            deck.Hand
	played          deck.Hand
	lastPlayedIndex int

	cribScored  bool
	winnerIndex int

	// nextDealAt is when the round-end pause rolls into the next deal
	nextDealAt time.Time

	logChan chan []*playable.LogMessage
}

// NewGame returns a new cribbage game in the waiting phase.
// Call Start() to deal the first round.
func NewGame(logger logrus.FieldLogger, playerIDs []int64, options Options) (*Game, error) {
	if len(playerIDs) != 2 {
		return nil, errors.New("cribbage requires exactly two players")
	}

	if playerIDs[0] == playerIDs[1] {
		return nil, errors.New("players must be distinct")
	}

	if options.WinningScore <= 0 {
		options.WinningScore = DefaultOptions().WinningScore
	}

	if options.RoundEndDelay <= 0 {
		options.RoundEndDelay = DefaultOptions().RoundEndDelay
	}

	idToParticipant := make(map[int64]*Participant)
	participants := make([]*Participant, len(playerIDs))
	for i, id := range playerIDs {
		participants[i] = newParticipant(id)
		idToParticipant[id] = participants[i]
	}

	g := &Game{
		logger:          logger,
		options:         options,
		deck:            deck.New(),
		participants:    participants,
		idToParticipant: idToParticipant,
		phase:           PhaseWaiting,
		lastPlayedIndex: -1,
		winnerIndex:     -1,
		logChan:         make(chan []*playable.LogMessage, 256),
	}

	return g, nil
}

// Start deals the first round and opens the discard phase
func (g *Game) Start() error {
	if g.phase != PhaseWaiting {
		return ErrInvalidPhase
	}

	g.sendLogMessages(playable.SimpleLogMessageSlice(0, "New game of Cribbage started (playing to %d)", g.options.WinningScore))
	return g.deal()
}

// deal shuffles and deals six cards to each player, non-dealer first
func (g *Game) deal() error {
	g.deck.Shuffle(g.options.Seed)

	for _, p := range g.participants {
		p.newRound()
	}

	g.crib = deck.Hand{}
	g.starter = nil
	g.pile = deck.Hand{}
	g.played = deck.Hand{}
	g.lastPlayedIndex = -1
	g.cribScored = false

	pone := g.poneIndex()
	for i := 0; i < dealSize*len(g.participants); i++ {
		card, err := g.deck.Draw()
		if err != nil {
			return err
		}

		g.participants[(pone+i)%len(g.participants)].hand.AddCard(card)
	}

	g.phase = PhaseDiscard
	g.turnIndex = pone

	g.logger.WithFields(logrus.Fields{
		"round":  g.round,
		"dealer": g.dealer().PlayerID,
	}).Debug("dealt new round")
	g.sendLogMessages(playable.SimpleLogMessageSlice(g.dealer().PlayerID, "{} deals round %d", g.round+1))

	return g.checkCardCount()
}

// Discard sends two cards from the player's hand to the crib.
// The indices reference the player's current hand. Each player may
// discard exactly once per round.
func (g *Game) Discard(playerID int64, indices []int) error {
	if g.phase == PhaseFinished {
		return ErrGameIsOver
	}

	if g.phase != PhaseDiscard {
		return ErrInvalidPhase
	}

	p, ok := g.idToParticipant[playerID]
	if !ok {
		return ErrNotInGame
	}

	if p.hasDiscarded {
		return ErrAlreadyDiscarded
	}

	if len(indices) != requiredDiscards {
		return ErrDiscardCount
	}

	if indices[0] == indices[1] {
		return ErrDiscardCount
	}

	for _, index := range indices {
		if index < 0 || index >= len(p.hand) {
			return ErrIllegalIndex
		}
	}

	// remove the higher index first so the lower one stays valid
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	discarded := make(deck.Hand, 0, requiredDiscards)
	for _, index := range sorted {
		card := p.hand.RemoveAt(index)
		g.crib.AddCard(card)
		discarded = append(discarded, card)
	}

	p.kept = p.hand.Clone()
	p.hasDiscarded = true

	g.sendLogMessages(cardsLogMessage(playerID, discarded, "{} sent two cards to the crib"))

	if g.participants[0].hasDiscarded && g.participants[1].hasDiscarded {
		g.phase = PhaseCut
		g.turnIndex = g.poneIndex()
	}

	return g.checkCardCount()
}

// Cut reveals the starter card at the given offset into the remaining
// deck. Only the non-dealer may cut.
func (g *Game) Cut(playerID int64, offset int) error {
	if g.phase == PhaseFinished {
		return ErrGameIsOver
	}

	if g.phase != PhaseCut {
		return ErrInvalidPhase
	}

	p, ok := g.idToParticipant[playerID]
	if !ok {
		return ErrNotInGame
	}

	if p != g.currentTurn() {
		return ErrIsNotPlayersTurn
	}

	card, err := g.deck.Cut(offset)
	if err != nil {
		return ErrIllegalIndex
	}

	g.starter = card
	g.phase = PhasePegging
	g.turnIndex = g.poneIndex()
	g.pile = deck.Hand{}
	g.lastPlayedIndex = -1

	g.sendLogMessages(cardsLogMessage(playerID, deck.Hand{card}, "{} cut the %s", card))

	return g.checkCardCount()
}

// PlayCard plays the card at the given hand index onto the pile.
// A play that would push the running sum past 31 is rejected outright.
func (g *Game) PlayCard(playerID int64, index int) error {
	if g.phase == PhaseFinished {
		return ErrGameIsOver
	}

	if g.phase != PhasePegging {
		return ErrInvalidPhase
	}

	p, ok := g.idToParticipant[playerID]
	if !ok {
		return ErrNotInGame
	}

	if p != g.currentTurn() {
		return ErrIsNotPlayersTurn
	}

	if index < 0 || index >= len(p.hand) {
		return ErrIllegalIndex
	}

	if g.pile.Sum()+p.hand[index].Value() > pileLimit {
		return ErrExceedsThirtyOne
	}

	card := p.hand.RemoveAt(index)
	g.pile.AddCard(card)
	playerIndex := g.turnIndex
	g.lastPlayedIndex = playerIndex

	g.sendLogMessages(cardsLogMessage(playerID, deck.Hand{card}, "{} played the %s (%d)", card, g.pile.Sum()))

	if points := ScorePegging(g.pile); points > 0 {
		if g.awardPoints(p, points, "pegging") {
			return g.checkCardCount()
		}
	}

	g.resolveAfterPlay(playerIndex)
	return g.checkCardCount()
}

// resolveAfterPlay advances the turn, or resets the pile with a go
// bonus if the sum hit 31 or the upcoming player cannot play
func (g *Game) resolveAfterPlay(playerIndex int) {
	p := g.participants[playerIndex]
	opponent := g.participants[1-playerIndex]
	sum := g.pile.Sum()

	if sum < pileLimit && opponent.canPlay(sum) {
		g.turnIndex = 1 - playerIndex
		return
	}

	// last card of this run
	if g.awardPoints(p, lastCardBonus, "the go") {
		return
	}

	g.resetPile()

	if len(p.hand) == 0 && len(opponent.hand) == 0 {
		g.beginScoring()
		return
	}

	if len(opponent.hand) > 0 {
		g.turnIndex = 1 - playerIndex
	} else {
		g.turnIndex = playerIndex
	}
}

// EndTurn is the explicit go declaration. It is rejected while the
// player still holds a playable card. Since the engine already awards
// the go automatically as soon as the upcoming player is stuck, this
// is a safety valve for callers that submit it anyway.
func (g *Game) EndTurn(playerID int64) error {
	if g.phase == PhaseFinished {
		return ErrGameIsOver
	}

	if g.phase != PhasePegging {
		return ErrInvalidPhase
	}

	p, ok := g.idToParticipant[playerID]
	if !ok {
		return ErrNotInGame
	}

	if p != g.currentTurn() {
		return ErrIsNotPlayersTurn
	}

	if p.canPlay(g.pile.Sum()) {
		return ErrMustPlay
	}

	playerIndex := g.turnIndex
	opponent := g.participants[1-playerIndex]

	if g.awardPoints(opponent, lastCardBonus, "the go") {
		return nil
	}

	g.resetPile()

	if len(p.hand) == 0 && len(opponent.hand) == 0 {
		g.beginScoring()
		return nil
	}

	if len(opponent.hand) > 0 {
		g.turnIndex = 1 - playerIndex
	}

	return g.checkCardCount()
}

// beginScoring restores both kept hands for the count.
// The non-dealer counts first.
func (g *Game) beginScoring() {
	for _, p := range g.participants {
		p.hand = p.kept.Clone()
	}

	g.pile = deck.Hand{}
	g.played = deck.Hand{}
	g.lastPlayedIndex = -1
	g.phase = PhaseScoring
	g.turnIndex = g.poneIndex()
}

// ClaimHand counts the player's hand. The non-dealer counts first,
// then the dealer.
func (g *Game) ClaimHand(playerID int64) error {
	if g.phase == PhaseFinished {
		return ErrGameIsOver
	}

	if g.phase != PhaseScoring {
		return ErrInvalidPhase
	}

	p, ok := g.idToParticipant[playerID]
	if !ok {
		return ErrNotInGame
	}

	if p != g.currentTurn() {
		return ErrIsNotPlayersTurn
	}

	if p.handScored {
		return ErrAlreadyScored
	}

	tally := ScoreHand(p.kept, g.starter, false)
	p.handScored = true

	g.sendLogMessages(cardsLogMessage(playerID, p.kept.Clone(), "{} counted %d in hand", tally.Total()))

	if g.awardPoints(p, tally.Total(), "the hand") {
		return nil
	}

	if g.turnIndex == g.poneIndex() {
		g.turnIndex = g.dealerIndex
	}

	return g.checkCardCount()
}

// ClaimCrib counts the crib for the dealer. The dealer must count
// their hand first.
func (g *Game) ClaimCrib(playerID int64) error {
	if g.phase == PhaseFinished {
		return ErrGameIsOver
	}

	if g.phase != PhaseScoring {
		return ErrInvalidPhase
	}

	p, ok := g.idToParticipant[playerID]
	if !ok {
		return ErrNotInGame
	}

	if p != g.dealer() {
		return ErrIsNotPlayersTurn
	}

	if !p.handScored {
		return ErrHandNotScored
	}

	if g.cribScored {
		return ErrAlreadyScored
	}

	tally := ScoreHand(g.crib, g.starter, true)
	g.cribScored = true

	g.sendLogMessages(cardsLogMessage(playerID, g.crib.Clone(), "{} counted %d in the crib", tally.Total()))

	if g.awardPoints(p, tally.Total(), "the crib") {
		return nil
	}

	g.phase = PhaseRoundEnd
	g.nextDealAt = time.Now().Add(g.options.RoundEndDelay)
	return g.checkCardCount()
}

// nextRound rotates the dealer and deals again. Called from Tick once
// the round-end delay has elapsed.
func (g *Game) nextRound() error {
	if g.phase != PhaseRoundEnd {
		return ErrInvalidPhase
	}

	g.dealerIndex = 1 - g.dealerIndex
	g.round++
	return g.deal()
}

// awardPoints moves the player's front peg and returns true if the
// game is over
func (g *Game) awardPoints(p *Participant, points int, reason string) bool {
	if points <= 0 {
		return false
	}

	p.addPoints(points, g.options.WinningScore)

	g.logger.WithFields(logrus.Fields{
		"player": p.PlayerID,
		"points": points,
		"score":  p.frontPeg,
		"reason": reason,
	}).Debug("points awarded")
	g.sendLogMessages(playable.SimpleLogMessageSlice(p.PlayerID, "{} pegged %d for %s (%d)", points, reason, p.frontPeg))

	if p.frontPeg >= g.options.WinningScore {
		g.finish(p)
		return true
	}

	return false
}

// finish moves the game into the terminal phase. The win takes effect
// the moment the front peg reaches the winning hole, regardless of the
// current phase.
func (g *Game) finish(winner *Participant) {
	g.phase = PhaseFinished
	for i, p := range g.participants {
		if p == winner {
			g.winnerIndex = i
		}
	}

	g.logger.WithField("winner", winner.PlayerID).Info("game over")
	g.sendLogMessages(playable.SimpleLogMessageSlice(winner.PlayerID, "{} wins the game"))
}

// resetPile retires the current run so the next one starts from zero
func (g *Game) resetPile() {
	g.played = append(g.played, g.pile...)
	g.pile = deck.Hand{}
	g.lastPlayedIndex = -1
}

func (g *Game) poneIndex() int {
	return 1 - g.dealerIndex
}

func (g *Game) dealer() *Participant {
	return g.participants[g.dealerIndex]
}

func (g *Game) currentTurn() *Participant {
	return g.participants[g.turnIndex]
}

// Phase returns the current phase
func (g *Game) Phase() Phase {
	return g.phase
}

// Round returns the zero-based round counter
func (g *Game) Round() int {
	return g.round
}

// RunningSum returns the current pegging sum
func (g *Game) RunningSum() int {
	return g.pile.Sum()
}

// CurrentTurn returns the ID of the player the game is waiting on
func (g *Game) CurrentTurn() int64 {
	return g.currentTurn().PlayerID
}

// PlayerIDs returns the IDs of both players, non-dealer last
func (g *Game) PlayerIDs() []int64 {
	ids := make([]int64, len(g.participants))
	for i, p := range g.participants {
		ids[i] = p.PlayerID
	}

	return ids
}

// Winner returns the winning player's ID once the game is finished
func (g *Game) Winner() (int64, bool) {
	if g.phase != PhaseFinished || g.winnerIndex < 0 {
		return 0, false
	}

	return g.participants[g.winnerIndex].PlayerID, true
}

// NeedsAction returns true if the game is waiting on the player.
// During the discard phase both players may owe the crib their cards,
// so the turn pointer alone is not enough.
func (g *Game) NeedsAction(playerID int64) bool {
	p, ok := g.idToParticipant[playerID]
	if !ok {
		return false
	}

	switch g.phase {
	case PhaseDiscard:
		return !p.hasDiscarded
	case PhaseCut, PhasePegging, PhaseScoring:
		return p == g.currentTurn()
	}

	return false
}

// checkCardCount verifies that all 52 cards are accounted for across
// the deck, hands, crib, pile, and starter. A mismatch is a fatal
// engine fault.
func (g *Game) checkCardCount() error {
	count := g.deck.CardsLeft() + len(g.crib) + len(g.pile) + len(g.played)
	for _, p := range g.participants {
		count += len(p.hand)
	}

	if g.starter != nil {
		count++
	}

	if count != 52 {
		return &InvariantError{Details: fmt.Sprintf("expected 52 cards, found %d", count)}
	}

	return nil
}

// sendLogMessages delivers log messages without ever blocking the
// engine if nobody is draining the channel
func (g *Game) sendLogMessages(msgs []*playable.LogMessage) {
	select {
	case g.logChan <- msgs:
	default:
	}
}

// cardsLogMessage builds a single player-attributed log message that
// carries the cards involved
func cardsLogMessage(playerID int64, cards deck.Hand, format string, a ...interface{}) []*playable.LogMessage {
	msg := playable.SimpleLogMessage(playerID, format, a...)
	msg.Cards = cards
	return []*playable.LogMessage{msg}
}

package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/onfelt/holdemd/internal/chips"
	"github.com/onfelt/holdemd/internal/deck"
	"github.com/onfelt/holdemd/internal/evaluator"
)

// Engine runs one table's hands from deal to settlement. It is not safe for
// concurrent use: the table's Room Controller is its sole owner and calls it
// from a single loop. All methods that mutate state take the current time
// from the caller so the engine itself never reads a clock.
type Engine struct {
	cfg    TableConfig
	logger *log.Logger
	rng    *rand.Rand

	seats      []*Seat // indexed by seat, nil when empty
	phase      Phase
	handNumber uint64
	button     int // seat index, -1 before the first hand

	community     []deck.Card
	communityPos  []int
	localDeck     *deck.Deck
	dealCursor    int // next undealt deck position (mental poker mode)
	betting       *BettingRound
	turnSeat      int
	turnStartedAt time.Time
	lastAggressor int
	actions       []ActionRecord

	shownBoard []deck.Card // board confirmed by showdown shows (mental poker)
	mustShow   map[int]bool
	handStart  map[int]chips.Amount // stacks at hand start, for settlement deltas
}

var (
	ErrInvalidAction = errors.New("invalid-action")
	ErrSeatTaken     = errors.New("seat-taken")
	ErrTableFull     = errors.New("table-full")
	ErrBuyInRange    = errors.New("buy-in-out-of-range")
	ErrNotSeated     = errors.New("not-seated")
	ErrWrongPhase    = errors.New("wrong-phase")
	// errBrokenInvariant marks fatal conditions: the hand aborts and chips
	// are returned.
	errBrokenInvariant = errors.New("broken invariant")
)

// NewEngine creates an engine for the table. The RNG drives local-mode deals
// and the initial button draw; inject a seeded one for reproducible tests.
func NewEngine(cfg TableConfig, logger *log.Logger, rng *rand.Rand) *Engine {
	return &Engine{
		cfg:           cfg,
		logger:        logger.WithPrefix("engine").With("table", cfg.ID),
		rng:           rng,
		seats:         make([]*Seat, cfg.MaxSeats),
		phase:         PhaseWaiting,
		button:        -1,
		turnSeat:      -1,
		lastAggressor: -1,
	}
}

// Config returns the immutable table configuration.
func (e *Engine) Config() TableConfig { return e.cfg }

// Phase returns the current hand phase.
func (e *Engine) Phase() Phase { return e.phase }

// HandNumber returns the current hand number (0 before the first hand).
func (e *Engine) HandNumber() uint64 { return e.handNumber }

// TurnSeat returns the seat on turn, or -1.
func (e *Engine) TurnSeat() int { return e.turnSeat }

// TurnStartedAt returns when the current turn began.
func (e *Engine) TurnStartedAt() time.Time { return e.turnStartedAt }

// Button returns the dealer seat, or -1 before the first hand.
func (e *Engine) Button() int { return e.button }

// Community returns the plaintext board known to the server.
func (e *Engine) Community() []deck.Card { return e.community }

// CommunityPositions returns the deck positions of the dealt board.
func (e *Engine) CommunityPositions() []int { return e.communityPos }

// Seats returns the seat slice; nil entries are empty seats. Callers must not
// mutate through it off the controller loop.
func (e *Engine) Seats() []*Seat { return e.seats }

// SeatAt returns the seat at the index, or nil.
func (e *Engine) SeatAt(i int) *Seat {
	if i < 0 || i >= len(e.seats) {
		return nil
	}
	return e.seats[i]
}

// SeatByWallet finds the seat bound to a wallet address.
func (e *Engine) SeatByWallet(wallet string) *Seat {
	for _, s := range e.seats {
		if s != nil && s.Wallet == wallet {
			return s
		}
	}
	return nil
}

// CurrentBet returns the betting round's current bet.
func (e *Engine) CurrentBet() chips.Amount {
	if e.betting == nil {
		return 0
	}
	return e.betting.CurrentBet
}

// PotTotal is the sum of all hand contributions so far.
func (e *Engine) PotTotal() chips.Amount {
	var total chips.Amount
	for _, s := range e.seats {
		if s != nil {
			total += s.HandBet
		}
	}
	return total
}

// LegalActions returns the actions available to the seat on turn.
func (e *Engine) LegalActions(seat int) []LegalAction {
	if e.betting == nil || seat != e.turnSeat {
		return nil
	}
	s := e.SeatAt(seat)
	if s == nil {
		return nil
	}
	return e.betting.LegalActions(s)
}

// Actions returns the ordered action log for the current hand.
func (e *Engine) Actions() []ActionRecord { return e.actions }

// HandActive reports whether a hand is in progress.
func (e *Engine) HandActive() bool {
	return e.phase != PhaseWaiting && e.phase != PhaseFinished
}

// Sit seats a player. desiredSeat may be -1 for the first free seat. The
// caller must have locked the buy-in on the escrow before seating.
func (e *Engine) Sit(id, wallet, name string, desiredSeat int, buyIn chips.Amount) (*Seat, error) {
	if buyIn < e.cfg.MinBuyIn || buyIn > e.cfg.MaxBuyIn {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrBuyInRange, buyIn, e.cfg.MinBuyIn, e.cfg.MaxBuyIn)
	}
	if existing := e.SeatByWallet(wallet); existing != nil {
		return nil, fmt.Errorf("wallet already seated at %d", existing.Index)
	}

	idx := desiredSeat
	if idx < 0 {
		for i, s := range e.seats {
			if s == nil {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrTableFull
		}
	}
	if idx >= len(e.seats) {
		return nil, fmt.Errorf("%w: seat %d", ErrSeatTaken, idx)
	}
	if e.seats[idx] != nil {
		return nil, fmt.Errorf("%w: seat %d", ErrSeatTaken, idx)
	}

	seat := &Seat{ID: id, Wallet: wallet, Name: name, Index: idx, Stack: buyIn}
	e.seats[idx] = seat
	e.logger.Info("player seated", "seat", idx, "name", name, "buyIn", buyIn)
	return seat, nil
}

// Leave removes a seat. Mid-hand the seat folds and is released when the hand
// settles; otherwise it is removed immediately.
func (e *Engine) Leave(idx int, now time.Time) ([]Event, error) {
	s := e.SeatAt(idx)
	if s == nil {
		return nil, ErrNotSeated
	}
	if e.HandActive() && s.InHand() && !s.Folded {
		s.Leaving = true
		return e.ForceFold(idx, now), nil
	}
	e.seats[idx] = nil
	return []Event{SeatRemoved{Seat: idx, Wallet: s.Wallet, Stack: s.Stack}}, nil
}

// SitOut marks the seat as sitting out from the next hand.
func (e *Engine) SitOut(idx int) error {
	s := e.SeatAt(idx)
	if s == nil {
		return ErrNotSeated
	}
	s.SittingOut = true
	return nil
}

// SitIn returns a sitting-out seat to play. No dead blind is posted; the seat
// simply waits for the next deal.
func (e *Engine) SitIn(idx int) error {
	s := e.SeatAt(idx)
	if s == nil {
		return ErrNotSeated
	}
	s.SittingOut = false
	return nil
}

// AddChips tops up a stack between hands, capped at the max buy-in.
func (e *Engine) AddChips(idx int, amount chips.Amount) error {
	s := e.SeatAt(idx)
	if s == nil {
		return ErrNotSeated
	}
	if e.HandActive() && s.InHand() {
		return fmt.Errorf("%w: cannot add chips during a hand", ErrWrongPhase)
	}
	if s.Stack+amount > e.cfg.MaxBuyIn {
		return fmt.Errorf("%w: stack would exceed max buy-in", ErrBuyInRange)
	}
	s.Stack += amount
	return nil
}

// CanStart reports whether enough eligible seats exist to deal a hand.
func (e *Engine) CanStart() bool {
	if e.phase != PhaseWaiting {
		return false
	}
	return len(e.eligibleSeats()) >= e.cfg.MinSeats
}

// Arm moves waiting to starting and allocates the hand number. Allocating
// here rather than in Begin keeps aborts during the shuffle phases on the
// new hand's number, not the previous settled hand's.
func (e *Engine) Arm() error {
	if !e.CanStart() {
		return ErrWrongPhase
	}
	e.phase = PhaseStarting
	e.handNumber++
	return nil
}

func (e *Engine) eligibleSeats() []int {
	var out []int
	for i, s := range e.seats {
		if s != nil && s.EligibleToDeal() {
			out = append(out, i)
		}
	}
	return out
}

// nextEligible returns the first eligible-to-deal seat at or after from,
// scanning clockwise.
func (e *Engine) nextEligible(from int) int {
	n := len(e.seats)
	for i := 0; i < n; i++ {
		idx := (from + i + n) % n
		if s := e.seats[idx]; s != nil && s.EligibleToDeal() {
			return idx
		}
	}
	return -1
}

// nextToAct returns the first seat at or after from that can still act.
func (e *Engine) nextToAct(from int) int {
	n := len(e.seats)
	for i := 0; i < n; i++ {
		idx := (from + i + n) % n
		if s := e.seats[idx]; s != nil && s.CanAct() {
			return idx
		}
	}
	return -1
}

// Begin deals a new hand: moves the button, posts blinds, deals hole cards
// and opens the preflop round.
func (e *Engine) Begin(now time.Time) ([]Event, error) {
	if e.phase != PhaseStarting {
		return nil, ErrWrongPhase
	}
	players := e.eligibleSeats()
	if len(players) < e.cfg.MinSeats {
		e.phase = PhaseWaiting
		return nil, ErrWrongPhase
	}

	e.community = nil
	e.communityPos = nil
	e.actions = nil
	e.shownBoard = nil
	e.mustShow = nil
	e.dealCursor = 0
	e.lastAggressor = -1
	e.handStart = make(map[int]chips.Amount)
	for _, s := range e.seats {
		if s != nil {
			s.resetForHand()
		}
	}

	// Button moves clockwise to the next eligible seat; the very first hand
	// draws it uniformly at random.
	if e.button < 0 {
		e.button = players[e.rng.IntN(len(players))]
	} else {
		e.button = e.nextEligible(e.button + 1)
	}

	var events []Event
	events = append(events, HandStarted{HandNumber: e.handNumber, Dealer: e.button})

	dealer := e.seats[e.button]
	dealer.Dealer = true

	headsUp := len(players) == 2
	var sbSeat, bbSeat int
	if headsUp {
		sbSeat = e.button
		bbSeat = e.nextEligible(e.button + 1)
	} else {
		sbSeat = e.nextEligible(e.button + 1)
		bbSeat = e.nextEligible(sbSeat + 1)
	}

	e.betting = NewBettingRound(e.cfg.BigBlind)
	e.seats[sbSeat].SmallBlind = true
	e.seats[bbSeat].BigBlind = true

	sbPosted := e.seats[sbSeat].post(e.cfg.SmallBlind)
	e.recordAction(sbSeat, PostSmallBlind, sbPosted, now)
	events = append(events, BlindPosted{Seat: sbSeat, Action: PostSmallBlind, Amount: sbPosted})

	bbPosted := e.seats[bbSeat].post(e.cfg.BigBlind)
	e.recordAction(bbSeat, PostBigBlind, bbPosted, now)
	events = append(events, BlindPosted{Seat: bbSeat, Action: PostBigBlind, Amount: bbPosted})

	// The big blind sets the bet level without consuming the blind's option.
	e.betting.CurrentBet = e.cfg.BigBlind

	for _, idx := range players {
		e.handStart[idx] = e.seats[idx].Stack + e.seats[idx].HandBet
	}

	events = append(events, e.dealHoleCards(players)...)

	e.phase = PhasePreflop

	// First to act: heads-up the dealer/small blind, otherwise under the gun.
	var first int
	if headsUp {
		first = e.nextToAct(e.button)
	} else {
		first = e.nextToAct(bbSeat + 1)
	}
	events = append(events, e.startTurn(first, now)...)
	return events, nil
}

// dealHoleCards gives two cards (or two deck positions under mental poker)
// to every dealt-in seat, starting left of the dealer.
func (e *Engine) dealHoleCards(players []int) []Event {
	var events []Event
	if e.cfg.Mode == DealLocal {
		e.localDeck = deck.New(e.rng)
	}

	start := e.nextEligible(e.button + 1)
	order := make([]int, 0, len(players))
	for i, n := 0, len(e.seats); i < n; i++ {
		idx := (start + i) % n
		if s := e.seats[idx]; s != nil && s.EligibleToDeal() {
			order = append(order, idx)
		}
	}

	for _, idx := range order {
		s := e.seats[idx]
		positions := []int{e.dealCursor, e.dealCursor + 1}
		e.dealCursor += 2
		s.HolePositions = positions

		if e.cfg.Mode == DealLocal {
			c1, _ := e.localDeck.Deal()
			c2, _ := e.localDeck.Deal()
			s.HoleCards = []deck.Card{c1, c2}
			events = append(events, HoleCardsDealt{Seat: idx, Cards: s.HoleCards, Positions: positions})
		} else {
			events = append(events, HoleCardsDealt{Seat: idx, Positions: positions})
			events = append(events,
				CardRequested{Position: positions[0], Type: HoleCard, Recipient: idx},
				CardRequested{Position: positions[1], Type: HoleCard, Recipient: idx},
			)
		}
	}
	return events
}

func (e *Engine) startTurn(seat int, now time.Time) []Event {
	e.turnSeat = seat
	if seat < 0 {
		return nil
	}
	e.turnStartedAt = now
	return []Event{TurnStarted{Seat: seat, Legal: e.betting.LegalActions(e.seats[seat])}}
}

func (e *Engine) recordAction(seat int, action Action, amount chips.Amount, now time.Time) {
	rec := ActionRecord{Seat: seat, Action: action, Amount: amount, Phase: e.phase, Timestamp: now}
	e.actions = append(e.actions, rec)
	if s := e.SeatAt(seat); s != nil && action != PostSmallBlind && action != PostBigBlind {
		s.LastAction = &rec
	}
}

// Apply validates and applies an action from the seat on turn. Illegal
// actions are rejected without state change.
func (e *Engine) Apply(seat int, action Action, amount chips.Amount, now time.Time) ([]Event, error) {
	if !e.phase.IsBettingRound() {
		return nil, fmt.Errorf("%w: no betting in %s", ErrInvalidAction, e.phase)
	}
	if seat != e.turnSeat {
		return nil, fmt.Errorf("%w: not seat %d's turn", ErrInvalidAction, seat)
	}
	s := e.seats[seat]

	// Call and all-in amounts are derived, not trusted from the wire.
	switch action {
	case Call:
		amount = e.betting.CurrentBet - s.RoundBet
		if amount > s.Stack {
			amount = s.Stack
		}
	case AllIn:
		amount = s.RoundBet + s.Stack
	case Fold, Check:
		amount = 0
	}

	if !e.betting.allowed(s, action, amount) {
		return nil, fmt.Errorf("%w: %s %d", ErrInvalidAction, action, amount)
	}

	switch action {
	case Fold:
		s.Folded = true
	case Check:
		// nothing to move
	case Call:
		s.post(amount)
	case Bet, Raise:
		s.post(amount - s.RoundBet)
		e.betting.ApplyAggression(seat, s.RoundBet)
		e.lastAggressor = seat
	case AllIn:
		s.post(s.Stack)
		if s.RoundBet > e.betting.CurrentBet {
			e.betting.ApplyAggression(seat, s.RoundBet)
			e.lastAggressor = seat
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}
	e.betting.MarkActed(seat)
	e.recordAction(seat, action, amount, now)

	events := []Event{ActionApplied{Record: e.actions[len(e.actions)-1], Pot: e.PotTotal()}}
	more, err := e.afterAction(now)
	if err != nil {
		return e.abort(err.Error()), nil
	}
	return append(events, more...), nil
}

// ForceFold folds a seat out of turn (disconnect grace expiry, protocol
// violations). No-op for seats already out of the hand.
func (e *Engine) ForceFold(seat int, now time.Time) []Event {
	s := e.SeatAt(seat)
	if s == nil || !s.InHand() || s.Folded || !e.HandActive() {
		return nil
	}
	s.Folded = true
	if e.betting != nil {
		e.betting.MarkActed(seat)
	}
	e.recordAction(seat, Fold, 0, now)
	events := []Event{ActionApplied{Record: e.actions[len(e.actions)-1], Pot: e.PotTotal()}}

	if e.mustShow != nil {
		delete(e.mustShow, seat)
		more, err := e.maybeFinishShowdown(now)
		if err != nil {
			return append(events, e.abort(err.Error())...)
		}
		return append(events, more...)
	}

	// Out of turn, the fold only ends the hand when one seat remains; the
	// turn cursor must not move past the seat still deciding.
	n, _ := e.remainingInHand()
	if n <= 1 || seat == e.turnSeat || e.betting.Complete(e.seats) {
		more, err := e.afterAction(now)
		if err != nil {
			return append(events, e.abort(err.Error())...)
		}
		events = append(events, more...)
	}
	return events
}

// AutoAct applies the timeout action for the seat on turn: check when legal,
// otherwise fold.
func (e *Engine) AutoAct(seat int, now time.Time) ([]Event, error) {
	if seat != e.turnSeat || !e.phase.IsBettingRound() {
		return nil, ErrInvalidAction
	}
	s := e.seats[seat]
	if e.betting.CurrentBet == s.RoundBet {
		return e.Apply(seat, Check, 0, now)
	}
	return e.Apply(seat, Fold, 0, now)
}

// afterAction advances the turn cursor, the street, or the whole hand.
func (e *Engine) afterAction(now time.Time) ([]Event, error) {
	if n, last := e.remainingInHand(); n <= 1 {
		return e.settleFoldout(last, now)
	}
	if e.betting.Complete(e.seats) {
		return e.advanceStreet(now)
	}
	return e.startTurn(e.nextToAct(e.turnSeat+1), now), nil
}

func (e *Engine) remainingInHand() (int, int) {
	count, last := 0, -1
	for i, s := range e.seats {
		if s != nil && s.InHand() && !s.Folded {
			count++
			last = i
		}
	}
	return count, last
}

// advanceStreet collects round bets, deals the next street and opens its
// betting round. When no one can act (all-in runout) it cascades to showdown.
func (e *Engine) advanceStreet(now time.Time) ([]Event, error) {
	for _, s := range e.seats {
		if s != nil {
			s.RoundBet = 0
		}
	}
	e.betting = NewBettingRound(e.cfg.BigBlind)
	e.turnSeat = -1

	var events []Event
	switch e.phase {
	case PhasePreflop:
		e.phase = PhaseFlop
		events = append(events, e.dealCommunity(3)...)
	case PhaseFlop:
		e.phase = PhaseTurn
		events = append(events, e.dealCommunity(1)...)
	case PhaseTurn:
		e.phase = PhaseRiver
		events = append(events, e.dealCommunity(1)...)
	case PhaseRiver:
		return append(events, e.enterShowdown(now)...), nil
	default:
		return nil, fmt.Errorf("%w: advance from %s", errBrokenInvariant, e.phase)
	}

	events = append(events, PhaseChanged{Phase: e.phase, Community: e.community, Positions: e.communityPos})

	// Post-flop the first seat left of the dealer that can act goes first.
	first := e.nextToAct(e.button + 1)
	if first < 0 {
		// Everyone all-in: run the remaining streets out.
		more, err := e.advanceStreet(now)
		return append(events, more...), err
	}
	events = append(events, e.startTurn(first, now)...)
	return events, nil
}

// dealCommunity burns one position and deals n board cards.
func (e *Engine) dealCommunity(n int) []Event {
	var events []Event
	e.dealCursor++ // burn
	if e.cfg.Mode == DealLocal {
		e.localDeck.Burn()
	}
	for i := 0; i < n; i++ {
		pos := e.dealCursor
		e.dealCursor++
		e.communityPos = append(e.communityPos, pos)
		if e.cfg.Mode == DealLocal {
			c, _ := e.localDeck.Deal()
			e.community = append(e.community, c)
		} else {
			events = append(events, CardRequested{Position: pos, Type: CommunityCard, Recipient: -1})
		}
	}
	return events
}

// enterShowdown either evaluates immediately (local mode) or waits for the
// remaining seats to show their cards (mental poker mode).
func (e *Engine) enterShowdown(now time.Time) []Event {
	e.phase = PhaseShowdown
	e.turnSeat = -1

	if e.cfg.Mode == DealLocal {
		events, err := e.settleShowdown(now)
		if err != nil {
			return e.abort(err.Error())
		}
		return events
	}

	e.mustShow = make(map[int]bool)
	var seats []int
	for i, s := range e.seats {
		if s != nil && s.InHand() && !s.Folded {
			e.mustShow[i] = true
			seats = append(seats, i)
		}
	}
	return []Event{ShowdownRequired{Seats: seats}}
}

// ShowCards accepts a showdown reveal in mental poker mode: the seat's hole
// cards plus the board it decrypted. The first board claim is adopted; any
// later mismatch is a protocol failure and aborts the hand.
func (e *Engine) ShowCards(seat int, hole, board []deck.Card, now time.Time) ([]Event, error) {
	if e.phase != PhaseShowdown || e.mustShow == nil {
		return nil, fmt.Errorf("%w: not awaiting showdown", ErrWrongPhase)
	}
	s := e.SeatAt(seat)
	if s == nil || !e.mustShow[seat] {
		return nil, fmt.Errorf("%w: seat %d has nothing to show", ErrInvalidAction, seat)
	}
	if len(hole) != 2 {
		return nil, fmt.Errorf("%w: need exactly 2 hole cards", ErrInvalidAction)
	}
	if len(board) != 5 {
		return nil, fmt.Errorf("%w: need the full board", ErrInvalidAction)
	}
	if e.shownBoard == nil {
		e.shownBoard = append([]deck.Card(nil), board...)
	} else if !sameCards(e.shownBoard, board) {
		return e.abort("showdown board mismatch"), nil
	}

	s.HoleCards = append([]deck.Card(nil), hole...)
	delete(e.mustShow, seat)
	return e.maybeFinishShowdown(now)
}

func (e *Engine) maybeFinishShowdown(now time.Time) ([]Event, error) {
	if len(e.mustShow) > 0 {
		return nil, nil
	}
	if n, last := e.remainingInHand(); n <= 1 {
		return e.settleFoldout(last, now)
	}
	e.community = e.shownBoard
	events, err := e.settleShowdown(now)
	if err != nil {
		return e.abort(err.Error()), nil
	}
	return events, nil
}

func sameCards(a, b []deck.Card) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// settleFoldout pays the whole pot to the sole remaining seat.
func (e *Engine) settleFoldout(winner int, now time.Time) ([]Event, error) {
	contribs := e.contributions()
	adjusted, refundSeat, refund := ReturnUncalled(contribs)
	var events []Event
	if refundSeat >= 0 {
		e.seats[refundSeat].Stack += refund
		events = append(events, UncalledReturned{Seat: refundSeat, Amount: refund})
	}

	pots := BuildPots(adjusted)
	var total chips.Amount
	for _, p := range pots {
		total += p.Amount
	}
	if winner >= 0 {
		e.seats[winner].Stack += total
	}

	var winners []WinnerResult
	if winner >= 0 && total > 0 {
		winners = append(winners, WinnerResult{Seat: winner, Amount: total, PotType: MainPot})
	}
	return append(events, e.finishHand(winners, pots)...), nil
}

// settleShowdown runs the pot builder and the evaluator, credits winners and
// finishes the hand.
func (e *Engine) settleShowdown(now time.Time) ([]Event, error) {
	if len(e.community) != 5 {
		return nil, fmt.Errorf("%w: board has %d cards at showdown", errBrokenInvariant, len(e.community))
	}

	contribs := e.contributions()
	adjusted, refundSeat, refund := ReturnUncalled(contribs)
	var events []Event
	if refundSeat >= 0 {
		e.seats[refundSeat].Stack += refund
		events = append(events, UncalledReturned{Seat: refundSeat, Amount: refund})
	}
	pots := BuildPots(adjusted)

	// One evaluation per showdown seat over hole + board.
	rankings := make(map[int]evaluator.Ranking)
	for i, s := range e.seats {
		if s == nil || !s.InHand() || s.Folded {
			continue
		}
		if len(s.HoleCards) != 2 {
			return nil, fmt.Errorf("%w: seat %d reached showdown without cards", errBrokenInvariant, i)
		}
		r, err := evaluator.Evaluate(append(append([]deck.Card{}, s.HoleCards...), e.community...))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBrokenInvariant, err)
		}
		rankings[i] = r
	}

	var winners []WinnerResult
	for _, pot := range pots {
		best := []int{}
		for _, seat := range pot.Eligible {
			r, ok := rankings[seat]
			if !ok {
				continue
			}
			if len(best) == 0 {
				best = []int{seat}
				continue
			}
			switch evaluator.Compare(r, rankings[best[0]]) {
			case 1:
				best = []int{seat}
			case 0:
				best = append(best, seat)
			}
		}
		for _, pw := range DistributePot(pot, best, e.button, e.cfg.MaxSeats) {
			s := e.seats[pw.Seat]
			s.Stack += pw.Amount
			winners = append(winners, WinnerResult{
				Seat:    pw.Seat,
				Amount:  pw.Amount,
				Label:   rankings[pw.Seat].Label,
				Cards:   s.HoleCards,
				PotType: pot.Type,
			})
		}
	}
	return append(events, e.finishHand(winners, pots)...), nil
}

// contributions snapshots every seat's cumulative hand contribution.
func (e *Engine) contributions() []Contribution {
	var out []Contribution
	for i, s := range e.seats {
		if s == nil || s.HandBet == 0 && !s.InHand() {
			continue
		}
		out = append(out, Contribution{Seat: i, Amount: s.HandBet, Folded: s.Folded || !s.InHand()})
	}
	return out
}

// finishHand validates conservation, computes zero-sum deltas and emits the
// result. Fatal imbalances abort instead.
func (e *Engine) finishHand(winners []WinnerResult, pots []Pot) []Event {
	// Contributions are fully distributed at this point.
	for _, s := range e.seats {
		if s != nil {
			s.RoundBet, s.HandBet = 0, 0
		}
	}

	deltas := make(map[string]chips.Delta)
	var sum chips.Delta
	for i, s := range e.seats {
		if s == nil {
			continue
		}
		if s.Stack < 0 {
			return e.abort(fmt.Sprintf("negative stack at seat %d", i))
		}
		if start, ok := e.handStart[i]; ok {
			d := chips.Delta(s.Stack) - chips.Delta(start)
			deltas[s.Wallet] = d
			sum += d
		}
	}
	if sum != 0 {
		return e.abort(fmt.Sprintf("settlement deltas sum to %d", sum))
	}

	e.phase = PhaseFinished
	e.turnSeat = -1
	events := []Event{HandFinished{HandNumber: e.handNumber, Winners: winners, Pots: pots, Deltas: deltas}}
	events = append(events, e.releaseLeavers()...)
	return events
}

// abort returns every hand contribution to its stack and resets to waiting.
// The controller pairs this with escrow unlocks.
func (e *Engine) abort(reason string) []Event {
	e.logger.Error("hand aborted", "hand", e.handNumber, "reason", reason)
	for _, s := range e.seats {
		if s == nil {
			continue
		}
		s.Stack += s.HandBet
		s.HandBet = 0
		s.RoundBet = 0
	}
	n := e.handNumber
	e.phase = PhaseWaiting
	e.turnSeat = -1
	e.betting = nil
	e.mustShow = nil
	events := []Event{HandAborted{HandNumber: n, Reason: reason}}
	events = append(events, e.releaseLeavers()...)
	return events
}

// Abort ends the hand from outside the engine (mental poker deadline expiry,
// escrow failures).
func (e *Engine) Abort(reason string) []Event {
	if !e.HandActive() {
		return nil
	}
	return e.abort(reason)
}

// releaseLeavers removes seats that left mid-hand now that it is settled.
func (e *Engine) releaseLeavers() []Event {
	var events []Event
	for i, s := range e.seats {
		if s != nil && s.Leaving {
			e.seats[i] = nil
			events = append(events, SeatRemoved{Seat: i, Wallet: s.Wallet, Stack: s.Stack})
		}
	}
	return events
}

// FinishToWaiting loops finished back to waiting after the display delay.
func (e *Engine) FinishToWaiting() error {
	if e.phase != PhaseFinished {
		return ErrWrongPhase
	}
	e.phase = PhaseWaiting
	for _, s := range e.seats {
		if s != nil {
			s.resetForHand()
		}
	}
	return nil
}

package mental

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/onfelt/holdemd/internal/deck"
	"github.com/onfelt/holdemd/internal/game"
)

// Phase is the coordinator's per-hand lifecycle state.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseCommitment Phase = "commitment"
	PhaseShuffle    Phase = "shuffle"
	PhaseDeal       Phase = "deal"
	PhasePlay       Phase = "play"
	PhaseComplete   Phase = "complete"
)

var (
	ErrWrongPhase    = errors.New("wrong-phase")
	ErrWrongSender   = errors.New("wrong-sender")
	ErrBadCommitment = errors.New("bad-commitment")
	ErrBadDeck       = errors.New("bad-deck")
	ErrBadReveal     = errors.New("bad-reveal")
	ErrNoSuchRequest = errors.New("no-such-request")
)

// Participant is one player in the frozen shuffle order.
type Participant struct {
	Seat int
	ID   string
}

// Reveal is one accepted decryption-key submission.
type Reveal struct {
	Seat int
	Key  string
	Salt string
}

// request tracks one card position awaiting its reveal set.
type request struct {
	position  int
	cardType  game.CardType
	recipient int // seat index, -1 for community
	needed    map[int]bool
	reveals   []Reveal
	complete  bool
}

// Coordinator relays one hand's commutative-encryption shuffle and key
// reveals. It validates structure and commitments only: it never decrypts,
// never reconstructs a card and never logs key material. Like the hand
// engine it is single-owner state driven by the table's controller, with
// deadlines enforced by the caller through CheckDeadline.
type Coordinator struct {
	logger       *log.Logger
	stepDeadline time.Duration

	phase       Phase
	players     []Participant
	commitments map[int]string // seat -> committed hex hash
	shufflerIdx int
	deck        []string // running deck of 52 opaque ciphertexts
	requests    map[int]*request
	flagged     map[int]bool
	deadline    time.Time
}

// New creates a coordinator with the per-step deadline applied to every
// phase that waits on player input.
func New(logger *log.Logger, stepDeadline time.Duration) *Coordinator {
	return &Coordinator{
		logger:       logger.WithPrefix("mental"),
		stepDeadline: stepDeadline,
		phase:        PhaseWaiting,
		commitments:  make(map[int]string),
		requests:     make(map[int]*request),
		flagged:      make(map[int]bool),
	}
}

// Phase returns the current coordinator phase.
func (c *Coordinator) Phase() Phase { return c.phase }

// CurrentShuffler returns the seat whose shuffle contribution is due, or -1.
func (c *Coordinator) CurrentShuffler() int {
	if c.phase != PhaseShuffle || c.shufflerIdx >= len(c.players) {
		return -1
	}
	return c.players[c.shufflerIdx].Seat
}

// Deck returns the current encrypted deck.
func (c *Coordinator) Deck() []string { return c.deck }

// Flagged reports whether the seat has submitted inconsistent material.
func (c *Coordinator) Flagged(seat int) bool { return c.flagged[seat] }

// Deadline returns when the current step expires.
func (c *Coordinator) Deadline() time.Time { return c.deadline }

// Start freezes the player order and opens the commitment phase.
func (c *Coordinator) Start(players []Participant, now time.Time) ([]Event, error) {
	if c.phase != PhaseWaiting {
		return nil, fmt.Errorf("%w: already started in %s", ErrWrongPhase, c.phase)
	}
	if len(players) < 2 {
		return nil, fmt.Errorf("%w: need at least two players", ErrWrongSender)
	}
	c.players = append([]Participant(nil), players...)
	c.phase = PhaseCommitment
	c.deadline = now.Add(c.stepDeadline)
	return []Event{PhaseChanged{Phase: PhaseCommitment, CurrentShuffler: -1}}, nil
}

// Commit accepts exactly one commitment hash per player. A second submission
// from the same seat is a protocol error.
func (c *Coordinator) Commit(seat int, commitment string, now time.Time) ([]Event, error) {
	if c.phase != PhaseCommitment {
		return nil, fmt.Errorf("%w: commit during %s", ErrWrongPhase, c.phase)
	}
	if !c.isPlayer(seat) {
		return nil, fmt.Errorf("%w: seat %d not in this hand", ErrWrongSender, seat)
	}
	if _, dup := c.commitments[seat]; dup {
		return nil, fmt.Errorf("%w: seat %d already committed", ErrBadCommitment, seat)
	}
	commitment = strings.ToLower(commitment)
	if _, err := hex.DecodeString(commitment); err != nil || commitment == "" {
		return nil, fmt.Errorf("%w: not a hex hash", ErrBadCommitment)
	}
	c.commitments[seat] = commitment

	events := []Event{CommitmentReceived{Seat: seat, Count: len(c.commitments), Total: len(c.players)}}
	if len(c.commitments) == len(c.players) {
		events = append(events, c.enterShuffle(now)...)
	}
	return events, nil
}

// enterShuffle seeds the running deck with the 52 canonical card encodings
// and hands the deck to the first shuffler.
func (c *Coordinator) enterShuffle(now time.Time) []Event {
	c.phase = PhaseShuffle
	c.shufflerIdx = 0
	c.deck = canonicalDeck()
	c.deadline = now.Add(c.stepDeadline)
	return []Event{
		PhaseChanged{Phase: PhaseShuffle, CurrentShuffler: c.CurrentShuffler()},
		ShuffleTurn{Seat: c.CurrentShuffler(), Deck: c.deck},
	}
}

// canonicalDeck is the domain-value seed: the 52 card indices hex-encoded.
func canonicalDeck() []string {
	out := make([]string, 0, len(deck.Canonical()))
	for _, card := range deck.Canonical() {
		out = append(out, fmt.Sprintf("%02x", card.Index()))
	}
	return out
}

// Shuffle accepts the next deck from the current shuffler only. The running
// deck is replaced wholesale and the cursor advances.
func (c *Coordinator) Shuffle(seat int, shuffled []string, now time.Time) ([]Event, error) {
	if c.phase != PhaseShuffle {
		return nil, fmt.Errorf("%w: shuffle during %s", ErrWrongPhase, c.phase)
	}
	if seat != c.CurrentShuffler() {
		return nil, fmt.Errorf("%w: seat %d is not the current shuffler", ErrWrongSender, seat)
	}
	if len(shuffled) != len(c.deck) {
		return nil, fmt.Errorf("%w: got %d ciphertexts, want %d", ErrBadDeck, len(shuffled), len(c.deck))
	}
	for _, ct := range shuffled {
		if ct == "" {
			return nil, fmt.Errorf("%w: empty ciphertext", ErrBadDeck)
		}
		if _, err := hex.DecodeString(ct); err != nil {
			return nil, fmt.Errorf("%w: ciphertext is not hex", ErrBadDeck)
		}
	}

	c.deck = append([]string(nil), shuffled...)
	c.shufflerIdx++
	c.deadline = now.Add(c.stepDeadline)

	if c.shufflerIdx == len(c.players) {
		c.phase = PhaseDeal
		return []Event{
			ShuffleComplete{Deck: c.deck},
			PhaseChanged{Phase: PhaseDeal, CurrentShuffler: -1},
		}, nil
	}
	return []Event{
		PhaseChanged{Phase: PhaseShuffle, CurrentShuffler: c.CurrentShuffler()},
		ShuffleTurn{Seat: c.CurrentShuffler(), Deck: c.deck},
	}, nil
}

// RequestCard registers a reveal request for one deck position and solicits
// keys: every player except the recipient for a hole card, every player for
// a community card (recipient -1).
func (c *Coordinator) RequestCard(position int, cardType game.CardType, recipient int, now time.Time) ([]Event, error) {
	if c.phase != PhaseDeal && c.phase != PhasePlay {
		return nil, fmt.Errorf("%w: card request during %s", ErrWrongPhase, c.phase)
	}
	if position < 0 || position >= len(c.deck) {
		return nil, fmt.Errorf("%w: position %d", ErrNoSuchRequest, position)
	}
	if _, dup := c.requests[position]; dup {
		return nil, fmt.Errorf("%w: position %d already requested", ErrNoSuchRequest, position)
	}
	c.phase = PhasePlay

	req := &request{
		position:  position,
		cardType:  cardType,
		recipient: recipient,
		needed:    make(map[int]bool),
	}
	var events []Event
	for _, p := range c.players {
		if cardType == game.HoleCard && p.Seat == recipient {
			continue
		}
		req.needed[p.Seat] = true
		events = append(events, KeyRequested{
			Seat:          p.Seat,
			Position:      position,
			Type:          cardType,
			CardRecipient: recipient,
		})
	}
	c.requests[position] = req
	c.deadline = now.Add(c.stepDeadline)
	return events, nil
}

// RevealKey accepts one player's decryption key for one position. The
// (key, salt) pair must hash to the player's committed value; a mismatch
// flags the player and rejects the reveal. A duplicate reveal for the same
// position is discarded silently.
func (c *Coordinator) RevealKey(seat, position int, key, salt string, now time.Time) ([]Event, error) {
	if c.phase != PhasePlay {
		return nil, fmt.Errorf("%w: reveal during %s", ErrWrongPhase, c.phase)
	}
	req, ok := c.requests[position]
	if !ok {
		return nil, fmt.Errorf("%w: position %d", ErrNoSuchRequest, position)
	}
	if !c.isPlayer(seat) {
		return nil, fmt.Errorf("%w: seat %d not in this hand", ErrWrongSender, seat)
	}
	if !req.needed[seat] {
		for _, r := range req.reveals {
			if r.Seat == seat {
				return nil, nil // idempotent duplicate
			}
		}
		return nil, fmt.Errorf("%w: seat %d owes no key for position %d", ErrBadReveal, seat, position)
	}

	if !c.verifyCommitment(seat, key, salt) {
		c.flagged[seat] = true
		c.logger.Warn("reveal rejected, commitment mismatch", "seat", seat, "position", position)
		return nil, fmt.Errorf("%w: key does not match seat %d's commitment", ErrBadReveal, seat)
	}

	delete(req.needed, seat)
	req.reveals = append(req.reveals, Reveal{Seat: seat, Key: key, Salt: salt})

	events := []Event{KeyRevealed{
		Seat:     seat,
		Position: position,
		Complete: len(req.needed) == 0,
		Needed:   req.outstanding(),
	}}
	if len(req.needed) == 0 && !req.complete {
		req.complete = true
		events = append(events, CardRevealed{
			Position:  position,
			Type:      req.cardType,
			Recipient: req.recipient,
			Reveals:   append([]Reveal(nil), req.reveals...),
		})
	}
	return events, nil
}

// verifyCommitment checks hash(key || salt) against the stored commitment.
// Key and salt are hex strings hashed over their decoded bytes.
func (c *Coordinator) verifyCommitment(seat int, key, salt string) bool {
	commitment, ok := c.commitments[seat]
	if !ok {
		return false
	}
	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return false
	}
	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	h := sha256.New()
	h.Write(keyBytes)
	h.Write(saltBytes)
	return hex.EncodeToString(h.Sum(nil)) == commitment
}

func (req *request) outstanding() []int {
	out := make([]int, 0, len(req.needed))
	for seat := range req.needed {
		out = append(out, seat)
	}
	return out
}

// CheckDeadline aborts the step when its deadline has passed, naming the
// seats that failed to deliver. The controller calls this from its timer.
func (c *Coordinator) CheckDeadline(now time.Time) []Event {
	if c.phase == PhaseWaiting || c.phase == PhaseComplete || now.Before(c.deadline) {
		return nil
	}
	offenders := c.pendingSeats()
	if len(offenders) == 0 {
		return nil
	}
	phase := c.phase
	c.phase = PhaseComplete
	return []Event{Aborted{
		Reason:    fmt.Sprintf("step deadline exceeded in %s phase", phase),
		Offenders: offenders,
	}}
}

// pendingSeats lists who the current step is waiting on.
func (c *Coordinator) pendingSeats() []int {
	var out []int
	switch c.phase {
	case PhaseCommitment:
		for _, p := range c.players {
			if _, ok := c.commitments[p.Seat]; !ok {
				out = append(out, p.Seat)
			}
		}
	case PhaseShuffle:
		if s := c.CurrentShuffler(); s >= 0 {
			out = append(out, s)
		}
	case PhaseDeal, PhasePlay:
		seen := make(map[int]bool)
		for _, req := range c.requests {
			for seat := range req.needed {
				if !seen[seat] {
					seen[seat] = true
					out = append(out, seat)
				}
			}
		}
	}
	return out
}

// Complete closes the coordinator at hand end.
func (c *Coordinator) Complete() []Event {
	if c.phase == PhaseComplete {
		return nil
	}
	c.phase = PhaseComplete
	return []Event{PhaseChanged{Phase: PhaseComplete, CurrentShuffler: -1}}
}

func (c *Coordinator) isPlayer(seat int) bool {
	for _, p := range c.players {
		if p.Seat == seat {
			return true
		}
	}
	return false
}

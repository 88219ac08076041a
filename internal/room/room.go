// Package room runs one table as a logical actor: every inbound client
// message, timer expiry and escrow follow-up is enqueued on the table's
// mailbox and handled one at a time. The hand engine and the mental poker
// coordinator are owned by this loop and never touched from outside it.
package room

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/onfelt/holdemd/internal/chips"
	"github.com/onfelt/holdemd/internal/deck"
	"github.com/onfelt/holdemd/internal/escrow"
	"github.com/onfelt/holdemd/internal/game"
	"github.com/onfelt/holdemd/internal/gameid"
	"github.com/onfelt/holdemd/internal/mental"
	"github.com/onfelt/holdemd/internal/storage"
)

const (
	armDelay        = 3 * time.Second
	displayDelay    = 5 * time.Second
	disconnectGrace = 60 * time.Second
	autoFoldGrace   = 30 * time.Second
	mpStepDeadline  = 30 * time.Second
	chatMaxLen      = 200
)

// Sender delivers protocol messages to one client. Implementations must not
// block: the transport buffers and drops the connection when the buffer
// fills.
type Sender interface {
	Send(msgType string, payload any) error
	Close()
}

// Session binds an authenticated transport connection to a wallet.
type Session struct {
	Wallet string
	ID     string
	Send   Sender
}

// client is a wallet's transport binding at this table.
type client struct {
	sess      Session
	connected bool
}

// Room is the per-table controller.
type Room struct {
	id     string
	cfg    game.TableConfig
	logger *log.Logger
	clock  quartz.Clock
	vault  escrow.Vault
	store  storage.Store

	mb     *mailbox
	engine *game.Engine
	coord  *mental.Coordinator // nil outside a mental poker hand

	conns map[string]*client // wallet -> binding

	armTimer     *quartz.Timer
	turnTimer    *quartz.Timer
	displayTimer *quartz.Timer
	mpTimer      *quartz.Timer
	removeTimers map[string]*quartz.Timer // wallet -> disconnect removal
	foldTimer    *quartz.Timer            // disconnect auto-fold for the seat on turn

	handHook func(aborted bool)

	ctx context.Context
}

// New creates the controller for one table.
func New(cfg game.TableConfig, logger *log.Logger, clock quartz.Clock, rng *rand.Rand, vault escrow.Vault, store storage.Store) *Room {
	roomLogger := logger.WithPrefix("room").With("table", cfg.ID)
	return &Room{
		id:           cfg.ID,
		cfg:          cfg,
		logger:       roomLogger,
		clock:        clock,
		vault:        vault,
		store:        store,
		mb:           newMailbox(),
		engine:       game.NewEngine(cfg, logger, rng),
		conns:        make(map[string]*client),
		removeTimers: make(map[string]*quartz.Timer),
	}
}

// ID returns the table id.
func (r *Room) ID() string { return r.id }

// SetHandHook registers a callback fired whenever a hand ends, settled or
// aborted. Must be called before Run; the callback runs on the room loop and
// must not block.
func (r *Room) SetHandHook(fn func(aborted bool)) { r.handHook = fn }

// Config returns the table configuration.
func (r *Room) Config() game.TableConfig { return r.cfg }

// Run drains the mailbox until ctx is cancelled. Exactly one Run per room.
func (r *Room) Run(ctx context.Context) {
	r.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.mb.wake:
			for {
				fn, ok := r.mb.take()
				if !ok {
					break
				}
				fn()
			}
		}
	}
}

// post enqueues work for the run loop.
func (r *Room) post(fn func()) { r.mb.put(fn) }

// Flush blocks until everything enqueued before it has been handled.
func (r *Room) Flush() {
	done := make(chan struct{})
	r.post(func() { close(done) })
	<-done
}

// after schedules fn on the mailbox after d. The returned timer is the
// cancellation handle.
func (r *Room) after(d time.Duration, fn func()) *quartz.Timer {
	return r.clock.AfterFunc(d, func() { r.post(fn) })
}

func stopTimer(t **quartz.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// Public API. Each call enqueues; the caller never touches table state.

// Join seats the wallet or, when it already holds a seat, reattaches the new
// connection to it.
func (r *Room) Join(sess Session, seat int, buyIn string) {
	r.post(func() { r.handleJoin(sess, seat, buyIn) })
}

// Leave gives up the wallet's seat, folding first when a hand is running.
func (r *Room) Leave(wallet string) {
	r.post(func() { r.handleLeave(wallet) })
}

// SitOut pauses the seat from future hands.
func (r *Room) SitOut(wallet string) {
	r.post(func() { r.handleSitToggle(wallet, true) })
}

// SitIn resumes play from the next hand.
func (r *Room) SitIn(wallet string) {
	r.post(func() { r.handleSitToggle(wallet, false) })
}

// AddChips tops up the wallet's stack between hands.
func (r *Room) AddChips(wallet, amount string) {
	r.post(func() { r.handleAddChips(wallet, amount) })
}

// Action applies a betting action for the wallet's seat.
func (r *Room) Action(wallet, action, amount string) {
	r.post(func() { r.handleAction(wallet, action, amount) })
}

// ShowCards submits a showdown reveal in mental poker mode.
func (r *Room) ShowCards(wallet string, hole, board []deck.Card) {
	r.post(func() { r.handleShowCards(wallet, hole, board) })
}

// MPCommit forwards a key commitment to the coordinator.
func (r *Room) MPCommit(wallet, commitment string) {
	r.post(func() { r.handleMPCommit(wallet, commitment) })
}

// MPShuffle forwards a shuffled deck to the coordinator.
func (r *Room) MPShuffle(wallet string, deck []string) {
	r.post(func() { r.handleMPShuffle(wallet, deck) })
}

// MPRevealKey forwards a key reveal to the coordinator.
func (r *Room) MPRevealKey(wallet string, position int, key, salt string) {
	r.post(func() { r.handleMPRevealKey(wallet, position, key, salt) })
}

// Chat broadcasts a chat line from the wallet.
func (r *Room) Chat(wallet, message string) {
	r.post(func() { r.handleChat(wallet, message) })
}

// Disconnect marks the wallet's connection dead and starts the grace timers.
// The session id identifies which transport died: a close from a binding the
// wallet already replaced is ignored.
func (r *Room) Disconnect(wallet, sessID string) {
	r.post(func() { r.handleDisconnect(wallet, sessID) })
}

// handID is stable per hand so escrow settlement replays dedupe.
func (r *Room) handID() string {
	return fmt.Sprintf("%s#%d", r.id, r.engine.HandNumber())
}

func (r *Room) newRef(kind, wallet string) string {
	return fmt.Sprintf("%s:%s:%s:%s", kind, r.id, wallet, gameid.Generate())
}

func (r *Room) seatOf(wallet string) *game.Seat {
	return r.engine.SeatByWallet(wallet)
}

func (r *Room) now() time.Time { return r.clock.Now() }

// chipAmount parses a wire decimal into chips.
func chipAmount(s string) (chips.Amount, error) {
	return chips.Parse(s)
}

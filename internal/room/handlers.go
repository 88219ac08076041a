package room

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/onfelt/holdemd/internal/chips"
	"github.com/onfelt/holdemd/internal/deck"
	"github.com/onfelt/holdemd/internal/game"
	"github.com/onfelt/holdemd/internal/gameid"
	"github.com/onfelt/holdemd/internal/mental"
	"github.com/onfelt/holdemd/internal/protocol"
	"github.com/onfelt/holdemd/internal/storage"
)

func (r *Room) handleJoin(sess Session, seat int, buyIn string) {
	if existing := r.seatOf(sess.Wallet); existing != nil {
		r.handleReconnect(sess, existing)
		return
	}

	amount, err := chipAmount(buyIn)
	if err != nil {
		r.reply(sess.Send, false, protocol.CodeInvalidMessage, "bad buy-in: "+err.Error())
		return
	}

	// The escrow lock comes first: a seat is never created for chips the
	// vault did not reserve.
	ref := r.newRef("sit", sess.Wallet)
	if err := r.vault.LockChips(r.ctx, sess.Wallet, amount, r.id, ref); err != nil {
		r.logger.Warn("buy-in lock failed", "wallet", sess.Wallet, "err", err)
		r.reply(sess.Send, false, protocol.CodeEscrowFailure, "buy-in lock failed")
		return
	}

	seated, err := r.engine.Sit(gameid.Generate(), sess.Wallet, displayName(sess.Wallet), seat, amount)
	if err != nil {
		// Undo the lock; the ref pair keeps the pair idempotent.
		if uerr := r.vault.UnlockChips(r.ctx, sess.Wallet, amount, r.id, ref); uerr != nil {
			r.logger.Error("unlock after failed sit", "wallet", sess.Wallet, "err", uerr)
		}
		r.replyEngineErr(sess.Send, err)
		return
	}

	r.conns[sess.Wallet] = &client{sess: sess, connected: true}
	r.recordTx(sess.Wallet, "lock", chips.Delta(amount), ref)
	if err := r.store.CreateSession(r.ctx, sess.ID, sess.Wallet, r.now()); err != nil {
		r.logger.Warn("create session", "err", err)
	}

	idx := seated.Index
	r.reply(sess.Send, true, "", "", withSeat(idx))
	r.sendState(sess)
	r.broadcastState(sess.Wallet)
	r.maybeStartHand()
}

// handleReconnect swaps the transport binding for a wallet that still holds
// its seat and replays the private state the new connection missed.
func (r *Room) handleReconnect(sess Session, seat *game.Seat) {
	if old, ok := r.conns[sess.Wallet]; ok && old.connected && old.sess.Send != sess.Send {
		// Duplicate-connection rule: the newer transport wins.
		old.sess.Send.Close()
	}
	r.conns[sess.Wallet] = &client{sess: sess, connected: true}
	seat.DisconnectedAt = nil

	if t, ok := r.removeTimers[sess.Wallet]; ok {
		t.Stop()
		delete(r.removeTimers, sess.Wallet)
	}
	if r.engine.TurnSeat() == seat.Index {
		stopTimer(&r.foldTimer)
	}

	r.reply(sess.Send, true, "", "", withSeat(seat.Index))
	r.sendState(sess)
	if len(seat.HoleCards) > 0 || len(seat.HolePositions) > 0 {
		r.sendTo(sess.Wallet, protocol.TypePlayerCards, protocol.PlayerCards{
			Cards:     seat.HoleCards,
			Positions: seat.HolePositions,
		})
	}
	if r.engine.TurnSeat() == seat.Index {
		r.sendTurn(seat.Index)
	}
	r.logger.Info("reconnected", "wallet", sess.Wallet, "seat", seat.Index)
}

func (r *Room) handleLeave(wallet string) {
	seat := r.seatOf(wallet)
	if seat == nil {
		r.errorTo(wallet, protocol.CodeNotSeated, "no seat at this table")
		return
	}
	events, err := r.engine.Leave(seat.Index, r.now())
	if err != nil {
		r.errorTo(wallet, protocol.CodeInternal, err.Error())
		return
	}
	r.handleEngineEvents(events)
}

func (r *Room) handleSitToggle(wallet string, out bool) {
	seat := r.seatOf(wallet)
	if seat == nil {
		r.errorTo(wallet, protocol.CodeNotSeated, "no seat at this table")
		return
	}
	var err error
	if out {
		err = r.engine.SitOut(seat.Index)
	} else {
		err = r.engine.SitIn(seat.Index)
	}
	if err != nil {
		r.errorTo(wallet, protocol.CodeInternal, err.Error())
		return
	}
	r.broadcastState("")
	if !out {
		r.maybeStartHand()
	}
}

func (r *Room) handleAddChips(wallet, amount string) {
	seat := r.seatOf(wallet)
	if seat == nil {
		r.errorTo(wallet, protocol.CodeNotSeated, "no seat at this table")
		return
	}
	parsed, err := chipAmount(amount)
	if err != nil {
		r.errorTo(wallet, protocol.CodeInvalidMessage, "bad amount: "+err.Error())
		return
	}

	ref := r.newRef("top-up", wallet)
	if err := r.vault.LockChips(r.ctx, wallet, parsed, r.id, ref); err != nil {
		r.errorTo(wallet, protocol.CodeEscrowFailure, "top-up lock failed")
		return
	}
	if err := r.engine.AddChips(seat.Index, parsed); err != nil {
		if uerr := r.vault.UnlockChips(r.ctx, wallet, parsed, r.id, ref); uerr != nil {
			r.logger.Error("unlock after failed top-up", "wallet", wallet, "err", uerr)
		}
		r.errorToEngineErr(wallet, err)
		return
	}
	r.recordTx(wallet, "lock", chips.Delta(parsed), ref)
	r.broadcastState("")
}

func (r *Room) handleAction(wallet, action, amount string) {
	seat := r.seatOf(wallet)
	if seat == nil {
		r.errorTo(wallet, protocol.CodeNotSeated, "no seat at this table")
		return
	}
	parsed, ok := game.ParseAction(action)
	if !ok {
		r.errorTo(wallet, protocol.CodeInvalidAction, "unknown action "+action)
		return
	}
	var total chips.Amount
	if parsed == game.Bet || parsed == game.Raise {
		var err error
		if total, err = chipAmount(amount); err != nil {
			r.errorTo(wallet, protocol.CodeInvalidAction, "bad amount: "+err.Error())
			return
		}
	}

	events, err := r.engine.Apply(seat.Index, parsed, total, r.now())
	if err != nil {
		r.errorToEngineErr(wallet, err)
		return
	}
	stopTimer(&r.turnTimer)
	stopTimer(&r.foldTimer)
	r.handleEngineEvents(events)
}

func (r *Room) handleShowCards(wallet string, hole, board []deck.Card) {
	seat := r.seatOf(wallet)
	if seat == nil {
		r.errorTo(wallet, protocol.CodeNotSeated, "no seat at this table")
		return
	}
	events, err := r.engine.ShowCards(seat.Index, hole, board, r.now())
	if err != nil {
		r.errorToEngineErr(wallet, err)
		return
	}
	r.handleEngineEvents(events)
}

func (r *Room) handleMPCommit(wallet, commitment string) {
	seat, ok := r.mpSender(wallet)
	if !ok {
		return
	}
	events, err := r.coord.Commit(seat, commitment, r.now())
	if err != nil {
		r.errorTo(wallet, mpErrCode(err), err.Error())
		return
	}
	r.handleMentalEvents(events)
}

func (r *Room) handleMPShuffle(wallet string, deck []string) {
	seat, ok := r.mpSender(wallet)
	if !ok {
		return
	}
	events, err := r.coord.Shuffle(seat, deck, r.now())
	if err != nil {
		r.errorTo(wallet, mpErrCode(err), err.Error())
		return
	}
	r.handleMentalEvents(events)
}

func (r *Room) handleMPRevealKey(wallet string, position int, key, salt string) {
	seat, ok := r.mpSender(wallet)
	if !ok {
		return
	}
	events, err := r.coord.RevealKey(seat, position, key, salt, r.now())
	if err != nil {
		r.errorTo(wallet, mpErrCode(err), err.Error())
		return
	}
	r.handleMentalEvents(events)
}

// mpSender resolves a mental poker message sender to a seat, rejecting
// wallets outside the hand or tables not in mental poker mode.
func (r *Room) mpSender(wallet string) (int, bool) {
	if r.coord == nil {
		r.errorTo(wallet, protocol.CodeWrongPhase, "no shuffle in progress")
		return 0, false
	}
	seat := r.seatOf(wallet)
	if seat == nil {
		r.errorTo(wallet, protocol.CodeNotSeated, "no seat at this table")
		return 0, false
	}
	return seat.Index, true
}

func (r *Room) handleChat(wallet, message string) {
	seat := r.seatOf(wallet)
	if seat == nil {
		r.errorTo(wallet, protocol.CodeNotSeated, "no seat at this table")
		return
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	if utf8.RuneCountInString(message) > chatMaxLen {
		r.errorTo(wallet, protocol.CodeChatTooLong, "message over 200 characters")
		return
	}
	r.broadcast(protocol.TypeTableChat, protocol.Chat{
		Seat:      seat.Index,
		PlayerID:  seat.ID,
		Message:   message,
		Timestamp: r.now().UnixMilli(),
	})
}

func (r *Room) handleDisconnect(wallet, sessID string) {
	c, ok := r.conns[wallet]
	if !ok {
		return
	}
	if c.sess.ID != sessID {
		// A displaced transport closing after the wallet already rebound;
		// the live connection stays up.
		return
	}
	c.connected = false
	seat := r.seatOf(wallet)
	if seat == nil {
		delete(r.conns, wallet)
		return
	}
	now := r.now()
	seat.DisconnectedAt = &now

	// Grace timers: removal after 60s, and a faster auto-fold when the
	// disconnected seat is the one holding up the hand.
	if t, ok := r.removeTimers[wallet]; ok {
		t.Stop()
	}
	r.removeTimers[wallet] = r.after(disconnectGrace, func() { r.removalExpired(wallet) })
	if r.engine.TurnSeat() == seat.Index {
		stopTimer(&r.foldTimer)
		r.foldTimer = r.after(autoFoldGrace, func() { r.disconnectFoldExpired(seat.Index) })
	}
	r.logger.Info("disconnected", "wallet", wallet, "seat", seat.Index)
}

func (r *Room) removalExpired(wallet string) {
	seat := r.seatOf(wallet)
	delete(r.removeTimers, wallet)
	if seat == nil || seat.DisconnectedAt == nil {
		return
	}
	r.logger.Info("disconnect grace expired, removing seat", "wallet", wallet, "seat", seat.Index)
	events, err := r.engine.Leave(seat.Index, r.now())
	if err != nil {
		r.logger.Error("remove disconnected seat", "err", err)
		return
	}
	r.handleEngineEvents(events)
}

func (r *Room) disconnectFoldExpired(seatIdx int) {
	r.foldTimer = nil
	seat := r.engine.SeatAt(seatIdx)
	if seat == nil || seat.DisconnectedAt == nil || r.engine.TurnSeat() != seatIdx {
		return
	}
	stopTimer(&r.turnTimer)
	r.handleEngineEvents(r.engine.ForceFold(seatIdx, r.now()))
}

func (r *Room) turnExpired(seatIdx int) {
	r.turnTimer = nil
	if r.engine.TurnSeat() != seatIdx {
		return
	}
	events, err := r.engine.AutoAct(seatIdx, r.now())
	if err != nil {
		r.logger.Error("auto action", "seat", seatIdx, "err", err)
		return
	}
	stopTimer(&r.foldTimer)
	r.handleEngineEvents(events)
}

// maybeStartHand arms the next deal when the table can play.
func (r *Room) maybeStartHand() {
	if r.armTimer != nil || !r.engine.CanStart() {
		return
	}
	if err := r.engine.Arm(); err != nil {
		return
	}
	r.armTimer = r.after(armDelay, r.armExpired)
}

func (r *Room) armExpired() {
	r.armTimer = nil
	if r.cfg.Mode == game.DealMentalPoker {
		r.startMentalHand()
		return
	}
	r.beginHand()
}

// startMentalHand opens the commitment phase; the deal happens once the
// shuffle completes.
func (r *Room) startMentalHand() {
	r.coord = mental.New(r.logger, mpStepDeadline)
	var parts []mental.Participant
	for _, s := range r.engine.Seats() {
		if s != nil && s.EligibleToDeal() {
			parts = append(parts, mental.Participant{Seat: s.Index, ID: s.ID})
		}
	}
	events, err := r.coord.Start(parts, r.now())
	if err != nil {
		r.logger.Error("start mental poker hand", "err", err)
		r.coord = nil
		return
	}
	r.resetMPDeadline()
	r.handleMentalEvents(events)
}

func (r *Room) beginHand() {
	events, err := r.engine.Begin(r.now())
	if err != nil {
		r.logger.Error("begin hand", "err", err)
		return
	}
	r.handleEngineEvents(events)
}

func (r *Room) resetMPDeadline() {
	stopTimer(&r.mpTimer)
	if r.coord == nil {
		return
	}
	wait := r.coord.Deadline().Sub(r.now())
	if wait <= 0 {
		wait = time.Millisecond
	}
	r.mpTimer = r.after(wait, r.mpDeadlineExpired)
}

func (r *Room) mpDeadlineExpired() {
	r.mpTimer = nil
	if r.coord == nil {
		return
	}
	r.handleMentalEvents(r.coord.CheckDeadline(r.now()))
}

// recordTx persists an escrow movement; failures log and play continues.
func (r *Room) recordTx(wallet, kind string, amount chips.Delta, ref string) {
	err := r.store.RecordTransaction(r.ctx, storage.TransactionRecord{
		Wallet:  wallet,
		TableID: r.id,
		Type:    kind,
		Amount:  amount,
		Ref:     ref,
		At:      r.now(),
	})
	if err != nil {
		r.logger.Warn("record transaction", "err", err)
	}
}

func (r *Room) replyEngineErr(s Sender, err error) {
	code := engineErrCode(err)
	r.reply(s, false, code, err.Error())
}

func (r *Room) errorToEngineErr(wallet string, err error) {
	r.errorTo(wallet, engineErrCode(err), err.Error())
}

func mpErrCode(err error) string {
	switch {
	case errors.Is(err, mental.ErrWrongPhase), errors.Is(err, mental.ErrWrongSender):
		return protocol.CodeWrongPhase
	case errors.Is(err, mental.ErrBadCommitment),
		errors.Is(err, mental.ErrBadDeck),
		errors.Is(err, mental.ErrBadReveal),
		errors.Is(err, mental.ErrNoSuchRequest):
		return protocol.CodeInvalidMessage
	default:
		return protocol.CodeInternal
	}
}

func engineErrCode(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidAction):
		return protocol.CodeInvalidAction
	case errors.Is(err, game.ErrSeatTaken):
		return protocol.CodeSeatTaken
	case errors.Is(err, game.ErrTableFull):
		return protocol.CodeTableFull
	case errors.Is(err, game.ErrBuyInRange):
		return protocol.CodeBuyInOutOfRange
	case errors.Is(err, game.ErrNotSeated):
		return protocol.CodeNotSeated
	case errors.Is(err, game.ErrWrongPhase):
		return protocol.CodeWrongPhase
	default:
		return protocol.CodeInternal
	}
}

// displayName derives a short humane name from a wallet address.
func displayName(wallet string) string {
	if len(wallet) > 10 {
		return wallet[:6] + "…" + wallet[len(wallet)-4:]
	}
	return wallet
}

package room

import (
	"strings"

	"github.com/onfelt/holdemd/internal/chips"
	"github.com/onfelt/holdemd/internal/escrow"
	"github.com/onfelt/holdemd/internal/game"
	"github.com/onfelt/holdemd/internal/mental"
	"github.com/onfelt/holdemd/internal/protocol"
	"github.com/onfelt/holdemd/internal/storage"
)

// handleEngineEvents translates engine output into protocol fan-out, timer
// changes and collaborator calls. Ordering is preserved: subscribers see the
// messages in the order the engine produced the events.
func (r *Room) handleEngineEvents(events []game.Event) {
	for _, ev := range events {
		switch ev := ev.(type) {
		case game.HandStarted:
			r.broadcast(protocol.TypeGameStarted, protocol.GameStarted{
				HandNumber: ev.HandNumber,
				DealerSeat: ev.Dealer,
			})
			r.broadcastState("")

		case game.BlindPosted:
			r.broadcast(protocol.TypePlayerAction, protocol.PlayerAction{
				Seat: ev.Seat,
				Action: protocol.ActionInfo{
					Type:      ev.Action.String(),
					Amount:    chips.Format(ev.Amount),
					Timestamp: r.now().UnixMilli(),
				},
				Pot: chips.Format(r.engine.PotTotal()),
			})

		case game.HoleCardsDealt:
			if seat := r.engine.SeatAt(ev.Seat); seat != nil {
				r.sendTo(seat.Wallet, protocol.TypePlayerCards, protocol.PlayerCards{
					Cards:     ev.Cards,
					Positions: ev.Positions,
				})
			}

		case game.CardRequested:
			r.forwardCardRequest(ev)

		case game.PhaseChanged:
			r.broadcast(protocol.TypePhaseChange, protocol.PhaseChange{
				Phase:          ev.Phase.String(),
				CommunityCards: ev.Community,
				Positions:      ev.Positions,
			})

		case game.TurnStarted:
			r.startTurn(ev.Seat)

		case game.ActionApplied:
			r.broadcast(protocol.TypePlayerAction, protocol.PlayerAction{
				Seat: ev.Record.Seat,
				Action: protocol.ActionInfo{
					Type:      ev.Record.Action.String(),
					Amount:    chips.Format(ev.Record.Amount),
					Timestamp: ev.Record.Timestamp.UnixMilli(),
				},
				Pot: chips.Format(ev.Pot),
			})

		case game.UncalledReturned:
			r.broadcast(protocol.TypeNotification, protocol.Notification{
				Kind:    "uncalled-return",
				Message: chips.Format(ev.Amount) + " returned to seat",
			})

		case game.ShowdownRequired:
			r.awaitShowdown(ev)

		case game.HandFinished:
			r.finishHand(ev)

		case game.HandAborted:
			r.abortHand(ev)

		case game.SeatRemoved:
			r.releaseSeat(ev)
		}
	}
}

func (r *Room) startTurn(seat int) {
	stopTimer(&r.turnTimer)
	if seat < 0 {
		return
	}
	r.turnTimer = r.after(r.cfg.TurnTime, func() { r.turnExpired(seat) })
	if s := r.engine.SeatAt(seat); s != nil && s.DisconnectedAt != nil {
		stopTimer(&r.foldTimer)
		r.foldTimer = r.after(autoFoldGrace, func() { r.disconnectFoldExpired(seat) })
	}
	r.sendTurn(seat)
}

// sendTurn broadcasts the turn prompt with the remaining budget.
func (r *Room) sendTurn(seat int) {
	remaining := r.cfg.TurnTime - r.now().Sub(r.engine.TurnStartedAt())
	if remaining < 0 {
		remaining = 0
	}
	legal := r.engine.LegalActions(seat)
	actions := make([]protocol.AvailableAction, 0, len(legal))
	for _, la := range legal {
		aa := protocol.AvailableAction{Type: la.Action.String()}
		if la.Max > 0 {
			aa.Min = chips.Format(la.Min)
			aa.Max = chips.Format(la.Max)
		}
		actions = append(actions, aa)
	}
	r.broadcast(protocol.TypeGameTurn, protocol.Turn{
		Seat:             seat,
		TimeRemaining:    remaining.Seconds(),
		AvailableActions: actions,
	})
}

// forwardCardRequest relays an engine deal request into the coordinator.
func (r *Room) forwardCardRequest(ev game.CardRequested) {
	if r.coord == nil {
		r.logger.Error("card request without a coordinator", "position", ev.Position)
		return
	}
	events, err := r.coord.RequestCard(ev.Position, ev.Type, ev.Recipient, r.now())
	if err != nil {
		r.logger.Error("request card", "position", ev.Position, "err", err)
		r.handleEngineEvents(r.engine.Abort("card request failed"))
		return
	}
	r.resetMPDeadline()
	r.handleMentalEvents(events)
}

// awaitShowdown prompts the remaining seats to show and arms the reveal
// deadline.
func (r *Room) awaitShowdown(ev game.ShowdownRequired) {
	for _, seat := range ev.Seats {
		if s := r.engine.SeatAt(seat); s != nil {
			r.sendTo(s.Wallet, protocol.TypeNotification, protocol.Notification{
				Kind:    "show-cards",
				Message: "showdown: submit your hole cards and the decrypted board",
			})
		}
	}
	stopTimer(&r.mpTimer)
	r.mpTimer = r.after(mpStepDeadline, func() {
		if r.engine.Phase() == game.PhaseShowdown {
			r.handleEngineEvents(r.engine.Abort("showdown reveal deadline exceeded"))
		}
	})
}

// finishHand settles the escrow, persists the hand and schedules the next.
func (r *Room) finishHand(ev game.HandFinished) {
	stopTimer(&r.turnTimer)
	stopTimer(&r.foldTimer)
	stopTimer(&r.mpTimer)
	if r.coord != nil {
		r.handleMentalEvents(r.coord.Complete())
		r.coord = nil
	}

	deltas := make([]escrow.Delta, 0, len(ev.Deltas))
	for wallet, d := range ev.Deltas {
		deltas = append(deltas, escrow.Delta{Wallet: wallet, Amount: d})
	}
	if err := r.vault.SettleTable(r.ctx, r.id, r.handID(), deltas); err != nil {
		// Settlement failures may not desynchronise chips: freeze the
		// table rather than keep dealing.
		r.logger.Error("escrow settlement failed", "hand", r.handID(), "err", err)
		r.broadcast(protocol.TypeNotification, protocol.Notification{
			Kind:    "escrow-failure",
			Message: "settlement failed, table paused",
		})
		return
	}

	r.broadcast(protocol.TypeHandResult, protocol.HandResult{
		HandNumber: ev.HandNumber,
		Winners:    wireWinners(ev.Winners),
		Pots:       wirePots(ev.Pots),
	})
	r.persistHand(ev)
	if r.handHook != nil {
		r.handHook(false)
	}

	r.displayTimer = r.after(displayDelay, r.displayExpired)
}

func (r *Room) displayExpired() {
	r.displayTimer = nil
	if err := r.engine.FinishToWaiting(); err != nil {
		return
	}
	r.broadcastState("")
	r.maybeStartHand()
}

func (r *Room) abortHand(ev game.HandAborted) {
	stopTimer(&r.turnTimer)
	stopTimer(&r.foldTimer)
	stopTimer(&r.mpTimer)
	if r.coord != nil {
		r.coord.Complete()
		r.coord = nil
	}

	r.broadcast(protocol.TypeHandResult, protocol.HandResult{
		HandNumber: ev.HandNumber,
		Aborted:    true,
		Reason:     ev.Reason,
	})
	err := r.store.RecordHand(r.ctx, storage.HandRecord{
		HandID:     r.handID(),
		TableID:    r.id,
		HandNumber: ev.HandNumber,
		Aborted:    true,
		Reason:     ev.Reason,
		EndedAt:    r.now(),
	})
	if err != nil {
		r.logger.Warn("record aborted hand", "err", err)
	}
	if r.handHook != nil {
		r.handHook(true)
	}
	r.broadcastState("")
	r.maybeStartHand()
}

// releaseSeat unlocks a removed seat's remaining stack on the escrow.
func (r *Room) releaseSeat(ev game.SeatRemoved) {
	ref := r.newRef("leave", ev.Wallet)
	if err := r.vault.UnlockChips(r.ctx, ev.Wallet, ev.Stack, r.id, ref); err != nil {
		r.logger.Error("unlock on leave", "wallet", ev.Wallet, "err", err)
	} else {
		r.recordTx(ev.Wallet, "unlock", chips.Delta(ev.Stack), ref)
	}
	if c, ok := r.conns[ev.Wallet]; ok {
		if err := r.store.EndSession(r.ctx, c.sess.ID, r.now()); err != nil {
			r.logger.Warn("end session", "err", err)
		}
		r.sendTo(ev.Wallet, protocol.TypeNotification, protocol.Notification{
			Kind:    "unseated",
			Message: "you have left the table",
		})
		delete(r.conns, ev.Wallet)
	}
	if t, ok := r.removeTimers[ev.Wallet]; ok {
		t.Stop()
		delete(r.removeTimers, ev.Wallet)
	}
	r.broadcastState("")
}

func (r *Room) persistHand(ev game.HandFinished) {
	var pot chips.Amount
	for _, p := range ev.Pots {
		pot += p.Amount
	}
	community := make([]string, 0, len(r.engine.Community()))
	for _, c := range r.engine.Community() {
		community = append(community, c.String())
	}
	err := r.store.RecordHand(r.ctx, storage.HandRecord{
		HandID:     r.handID(),
		TableID:    r.id,
		HandNumber: ev.HandNumber,
		Pot:        pot,
		Community:  strings.Join(community, " "),
		EndedAt:    r.now(),
	})
	if err != nil {
		r.logger.Warn("record hand", "err", err)
	}

	rows := make([]storage.ParticipantRecord, 0, len(ev.Deltas))
	for wallet, d := range ev.Deltas {
		row := storage.ParticipantRecord{HandID: r.handID(), Wallet: wallet, Delta: d}
		if s := r.engine.SeatByWallet(wallet); s != nil {
			row.Seat = s.Index
			if !s.Folded && len(s.HoleCards) == 2 {
				row.Shown = s.HoleCards[0].String() + " " + s.HoleCards[1].String()
			}
		}
		rows = append(rows, row)
	}
	if err := r.store.RecordHandParticipants(r.ctx, rows); err != nil {
		r.logger.Warn("record participants", "err", err)
	}
}

// handleMentalEvents relays coordinator output to the table.
func (r *Room) handleMentalEvents(events []mental.Event) {
	for _, ev := range events {
		switch ev := ev.(type) {
		case mental.PhaseChanged:
			msg := protocol.MPPhase{Phase: string(ev.Phase)}
			if ev.CurrentShuffler >= 0 {
				shuffler := ev.CurrentShuffler
				msg.CurrentShuffler = &shuffler
			}
			r.broadcast(protocol.TypeMPPhase, msg)
			if ev.Phase == mental.PhaseDeal {
				// Shuffle done: the engine can deal positions now.
				r.beginHand()
			}

		case mental.CommitmentReceived:
			r.broadcast(protocol.TypeMPCommitment, protocol.MPCommitmentReceived{
				Seat:  ev.Seat,
				Count: ev.Count,
				Total: ev.Total,
			})
			r.resetMPDeadline()

		case mental.ShuffleTurn:
			if s := r.engine.SeatAt(ev.Seat); s != nil {
				r.sendTo(s.Wallet, protocol.TypeMPShuffleTurn, protocol.MPShuffleTurn{
					EncryptedDeck: ev.Deck,
				})
			}
			r.resetMPDeadline()

		case mental.ShuffleComplete:
			r.broadcast(protocol.TypeMPShuffleDone, protocol.MPShuffleComplete{
				EncryptedDeck: ev.Deck,
			})

		case mental.KeyRequested:
			if s := r.engine.SeatAt(ev.Seat); s != nil {
				msg := protocol.MPRequestKey{
					Position: ev.Position,
					CardType: string(ev.Type),
				}
				if ev.CardRecipient >= 0 {
					rec := ev.CardRecipient
					msg.Recipient = &rec
				}
				r.sendTo(s.Wallet, protocol.TypeMPRequestKey, msg)
			}

		case mental.KeyRevealed:
			r.broadcast(protocol.TypeMPKeyRevealed, protocol.MPKeyRevealed{
				Seat:          ev.Seat,
				Position:      ev.Position,
				Complete:      ev.Complete,
				PlayersNeeded: ev.Needed,
			})
			r.resetMPDeadline()

		case mental.CardRevealed:
			msg := protocol.MPCardRevealed{
				Position: ev.Position,
				CardType: string(ev.Type),
				Keys:     wireReveals(ev.Reveals),
			}
			if ev.Recipient >= 0 {
				rec := ev.Recipient
				msg.Recipient = &rec
			}
			r.broadcast(protocol.TypeMPCardReveal, msg)

		case mental.Aborted:
			r.mpAborted(ev)
		}
	}
}

// mpAborted disputes the offenders and aborts the hand with full refunds.
func (r *Room) mpAborted(ev mental.Aborted) {
	for _, seatIdx := range ev.Offenders {
		if s := r.engine.SeatAt(seatIdx); s != nil {
			if err := r.vault.Dispute(r.ctx, s.Wallet, r.id, ev.Reason); err != nil {
				r.logger.Error("file dispute", "wallet", s.Wallet, "err", err)
			}
		}
	}
	r.handleEngineEvents(r.engine.Abort(ev.Reason))
}

func wireWinners(winners []game.WinnerResult) []protocol.Winner {
	out := make([]protocol.Winner, 0, len(winners))
	for _, w := range winners {
		out = append(out, protocol.Winner{
			Seat:   w.Seat,
			Amount: chips.Format(w.Amount),
			Label:  w.Label,
			Cards:  w.Cards,
			Pot:    string(w.PotType),
		})
	}
	return out
}

func wirePots(pots []game.Pot) []protocol.PotResult {
	out := make([]protocol.PotResult, 0, len(pots))
	for _, p := range pots {
		out = append(out, protocol.PotResult{
			Amount:   chips.Format(p.Amount),
			Eligible: p.Eligible,
			Type:     string(p.Type),
		})
	}
	return out
}

func wireReveals(reveals []mental.Reveal) []protocol.RevealEntry {
	out := make([]protocol.RevealEntry, 0, len(reveals))
	for _, rv := range reveals {
		out = append(out, protocol.RevealEntry{Seat: rv.Seat, Key: rv.Key, Salt: rv.Salt})
	}
	return out
}

package room

import (
	"github.com/onfelt/holdemd/internal/chips"
	"github.com/onfelt/holdemd/internal/protocol"
)

// replyOption tweaks a Reply payload.
type replyOption func(*protocol.Reply)

func withSeat(idx int) replyOption {
	return func(rep *protocol.Reply) {
		seat := idx
		rep.Seat = &seat
	}
}

// reply acknowledges an inbound message on the sender it arrived on.
func (r *Room) reply(s Sender, success bool, code, msg string, opts ...replyOption) {
	rep := protocol.Reply{Success: success, Code: code, Error: msg}
	for _, opt := range opts {
		opt(&rep)
	}
	if err := s.Send(protocol.TypeReply, rep); err != nil {
		r.logger.Debug("reply dropped", "err", err)
	}
}

// sendTo delivers a message to one wallet's current connection, if any.
func (r *Room) sendTo(wallet, msgType string, payload any) {
	c, ok := r.conns[wallet]
	if !ok || !c.connected {
		return
	}
	if err := c.sess.Send.Send(msgType, payload); err != nil {
		r.logger.Debug("send dropped", "wallet", wallet, "type", msgType, "err", err)
	}
}

// broadcast delivers a message to every connected client at the table.
func (r *Room) broadcast(msgType string, payload any) {
	for wallet := range r.conns {
		r.sendTo(wallet, msgType, payload)
	}
}

// errorTo reports a rejected message to its sender.
func (r *Room) errorTo(wallet, code, msg string) {
	r.sendTo(wallet, protocol.TypeError, protocol.ErrorMessage{Code: code, Message: msg})
}

// sendState sends the receiver-specific table snapshot on a session.
func (r *Room) sendState(sess Session) {
	if err := sess.Send.Send(protocol.TypeGameState, r.snapshotFor(sess.Wallet)); err != nil {
		r.logger.Debug("state dropped", "wallet", sess.Wallet, "err", err)
	}
}

// broadcastState pushes a fresh snapshot to everyone. Snapshots are built
// per recipient so hole cards never leak; except skips one wallet that was
// just sent its state.
func (r *Room) broadcastState(except string) {
	for wallet, c := range r.conns {
		if wallet == except || !c.connected {
			continue
		}
		r.sendState(c.sess)
	}
}

// snapshotFor builds the table snapshot as seen by one wallet. Private hole
// cards appear only in the owner's copy.
func (r *Room) snapshotFor(wallet string) protocol.GameState {
	state := protocol.GameState{
		TableID:        r.id,
		Phase:          r.engine.Phase().String(),
		Pot:            chips.Format(r.engine.PotTotal()),
		CurrentBet:     chips.Format(r.engine.CurrentBet()),
		DealerSeat:     r.engine.Button(),
		TurnSeat:       r.engine.TurnSeat(),
		HandNumber:     r.engine.HandNumber(),
		CommunityCards: r.engine.Community(),
	}
	for _, s := range r.engine.Seats() {
		if s == nil {
			continue
		}
		connected := false
		if c, ok := r.conns[s.Wallet]; ok {
			connected = c.connected
		}
		state.Seats = append(state.Seats, protocol.SeatState{
			Seat:       s.Index,
			PlayerID:   s.ID,
			Name:       s.Name,
			Stack:      chips.Format(s.Stack),
			RoundBet:   chips.Format(s.RoundBet),
			Folded:     s.Folded,
			AllIn:      s.AllIn,
			SittingOut: s.SittingOut,
			Dealer:     s.Dealer,
			SmallBlind: s.SmallBlind,
			BigBlind:   s.BigBlind,
			Connected:  connected,
		})
		if s.Wallet == wallet {
			state.HoleCards = s.HoleCards
		}
	}
	return state
}

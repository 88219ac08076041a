package server

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/onfelt/holdemd/internal/escrow"
	"github.com/onfelt/holdemd/internal/protocol"
	"github.com/onfelt/holdemd/internal/randutil"
	"github.com/onfelt/holdemd/internal/room"
	"github.com/onfelt/holdemd/internal/storage"
)

// Lobby owns the rooms and routes inbound messages to them. The room set is
// fixed at startup; routing is read-only and safe from any pump goroutine.
type Lobby struct {
	logger *log.Logger
	rooms  map[string]*room.Room
}

// NewLobby builds one room per configured table.
func NewLobby(cfg *Config, logger *log.Logger, clock quartz.Clock, vault escrow.Vault, store storage.Store) (*Lobby, error) {
	l := &Lobby{
		logger: logger.WithPrefix("lobby"),
		rooms:  make(map[string]*room.Room),
	}
	for i, tb := range cfg.Tables {
		gameCfg, err := tb.GameConfig()
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", tb.Name, err)
		}
		if _, dup := l.rooms[gameCfg.ID]; dup {
			return nil, fmt.Errorf("duplicate table name %q", tb.Name)
		}
		rng := randutil.New(cfg.Server.Seed + int64(i))
		l.rooms[gameCfg.ID] = room.New(gameCfg, logger, clock, rng, vault, store)
	}
	return l, nil
}

// Run drives every room loop until ctx is cancelled.
func (l *Lobby) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range l.rooms {
		r := r
		g.Go(func() error {
			r.Run(ctx)
			return nil
		})
	}
	return g.Wait()
}

// Room looks up a table by id.
func (l *Lobby) Room(id string) (*room.Room, bool) {
	r, ok := l.rooms[id]
	return r, ok
}

// Tables lists the configured table ids.
func (l *Lobby) Tables() []string {
	out := make([]string, 0, len(l.rooms))
	for id := range l.rooms {
		out = append(out, id)
	}
	return out
}

// dispatch routes one decoded message from a connection.
func (l *Lobby) dispatch(c *Connection, msg protocol.Message) {
	if msg.Type == protocol.TypeTableJoin {
		l.handleJoin(c, msg)
		return
	}

	r, ok := l.rooms[c.table()]
	if !ok {
		c.sendError(protocol.CodeNotSeated, "join a table first")
		return
	}

	switch msg.Type {
	case protocol.TypeTableLeave:
		r.Leave(c.Wallet())

	case protocol.TypeTableSitOut:
		r.SitOut(c.Wallet())

	case protocol.TypeTableSitIn:
		r.SitIn(c.Wallet())

	case protocol.TypeTableAddChips:
		var req protocol.AddChipsRequest
		if err := msg.DecodePayload(&req); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "bad add-chips payload")
			return
		}
		r.AddChips(c.Wallet(), req.Amount)

	case protocol.TypeGameAction:
		var req protocol.ActionRequest
		if err := msg.DecodePayload(&req); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "bad action payload")
			return
		}
		r.Action(c.Wallet(), req.Action, req.Amount)

	case protocol.TypeGameShowCards:
		var req protocol.ShowCardsRequest
		if err := msg.DecodePayload(&req); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "bad show-cards payload")
			return
		}
		r.ShowCards(c.Wallet(), req.HoleCards, req.Board)

	case protocol.TypeMPCommit:
		var req protocol.CommitRequest
		if err := msg.DecodePayload(&req); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "bad commit payload")
			return
		}
		r.MPCommit(c.Wallet(), req.Commitment)

	case protocol.TypeMPShuffle:
		var req protocol.ShuffleRequest
		if err := msg.DecodePayload(&req); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "bad shuffle payload")
			return
		}
		r.MPShuffle(c.Wallet(), req.Deck)

	case protocol.TypeMPRevealKey:
		var req protocol.RevealKeyRequest
		if err := msg.DecodePayload(&req); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "bad reveal payload")
			return
		}
		r.MPRevealKey(c.Wallet(), req.Position, req.Key, req.Salt)

	case protocol.TypeChatSend:
		var req protocol.ChatRequest
		if err := msg.DecodePayload(&req); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "bad chat payload")
			return
		}
		r.Chat(c.Wallet(), req.Message)

	default:
		c.sendError(protocol.CodeInvalidMessage, "unknown message type "+msg.Type)
	}
}

func (l *Lobby) handleJoin(c *Connection, msg protocol.Message) {
	var req protocol.JoinRequest
	if err := msg.DecodePayload(&req); err != nil {
		c.sendError(protocol.CodeInvalidMessage, "bad join payload")
		return
	}
	r, ok := l.rooms[req.TableID]
	if !ok {
		c.sendError(protocol.CodeInvalidMessage, "no such table "+req.TableID)
		return
	}
	if cur := c.table(); cur != "" && cur != req.TableID {
		c.sendError(protocol.CodeInvalidMessage, "already at table "+cur)
		return
	}
	c.setTable(req.TableID)
	r.Join(room.Session{Wallet: c.Wallet(), ID: c.sessionID, Send: c}, req.Seat, req.BuyIn)
}

// connectionClosed tells the wallet's room that its transport died.
func (l *Lobby) connectionClosed(c *Connection) {
	if r, ok := l.rooms[c.table()]; ok {
		r.Disconnect(c.Wallet(), c.sessionID)
	}
}

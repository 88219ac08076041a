package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/onfelt/holdemd/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Outbound buffer per connection. A client that cannot drain this is
	// disconnected rather than allowed to stall the table.
	sendBuffer = 256
)

var ErrConnectionClosed = errors.New("server: connection closed")

// Connection wraps one websocket. It satisfies room.Sender, so a room can
// push messages without knowing about the transport.
type Connection struct {
	conn      *websocket.Conn
	send      chan []byte
	wallet    string
	sessionID string
	tableID   string
	logger    *log.Logger
	lobby     *Lobby
	metrics   *Metrics
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, logger *log.Logger, lobby *Lobby, metrics *Metrics, wallet, sessionID string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		wallet:    wallet,
		sessionID: sessionID,
		logger:    logger.WithPrefix("conn").With("wallet", wallet),
		lobby:     lobby,
		metrics:   metrics,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// start begins the read and write pumps.
func (c *Connection) start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		_ = c.conn.Close()
	})
}

// Send encodes and queues one outbound message. Implements room.Sender.
func (c *Connection) Send(msgType string, payload any) error {
	raw, err := protocol.Encode(msgType, payload, time.Now())
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			// Send raced Close; the connection is already gone.
			c.logger.Debug("send on closed connection", "type", msgType)
		}
	}()

	select {
	case c.send <- raw:
		c.metrics.MessagesSent.Inc()
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.metrics.MessagesDropped.Inc()
		c.logger.Warn("send buffer full, dropping connection")
		c.Close()
		return ErrConnectionClosed
	}
}

// Wallet returns the authenticated wallet address.
func (c *Connection) Wallet() string { return c.wallet }

func (c *Connection) setTable(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = id
}

func (c *Connection) table() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

// readPump reads inbound frames and hands them to the lobby. It owns the
// read side: deadlines, size limit and pong bookkeeping.
func (c *Connection) readPump() {
	defer func() {
		c.lobby.connectionClosed(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read error", "err", err)
			}
			return
		}

		msg, err := protocol.Decode(raw)
		if err != nil {
			c.logger.Debug("malformed message", "err", err)
			c.sendError(protocol.CodeInvalidMessage, "malformed message")
			continue
		}
		c.metrics.MessagesReceived.WithLabelValues(msg.Type).Inc()
		c.lobby.dispatch(c, msg)
	}
}

// writePump drains the send buffer and keeps the ping cycle going.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) sendError(code, message string) {
	_ = c.Send(protocol.TypeError, protocol.ErrorMessage{Code: code, Message: message})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/onfelt/holdemd/internal/auth"
	"github.com/onfelt/holdemd/internal/gameid"
)

// Server accepts websocket connections, authenticates them and hands the
// resulting sessions to the lobby.
type Server struct {
	addr      string
	upgrader  websocket.Upgrader
	logger    *log.Logger
	lobby     *Lobby
	validator auth.Validator
	metrics   *Metrics

	mu    sync.Mutex
	conns map[*Connection]struct{}

	httpServer *http.Server
}

// NewServer wires the transport. The validator decides who may connect; the
// lobby decides what their messages mean.
func NewServer(addr string, logger *log.Logger, lobby *Lobby, validator auth.Validator, metrics *Metrics) *Server {
	for id, rm := range lobby.rooms {
		id := id
		rm.SetHandHook(func(aborted bool) {
			outcome := "complete"
			if aborted {
				outcome = "aborted"
			}
			metrics.HandsPlayed.WithLabelValues(id, outcome).Inc()
		})
	}
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			// Origin checking is the reverse proxy's job in production.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:    logger.WithPrefix("server"),
		lobby:     lobby,
		validator: validator,
		metrics:   metrics,
		conns:     make(map[*Connection]struct{}),
	}
}

// Run serves until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.logger.Info("listening", "addr", listener.Addr().String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)

		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		return nil
	})
	return g.Wait()
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	identity, err := s.validator.Validate(r.Context(), token)
	if err != nil {
		s.metrics.AuthFailures.Inc()
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "authentication failed", status)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	conn := newConnection(wsConn, s.logger, s.lobby, s.metrics, identity.Wallet, gameid.Generate())
	s.track(conn)
	s.metrics.ConnectionsActive.Inc()
	conn.start()

	go func() {
		<-conn.ctx.Done()
		s.untrack(conn)
		s.metrics.ConnectionsActive.Dec()
	}()
}

func (s *Server) track(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrack(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"tables": s.lobby.Tables(),
	})
}

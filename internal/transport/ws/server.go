// Package ws carries the peer protocol over websocket: a Server exposes the
// local log of a Manager, a Client implements peer.Remote on top of it.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/catalogsync/internal/codec"
	"github.com/iudanet/catalogsync/internal/models"
	syncmgr "github.com/iudanet/catalogsync/internal/sync"
	"github.com/iudanet/catalogsync/internal/sync/notify"
	"github.com/iudanet/catalogsync/pkg/api"
)

const (
	// DefaultMaxCount верхняя граница count в одном get_ops
	DefaultMaxCount = 1000

	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultPingPeriod = defaultPongWait * 9 / 10
	sendBuffer        = 64
)

// Source is the part of a sync Manager exposed to remote instances
type Source interface {
	Instance() uuid.UUID
	GetOps(ctx context.Context, args syncmgr.GetOpsArgs) ([]*models.CRDTOperation, error)
	Subscribe() (<-chan notify.Kind, func())
}

// Server upgrades HTTP requests to peer sessions
type Server struct {
	source     Source
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
	maxCount   int
	name       string

	mu       sync.Mutex
	sessions map[*session]struct{}
	closed   bool
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithMaxCount caps the number of operations returned per request
func WithMaxCount(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxCount = n
		}
	}
}

// WithName sets the instance name announced in hello
func WithName(name string) ServerOption {
	return func(s *Server) {
		s.name = name
	}
}

// WithKeepAlive overrides the ping period and the pong deadline
func WithKeepAlive(ping, pong time.Duration) ServerOption {
	return func(s *Server) {
		s.pingPeriod = ping
		s.pongWait = pong
	}
}

// NewServer creates a websocket server over source
func NewServer(source Source, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		writeWait:  defaultWriteWait,
		pongWait:   defaultPongWait,
		pingPeriod: defaultPingPeriod,
		maxCount:   DefaultMaxCount,
		sessions:   make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP upgrades the connection and serves it until the peer disconnects
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	s.logger.Info("Peer connected", "remote_addr", r.RemoteAddr)
	s.serve(r.Context(), conn)
	s.logger.Info("Peer disconnected", "remote_addr", r.RemoteAddr)
}

// Close disconnects every active peer. Later upgrades are closed at once
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for sess := range s.sessions {
		_ = sess.conn.Close()
	}
	return nil
}

func (s *Server) track(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[sess] = struct{}{}
	return true
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

// session одно подключение удаленного узла
type session struct {
	server     *Server
	conn       *websocket.Conn
	send       chan *api.Message
	done       chan struct{} // чтение завершено
	writerDone chan struct{} // писатель завершен
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn) {
	sess := &session{
		server:     s,
		conn:       conn,
		send:       make(chan *api.Message, sendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	if !s.track(sess) {
		_ = conn.Close()
		return
	}
	defer s.untrack(sess)

	hello, err := api.NewMessage(api.TypeHello, 0, api.HelloPayload{
		Instance: s.source.Instance().String(),
		Name:     s.name,
	})
	if err != nil {
		_ = conn.Close()
		return
	}
	sess.send <- hello

	events, unsubscribe := s.source.Subscribe()
	defer unsubscribe()

	go func() {
		defer close(sess.writerDone)
		sess.writePump(events)
	}()

	sess.readPump(ctx)
	close(sess.done)
	<-sess.writerDone
}

// readPump читает запросы и обрабатывает их по одному
func (c *session) readPump(ctx context.Context) {
	s := c.server
	_ = c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	for {
		var msg api.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Websocket read failed", "error", err)
			}
			return
		}

		reply := s.handle(ctx, &msg)
		if reply == nil {
			continue
		}
		select {
		case c.send <- reply:
		case <-c.writerDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

// writePump единственный писатель в соединение
func (c *session) writePump(events <-chan notify.Kind) {
	s := c.server
	ticker := time.NewTicker(s.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	write := func(msg *api.Message) bool {
		_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			s.logger.Debug("Websocket write failed", "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case msg := <-c.send:
			if !write(msg) {
				return
			}
		case k, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if k != notify.Created {
				continue
			}
			if !write(&api.Message{Type: api.TypeCreated}) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, msg *api.Message) *api.Message {
	switch msg.Type {
	case api.TypeGetOps:
		var req api.GetOpsRequest
		if err := msg.UnmarshalPayload(&req); err != nil {
			return errorMessage(msg.ID, api.CodeValidation, "invalid get_ops payload")
		}
		resp, err := s.getOps(ctx, req)
		if err != nil {
			code := api.CodeInternal
			if errors.Is(err, models.ErrValidation) {
				code = api.CodeValidation
				s.logger.Warn("Rejected get_ops", "error", err)
			} else {
				s.logger.Error("Failed to serve get_ops", "error", err)
			}
			return errorMessage(msg.ID, code, err.Error())
		}
		reply, err := api.NewMessage(api.TypeOps, msg.ID, resp)
		if err != nil {
			return errorMessage(msg.ID, api.CodeInternal, err.Error())
		}
		return reply
	default:
		s.logger.Warn("Unknown message type", "type", msg.Type)
		return errorMessage(msg.ID, api.CodeValidation, "unknown message type "+string(msg.Type))
	}
}

func (s *Server) getOps(ctx context.Context, req api.GetOpsRequest) (*api.OpsResponse, error) {
	for _, e := range req.Clocks {
		if e.Instance == uuid.Nil {
			return nil, fmt.Errorf("%w: nil instance in clocks", models.ErrValidation)
		}
	}

	count := req.Count
	if count <= 0 || count > s.maxCount {
		count = s.maxCount
	}

	ops, err := s.source.GetOps(ctx, syncmgr.GetOpsArgs{
		Clocks: models.WatermarkFromEntries(req.Clocks),
		Count:  count,
	})
	if err != nil {
		return nil, err
	}

	encoded, err := codec.EncodeOperations(ops)
	if err != nil {
		return nil, err
	}
	return &api.OpsResponse{Ops: encoded, Instance: s.source.Instance().String()}, nil
}

func errorMessage(id uint64, code, text string) *api.Message {
	// ErrorResponse всегда сериализуется
	msg, _ := api.NewMessage(api.TypeError, id, api.ErrorResponse{Error: text, Code: code})
	return msg
}

package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/catalogsync/internal/codec"
	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/internal/transport/peer"
	"github.com/iudanet/catalogsync/pkg/api"
)

// Client errors
var (
	// ErrConnectionClosed is returned by calls on a closed or broken connection
	ErrConnectionClosed = errors.New("peer connection closed")

	// ErrRemote wraps an error reported by the remote instance
	ErrRemote = errors.New("remote error")
)

const helloTimeout = 10 * time.Second

var _ peer.Remote = (*Client)(nil)

// Client is a websocket connection to a remote instance
type Client struct {
	conn      *websocket.Conn
	logger    *slog.Logger
	onCreated func()
	pending   map[uint64]chan *api.Message // ожидающие ответа запросы
	done      chan struct{}
	err       error
	next      atomic.Uint64
	instance  uuid.UUID
	name      string
	writeMu   sync.Mutex // gorilla допускает одного писателя
	mu        sync.Mutex
	closeOnce sync.Once
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithOnCreated registers a callback for remote "created" announcements.
// It is called from the read loop and must not block
func WithOnCreated(fn func()) ClientOption {
	return func(c *Client) {
		c.onCreated = fn
	}
}

// Dial connects to the websocket endpoint at url and waits for the remote
// to introduce itself
func Dial(ctx context.Context, url string, logger *slog.Logger, opts ...ClientOption) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[uint64]chan *api.Message),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.readHello(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.logger = logger.With("remote", c.instance)

	go c.readLoop()
	return c, nil
}

func (c *Client) readHello() error {
	_ = c.conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer func() {
		_ = c.conn.SetReadDeadline(time.Time{})
	}()

	var msg api.Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("failed to read hello: %w", err)
	}
	if msg.Type != api.TypeHello {
		return fmt.Errorf("%w: expected hello, got %s", models.ErrValidation, msg.Type)
	}

	var hello api.HelloPayload
	if err := msg.UnmarshalPayload(&hello); err != nil {
		return fmt.Errorf("%w: invalid hello: %w", models.ErrValidation, err)
	}
	instance, err := uuid.Parse(hello.Instance)
	if err != nil {
		return fmt.Errorf("%w: invalid instance id: %w", models.ErrValidation, err)
	}
	c.instance = instance
	c.name = hello.Name
	return nil
}

// InstanceID returns the id announced by the remote
func (c *Client) InstanceID() uuid.UUID {
	return c.instance
}

// Name returns the instance name announced by the remote, possibly empty
func (c *Client) Name() string {
	return c.name
}

// Done is closed when the connection is lost or closed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the connection ended
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// GetOps asks the remote for operations newer than clocks
func (c *Client) GetOps(ctx context.Context, clocks models.Watermark, count int) ([]*models.CRDTOperation, error) {
	id := c.next.Add(1)
	msg, err := api.NewMessage(api.TypeGetOps, id, api.GetOpsRequest{Clocks: clocks.Entries(), Count: count})
	if err != nil {
		return nil, err
	}

	reply := make(chan *api.Message, 1)
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil, c.err
	}
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, msg); err != nil {
		return nil, err
	}

	var resp *api.Message
	select {
	case resp = <-reply:
	case <-c.done:
		return nil, c.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	switch resp.Type {
	case api.TypeOps:
		var payload api.OpsResponse
		if err := resp.UnmarshalPayload(&payload); err != nil {
			return nil, fmt.Errorf("%w: invalid ops payload: %w", models.ErrValidation, err)
		}
		return codec.DecodeOperations(payload.Ops)
	case api.TypeError:
		var payload api.ErrorResponse
		_ = resp.UnmarshalPayload(&payload)
		if payload.Code == api.CodeValidation {
			return nil, fmt.Errorf("%w: %w: %s", ErrRemote, models.ErrValidation, payload.Error)
		}
		return nil, fmt.Errorf("%w: %s", ErrRemote, payload.Error)
	default:
		return nil, fmt.Errorf("%w: unexpected reply %s", models.ErrValidation, resp.Type)
	}
}

func (c *Client) write(ctx context.Context, msg *api.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(defaultWriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return nil
}

// readLoop раздает ответы ожидающим запросам и обрабатывает push-сообщения
func (c *Client) readLoop() {
	for {
		var msg api.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.shutdown(fmt.Errorf("%w: %w", ErrConnectionClosed, err))
			return
		}

		switch msg.Type {
		case api.TypeCreated:
			if c.onCreated != nil {
				c.onCreated()
			}
		case api.TypeOps, api.TypeError:
			c.mu.Lock()
			reply, ok := c.pending[msg.ID]
			c.mu.Unlock()
			if !ok {
				// Запрос уже отменен
				c.logger.Debug("Dropping reply to abandoned request", "id", msg.ID)
				continue
			}
			reply <- &msg
		default:
			c.logger.Warn("Unknown message type", "type", msg.Type)
		}
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// Close closes the connection
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.shutdown(ErrConnectionClosed)
	return err
}

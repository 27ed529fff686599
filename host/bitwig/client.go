// Package bitwig adapts Bitwig Studio through the dawscript extension, which
// exposes the controller API as JSON RPC over a WebSocket. The extension
// pushes listener, MIDI and project notifications on the same connection.
package bitwig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/Conceptual-Machines/dawscript-go/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by calls on a closed or lost connection.
var ErrClosed = errors.New("bridge connection closed")

// Client is a connection to the extension. Responses are matched to calls
// by id on a reader goroutine; notifications are queued until Drain.
type Client struct {
	conn *websocket.Conn
	log  logrus.FieldLogger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan *models.BridgeMessage
	queue   []*models.BridgeMessage
	err     error

	done chan struct{}
}

// Dial connects to the extension listening on addr (host:port).
func Dial(ctx context.Context, addr string, log logrus.FieldLogger) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:    conn,
		log:     log,
		pending: make(map[int64]chan *models.BridgeMessage),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	var err error
	defer func() { c.fail(err) }()

	for {
		var msg models.BridgeMessage
		if err = c.conn.ReadJSON(&msg); err != nil {
			return
		}

		c.mu.Lock()
		if msg.IsNotification() {
			c.queue = append(c.queue, &msg)
			c.mu.Unlock()
			continue
		}
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()

		if !ok {
			c.log.WithField("id", msg.ID).Warn("response for unknown call")
			continue
		}
		ch <- &msg
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	if err == nil {
		err = ErrClosed
	}
	c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	close(c.done)
}

// Done is closed when the connection is lost.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection was lost.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Call invokes method and decodes its result into result, which may be nil.
// It blocks until the extension answers or ctx is done.
func (c *Client) Call(ctx context.Context, method string, result any, params ...any) error {
	ch := make(chan *models.BridgeMessage, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return c.err
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(models.BridgeRequest{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case msg, ok := <-ch:
		if !ok {
			return c.Err()
		}
		if msg.Error != nil {
			return fmt.Errorf("%s: %w", method, msg.Error)
		}
		if result == nil || len(msg.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(msg.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
		return nil
	}
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// Drain returns the notifications received since the previous call.
func (c *Client) Drain() []*models.BridgeMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queue
	c.queue = nil
	return q
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

package web

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 256
	writeTimeout = 5 * time.Second
)

type subscription struct {
	target any
	prop   host.Property
	id     host.ListenerID
}

// client is one WebSocket connection. Only writeLoop writes to conn.
type client struct {
	id   string
	conn *websocket.Conn
	log  logrus.FieldLogger

	out  chan []byte
	done chan struct{}
	once sync.Once

	// subs maps the sequence number of each add_*_listener call to its
	// registration. Owned by the control goroutine.
	subs map[int64]subscription
}

func newClient(conn *websocket.Conn, log logrus.FieldLogger) *client {
	id := uuid.NewString()
	return &client{
		id:   id,
		conn: conn,
		log:  log.WithField("client", id),
		out:  make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		subs: make(map[int64]subscription),
	}
}

// send queues resp without blocking. A client too slow to keep up is
// disconnected.
func (c *client) send(resp models.RemoteResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.log.WithError(err).Warn("encode response")
		return
	}
	select {
	case <-c.done:
	case c.out <- data:
	default:
		c.log.Warn("send buffer full, closing connection")
		c.close()
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.WithError(err).Debug("write failed")
				c.close()
				return
			}
		}
	}
}

// readLoop decodes requests until the connection fails, then reports the
// client closed.
func (c *client) readLoop(enqueue func(event)) {
	defer func() {
		c.close()
		enqueue(event{client: c, closed: true})
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("read failed")
			}
			return
		}
		var req models.RemoteRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.log.WithError(err).Warn("malformed request")
			continue
		}
		enqueue(event{client: c, req: &req})
	}
}

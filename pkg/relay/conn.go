package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/protocol"
)

const (
	pingInterval = 10 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
	maxFrameSize = 64 * 1024
)

// peer is the hub's view of a connected client
type peer interface {
	ID() string
	Codec() protocol.Codec
	// enqueue hands a frame to the writer without blocking. Droppable frames
	// are discarded when the buffer is full, other frames close the peer.
	enqueue(frame []byte, droppable bool) bool
	close()
}

// Conn is a websocket client connection. The read pump decodes nothing, it
// hands raw frames to the hub. The write pump owns all writes to the socket.
type Conn struct {
	id        string
	ws        *websocket.Conn
	codec     protocol.Codec
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       *log.Logger
}

func newConn(id string, ws *websocket.Conn, codec protocol.Codec) *Conn {
	return &Conn{
		id:    id,
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
		log:   log.Default().Named("relay.conn").With(log.String("conn", id)),
	}
}

func (c *Conn) ID() string            { return c.id }
func (c *Conn) Codec() protocol.Codec { return c.codec }

func (c *Conn) enqueue(frame []byte, droppable bool) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
	}
	if droppable {
		return false
	}
	c.log.Warn("send buffer full, closing connection")
	c.close()
	return false
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump forwards inbound frames to the hub until the socket fails
func (c *Conn) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.close()
		c.ws.Close()
	}()
	c.ws.SetReadLimit(maxFrameSize)
	//nolint:errcheck // by design
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("unexpected close", log.ErrorField(err))
			} else {
				c.log.Debug("read terminated", log.ErrorField(err))
			}
			return
		}
		h.receive(c, frame)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	msgType := websocket.TextMessage
	if c.codec.Binary() {
		msgType = websocket.BinaryMessage
	}
	for {
		select {
		case frame := <-c.send:
			//nolint:errcheck // by design
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(msgType, frame); err != nil {
				c.log.Debug("write failed", log.ErrorField(err))
				c.close()
				return
			}
		case <-ticker.C:
			//nolint:errcheck // by design
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", log.ErrorField(err))
				c.close()
				return
			}
		case <-c.done:
			c.drain(msgType)
			//nolint:errcheck // by design
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// drain flushes frames queued before close, e.g. a final error event
func (c *Conn) drain(msgType int) {
	for {
		select {
		case frame := <-c.send:
			//nolint:errcheck // by design
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(msgType, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

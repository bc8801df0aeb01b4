package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/protocol"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

type WSOption func(*WSChannel)

func WithCodec(c protocol.Codec) WSOption {
	return func(w *WSChannel) { w.codec = c }
}

func WithDialer(d *websocket.Dialer) WSOption {
	return func(w *WSChannel) { w.dialer = d }
}

// WSChannel is a Channel over a gorilla websocket connection.
// Connect may be called again after a disconnect.
type WSChannel struct {
	handlers
	url    string
	codec  protocol.Codec
	dialer *websocket.Dialer
	log    *log.Logger

	mu   sync.Mutex
	link *wsLink
}

// wsLink is the state of one connection attempt
type wsLink struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (l *wsLink) close() {
	l.closeOnce.Do(func() { close(l.done) })
}

func NewWSChannel(serverURL string, opts ...WSOption) *WSChannel {
	w := &WSChannel{
		url:    serverURL,
		codec:  protocol.JSON,
		dialer: websocket.DefaultDialer,
		log:    log.Default().Named("client.ws"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// endpoint adds the codec selection to the configured url
func (w *WSChannel) endpoint() (string, error) {
	u, err := url.Parse(w.url)
	if err != nil {
		return "", err
	}
	if w.codec.Name() != protocol.CodecJSON {
		q := u.Query()
		q.Set("codec", w.codec.Name())
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (w *WSChannel) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.link != nil {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	endpoint, err := w.endpoint()
	if err != nil {
		return err
	}
	ws, resp, err := w.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	link := &wsLink{ws: ws, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	w.mu.Lock()
	w.link = link
	w.mu.Unlock()
	w.log.Debug("connected", log.String("url", endpoint))

	go w.writePump(link)
	w.dispatch(Message{Event: protocol.EventConnect, codec: w.codec})
	go w.readPump(link)
	return nil
}

func (w *WSChannel) Emit(event string, payload any) error {
	w.mu.Lock()
	link := w.link
	w.mu.Unlock()
	if link == nil {
		return ErrNotConnected
	}
	frame, err := w.codec.Encode(event, payload)
	if err != nil {
		return err
	}
	select {
	case <-link.done:
		return ErrNotConnected
	case link.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (w *WSChannel) Close() error {
	w.mu.Lock()
	link := w.link
	w.mu.Unlock()
	if link != nil {
		link.close()
	}
	return nil
}

func (w *WSChannel) readPump(link *wsLink) {
	defer func() {
		link.close()
		link.ws.Close()
		w.mu.Lock()
		if w.link == link {
			w.link = nil
		}
		w.mu.Unlock()
		w.dispatch(Message{Event: protocol.EventDisconnect, codec: w.codec})
	}()
	for {
		_, frame, err := link.ws.ReadMessage()
		if err != nil {
			w.log.Debug("read terminated", log.ErrorField(err))
			return
		}
		event, data, err := w.codec.Decode(frame)
		if err != nil {
			w.log.Warn("invalid frame", log.ErrorField(err))
			continue
		}
		w.dispatch(Message{Event: event, Data: data, codec: w.codec})
	}
}

func (w *WSChannel) writePump(link *wsLink) {
	msgType := websocket.TextMessage
	if w.codec.Binary() {
		msgType = websocket.BinaryMessage
	}
	for {
		select {
		case frame := <-link.send:
			//nolint:errcheck // by design
			link.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := link.ws.WriteMessage(msgType, frame); err != nil {
				w.log.Debug("write failed", log.ErrorField(err))
				link.close()
				link.ws.Close()
				return
			}
		case <-link.done:
			//nolint:errcheck // by design
			link.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			// unblocks the read pump
			link.ws.Close()
			return
		}
	}
}

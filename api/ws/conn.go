package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second // server-side WS ping
)

// Packet is the unified WS message envelope.
type Packet struct {
	Seq     uint64          `json:"seq,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn is one player's console connection.
type Conn struct {
	AccountID int64
	IP        string
	TraceID   string
	LastSeq   uint64

	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	replies chan json.RawMessage
	waiting atomic.Bool // a prompt is awaiting its reply
	busy    atomic.Bool
	once    sync.Once
	logger  *zap.Logger
}

// newConn wraps ws and starts its write pump. A nil ws gives a detached
// connection whose outgoing packets stay queued in send.
func newConn(accountID int64, ws *websocket.Conn, logger *zap.Logger) *Conn {
	c := &Conn{
		AccountID: accountID,
		ws:        ws,
		send:      make(chan []byte, sendChanBuf),
		done:      make(chan struct{}),
		replies:   make(chan json.RawMessage, 1),
		logger:    logger,
	}
	if ws != nil {
		go c.writePump()
	}
	return c
}

// writePump drains send and writes to the WebSocket connection, pinging
// periodically to detect dead peers.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.ws.Close()
	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("ws write error",
					zap.Int64("account_id", c.AccountID),
					zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes payload under msgType and queues it. It waits for queue
// space up to the write deadline; packets for a closed connection are
// dropped.
func (c *Conn) Send(msgType string, payload interface{}) {
	if c.IsClosed() {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			c.logger.Error("ws encode failed", zap.String("type", msgType), zap.Error(err))
			return
		}
		raw = b
	}
	data, _ := json.Marshal(Packet{Type: msgType, Payload: raw})

	timer := time.NewTimer(writeDeadline)
	defer timer.Stop()
	select {
	case c.send <- data:
	case <-c.done:
	case <-timer.C:
		c.logger.Warn("send queue full, dropping packet",
			zap.Int64("account_id", c.AccountID),
			zap.String("type", msgType))
	}
}

// deliver hands a client reply to the pending prompt, if any.
func (c *Conn) deliver(payload json.RawMessage) bool {
	if !c.waiting.Load() {
		return false
	}
	select {
	case c.replies <- payload:
		return true
	default:
		return false
	}
}

// drainReplies discards replies nobody asked for.
func (c *Conn) drainReplies() {
	for {
		select {
		case <-c.replies:
		default:
			return
		}
	}
}

// Close signals the write pump to shut down. Safe to call repeatedly.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) setReadDeadline() {
	_ = c.ws.SetReadDeadline(time.Now().Add(readDeadline))
}

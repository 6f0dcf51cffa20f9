// Package server manages individual WebSocket clients, pairing a blocking
// frame reader with a write pump that owns every write to the connection.
package server

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Tyrowin/chatroom/internal/chat"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

var errSendBufferFull = errors.New("send buffer full")

// Client is a WebSocket connection adapted to chat.Conn. Frames handed to
// WriteFrame are queued and written, in order, by the client's write pump.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	done           chan struct{}
	closeOnce      sync.Once
	addr           string
	maxMessageSize int64
	logger         log.FieldLogger
}

var _ chat.Conn = (*Client)(nil)

// NewClient wraps conn. The caller must start WritePump before frames can
// be delivered.
func NewClient(conn *websocket.Conn, addr string, maxMessageSize int64, logger log.FieldLogger) *Client {
	id := uuid.NewString()
	if logger == nil {
		logger = log.StandardLogger()
	}
	if conn != nil && maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}

	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
		addr:           addr,
		maxMessageSize: maxMessageSize,
		logger:         logger.WithFields(log.Fields{"conn": id, "addr": addr}),
	}
}

// ID returns the connection's trace id.
func (c *Client) ID() string {
	return c.id
}

// RemoteAddr returns the peer address the client connected from.
func (c *Client) RemoteAddr() string {
	return c.addr
}

// Logger returns the client's connection-scoped logger.
func (c *Client) Logger() log.FieldLogger {
	return c.logger
}

// ReadFrame blocks until the next inbound message arrives. Any error means
// the connection is gone and wraps chat.ErrConnectionClosed.
func (c *Client) ReadFrame() ([]byte, error) {
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		c.logReadError(err)
		return nil, fmt.Errorf("%w: %v", chat.ErrConnectionClosed, err)
	}
	return raw, nil
}

// WriteFrame queues frame for the write pump. It fails when the client is
// closed. A full queue closes the client, since a gap in its stream is never
// acceptable.
func (c *Client) WriteFrame(frame []byte) error {
	select {
	case <-c.done:
		return chat.ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return chat.ErrConnectionClosed
	default:
		c.logger.Warn("Send buffer full; closing slow client")
		_ = c.Close()
		return errSendBufferFull
	}
}

// Close asks the write pump to flush queued frames, send a close message and
// drop the connection, which unblocks ReadFrame. Safe to call repeatedly and
// from any goroutine.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// logReadError logs a read failure at a level matching how expected it is.
func (c *Client) logReadError(err error) {
	if errors.Is(err, websocket.ErrReadLimit) {
		c.logger.Warnf("Message exceeded maximum size of %d bytes", c.maxMessageSize)
		return
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		c.logger.Debugf("Client disconnected: %v", err)
		return
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.logger.Debugf("Client connection closed: %v", err)
		return
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.logger.Warnf("Unexpected WebSocket error: %v", err)
		return
	}

	c.logger.Infof("WebSocket read error: %v", err)
}

// WritePump writes queued frames and keepalive pings until the client is
// closed or a write fails, then closes the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
		_ = c.Close()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message := <-c.send:
		return c.writeTextMessage(message)
	case <-ticker.C:
		return c.handlePing()
	case <-c.done:
		c.flushQueued()
		c.writeCloseMessage()
		return false
	}
}

// flushQueued writes whatever was queued before Close.
func (c *Client) flushQueued() {
	for {
		select {
		case message := <-c.send:
			if !c.writeTextMessage(message) {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warnf("Error closing connection: %v", err)
		}
	}
}

func (c *Client) writeCloseMessage() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Debugf("Error writing close message: %v", err)
		}
	}
}

// writeTextMessage writes one frame as one WebSocket text message.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warnf("Error setting write deadline: %v", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warnf("Error writing message: %v", err)
		}
		return false
	}
	return true
}

// handlePing sends a ping so dead peers surface as write failures.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warnf("Error setting write deadline for ping: %v", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debugf("Error writing ping message: %v", err)
		return false
	}
	return true
}

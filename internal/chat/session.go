package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// State is the lifecycle stage of a session loop.
type State int

// Session loop states, in lifecycle order.
const (
	StateConnecting State = iota
	StateAwaitingName
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingName:
		return "awaiting_name"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Serve drives conn from the username prompt through the chat loop to
// teardown and returns once the connection is closed. Cancelling ctx or
// shutting the hub down closes conn. logger may be nil.
func (h *Hub) Serve(ctx context.Context, conn Conn, logger log.FieldLogger) {
	if logger == nil {
		logger = h.logger.WithField("addr", conn.RemoteAddr())
	}
	if !h.track() {
		logger.Debug("Hub is shutting down; refusing connection")
		_ = conn.Close()
		return
	}
	defer h.wg.Done()

	closeConn := func() { _ = conn.Close() }
	stopCtx := context.AfterFunc(ctx, closeConn)
	defer stopCtx()
	stopHub := context.AfterFunc(h.ctx, closeConn)
	defer stopHub()

	loop := &sessionLoop{hub: h, conn: conn, logger: logger}
	loop.run()
}

type sessionLoop struct {
	hub     *Hub
	conn    Conn
	logger  log.FieldLogger
	state   State
	session *Session
}

func (l *sessionLoop) setState(s State) {
	l.logger.Debugf("Session %s -> %s", l.state, s)
	l.state = s
}

func (l *sessionLoop) run() {
	defer l.teardown()

	l.state = StateConnecting
	if err := l.writeDirect(infoFrame(promptUsername)); err != nil {
		l.logger.Warnf("Unable to prompt for username: %v", err)
		return
	}

	l.setState(StateAwaitingName)
	if !l.register() {
		return
	}

	l.setState(StateActive)
	for {
		raw, err := l.conn.ReadFrame()
		if err != nil {
			l.logger.Debugf("Read loop ended: %v", err)
			return
		}
		l.handle(raw)
	}
}

// register reads the username frame and inserts the session. It reports
// whether the loop may proceed to the active state.
func (l *sessionLoop) register() bool {
	raw, err := l.conn.ReadFrame()
	if err != nil {
		l.logger.Debugf("Connection closed before registration: %v", err)
		return false
	}

	in, err := DecodeInbound(raw)
	if err != nil || in.Message == nil || strings.TrimSpace(*in.Message) == "" {
		l.logger.Info("Rejecting registration without a username")
		_ = l.writeDirect(errorFrame(msgNameRequired))
		return false
	}

	name := *in.Message
	s, err := l.hub.dir.Register(name, l.conn)
	if errors.Is(err, ErrNameTaken) {
		l.logger.Infof("Username %q already taken", name)
		_ = l.writeDirect(errorFrame(msgNameTaken))
		return false
	}
	if err != nil {
		l.logger.Errorf("Registration of %q failed: %v", name, err)
		return false
	}

	l.session = s
	l.logger = l.logger.WithField("user", name)
	l.logger.Infof("User registered. Total users: %d", l.hub.dir.Len())

	b := l.hub.broadcaster
	if err := b.sendFrame(s, Frame{Type: FrameSuccess, Message: fmt.Sprintf("Welcome %s!", name)}); err != nil {
		l.logger.Warnf("Welcome not delivered: %v", err)
	}
	b.broadcastFrame(infoFrame(fmt.Sprintf("%s has joined the chat.", name)))
	if err := b.sendFrame(s, userListFrame(l.hub.dir.Snapshot())); err != nil {
		l.logger.Warnf("User list not delivered: %v", err)
	}
	return true
}

func (l *sessionLoop) handle(raw []byte) {
	in, err := DecodeInbound(raw)
	if err != nil {
		l.logger.Debugf("Invalid frame: %v", err)
		l.hub.reply(l.session, msgInvalidFrame)
		return
	}

	if in.Command != nil {
		if err := l.hub.HandleCommand(*in.Command, l.session.Username); err != nil {
			l.logger.Debugf("Command %q ignored: %v", *in.Command, err)
		}
		return
	}

	if err := l.hub.Route(l.session, in); err != nil {
		l.logger.Debugf("Message rejected: %v", err)
	}
}

func (l *sessionLoop) teardown() {
	l.setState(StateClosing)
	if l.session != nil {
		// A session taken by a kick was already removed; any other miss means
		// the name now belongs to someone else, who must not be announced gone.
		if l.hub.dir.RemoveSession(l.session) || l.session.taken.Load() {
			name := l.session.Username
			l.hub.broadcaster.broadcastFrame(infoFrame(fmt.Sprintf("%s has left the chat.", name)))
			l.logger.Infof("User left. Total users: %d", l.hub.dir.Len())
		} else {
			l.logger.Debug("Session already removed from directory")
		}
	}
	if err := l.conn.Close(); err != nil {
		l.logger.Debugf("Error closing connection: %v", err)
	}
	l.setState(StateClosed)
}

// writeDirect sends a frame to a connection that has no session yet.
func (l *sessionLoop) writeDirect(f Frame) error {
	payload, err := encodeFrame(f)
	if err != nil {
		return err
	}
	return l.conn.WriteFrame(payload)
}

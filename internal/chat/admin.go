package chat

import (
	"errors"
	"fmt"
	"strings"
)

var errUnknownAction = errors.New("unknown admin action")

// HandleCommand applies a moderation command ("mute bob", "unmute bob",
// "kick bob") issued by actor. Any registered user may issue commands.
// Commands that cannot apply produce no frames; the returned error only says
// why nothing happened.
func (h *Hub) HandleCommand(command, actor string) error {
	parts := strings.Fields(command)
	if len(parts) < 2 {
		return ErrMalformedFrame
	}
	action, target := parts[0], parts[1]

	switch action {
	case "mute":
		return h.setMuted(actor, target, true)
	case "unmute":
		return h.setMuted(actor, target, false)
	case "kick":
		return h.kick(actor, target)
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, action)
	}
}

func (h *Hub) setMuted(actor, target string, muted bool) error {
	if err := h.dir.SetMuted(target, muted); err != nil {
		return err
	}

	verb := "muted"
	if !muted {
		verb = "unmuted"
	}
	h.logger.Infof("%s set muted=%t on %s", actor, muted, target)
	h.broadcaster.broadcastFrame(infoFrame(fmt.Sprintf("%s has been %s by %s.", target, verb, actor)))
	return nil
}

// kick drops target from the directory before closing its connection, so no
// frame reaches it afterwards. Its session loop still runs its own teardown.
func (h *Hub) kick(actor, target string) error {
	s, err := h.dir.Take(target)
	if err != nil {
		return err
	}
	if err := s.conn.Close(); err != nil {
		h.logger.Warnf("Error closing connection of kicked user %s: %v", target, err)
	}

	h.logger.Infof("%s kicked %s", actor, target)
	h.broadcaster.broadcastFrame(infoFrame(fmt.Sprintf("%s has been kicked out by %s.", target, actor)))
	return nil
}

package chat

import (
	"context"
	"time"
)

const historyTimeout = 5 * time.Second

// Route handles a non-command frame from an active session: public chat is
// broadcast and stored, private chat goes to the target and back to the
// sender. User-facing failures are answered with an error frame and returned.
func (h *Hub) Route(s *Session, in Inbound) error {
	if s.Muted() {
		h.reply(s, msgMuted)
		return ErrMuted
	}
	if in.Message == nil {
		h.reply(s, msgMessageNeeded)
		return ErrMalformedFrame
	}

	now := h.now()
	if !h.limiter.TryAdmit(s.Username, now, h.interval) {
		h.reply(s, msgTooFast)
		return ErrRateLimited
	}

	rec := ChatRecord{
		Username:  s.Username,
		Message:   *in.Message,
		Timestamp: FormatTime(now),
	}
	if in.To != nil {
		return h.routePrivate(s, *in.To, rec)
	}
	h.routePublic(rec)
	return nil
}

func (h *Hub) routePrivate(sender *Session, to string, rec ChatRecord) error {
	target, err := h.dir.Lookup(to)
	if err != nil {
		h.reply(sender, msgUserNotFound)
		return err
	}

	rec.Private = true
	payload, err := encodeFrame(chatFrame(rec))
	if err != nil {
		return err
	}
	if err := h.broadcaster.SendTo(target, payload); err != nil {
		h.logger.Warnf("Private message from %s not delivered: %v", sender.Username, err)
	}
	if err := h.broadcaster.SendTo(sender, payload); err != nil {
		h.logger.Warnf("Private message echo to %s failed: %v", sender.Username, err)
	}
	return nil
}

func (h *Hub) routePublic(rec ChatRecord) {
	h.broadcaster.broadcastFrame(chatFrame(rec))
	h.logger.Infof("[%s] %s: %s", rec.Timestamp, rec.Username, rec.Message)

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := h.history.Store(ctx, rec); err != nil {
		h.logger.Errorf("Failed to store chat message from %s: %v", rec.Username, err)
	}
}

func (h *Hub) reply(s *Session, msg string) {
	if err := h.broadcaster.sendFrame(s, errorFrame(msg)); err != nil {
		h.logger.Warnf("Error reply to %s failed: %v", s.Username, err)
	}
}

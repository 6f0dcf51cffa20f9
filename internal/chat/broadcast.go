package chat

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Broadcaster delivers frames to sessions in the Directory.
type Broadcaster struct {
	dir    *Directory
	logger log.FieldLogger
}

// NewBroadcaster creates a Broadcaster over dir.
func NewBroadcaster(dir *Directory, logger log.FieldLogger) *Broadcaster {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Broadcaster{dir: dir, logger: logger}
}

// SendTo writes frame to a single session and reports the failure, if any.
func (b *Broadcaster) SendTo(s *Session, frame []byte) error {
	if err := s.conn.WriteFrame(frame); err != nil {
		return fmt.Errorf("send to %s: %w", s.Username, err)
	}
	return nil
}

// BroadcastAll writes frame to every session currently in the Directory, one
// goroutine per recipient. A failed recipient is logged and skipped; the
// number of successful deliveries is returned.
func (b *Broadcaster) BroadcastAll(frame []byte) int {
	sessions := b.dir.Snapshot()
	errs := make([]error, len(sessions))

	var wg sync.WaitGroup
	wg.Add(len(sessions))
	for i, s := range sessions {
		go func() {
			defer wg.Done()
			errs[i] = b.SendTo(s, frame)
		}()
	}
	wg.Wait()

	delivered := 0
	for i, err := range errs {
		if err != nil {
			b.logger.WithField("user", sessions[i].Username).Warnf("Broadcast delivery failed: %v", err)
			continue
		}
		delivered++
	}
	b.logger.Debugf("Broadcast delivered to %d of %d sessions", delivered, len(sessions))
	return delivered
}

func (b *Broadcaster) broadcastFrame(f Frame) int {
	payload, err := encodeFrame(f)
	if err != nil {
		b.logger.Errorf("Dropping broadcast: %v", err)
		return 0
	}
	return b.BroadcastAll(payload)
}

func (b *Broadcaster) sendFrame(s *Session, f Frame) error {
	payload, err := encodeFrame(f)
	if err != nil {
		return err
	}
	return b.SendTo(s, payload)
}

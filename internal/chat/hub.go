package chat

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultMessageInterval is the minimum spacing between two chat messages
// from the same user.
const DefaultMessageInterval = time.Second

// Options configures a Hub. Zero values select defaults.
type Options struct {
	MessageInterval time.Duration
	History         HistorySink
	Logger          log.FieldLogger
	Now             func() time.Time
}

// Hub owns the shared chat state and runs one session loop per connection.
type Hub struct {
	dir         *Directory
	limiter     *RateLimiter
	broadcaster *Broadcaster
	history     HistorySink
	interval    time.Duration
	now         func() time.Time
	logger      log.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewHub creates a Hub ready to serve connections.
func NewHub(opts Options) *Hub {
	if opts.MessageInterval <= 0 {
		opts.MessageInterval = DefaultMessageInterval
	}
	if opts.History == nil {
		opts.History = discardHistory{}
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	dir := NewDirectory(opts.Now)
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		dir:         dir,
		limiter:     NewRateLimiter(),
		broadcaster: NewBroadcaster(dir, opts.Logger),
		history:     opts.History,
		interval:    opts.MessageInterval,
		now:         opts.Now,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Directory exposes the live user registry.
func (h *Hub) Directory() *Directory {
	return h.dir
}

// track registers a session loop with the shutdown wait group. It fails once
// Shutdown has begun.
func (h *Hub) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

// Shutdown stops accepting sessions, closes every live connection and waits
// for the session loops to finish or for timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("Initiating hub shutdown...")
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("Hub shutdown timeout reached, some sessions may still be running")
		return context.DeadlineExceeded
	}
}

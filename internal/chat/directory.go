package chat

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is the bidirectional frame channel a Session owns. Close must be safe
// to call from any goroutine and must unblock a pending ReadFrame.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
	RemoteAddr() string
}

// Session is one connected, registered client.
type Session struct {
	ID       uint64
	Username string
	JoinedAt time.Time

	conn  Conn
	muted atomic.Bool
	taken atomic.Bool
}

// Muted reports whether the session is currently muted.
func (s *Session) Muted() bool {
	return s.muted.Load()
}

// Conn returns the connection owned by the session.
func (s *Session) Conn() Conn {
	return s.conn
}

// Directory is the live registry of username to Session. All mutations are
// serialized by a single mutex.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	nextID   uint64
	now      func() time.Time
}

// NewDirectory creates an empty Directory. now stamps JoinedAt; nil means time.Now.
func NewDirectory(now func() time.Time) *Directory {
	if now == nil {
		now = time.Now
	}
	return &Directory{
		sessions: make(map[string]*Session),
		now:      now,
	}
}

// Register inserts a new Session for name, or returns ErrNameTaken.
func (d *Directory) Register(name string, conn Conn) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.sessions[name]; exists {
		return nil, ErrNameTaken
	}

	d.nextID++
	s := &Session{
		ID:       d.nextID,
		Username: name,
		JoinedAt: d.now(),
		conn:     conn,
	}
	d.sessions[name] = s
	return s, nil
}

// Lookup returns the live Session for name.
func (d *Directory) Lookup(name string) (*Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.sessions[name]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove deletes name. Removing an absent name is a no-op.
func (d *Directory) Remove(name string) {
	d.mu.Lock()
	delete(d.sessions, name)
	d.mu.Unlock()
}

// RemoveSession deletes s only while it is still the holder of its username,
// and reports whether it did.
func (d *Directory) RemoveSession(s *Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cur, ok := d.sessions[s.Username]; ok && cur == s {
		delete(d.sessions, s.Username)
		return true
	}
	return false
}

// Take removes name and returns the Session that held it, marking the
// session as taken so its own teardown still announces the departure.
func (d *Directory) Take(name string) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[name]
	if !ok {
		return nil, ErrNotFound
	}
	delete(d.sessions, name)
	s.taken.Store(true)
	return s, nil
}

// SetMuted sets the mute flag of name.
func (d *Directory) SetMuted(name string, muted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[name]
	if !ok {
		return ErrNotFound
	}
	s.muted.Store(muted)
	return nil
}

// Snapshot returns the live sessions in join order.
func (d *Directory) Snapshot() []*Session {
	d.mu.RLock()
	sessions := make([]*Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		sessions = append(sessions, s)
	}
	d.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID < sessions[j].ID
	})
	return sessions
}

// Len returns the number of live sessions.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

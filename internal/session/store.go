// Package session holds the short-lived in-process state of the chat flow:
// opaque session id → novel URL, and per-chat "next message is a chapter
// count" markers. Nothing here survives a restart; losing an entry only
// means the user resends the link.
package session

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SessionTTL is how long a stored URL stays resolvable.
	SessionTTL = time.Hour
	// PendingTTL is how long a custom-range prompt waits for a reply.
	PendingTTL = 10 * time.Minute

	sweepInterval = time.Minute
)

// Pending marks a chat whose next free-text message is a chapter count.
type Pending struct {
	SessionID string
	PromptMsg int
}

type urlEntry struct {
	url      string
	deadline time.Time
}

type pendingEntry struct {
	pending  Pending
	deadline time.Time
}

// Store owns both maps. Expiry is checked lazily on every lookup and a
// janitor sweeps the maps so idle entries do not pile up under sustained
// traffic. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	counter int
	urls    map[string]urlEntry
	pending map[int64]pendingEntry

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

func NewStore() *Store {
	s := &Store{
		urls:    make(map[string]urlEntry),
		pending: make(map[int64]pendingEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go s.janitor()

	return s
}

func (s *Store) janitor() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.urls {
		if now.After(e.deadline) {
			delete(s.urls, id)
		}
	}
	for chat, e := range s.pending {
		if now.After(e.deadline) {
			delete(s.pending, chat)
		}
	}
}

func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

// CreateSession records url under a fresh process-unique id and returns the
// id. Ids are short on purpose: they ride inside inline-button payloads.
func (s *Store) CreateSession(url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	id := fmt.Sprintf("s_%d", s.counter)
	s.urls[id] = urlEntry{url: url, deadline: s.now().Add(SessionTTL)}

	return id
}

// LookupSession returns the stored URL. Expired ids and ids that were never
// issued are indistinguishable.
func (s *Store) LookupSession(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.urls[id]
	if !ok || s.now().After(e.deadline) {
		delete(s.urls, id)
		return "", false
	}

	return e.url, true
}

// SetPendingRange upserts the marker for chatID, silently replacing any
// previous one. At most one custom-range request per chat at a time.
func (s *Store) SetPendingRange(chatID int64, sessionID string, promptMsg int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[chatID] = pendingEntry{
		pending:  Pending{SessionID: sessionID, PromptMsg: promptMsg},
		deadline: s.now().Add(PendingTTL),
	}
}

func (s *Store) GetPendingRange(chatID int64) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[chatID]
	if !ok || s.now().After(e.deadline) {
		delete(s.pending, chatID)
		return Pending{}, false
	}

	return e.pending, true
}

// ClearPendingRange is idempotent.
func (s *Store) ClearPendingRange(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, chatID)
}

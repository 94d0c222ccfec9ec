package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()

	now := time.Now()
	s := NewStore()
	s.now = func() time.Time { return now }
	t.Cleanup(s.Close)

	return s, &now
}

func TestCreateAndLookupSession(t *testing.T) {
	s, _ := newTestStore(t)

	id := s.CreateSession("https://example.org/novel/1")
	require.NotEmpty(t, id)

	url, ok := s.LookupSession(id)
	require.True(t, ok)
	assert.Equal(t, "https://example.org/novel/1", url)
}

func TestSessionIDsAreUnique(t *testing.T) {
	s, _ := newTestStore(t)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := s.CreateSession(fmt.Sprintf("https://example.org/%d", i))
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestLookupSession_NeverIssued(t *testing.T) {
	s, _ := newTestStore(t)

	_, ok := s.LookupSession("s_42")
	assert.False(t, ok)
}

func TestLookupSession_Expired(t *testing.T) {
	s, now := newTestStore(t)

	id := s.CreateSession("https://example.org/novel/1")

	*now = now.Add(SessionTTL + time.Second)

	_, ok := s.LookupSession(id)
	assert.False(t, ok, "expired id must be indistinguishable from never issued")
}

func TestPendingRange_Upsert(t *testing.T) {
	s, _ := newTestStore(t)

	s.SetPendingRange(7, "s_1", 100)
	s.SetPendingRange(7, "s_2", 200)

	p, ok := s.GetPendingRange(7)
	require.True(t, ok)
	assert.Equal(t, "s_2", p.SessionID, "second marker replaces the first")
	assert.Equal(t, 200, p.PromptMsg)
}

func TestPendingRange_Expiry(t *testing.T) {
	s, now := newTestStore(t)

	s.SetPendingRange(7, "s_1", 100)

	*now = now.Add(PendingTTL + time.Second)

	_, ok := s.GetPendingRange(7)
	assert.False(t, ok)
}

func TestPendingRange_PerChat(t *testing.T) {
	s, _ := newTestStore(t)

	s.SetPendingRange(1, "s_1", 10)
	s.SetPendingRange(2, "s_2", 20)

	p1, ok := s.GetPendingRange(1)
	require.True(t, ok)
	assert.Equal(t, "s_1", p1.SessionID)

	p2, ok := s.GetPendingRange(2)
	require.True(t, ok)
	assert.Equal(t, "s_2", p2.SessionID)
}

func TestClearPendingRange_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)

	s.SetPendingRange(7, "s_1", 100)
	s.ClearPendingRange(7)
	s.ClearPendingRange(7)

	_, ok := s.GetPendingRange(7)
	assert.False(t, ok)
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	s, now := newTestStore(t)

	id := s.CreateSession("https://example.org/a")
	s.SetPendingRange(1, id, 5)

	*now = now.Add(2 * SessionTTL)
	s.sweep()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.urls)
	assert.Empty(t, s.pending)
}

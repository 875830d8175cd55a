package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/google/uuid"
)

type session struct {
	token     string
	accountID int64
	expiresAt time.Time
}

// SessionStore maps opaque bearer tokens to account IDs. Sessions expire
// after a fixed TTL; expired sessions are refused on lookup and swept from
// memory by the goroutine started with Start.
type SessionStore struct {
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	byExpiry []*session // sorted by expiresAt ASC
}

// NewSessionStore creates a SessionStore whose sweeper, once started, runs
// every interval.
func NewSessionStore(ttl, interval time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Create opens a session for accountID and returns its token.
func (s *SessionStore) Create(accountID int64) (string, time.Time) {
	sess := &session{
		token:     uuid.NewString(),
		accountID: accountID,
		expiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.token] = sess
	idx := sort.Search(len(s.byExpiry), func(i int) bool {
		return s.byExpiry[i].expiresAt.After(sess.expiresAt)
	})
	s.byExpiry = append(s.byExpiry, nil)
	copy(s.byExpiry[idx+1:], s.byExpiry[idx:])
	s.byExpiry[idx] = sess
	return sess.token, sess.expiresAt
}

// Resolve returns the account behind token.
func (s *SessionStore) Resolve(token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || !s.now().Before(sess.expiresAt) {
		return 0, domain.ErrSessionNotFound
	}
	return sess.accountID, nil
}

// End closes one session. Unknown tokens are ignored.
func (s *SessionStore) End(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// EndAll closes every session of accountID.
func (s *SessionStore) EndAll(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if sess.accountID == accountID {
			delete(s.sessions, token)
		}
	}
}

// Start launches a background goroutine that ticks at the configured
// interval and drops expired sessions. It stops when ctx is cancelled.
func (s *SessionStore) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(s.now())
			}
		}
	}()
}

// sweep drops every session that expired at or before now, along with
// index entries of sessions already ended.
func (s *SessionStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := 0
	for cutoff < len(s.byExpiry) && !s.byExpiry[cutoff].expiresAt.After(now) {
		sess := s.byExpiry[cutoff]
		if cur, ok := s.sessions[sess.token]; ok && cur == sess {
			delete(s.sessions, sess.token)
		}
		cutoff++
	}
	if cutoff > 0 {
		s.byExpiry = s.byExpiry[cutoff:]
	}
}

// Len returns the number of sessions currently held.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

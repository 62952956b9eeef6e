package resolution

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Store holds one session's answers for players missing from the stats data:
// either a substitution (use another player's scores) or an ignore (drop the
// player from every numerator and denominator). A player has at most one
// active resolution type; setting one clears the other.
type Store struct {
	mu      sync.RWMutex
	subs    map[string]string
	ignored map[string]struct{}
}

// NewStore creates an empty resolution store.
func NewStore() *Store {
	return &Store{
		subs:    make(map[string]string),
		ignored: make(map[string]struct{}),
	}
}

// SetSubstitution records replacement as the player to score in place of
// player. A blank replacement is the "ignore" answer from the resolution
// dialog and is treated as SetIgnored. The replacement is not validated here:
// whether it actually has a score is decided per game during recompute.
func (s *Store) SetSubstitution(player, replacement string) {
	player = strings.TrimSpace(player)
	replacement = strings.TrimSpace(replacement)
	if player == "" {
		return
	}
	if replacement == "" {
		s.SetIgnored(player)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ignored, player)
	s.subs[player] = replacement
}

// SetIgnored excludes the player from all computations.
func (s *Store) SetIgnored(player string) {
	player = strings.TrimSpace(player)
	if player == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, player)
	s.ignored[player] = struct{}{}
}

// Clear removes any resolution for the player.
func (s *Store) Clear(player string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, player)
	delete(s.ignored, player)
}

// IsIgnored reports whether the player is excluded from computations.
func (s *Store) IsIgnored(player string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ignored[player]
	return ok
}

// SubstitutionFor returns the active replacement for a player, if any.
func (s *Store) SubstitutionFor(player string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[player]
	return sub, ok
}

// Substitutions returns a copy of the substitution map.
func (s *Store) Substitutions() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.subs))
	for k, v := range s.subs {
		out[k] = v
	}
	return out
}

// Ignored returns the sorted ignored player names.
func (s *Store) Ignored() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ignored))
	for p := range s.ignored {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// session pairs a store with its last-use time for idle expiry.
type session struct {
	store    *Store
	lastSeen time.Time
}

// Registry owns one Store per dashboard session. Resolution choices made in
// one browser never leak into another: the engine only ever sees the store
// the transport layer hands it.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// Get returns the store for a session token, creating it on first use.
func (r *Registry) Get(token string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[token]
	if !ok {
		sess = &session{store: NewStore()}
		r.sessions[token] = sess
	}
	sess.lastSeen = time.Now()
	return sess.store
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// PurgeIdle drops sessions unused for longer than ttl and returns how many
// were removed.
func (r *Registry) PurgeIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, sess := range r.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed
}

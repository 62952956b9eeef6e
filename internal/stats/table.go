package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Table is an immutable snapshot of the loaded statistics: game key to
// (player name to points). Recomputes read a snapshot, so concurrent requests
// never need locking. Absence of a player key means "no score", which is
// distinct from a score of zero.
type Table struct {
	scores map[string]map[string]float64
}

// NewTable builds a Table from a game-keyed score map. The map is owned by the
// table afterwards; callers must not mutate it.
func NewTable(scores map[string]map[string]float64) *Table {
	if scores == nil {
		scores = map[string]map[string]float64{}
	}
	return &Table{scores: scores}
}

// Score returns the points for a player in a game and whether an entry exists.
func (t *Table) Score(gameKey, player string) (float64, bool) {
	pts, ok := t.scores[gameKey][player]
	return pts, ok
}

// Rows returns how many players have an entry for a game.
func (t *Table) Rows(gameKey string) int {
	return len(t.scores[gameKey])
}

// Players returns the sorted union of player names across all games. The
// dashboard offers this as the candidate list when resolving missing players.
func (t *Table) Players() []string {
	var names []string
	for _, byPlayer := range t.scores {
		names = append(names, lo.Keys(byPlayer)...)
	}
	names = lo.Uniq(names)
	sort.Strings(names)
	return names
}

// merged returns a copy of the table with per-game score updates applied.
func (t *Table) merged(updates map[string]map[string]float64) *Table {
	scores := make(map[string]map[string]float64, len(t.scores))
	for game, byPlayer := range t.scores {
		scores[game] = lo.Assign(map[string]float64{}, byPlayer)
	}
	for game, byPlayer := range updates {
		if scores[game] == nil {
			scores[game] = map[string]float64{}
		}
		for player, pts := range byPlayer {
			scores[game][player] = pts
		}
	}
	return NewTable(scores)
}

// Store holds the current Table and swaps it atomically on reload or
// warehouse sync. Readers take a snapshot and never block each other.
type Store struct {
	mu          sync.RWMutex
	table       *Table
	lastUpdated time.Time
}

// NewStore creates a Store around an initial table.
func NewStore(table *Table, lastUpdated time.Time) *Store {
	return &Store{table: table, lastUpdated: lastUpdated}
}

// Table returns the current immutable snapshot.
func (s *Store) Table() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// LastUpdated returns when the statistics were last refreshed.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Replace swaps in a freshly loaded table.
func (s *Store) Replace(table *Table, updated time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	s.lastUpdated = updated
}

// Merge applies per-game score updates from an external source (the warehouse
// sync) on top of the current snapshot.
func (s *Store) Merge(updates map[string]map[string]float64) {
	if len(updates) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = s.table.merged(updates)
	s.lastUpdated = time.Now()
}

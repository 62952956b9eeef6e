package engine

import (
	"sort"
	"strings"

	"github.com/tht-tools/team-balancer/internal/models"
)

// ScoreSource is a read-only view of the loaded statistics.
type ScoreSource interface {
	Score(gameKey, player string) (float64, bool)
}

// Resolutions is the session's answers for players missing from the stats
// data. The engine never mutates it.
type Resolutions interface {
	IsIgnored(player string) bool
	SubstitutionFor(player string) (string, bool)
}

// Result is the outcome of one recompute. Missing and the computed fields are
// mutually exclusive: when Missing is non-empty nothing else is populated.
type Result struct {
	// Missing holds the sorted roster names that have no score and no
	// resolution in at least one game.
	Missing []string

	// Averages maps game key to per-team averages, in fixed team order.
	Averages map[string][]float64

	// Diffs holds, per team (fixed order), the differential for each
	// non-Overall enabled game in configured order.
	Diffs [][]float64
}

// Unresolved reports whether the roster still needs missing-player answers.
func (r *Result) Unresolved() bool { return len(r.Missing) > 0 }

// Engine computes team averages and differentials for a fixed team order over
// a configured game list. It is stateless; everything request-scoped arrives
// as arguments, so concurrent calls are safe.
type Engine struct {
	games []models.Game
	teams []string
	spans map[models.GameClass]int
}

// New builds an engine for the given game configuration and team order.
// Disabled games are dropped here so callers can pass the raw config list.
func New(games []models.Game, teams []string) *Engine {
	spans := map[models.GameClass]int{}
	enabled := make([]models.Game, 0, len(games))
	for _, g := range games {
		if !g.Enabled {
			continue
		}
		enabled = append(enabled, g)
		if g.Role == models.RoleRegular && g.Class != models.ClassNone {
			spans[g.Class]++
		}
	}

	return &Engine{games: enabled, teams: teams, spans: spans}
}

// Recompute evaluates a roster against the score source and the session's
// resolutions.
//
// Every roster name is resolved per game: ignored players are skipped
// outright, substituted players score as their replacement when the
// replacement has an entry in that game, and otherwise the original name goes
// into the missing set. A substitution without coverage in some game is not
// silently zero; it stays missing for that game and the caller must resolve it
// again. The missing set is collected across the whole pass, so one call
// reports everything at once.
//
// If anything is missing the result carries only the missing names. Otherwise
// averages divide by the count of scored participants (never roster size) and
// differentials compare each team's total against the mean total of all teams,
// for every game except the Overall aggregate.
func (e *Engine) Recompute(src ScoreSource, roster models.Roster, res Resolutions) *Result {
	type cell struct {
		total float64
		count int
	}

	totals := make(map[string][]cell, len(e.games))
	missing := map[string]struct{}{}

	for _, game := range e.games {
		cells := make([]cell, len(e.teams))

		for ti, team := range e.teams {
			for _, raw := range roster[team] {
				player := strings.TrimSpace(raw)
				if player == "" {
					continue
				}

				if res != nil && res.IsIgnored(player) {
					continue
				}

				if sub, ok := subFor(res, player); ok {
					if pts, ok := src.Score(game.Key, sub); ok {
						cells[ti].total += pts
						cells[ti].count++
					} else {
						missing[player] = struct{}{}
					}
					continue
				}

				if pts, ok := src.Score(game.Key, player); ok {
					cells[ti].total += pts
					cells[ti].count++
				} else {
					missing[player] = struct{}{}
				}
			}
		}

		totals[game.Key] = cells
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for p := range missing {
			names = append(names, p)
		}
		sort.Strings(names)
		return &Result{Missing: names}
	}

	averages := make(map[string][]float64, len(e.games))
	for _, game := range e.games {
		cells := totals[game.Key]
		avgs := make([]float64, len(cells))
		for i, c := range cells {
			denom := c.count
			if game.Role == models.RoleAggregate && game.AverageOverSpan {
				denom = c.count * e.spans[game.Aggregates]
			}
			avgs[i] = Average(c.total, denom)
		}
		averages[game.Key] = avgs
	}

	diffs := make([][]float64, len(e.teams))
	for i := range diffs {
		diffs[i] = []float64{}
	}
	for _, game := range e.games {
		if game.IsOverall() {
			continue
		}
		cells := totals[game.Key]
		gameTotals := make([]float64, len(cells))
		for i, c := range cells {
			gameTotals[i] = c.total
		}
		fieldAvg := FieldAverage(gameTotals)
		for i := range e.teams {
			diffs[i] = append(diffs[i], Differential(gameTotals[i], fieldAvg))
		}
	}

	return &Result{Averages: averages, Diffs: diffs}
}

// DiffGameCount returns how many games contribute to differentials.
func (e *Engine) DiffGameCount() int {
	n := 0
	for _, g := range e.games {
		if !g.IsOverall() {
			n++
		}
	}
	return n
}

func subFor(res Resolutions, player string) (string, bool) {
	if res == nil {
		return "", false
	}
	return res.SubstitutionFor(player)
}

package models

// GameRole classifies what a game's scores represent. Exactly one role applies
// to a game, which keeps combinations like "overall and also an aggregate of a
// subset" unrepresentable.
type GameRole int

const (
	// RoleRegular is a single played game mode.
	RoleRegular GameRole = iota
	// RoleOverall is the tournament-wide aggregate category. It appears in the
	// per-game averages grid but is excluded from differentials.
	RoleOverall
	// RoleAggregate sums a class of regular games (PvP, non-PvP).
	RoleAggregate
)

// GameClass groups regular games for aggregation purposes.
type GameClass string

const (
	ClassNone   GameClass = ""
	ClassPvP    GameClass = "pvp"
	ClassNonPvP GameClass = "nonpvp"
)

// Game is one scoring category. The configured order of games is significant:
// it drives chart layout and the differential subsequence.
type Game struct {
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	ShortLabel string    `json:"shortLabel"`
	CSV        string    `json:"-"`
	Role       GameRole  `json:"-"`
	Class      GameClass `json:"-"`
	// Aggregates names the class an aggregate game sums. Only meaningful when
	// Role is RoleAggregate.
	Aggregates GameClass `json:"-"`
	// AverageOverSpan divides an aggregate game's per-player average by the
	// number of games in the aggregated class, so the figure stays on a
	// per-game scale. The PvP sheet already stores per-game figures, the
	// non-PvP one does not.
	AverageOverSpan bool `json:"-"`
	Enabled         bool `json:"-"`
}

// IsOverall reports whether this game is the Overall aggregate category.
func (g Game) IsOverall() bool { return g.Role == RoleOverall }

// TeamInfo describes one of the four fixed team identities.
type TeamInfo struct {
	Name string `json:"name"`
	// Hex is the display color, e.g. "#ff5050".
	Hex string `json:"color"`
	R   uint8  `json:"-"`
	G   uint8  `json:"-"`
	B   uint8  `json:"-"`
}

// Roster maps team name to an ordered list of player names.
type Roster map[string][]string

// Board is a saved team setup: a roster plus the resolution choices that were
// active when it was saved.
type Board struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Roster        Roster            `json:"roster"`
	Substitutions map[string]string `json:"substitutions,omitempty"`
	Ignored       []string          `json:"ignored,omitempty"`
	CreatedAt     int64             `json:"createdAt"`
}

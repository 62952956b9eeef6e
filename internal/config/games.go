package config

import "github.com/tht-tools/team-balancer/internal/models"

// Games is the ordered tournament game list. Order matters: it is the chart
// grid order, and the non-Overall subsequence is the differential order.
var Games = []models.Game{
	{Key: "overall", Name: "Overall", ShortLabel: "All", CSV: "overall.csv", Role: models.RoleOverall, Enabled: true},
	{Key: "bedwars", Name: "Bedwars", ShortLabel: "BW", CSV: "bedwars.csv", Role: models.RoleRegular, Class: models.ClassPvP, Enabled: true},
	{Key: "bridge_duels", Name: "Bridge Duels", ShortLabel: "BD", CSV: "bridgeDuels.csv", Role: models.RoleRegular, Class: models.ClassPvP, Enabled: true},
	{Key: "build_battle", Name: "Build Battle", ShortLabel: "BB", CSV: "buildBattle.csv", Role: models.RoleRegular, Class: models.ClassNonPvP, Enabled: true},
	{Key: "mini_walls", Name: "Mini Walls", ShortLabel: "MW", CSV: "miniWalls.csv", Role: models.RoleRegular, Class: models.ClassPvP, Enabled: true},
	{Key: "parkour_duels", Name: "Parkour Duels", ShortLabel: "PD", CSV: "parkourDuels.csv", Role: models.RoleRegular, Class: models.ClassNonPvP, Enabled: true},
	{Key: "party_games", Name: "Party Games", ShortLabel: "PG", CSV: "partyGames.csv", Role: models.RoleRegular, Class: models.ClassNonPvP, Enabled: true},
	{Key: "skywars", Name: "Skywars", ShortLabel: "SW", CSV: "skywars.csv", Role: models.RoleRegular, Class: models.ClassPvP, Enabled: true},
	{Key: "survival_games", Name: "Survival Games", ShortLabel: "SG", CSV: "survivalGames.csv", Role: models.RoleRegular, Class: models.ClassPvP, Enabled: false},
	{Key: "uhc_duels", Name: "UHC Duels", ShortLabel: "UD", CSV: "uhcDuels.csv", Role: models.RoleRegular, Class: models.ClassPvP, Enabled: true},
	{Key: "wobtafitv", Name: "WOBTAFITV", ShortLabel: "WO", CSV: "wobtafitv.csv", Role: models.RoleRegular, Class: models.ClassNonPvP, Enabled: true},
	{Key: "pvp", Name: "PvP", ShortLabel: "PvP", CSV: "pvp.csv", Role: models.RoleAggregate, Aggregates: models.ClassPvP, Enabled: true},
	{Key: "non_pvp", Name: "Non-PvP", ShortLabel: "nP", CSV: "nonPvP.csv", Role: models.RoleAggregate, Aggregates: models.ClassNonPvP, AverageOverSpan: true, Enabled: true},
}

// Teams is the fixed four-team order used everywhere: charts, averages arrays
// and differential indexes.
var Teams = []models.TeamInfo{
	{Name: "Red", Hex: "#ff5050", R: 255, G: 80, B: 80},
	{Name: "Yellow", Hex: "#ffdc78", R: 255, G: 220, B: 120},
	{Name: "Green", Hex: "#78dc78", R: 120, G: 220, B: 120},
	{Name: "Blue", Hex: "#78b4ff", R: 120, G: 180, B: 255},
}

// EnabledGames returns the games shown on the dashboard, in configured order.
func EnabledGames() []models.Game {
	out := make([]models.Game, 0, len(Games))
	for _, g := range Games {
		if g.Enabled {
			out = append(out, g)
		}
	}
	return out
}

// DiffGames returns the enabled games included in differential charts, i.e.
// everything except the Overall aggregate.
func DiffGames() []models.Game {
	out := make([]models.Game, 0, len(Games))
	for _, g := range Games {
		if g.Enabled && !g.IsOverall() {
			out = append(out, g)
		}
	}
	return out
}

// ClassSpan returns the number of enabled regular games in a class. Aggregate
// games with AverageOverSpan divide their per-player averages by this.
func ClassSpan(class models.GameClass) int {
	n := 0
	for _, g := range Games {
		if g.Enabled && g.Role == models.RoleRegular && g.Class == class {
			n++
		}
	}
	return n
}

// TeamNames returns the four team names in fixed order.
func TeamNames() []string {
	names := make([]string, len(Teams))
	for i, t := range Teams {
		names[i] = t.Name
	}
	return names
}

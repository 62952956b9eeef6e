package handlers

import (
	"strings"

	"github.com/samber/lo"

	"github.com/tht-tools/team-balancer/internal/models"
)

// normalizeRoster cleans a client-posted roster: unknown team names are
// dropped, player names are trimmed, blanks removed, and duplicates within a
// team collapsed. Every configured team is present in the result even when
// the client sent nothing for it.
func normalizeRoster(raw map[string][]string, teams []string) models.Roster {
	roster := make(models.Roster, len(teams))

	for _, team := range teams {
		cleaned := make([]string, 0, len(raw[team]))
		for _, name := range raw[team] {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			cleaned = append(cleaned, name)
		}
		roster[team] = lo.Uniq(cleaned)
	}

	return roster
}

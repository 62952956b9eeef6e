package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tht-tools/team-balancer/internal/logger"
	"github.com/tht-tools/team-balancer/internal/models"
)

// LoadDir reads one CSV per enabled game from dir and returns the table plus
// the newest file mtime. A missing file logs a warning and yields an empty
// game map rather than failing the whole load; the sheet export writes files
// per game and a partially exported directory should still serve.
func LoadDir(dir string, games []models.Game) (*Table, time.Time, error) {
	scores := make(map[string]map[string]float64, len(games))
	var newest time.Time

	for _, game := range games {
		if !game.Enabled {
			continue
		}
		path := filepath.Join(dir, game.CSV)

		info, err := os.Stat(path)
		if err != nil {
			logger.Warn("Stats CSV not found", "game", game.Key, "path", path)
			scores[game.Key] = map[string]float64{}
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to open stats for %s: %w", game.Key, err)
		}
		byPlayer, err := parseScores(f)
		f.Close()
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to parse stats for %s: %w", game.Key, err)
		}

		scores[game.Key] = byPlayer
		logger.Info("Loaded stats", "game", game.Key, "rows", len(byPlayer))
	}

	return NewTable(scores), newest, nil
}

// parseScores reads Player,Points rows. The header row is optional, comment
// rows start with '#', blank names and unparseable point cells are skipped,
// and thousands separators inside numbers are tolerated.
func parseScores(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	byPlayer := map[string]float64{}
	first := true

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		player := strings.TrimSpace(row[0])

		if first {
			first = false
			if strings.EqualFold(player, "player") {
				continue
			}
		}

		if player == "" || strings.HasPrefix(player, "#") {
			continue
		}

		var ptsStr string
		if len(row) > 1 {
			ptsStr = strings.TrimSpace(row[1])
		}
		if ptsStr == "" || strings.HasPrefix(ptsStr, "#") {
			continue
		}

		ptsStr = strings.ReplaceAll(ptsStr, ",", "")
		pts, err := strconv.ParseFloat(ptsStr, 64)
		if err != nil {
			continue
		}

		byPlayer[player] = pts
	}

	return byPlayer, nil
}

package stats

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tht-tools/team-balancer/internal/models"
)

func TestParseScores(t *testing.T) {
	input := strings.Join([]string{
		"Player,Points",
		"Alice,100",
		"# mid-season note",
		"Bob,\"1,250\"",
		",42",
		"Carol,",
		"Dave,not-a-number",
		"  Eve  ,3.5",
	}, "\n")

	got, err := parseScores(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseScores: %v", err)
	}

	want := map[string]float64{
		"Alice": 100,
		"Bob":   1250,
		"Eve":   3.5,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseScores = %v, want %v", got, want)
	}
}

func TestParseScoresNoHeader(t *testing.T) {
	got, err := parseScores(strings.NewReader("Alice,10\nBob,20\n"))
	if err != nil {
		t.Fatalf("parseScores: %v", err)
	}
	if got["Alice"] != 10 || got["Bob"] != 20 {
		t.Errorf("parseScores = %v", got)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	writeFile := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFile("bedwars.csv", "Player,Points\nAlice,10\nBob,20\n")
	writeFile("skywars.csv", "Alice,5\n")

	games := []models.Game{
		{Key: "bedwars", CSV: "bedwars.csv", Role: models.RoleRegular, Enabled: true},
		{Key: "skywars", CSV: "skywars.csv", Role: models.RoleRegular, Enabled: true},
		{Key: "missing", CSV: "missing.csv", Role: models.RoleRegular, Enabled: true},
		{Key: "disabled", CSV: "disabled.csv", Role: models.RoleRegular, Enabled: false},
	}

	table, updated, err := LoadDir(dir, games)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	if pts, ok := table.Score("bedwars", "Bob"); !ok || pts != 20 {
		t.Errorf("bedwars/Bob = %v, %v; want 20, true", pts, ok)
	}
	if pts, ok := table.Score("skywars", "Alice"); !ok || pts != 5 {
		t.Errorf("skywars/Alice = %v, %v; want 5, true", pts, ok)
	}

	// A missing file yields an empty game, not an error.
	if _, ok := table.Score("missing", "Alice"); ok {
		t.Error("missing game should have no entries")
	}
	if table.Rows("missing") != 0 {
		t.Errorf("missing game rows = %d, want 0", table.Rows("missing"))
	}

	if updated.IsZero() {
		t.Error("LoadDir should report the newest file mtime")
	}

	want := []string{"Alice", "Bob"}
	if !reflect.DeepEqual(table.Players(), want) {
		t.Errorf("Players = %v, want %v", table.Players(), want)
	}
}

func TestScoreDistinguishesZeroFromAbsent(t *testing.T) {
	table := NewTable(map[string]map[string]float64{
		"x": {"Alice": 0},
	})

	if pts, ok := table.Score("x", "Alice"); !ok || pts != 0 {
		t.Errorf("Alice = %v, %v; want 0, true", pts, ok)
	}
	if _, ok := table.Score("x", "Bob"); ok {
		t.Error("absent player must report no entry")
	}
}

func TestStoreReplaceAndMerge(t *testing.T) {
	store := NewStore(NewTable(map[string]map[string]float64{
		"x": {"Alice": 1},
	}), time.Time{})

	store.Merge(map[string]map[string]float64{
		"x": {"Alice": 2, "Bob": 7},
		"y": {"Carol": 3},
	})

	table := store.Table()
	if pts, _ := table.Score("x", "Alice"); pts != 2 {
		t.Errorf("merged Alice = %v, want 2", pts)
	}
	if pts, _ := table.Score("x", "Bob"); pts != 7 {
		t.Errorf("merged Bob = %v, want 7", pts)
	}
	if pts, _ := table.Score("y", "Carol"); pts != 3 {
		t.Errorf("merged Carol = %v, want 3", pts)
	}
	if store.LastUpdated().IsZero() {
		t.Error("Merge should bump LastUpdated")
	}

	fresh := NewTable(map[string]map[string]float64{"z": {"Dan": 9}})
	now := time.Now()
	store.Replace(fresh, now)
	if store.Table() != fresh {
		t.Error("Replace should swap the table")
	}
	if !store.LastUpdated().Equal(now) {
		t.Error("Replace should set LastUpdated")
	}
}

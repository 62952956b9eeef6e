package store

import (
	"errors"
	"testing"

	"github.com/tht-tools/team-balancer/internal/models"
)

func TestMemoryStoreSaveAssignsIDAndTimestamp(t *testing.T) {
	m := NewMemoryStore()

	saved, err := m.Save(&models.Board{
		Name:   "finals",
		Roster: models.Roster{"Red": {"Alice"}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" {
		t.Error("Save should assign an id")
	}
	if saved.CreatedAt == 0 {
		t.Error("Save should assign a creation time")
	}

	got, err := m.Get(saved.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "finals" {
		t.Errorf("Name = %q, want finals", got.Name)
	}
	if len(got.Roster["Red"]) != 1 || got.Roster["Red"][0] != "Alice" {
		t.Errorf("Roster = %v", got.Roster)
	}
}

func TestMemoryStoreSaveKeepsExistingID(t *testing.T) {
	m := NewMemoryStore()

	first, _ := m.Save(&models.Board{Name: "v1"})
	first.Name = "v2"
	second, err := m.Save(first)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if second.ID != first.ID {
		t.Error("re-saving must keep the id")
	}

	boards, _ := m.List()
	if len(boards) != 1 {
		t.Fatalf("List returned %d boards, want 1", len(boards))
	}
	if boards[0].Name != "v2" {
		t.Errorf("Name = %q, want v2", boards[0].Name)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	m := NewMemoryStore()

	m.Save(&models.Board{Name: "older", CreatedAt: 100})
	m.Save(&models.Board{Name: "newer", CreatedAt: 200})

	boards, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(boards) != 2 || boards[0].Name != "newer" {
		t.Errorf("List order = %v", boards)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	m := NewMemoryStore()

	saved, _ := m.Save(&models.Board{Name: "temp"})
	if err := m.Delete(saved.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := m.Delete("board_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete unknown = %v, want ErrNotFound", err)
	}
}

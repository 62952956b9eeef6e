package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tht-tools/team-balancer/internal/models"
)

// SQLiteStore implements BoardStore on a local SQLite file. Rosters and
// resolution snapshots are stored as JSON columns; boards are small and never
// queried by their contents.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the board database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS boards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		roster TEXT NOT NULL,
		substitutions TEXT NOT NULL DEFAULT '{}',
		ignored TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to init board schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List() ([]models.Board, error) {
	rows, err := s.db.Query(`
		SELECT id, name, roster, substitutions, ignored, created_at
		FROM boards ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := []models.Board{}
	for rows.Next() {
		b, err := scanBoard(rows.Scan)
		if err != nil {
			return nil, err
		}
		boards = append(boards, *b)
	}
	return boards, rows.Err()
}

func (s *SQLiteStore) Get(id string) (*models.Board, error) {
	row := s.db.QueryRow(`
		SELECT id, name, roster, substitutions, ignored, created_at
		FROM boards WHERE id = ?
	`, id)

	b, err := scanBoard(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *SQLiteStore) Save(board *models.Board) (*models.Board, error) {
	if board.ID == "" {
		board.ID = genID("board")
	}
	if board.CreatedAt == 0 {
		board.CreatedAt = time.Now().UnixMilli()
	}

	rosterJSON, subsJSON, ignoredJSON, err := marshalBoard(board)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO boards (id, name, roster, substitutions, ignored, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, board.ID, board.Name, rosterJSON, subsJSON, ignoredJSON, board.CreatedAt)
	if err != nil {
		return nil, err
	}

	return board, nil
}

func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM boards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalBoard(b *models.Board) (roster, subs, ignored string, err error) {
	rosterB, err := json.Marshal(b.Roster)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal roster: %w", err)
	}
	subsMap := b.Substitutions
	if subsMap == nil {
		subsMap = map[string]string{}
	}
	subsB, err := json.Marshal(subsMap)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal substitutions: %w", err)
	}
	ignoredList := b.Ignored
	if ignoredList == nil {
		ignoredList = []string{}
	}
	ignoredB, err := json.Marshal(ignoredList)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal ignores: %w", err)
	}
	return string(rosterB), string(subsB), string(ignoredB), nil
}

func scanBoard(scan func(...any) error) (*models.Board, error) {
	var b models.Board
	var rosterJSON, subsJSON, ignoredJSON string
	if err := scan(&b.ID, &b.Name, &rosterJSON, &subsJSON, &ignoredJSON, &b.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rosterJSON), &b.Roster); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster: %w", err)
	}
	if err := json.Unmarshal([]byte(subsJSON), &b.Substitutions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal substitutions: %w", err)
	}
	if err := json.Unmarshal([]byte(ignoredJSON), &b.Ignored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ignores: %w", err)
	}
	return &b, nil
}

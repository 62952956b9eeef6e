package store

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/tht-tools/team-balancer/internal/models"
)

// PostgresStore implements BoardStore on PostgreSQL for deployments where
// multiple organizers share saved boards.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects and initializes the board table.
func NewPostgresStore(connString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS boards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		roster JSONB NOT NULL,
		substitutions JSONB NOT NULL DEFAULT '{}',
		ignored JSONB NOT NULL DEFAULT '[]',
		created_at BIGINT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) List() ([]models.Board, error) {
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

func (s *PostgresStore) Get(id string) (*models.Board, error) {
	row := s.db.QueryRow(`
		SELECT id, name, roster, substitutions, ignored, created_at
		FROM boards WHERE id = $1
	`, id)

	b, err := scanBoard(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *PostgresStore) Save(board *models.Board) (*models.Board, error) {
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
		INSERT INTO boards (id, name, roster, substitutions, ignored, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			roster = EXCLUDED.roster,
			substitutions = EXCLUDED.substitutions,
			ignored = EXCLUDED.ignored
	`, board.ID, board.Name, rosterJSON, subsJSON, ignoredJSON, board.CreatedAt)
	if err != nil {
		return nil, err
	}

	return board, nil
}

func (s *PostgresStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

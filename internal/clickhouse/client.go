package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Client reads tournament scores from the ClickHouse warehouse where the
// scorekeeping pipeline lands per-game results. The dashboard merges these
// on top of the CSV snapshot so standings stay current during the event.
type Client struct {
	conn driver.Conn
}

// NewClient connects to ClickHouse and verifies the connection.
func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Client{conn: conn}, nil
}

// FetchScores returns the summed points per player for one game.
func (c *Client) FetchScores(ctx context.Context, gameKey string) (map[string]float64, error) {
	scores := make(map[string]float64)

	query := `
		SELECT player, toFloat64(sum(points)) AS total
		FROM game_scores
		WHERE game = $1
		GROUP BY player
	`

	rows, err := c.conn.Query(ctx, query, gameKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var player string
		var total float64
		if err := rows.Scan(&player, &total); err != nil {
			return nil, err
		}
		scores[player] = total
	}

	return scores, nil
}

// FetchAllScores returns summed points per player for every game that has
// rows in the warehouse, keyed game -> player -> total.
func (c *Client) FetchAllScores(ctx context.Context) (map[string]map[string]float64, error) {
	all := make(map[string]map[string]float64)

	query := `
		SELECT game, player, toFloat64(sum(points)) AS total
		FROM game_scores
		GROUP BY game, player
	`

	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var game, player string
		var total float64
		if err := rows.Scan(&game, &player, &total); err != nil {
			return nil, err
		}
		if all[game] == nil {
			all[game] = make(map[string]float64)
		}
		all[game][player] = total
	}

	return all, nil
}

// SyncScores pulls the full score set and hands it to updateFunc. Called
// periodically from main to keep the in-memory stats table fresh.
func (c *Client) SyncScores(ctx context.Context, updateFunc func(scores map[string]map[string]float64) error) error {
	all, err := c.FetchAllScores(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}
	if err := updateFunc(all); err != nil {
		return fmt.Errorf("failed to apply synced scores: %w", err)
	}
	return nil
}

// Close closes the ClickHouse connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

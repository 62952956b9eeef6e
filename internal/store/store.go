package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tht-tools/team-balancer/internal/models"
)

// ErrNotFound is returned when a board id does not exist.
var ErrNotFound = errors.New("board not found")

// BoardStore persists saved team setups. The dashboard works entirely in
// memory; boards are the one thing a user can explicitly keep around.
type BoardStore interface {
	List() ([]models.Board, error)
	Get(id string) (*models.Board, error)
	Save(board *models.Board) (*models.Board, error)
	Delete(id string) error
	Close() error
}

func genID(prefix string) string {
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gametypes "github.com/cbodonnell/flipside/pkg/game/types"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string, migrations string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	dir, err := os.ReadDir(migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}

	for _, entry := range dir {
		if entry.IsDir() {
			continue
		}

		migrationPath := filepath.Join(migrations, entry.Name())
		migration, err := os.ReadFile(migrationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", migrationPath, err)
		}

		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			return nil, fmt.Errorf("failed to execute migration %s: %v", migrationPath, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) SaveSessionState(ctx context.Context, sessionID uuid.UUID, state *gametypes.GameState) error {
	cards, err := json.Marshal(state.Cards)
	if err != nil {
		return fmt.Errorf("failed to marshal cards: %v", err)
	}

	q := `
	INSERT OR REPLACE INTO sessions (session_id, updated_at, phase, matched_pairs, cards)
	VALUES (?, ?, ?, ?, ?);
	`
	_, err = r.db.ExecContext(ctx, q, sessionID.String(), time.Now().UnixMilli(), string(state.Phase), state.MatchedPairs, string(cards))
	if err != nil {
		return fmt.Errorf("failed to insert session: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) LoadSessionState(ctx context.Context, sessionID uuid.UUID) (*gametypes.GameState, error) {
	q := `
	SELECT phase, matched_pairs, cards FROM sessions WHERE session_id = ?;
	`
	var phase string
	var matchedPairs int
	var cards string
	if err := r.db.QueryRowContext(ctx, q, sessionID.String()).Scan(&phase, &matchedPairs, &cards); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan session: %v", err)
	}

	state := &gametypes.GameState{
		Phase:        gametypes.Phase(phase),
		MatchedPairs: matchedPairs,
	}
	if err := json.Unmarshal([]byte(cards), &state.Cards); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cards: %v", err)
	}

	return state, nil
}

func (r *SQLiteRepository) DeleteSessionState(ctx context.Context, sessionID uuid.UUID) error {
	q := `
	DELETE FROM sessions WHERE session_id = ?;
	`
	_, err := r.db.ExecContext(ctx, q, sessionID.String())
	if err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}

	return nil
}

package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gametypes "github.com/cbodonnell/flipside/pkg/game/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PostgresRepository struct {
	conn *pgx.Conn
}

// NewPostgresRepository creates a new PostgresRepository.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	return &PostgresRepository{
		conn: conn,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) SaveSessionState(ctx context.Context, sessionID uuid.UUID, state *gametypes.GameState) error {
	cards, err := json.Marshal(state.Cards)
	if err != nil {
		return fmt.Errorf("failed to marshal cards: %v", err)
	}

	q := `
	INSERT INTO sessions (session_id, updated_at, phase, matched_pairs, cards)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (session_id) DO UPDATE SET updated_at = $2, phase = $3, matched_pairs = $4, cards = $5;
	`
	_, err = r.conn.Exec(ctx, q, sessionID.String(), time.Now().UnixMilli(), string(state.Phase), state.MatchedPairs, string(cards))
	if err != nil {
		return fmt.Errorf("failed to insert session: %v", err)
	}

	return nil
}

func (r *PostgresRepository) LoadSessionState(ctx context.Context, sessionID uuid.UUID) (*gametypes.GameState, error) {
	q := `
	SELECT phase, matched_pairs, cards FROM sessions WHERE session_id = $1;
	`
	var phase string
	var matchedPairs int
	var cards string
	if err := r.conn.QueryRow(ctx, q, sessionID.String()).Scan(&phase, &matchedPairs, &cards); err != nil {
		if err == pgx.ErrNoRows {
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

func (r *PostgresRepository) DeleteSessionState(ctx context.Context, sessionID uuid.UUID) error {
	q := `
	DELETE FROM sessions WHERE session_id = $1;
	`
	_, err := r.conn.Exec(ctx, q, sessionID.String())
	if err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}

	return nil
}

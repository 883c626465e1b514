package repositories

import (
	"context"

	gametypes "github.com/cbodonnell/flipside/pkg/game/types"
	"github.com/google/uuid"
)

// Repository persists the current snapshot of each live session so that an
// in-progress game survives a server restart. Only the latest snapshot per
// session is kept; there is no history of past games.
type Repository interface {
	Close(ctx context.Context) error
	SaveSessionState(ctx context.Context, sessionID uuid.UUID, state *gametypes.GameState) error
	LoadSessionState(ctx context.Context, sessionID uuid.UUID) (*gametypes.GameState, error)
	DeleteSessionState(ctx context.Context, sessionID uuid.UUID) error
}

package workers

import (
	"context"
	"time"

	gametypes "github.com/cbodonnell/flipside/pkg/game/types"
	"github.com/cbodonnell/flipside/pkg/log"
	"github.com/cbodonnell/flipside/pkg/repositories"
	"github.com/google/uuid"
)

// SessionSnapshotSource provides read access to the snapshots of all
// live sessions for periodic persistence.
type SessionSnapshotSource interface {
	SessionSnapshots() map[uuid.UUID]*gametypes.GameState
}

type SaveSessionWorker struct {
	repository      repositories.Repository
	saveSessionChan <-chan SaveSessionRequest
	snapshotSource  SessionSnapshotSource
	interval        time.Duration
}

type NewSaveSessionWorkerOptions struct {
	Repository      repositories.Repository
	SaveSessionChan <-chan SaveSessionRequest
	SnapshotSource  SessionSnapshotSource
	Interval        time.Duration
}

// SaveSessionRequest asks the worker to persist a session snapshot,
// or to delete the stored snapshot when Delete is set.
type SaveSessionRequest struct {
	SessionID uuid.UUID
	State     *gametypes.GameState
	Delete    bool
}

// NewSaveSessionWorker creates a new SaveSessionWorker.
// The worker processes save requests from the session loop and
// periodically saves all live session snapshots to the repository.
func NewSaveSessionWorker(opts NewSaveSessionWorkerOptions) *SaveSessionWorker {
	return &SaveSessionWorker{
		repository:      opts.Repository,
		saveSessionChan: opts.SaveSessionChan,
		snapshotSource:  opts.SnapshotSource,
		interval:        opts.Interval,
	}
}

func (w *SaveSessionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case saveRequest := <-w.saveSessionChan:
			w.handleSaveRequest(ctx, saveRequest)
		case <-ticker.C:
			for sessionID, state := range w.snapshotSource.SessionSnapshots() {
				if err := w.repository.SaveSessionState(ctx, sessionID, state); err != nil {
					log.Error("Failed to save state for session %s: %v", sessionID, err)
				}
			}
		}
	}
}

func (w *SaveSessionWorker) handleSaveRequest(ctx context.Context, saveRequest SaveSessionRequest) {
	if saveRequest.Delete {
		if err := w.repository.DeleteSessionState(ctx, saveRequest.SessionID); err != nil {
			log.Error("Failed to delete state for session %s: %v", saveRequest.SessionID, err)
		}
		return
	}

	if err := w.repository.SaveSessionState(ctx, saveRequest.SessionID, saveRequest.State); err != nil {
		log.Error("Failed to save state for session %s: %v", saveRequest.SessionID, err)
	}
}

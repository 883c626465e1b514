package handlers

import (
	"encoding/json"
	"net/http"

	gametypes "github.com/cbodonnell/flipside/pkg/game/types"
	"github.com/cbodonnell/flipside/pkg/log"
	"github.com/cbodonnell/flipside/pkg/repositories"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// SessionReader provides read-only access to live sessions.
type SessionReader interface {
	SessionIDs() []uuid.UUID
	GetSessionSnapshot(sessionID uuid.UUID) (*gametypes.GameState, error)
}

// SessionSummary is a list entry for a live session.
type SessionSummary struct {
	SessionID    string          `json:"sessionId"`
	Phase        gametypes.Phase `json:"phase"`
	MatchedPairs int             `json:"matchedPairs"`
	PairCount    int             `json:"pairCount"`
}

// SessionDetail is a full read-only view of a live session.
type SessionDetail struct {
	SessionID      string               `json:"sessionId"`
	State          *gametypes.GameState `json:"state"`
	RemainingPairs int                  `json:"remainingPairs"`
	RemainingCards int                  `json:"remainingCards"`
}

func HandleListSessions(reader SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries := make([]SessionSummary, 0)
		for _, sessionID := range reader.SessionIDs() {
			snapshot, err := reader.GetSessionSnapshot(sessionID)
			if err != nil {
				// the session was reaped between the list and the read
				continue
			}
			summaries = append(summaries, SessionSummary{
				SessionID:    sessionID.String(),
				Phase:        snapshot.Phase,
				MatchedPairs: snapshot.MatchedPairs,
				PairCount:    snapshot.PairCount(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summaries); err != nil {
			log.Error("failed to encode sessions: %v", err)
			http.Error(w, "Failed to encode sessions", http.StatusInternalServerError)
			return
		}
	}
}

func HandleGetSession(reader SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := uuid.Parse(mux.Vars(r)["sessionID"])
		if err != nil {
			http.Error(w, "Invalid session ID", http.StatusBadRequest)
			return
		}

		snapshot, err := reader.GetSessionSnapshot(sessionID)
		if err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "Session not found", http.StatusNotFound)
				return
			}
			log.Error("failed to get session %s: %v", sessionID, err)
			http.Error(w, "Failed to get session", http.StatusInternalServerError)
			return
		}

		detail := SessionDetail{
			SessionID:      sessionID.String(),
			State:          snapshot,
			RemainingPairs: snapshot.RemainingPairs(),
			RemainingCards: snapshot.RemainingCards(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(detail); err != nil {
			log.Error("failed to encode session: %v", err)
			http.Error(w, "Failed to encode session", http.StatusInternalServerError)
			return
		}
	}
}

func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

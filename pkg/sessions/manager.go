package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cbodonnell/flipside/pkg/game"
	gametypes "github.com/cbodonnell/flipside/pkg/game/types"
	"github.com/cbodonnell/flipside/pkg/log"
	"github.com/cbodonnell/flipside/pkg/messages"
	"github.com/cbodonnell/flipside/pkg/queue"
	"github.com/cbodonnell/flipside/pkg/repositories"
	"github.com/cbodonnell/flipside/pkg/scheduler"
	"github.com/cbodonnell/flipside/pkg/workers"
	"github.com/google/uuid"
)

// Session is one game engine plus the clients subscribed to it. Any number
// of collaborator connections may watch and drive the same session.
type Session struct {
	ID   uuid.UUID
	game *game.Game

	// subscribers and the pair counters are only touched on the manager
	// loop goroutine, either directly or from the engine sink, which runs
	// synchronously inside Select.
	subscribers  map[uint32]struct{}
	pairs        int
	matchedPairs int
	lastPhase    gametypes.Phase
}

type SessionManager struct {
	clientMessageQueue queue.Queue
	serverEventQueue   queue.Queue
	repository         repositories.Repository
	serverMessageChan  chan<- workers.ServerMessage
	saveSessionChan    chan<- workers.SaveSessionRequest
	loopInterval       time.Duration

	symbols        []string
	revealDuration time.Duration
	mismatchDelay  time.Duration
	newScheduler   func() scheduler.Scheduler

	// sessionsLock guards the session and client maps. The maps are
	// written by the manager loop and read by the API server.
	sessionsLock   sync.RWMutex
	sessions       map[uuid.UUID]*Session
	clientSessions map[uint32]uuid.UUID
}

// NewSessionManagerOptions contains options for creating a new SessionManager.
type NewSessionManagerOptions struct {
	ClientMessageQueue queue.Queue
	ServerEventQueue   queue.Queue
	Repository         repositories.Repository
	ServerMessageChan  chan<- workers.ServerMessage
	SaveSessionChan    chan<- workers.SaveSessionRequest
	LoopInterval       time.Duration

	// Symbols is the symbol set used for new games, one entry per pair.
	Symbols []string
	// RevealDuration overrides the initial memorize window.
	RevealDuration time.Duration
	// MismatchDelay overrides how long a mismatched pair stays face-up.
	MismatchDelay time.Duration
	// NewScheduler creates the timer scheduler for each session so that
	// restarting one game never cancels another's timers. Defaults to
	// scheduler.NewTimerScheduler.
	NewScheduler func() scheduler.Scheduler
}

func NewSessionManager(opts NewSessionManagerOptions) *SessionManager {
	newScheduler := opts.NewScheduler
	if newScheduler == nil {
		newScheduler = func() scheduler.Scheduler {
			return scheduler.NewTimerScheduler()
		}
	}
	return &SessionManager{
		clientMessageQueue: opts.ClientMessageQueue,
		serverEventQueue:   opts.ServerEventQueue,
		repository:         opts.Repository,
		serverMessageChan:  opts.ServerMessageChan,
		saveSessionChan:    opts.SaveSessionChan,
		loopInterval:       opts.LoopInterval,
		symbols:            opts.Symbols,
		revealDuration:     opts.RevealDuration,
		mismatchDelay:      opts.MismatchDelay,
		newScheduler:       newScheduler,
		sessions:           make(map[uuid.UUID]*Session),
		clientSessions:     make(map[uint32]uuid.UUID),
	}
}

// Start runs the session loop until the context is cancelled.
func (sm *SessionManager) Start(ctx context.Context) error {
	ticker := time.NewTicker(sm.loopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sm.stopSessions()
			return nil
		case <-ticker.C:
			sm.processServerEvents(ctx)
			sm.processClientMessages(ctx)
			sm.broadcastPhaseChanges()
		}
	}
}

// SessionSnapshots returns a snapshot of every live session for the
// save worker's periodic flush.
func (sm *SessionManager) SessionSnapshots() map[uuid.UUID]*gametypes.GameState {
	sm.sessionsLock.RLock()
	defer sm.sessionsLock.RUnlock()

	snapshots := make(map[uuid.UUID]*gametypes.GameState, len(sm.sessions))
	for id, session := range sm.sessions {
		snapshots[id] = session.game.Snapshot()
	}
	return snapshots
}

// SessionIDs returns the IDs of all live sessions.
func (sm *SessionManager) SessionIDs() []uuid.UUID {
	sm.sessionsLock.RLock()
	defer sm.sessionsLock.RUnlock()

	ids := make([]uuid.UUID, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// GetSessionSnapshot returns a snapshot of a single live session.
func (sm *SessionManager) GetSessionSnapshot(sessionID uuid.UUID) (*gametypes.GameState, error) {
	sm.sessionsLock.RLock()
	defer sm.sessionsLock.RUnlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return nil, &repositories.ErrNotFound{}
	}
	return session.game.Snapshot(), nil
}

// processServerEvents processes all pending connection events in the queue.
func (sm *SessionManager) processServerEvents(ctx context.Context) {
	pendingEvents, err := sm.serverEventQueue.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read server events: %v", err)
		return
	}
	for _, item := range pendingEvents {
		switch event := item.(type) {
		case *gametypes.ConnectClientEvent:
			log.Debug("Client %d connected", event.ClientID)
		case *gametypes.DisconnectClientEvent:
			sm.handleClientDisconnect(ctx, event.ClientID)
		default:
			log.Error("unhandled server event type: %T", event)
		}
	}
}

// processClientMessages processes all pending client messages in the queue
// and routes them to the owning session's engine.
func (sm *SessionManager) processClientMessages(ctx context.Context) {
	pendingMessages, err := sm.clientMessageQueue.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read client messages: %v", err)
		return
	}
	for _, item := range pendingMessages {
		message, ok := item.(*messages.Message)
		if !ok {
			log.Error("Failed to cast message to messages.Message")
			continue
		}

		switch message.Type {
		case messages.MessageTypeClientJoin:
			sm.handleClientJoin(ctx, message)
		case messages.MessageTypeClientStartGame:
			sm.handleClientStartGame(message)
		case messages.MessageTypeClientSelectCard:
			sm.handleClientSelectCard(message)
		case messages.MessageTypeClientRestartGame:
			sm.handleClientRestartGame(message)
		case messages.MessageTypeClientPing:
			sm.sendToClient(message.ClientID, messages.MessageTypeServerPong, nil)
		default:
			log.Error("Unhandled message type: %s", message.Type)
		}
	}
}

// handleClientJoin subscribes a client to a session. An empty session id
// creates a new session; a known id attaches to the live session or
// restores it from the repository.
func (sm *SessionManager) handleClientJoin(ctx context.Context, message *messages.Message) {
	clientJoin := &messages.ClientJoin{}
	if err := json.Unmarshal(message.Payload, clientJoin); err != nil {
		log.Error("Failed to unmarshal client join message: %v", err)
		sm.sendError(message.ClientID, "malformed join message")
		return
	}

	var session *Session
	if clientJoin.SessionID == "" {
		session = sm.createSession(uuid.New())
		session.game.Start()
		session.lastPhase = gametypes.PhaseRevealing
	} else {
		sessionID, err := uuid.Parse(clientJoin.SessionID)
		if err != nil {
			sm.sendError(message.ClientID, fmt.Sprintf("invalid session id %q", clientJoin.SessionID))
			return
		}

		sm.sessionsLock.RLock()
		session = sm.sessions[sessionID]
		sm.sessionsLock.RUnlock()

		if session == nil {
			state, err := sm.repository.LoadSessionState(ctx, sessionID)
			if err != nil {
				if repositories.IsNotFound(err) {
					sm.sendError(message.ClientID, fmt.Sprintf("session %s not found", sessionID))
					return
				}
				log.Error("Failed to load state for session %s: %v", sessionID, err)
				sm.sendError(message.ClientID, "failed to load session")
				return
			}

			session = sm.createSession(sessionID)
			if err := session.game.Restore(state); err != nil {
				log.Error("Failed to restore session %s: %v", sessionID, err)
				sm.removeSession(sessionID)
				sm.sendError(message.ClientID, "failed to restore session")
				return
			}
			sm.syncSessionCounters(session)
			log.Info("Restored session %s from storage", sessionID)
		}
	}

	// out with the old session, if any
	if previousID, ok := sm.clientSessionID(message.ClientID); ok && previousID != session.ID {
		sm.unsubscribe(ctx, message.ClientID, previousID)
	}

	session.subscribers[message.ClientID] = struct{}{}
	sm.sessionsLock.Lock()
	sm.clientSessions[message.ClientID] = session.ID
	sm.sessionsLock.Unlock()

	// lastPhase is left alone when attaching to a live session: a phase
	// change pending from a timer must still broadcast to the subscribers
	// who were already attached. The joining client gets the current state
	// here either way.
	snapshot := session.game.Snapshot()
	sm.sendToClient(message.ClientID, messages.MessageTypeServerJoinSuccess, &messages.ServerJoinSuccess{
		SessionID: session.ID.String(),
		State:     snapshot,
	})
	log.Debug("Client %d joined session %s", message.ClientID, session.ID)
}

func (sm *SessionManager) handleClientStartGame(message *messages.Message) {
	session := sm.sessionForClient(message.ClientID)
	if session == nil {
		sm.sendError(message.ClientID, "join a session first")
		return
	}
	session.matchedPairs = 0
	session.game.Start()
}

func (sm *SessionManager) handleClientSelectCard(message *messages.Message) {
	session := sm.sessionForClient(message.ClientID)
	if session == nil {
		sm.sendError(message.ClientID, "join a session first")
		return
	}

	clientSelectCard := &messages.ClientSelectCard{}
	if err := json.Unmarshal(message.Payload, clientSelectCard); err != nil {
		log.Error("Failed to unmarshal select card message: %v", err)
		return
	}

	// invalid selections are absorbed by the engine as no-ops
	session.game.Select(clientSelectCard.CardID)
}

func (sm *SessionManager) handleClientRestartGame(message *messages.Message) {
	session := sm.sessionForClient(message.ClientID)
	if session == nil {
		sm.sendError(message.ClientID, "join a session first")
		return
	}
	session.matchedPairs = 0
	session.game.Restart()
}

// handleClientDisconnect unsubscribes the client and reaps its session
// when no subscribers remain.
func (sm *SessionManager) handleClientDisconnect(ctx context.Context, clientID uint32) {
	log.Debug("Client %d disconnected", clientID)
	sessionID, ok := sm.clientSessionID(clientID)
	if !ok {
		return
	}
	sm.unsubscribe(ctx, clientID, sessionID)

	sm.sessionsLock.Lock()
	delete(sm.clientSessions, clientID)
	sm.sessionsLock.Unlock()
}

// unsubscribe drops a client from a session. The last subscriber leaving
// saves the session for later resumption, or deletes the stored snapshot
// when the game is already won.
func (sm *SessionManager) unsubscribe(ctx context.Context, clientID uint32, sessionID uuid.UUID) {
	sm.sessionsLock.RLock()
	session := sm.sessions[sessionID]
	sm.sessionsLock.RUnlock()
	if session == nil {
		return
	}

	delete(session.subscribers, clientID)
	if len(session.subscribers) > 0 {
		return
	}

	session.game.Stop()
	snapshot := session.game.Snapshot()
	sm.saveSessionChan <- workers.SaveSessionRequest{
		SessionID: sessionID,
		State:     snapshot,
		Delete:    snapshot.Phase == gametypes.PhaseWon,
	}
	sm.removeSession(sessionID)
	log.Info("Reaped empty session %s", sessionID)
}

// broadcastPhaseChanges sends a fresh snapshot to every subscriber of a
// session whose phase changed since the last tick. This is how clients
// learn that a reveal window or mismatch delay elapsed, since those
// transitions fire on timers rather than on client input.
func (sm *SessionManager) broadcastPhaseChanges() {
	sm.sessionsLock.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	sm.sessionsLock.RUnlock()

	for _, session := range sessions {
		snapshot := session.game.Snapshot()
		if snapshot.Phase == session.lastPhase {
			continue
		}
		session.lastPhase = snapshot.Phase
		sm.sendToSubscribers(session, messages.MessageTypeServerGameSnapshot, &messages.ServerGameSnapshot{
			SessionID: session.ID.String(),
			State:     snapshot,
		})
	}
}

// createSession builds a session with its own engine and timer scheduler
// and registers it. The engine sink fans events out to subscribers; it
// runs synchronously inside the engine, so it only queues messages.
func (sm *SessionManager) createSession(sessionID uuid.UUID) *Session {
	session := &Session{
		ID:          sessionID,
		subscribers: make(map[uint32]struct{}),
		pairs:       len(sm.symbols),
		lastPhase:   gametypes.PhaseIdle,
	}
	session.game = game.NewGame(game.NewGameOptions{
		Symbols:        sm.symbols,
		RevealDuration: sm.revealDuration,
		MismatchDelay:  sm.mismatchDelay,
		Scheduler:      sm.newScheduler(),
		EventSink: func(event gametypes.Event) {
			sm.handleGameEvent(session, event)
		},
	})

	sm.sessionsLock.Lock()
	sm.sessions[sessionID] = session
	sm.sessionsLock.Unlock()

	log.Info("Created session %s", sessionID)
	return session
}

func (sm *SessionManager) removeSession(sessionID uuid.UUID) {
	sm.sessionsLock.Lock()
	delete(sm.sessions, sessionID)
	sm.sessionsLock.Unlock()
}

// handleGameEvent translates an engine event into outbound messages for
// every subscriber. It runs with the engine lock held and must not call
// back into the engine.
func (sm *SessionManager) handleGameEvent(session *Session, event gametypes.Event) {
	switch event.Type {
	case gametypes.EventCardFlip:
		sm.sendToSubscribers(session, messages.MessageTypeServerCardFlip, &messages.ServerCardFlip{
			CardID: event.CardIDs[0],
		})
	case gametypes.EventPairMatch:
		session.matchedPairs++
		sm.sendToSubscribers(session, messages.MessageTypeServerPairMatch, &messages.ServerPairMatch{
			CardIDs:        event.CardIDs,
			MatchedPairs:   session.matchedPairs,
			RemainingPairs: session.pairs - session.matchedPairs,
		})
	case gametypes.EventPairMismatch:
		sm.sendToSubscribers(session, messages.MessageTypeServerPairMismatch, &messages.ServerPairMismatch{
			CardIDs: event.CardIDs,
		})
	case gametypes.EventGameWon:
		sm.sendToSubscribers(session, messages.MessageTypeServerGameWon, &messages.ServerGameWon{})
	default:
		log.Error("Unhandled game event type: %s", event.Type)
	}
}

// syncSessionCounters rebuilds the pair counters after a restore.
func (sm *SessionManager) syncSessionCounters(session *Session) {
	snapshot := session.game.Snapshot()
	session.pairs = snapshot.PairCount()
	session.matchedPairs = snapshot.MatchedPairs
	session.lastPhase = snapshot.Phase
}

// sendToSubscribers queues a message for every subscriber of a session.
func (sm *SessionManager) sendToSubscribers(session *Session, messageType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("Failed to marshal %s message: %v", messageType, err)
		return
	}
	for clientID := range session.subscribers {
		sm.serverMessageChan <- workers.ServerMessage{
			ClientID: clientID,
			Message: &messages.Message{
				ClientID: 0, // ClientID 0 means the message is from the server
				Type:     messageType,
				Payload:  data,
			},
		}
	}
}

// sendToClient queues a message for a single client. A nil payload sends
// a message with no payload.
func (sm *SessionManager) sendToClient(clientID uint32, messageType string, payload interface{}) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			log.Error("Failed to marshal %s message: %v", messageType, err)
			return
		}
	}
	sm.serverMessageChan <- workers.ServerMessage{
		ClientID: clientID,
		Message: &messages.Message{
			ClientID: 0,
			Type:     messageType,
			Payload:  data,
		},
	}
}

func (sm *SessionManager) sendError(clientID uint32, reason string) {
	sm.sendToClient(clientID, messages.MessageTypeServerError, &messages.ServerError{
		Message: reason,
	})
}

func (sm *SessionManager) sessionForClient(clientID uint32) *Session {
	sm.sessionsLock.RLock()
	defer sm.sessionsLock.RUnlock()

	sessionID, ok := sm.clientSessions[clientID]
	if !ok {
		return nil
	}
	return sm.sessions[sessionID]
}

func (sm *SessionManager) clientSessionID(clientID uint32) (uuid.UUID, bool) {
	sm.sessionsLock.RLock()
	defer sm.sessionsLock.RUnlock()
	sessionID, ok := sm.clientSessions[clientID]
	return sessionID, ok
}

// stopSessions cancels every session's timers on shutdown.
func (sm *SessionManager) stopSessions() {
	sm.sessionsLock.RLock()
	defer sm.sessionsLock.RUnlock()
	for _, session := range sm.sessions {
		session.game.Stop()
	}
}

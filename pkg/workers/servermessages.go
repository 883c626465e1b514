package workers

import (
	"context"

	"github.com/cbodonnell/flipside/pkg/log"
	"github.com/cbodonnell/flipside/pkg/messages"
	"github.com/cbodonnell/flipside/pkg/network"
)

type ServerMessageWorker struct {
	clientManager     *network.ClientManager
	serverMessageChan <-chan ServerMessage
}

// ServerMessage is an outbound message addressed to a single client.
type ServerMessage struct {
	ClientID uint32
	Message  *messages.Message
}

type NewServerMessageWorkerOptions struct {
	ClientManager     *network.ClientManager
	ServerMessageChan <-chan ServerMessage
}

// NewServerMessageWorker creates a new ServerMessageWorker.
// The worker writes outbound messages from the session loop to their
// target client connections so the loop never blocks on the network.
func NewServerMessageWorker(opts NewServerMessageWorkerOptions) *ServerMessageWorker {
	return &ServerMessageWorker{
		clientManager:     opts.ClientManager,
		serverMessageChan: opts.ServerMessageChan,
	}
}

func (w *ServerMessageWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.serverMessageChan:
			if !w.clientManager.Exists(msg.ClientID) {
				// the client disconnected after the message was queued
				log.Debug("Client %d is no longer connected, dropping %s message", msg.ClientID, msg.Message.Type)
				continue
			}
			if err := w.clientManager.SendMessageToClient(ctx, msg.ClientID, msg.Message); err != nil {
				log.Error("Failed to send %s message to client %d: %v", msg.Message.Type, msg.ClientID, err)
			}
		}
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/cbodonnell/flipside/pkg/api"
	"github.com/cbodonnell/flipside/pkg/game/constants"
	"github.com/cbodonnell/flipside/pkg/log"
	"github.com/cbodonnell/flipside/pkg/network"
	"github.com/cbodonnell/flipside/pkg/queue"
	"github.com/cbodonnell/flipside/pkg/repositories"
	"github.com/cbodonnell/flipside/pkg/sessions"
	"github.com/cbodonnell/flipside/pkg/version"
	"github.com/cbodonnell/flipside/pkg/workers"
)

func main() {
	wsPort := flag.Int("ws-port", 8888, "WebSocket port to listen on")
	apiPort := flag.Int("api-port", 9090, "HTTP API port to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	pairs := flag.Int("pairs", constants.DefaultPairCount, "Number of symbol pairs per game")
	revealMS := flag.Int("reveal-ms", int(constants.RevealDuration/time.Millisecond), "Reveal window in milliseconds")
	mismatchMS := flag.Int("mismatch-ms", int(constants.MismatchDelay/time.Millisecond), "Mismatch delay in milliseconds")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting server version %s", version.Get())
	ctx := context.Background()

	clientManager := network.NewClientManager()
	clientMessageQueue := queue.NewInMemoryQueue(10000)

	wsServer := network.NewWSServer(network.NewWSServerOptions{
		Port:          *wsPort,
		ClientManager: clientManager,
		MessageQueue:  clientMessageQueue,
	})
	go wsServer.Start(ctx)

	connStr := os.Getenv("FLIPSIDE_DATABASE_URL")
	if connStr == "" {
		connStr = "sqlite://flipside.db"
	}

	u, err := url.Parse(connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse connection string: %v", err))
	}

	var repository repositories.Repository
	switch u.Scheme {
	case "sqlite":
		repository, err = repositories.NewSQLiteRepository(ctx, u.Host, "./migrations/sqlite")
		if err != nil {
			panic(fmt.Sprintf("Failed to create SQLite repository: %v", err))
		}
	case "postgresql":
		repository, err = repositories.NewPostgresRepository(ctx, u.String())
		if err != nil {
			panic(fmt.Sprintf("Failed to create Postgres repository: %v", err))
		}
	default:
		panic(fmt.Sprintf("Unknown database type %s", u.Scheme))
	}
	defer repository.Close(ctx)

	serverEventQueue := queue.NewInMemoryQueue(1000)

	connectionEventWorker := workers.NewConnectionEventWorker(workers.NewConnectionEventWorkerOptions{
		ConnectionEventChan: clientManager.GetConnectionEventChan(),
		ServerEventQueue:    serverEventQueue,
	})
	go connectionEventWorker.Start(ctx)

	serverMessageChannelSize := 100
	serverMessageChan := make(chan workers.ServerMessage, serverMessageChannelSize)

	serverMessageWorker := workers.NewServerMessageWorker(workers.NewServerMessageWorkerOptions{
		ClientManager:     clientManager,
		ServerMessageChan: serverMessageChan,
	})
	go serverMessageWorker.Start(ctx)

	saveSessionChannelSize := 100
	saveSessionChan := make(chan workers.SaveSessionRequest, saveSessionChannelSize)

	sessionLoopInterval := 50 * time.Millisecond // 20 ticks per second
	sessionManager := sessions.NewSessionManager(sessions.NewSessionManagerOptions{
		ClientMessageQueue: clientMessageQueue,
		ServerEventQueue:   serverEventQueue,
		Repository:         repository,
		ServerMessageChan:  serverMessageChan,
		SaveSessionChan:    saveSessionChan,
		LoopInterval:       sessionLoopInterval,
		Symbols:            constants.DefaultSymbols(*pairs),
		RevealDuration:     time.Duration(*revealMS) * time.Millisecond,
		MismatchDelay:      time.Duration(*mismatchMS) * time.Millisecond,
	})

	saveLoopInterval := 10 * time.Second
	saveSessionWorker := workers.NewSaveSessionWorker(workers.NewSaveSessionWorkerOptions{
		Repository:      repository,
		SaveSessionChan: saveSessionChan,
		SnapshotSource:  sessionManager,
		Interval:        saveLoopInterval,
	})
	go saveSessionWorker.Start(ctx)

	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:          *apiPort,
		SessionReader: sessionManager,
	})
	go apiServer.Start()

	log.Info("Starting session manager")
	if err := sessionManager.Start(ctx); err != nil {
		panic(fmt.Sprintf("Failed to start session manager: %v", err))
	}
}

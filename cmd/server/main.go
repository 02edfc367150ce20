package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npezzotti/go-worldstate/internal/api"
	"github.com/npezzotti/go-worldstate/internal/config"
	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/engine"
	"github.com/npezzotti/go-worldstate/internal/server"
	"github.com/npezzotti/go-worldstate/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	storeDriver    string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	roomSecrets    string
	renameWindow   time.Duration
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&storeDriver, "store", config.StorePostgres, "state store driver (postgres or memory)")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&roomSecrets, "room-secrets", config.RoomSecretsPlaintext, "room password storage (plaintext or bcrypt)")
	flag.DurationVar(&renameWindow, "rename-window", engine.DefaultRenameSince, "how far back chat messages follow a display name change")
	flag.Parse()

	logger := log.New(os.Stderr, "[go-worldstate] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, storeDriver, dsn, signingKey, allowedOrigins, roomSecrets, renameWindow)
	if err != nil {
		logger.Fatal("config:", err)
	}

	store, err := database.Open(cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("store open:", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Fatal("store close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	opts := engine.Options{RenameWindow: cfg.RenameWindow}
	if cfg.RoomSecrets == config.RoomSecretsBcrypt {
		opts.RoomSecrets = engine.BcryptRoomSecrets{}
	}
	worldEngine := engine.NewEngine(logger, store, statsUpdater, opts)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	err = worldEngine.OnServerStart(startCtx)
	cancelStart()
	if err != nil {
		logger.Fatal("server start:", err)
	}

	worldServer := server.NewWorldServer(logger, worldEngine, statsUpdater)

	srv := api.NewWorldApp(mux, logger, worldServer, worldEngine, store, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go worldServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	// Stats and the store must outlive this call: disconnects commit
	// through them before it returns.
	logger.Println("shutting down world server...")
	if err := worldServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("world server shutdown:", err)
	}

	logger.Println("shutdown complete")
}

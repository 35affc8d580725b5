package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatserver/internal/config"
	"chatserver/internal/domain"
	"chatserver/internal/httpserver"
	"chatserver/internal/presence"
	"chatserver/internal/security"
	"chatserver/internal/service"
	"chatserver/internal/store/memory"
	mongostore "chatserver/internal/store/mongo"
	"chatserver/internal/store/sqlite"
	"chatserver/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Stores
	users, messages, calls, closeStore, err := openStores(cfg)
	if err != nil {
		log.Fatalf("failed to open store backend %q: %v", cfg.StoreBackend, err)
	}
	defer closeStore()

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(0)

	// Presence and WebSocket hub
	registry := presence.NewRegistry()
	offline := presence.NewOfflineScheduler(cfg.OfflineDebounce)
	defer offline.Stop()
	hub := ws.NewHub()

	// Services
	authSvc := service.NewAuthService(users, tokenSvc, passwordHasher)
	friendSvc := service.NewFriendService(users, registry, hub)
	messageSvc := service.NewMessageService(messages, registry, hub)
	callSvc := service.NewCallService(calls, registry, hub)

	dispatcher := ws.NewDispatcher(hub, registry, offline, tokenSvc, friendSvc, messageSvc, callSvc, cfg.CORSOrigins)

	// Build HTTP router
	router := httpserver.NewRouter(httpserver.Deps{
		Cfg:       cfg,
		Users:     users,
		Tokens:    tokenSvc,
		Registry:  registry,
		Auth:      authSvc,
		Friends:   friendSvc,
		Messages:  messageSvc,
		Calls:     callSvc,
		WSHandler: dispatcher.Handler(),
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Starting chatserver on %s (store=%s)\n", cfg.HTTPAddr(), cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// openStores builds the repository set for the configured backend and returns
// a close func for whatever resources it holds.
func openStores(cfg *config.Config) (domain.UserRepository, domain.MessageRepository, domain.CallRepository, func(), error) {
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, nil, nil, nil, err
		}
		return sqlite.NewUserRepo(db), sqlite.NewMessageRepo(db), sqlite.NewCallRepo(db), func() { db.Close() }, nil

	case "mongo":
		client, err := mongostore.Connect(context.Background(), cfg.MongoURI)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		db := client.Database(cfg.MongoDB)
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}
		return mongostore.NewUserRepo(db), mongostore.NewMessageRepo(db), mongostore.NewCallRepo(db), closeFn, nil

	default: // memory
		return memory.NewUserRepo(), memory.NewMessageRepo(), memory.NewCallRepo(), func() {}, nil
	}
}

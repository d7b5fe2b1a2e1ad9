package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justsurfingit/pipeline-board/internal/config"
	"github.com/justsurfingit/pipeline-board/internal/database"
	"github.com/justsurfingit/pipeline-board/internal/events"
	"github.com/justsurfingit/pipeline-board/internal/handlers"
	"github.com/justsurfingit/pipeline-board/internal/services"
)

func main() {
	// 1. Load Configuration (.env, optional config file, environment)
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	// 2. Database Connection
	db, err := database.Connect(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	// 3. Initialize Core Services (Dependencies)
	appService := services.NewApplicationService(db)
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 4. Initialize the Event Bus
	// Without redis, changes only reach boards hosted by this process
	var publisher services.Publisher
	var subscription *events.Subscription
	if cfg.RedisURL != "" {
		bus, err := events.NewRedisBus(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, dispatching board events in-process: %v", err)
		} else {
			defer bus.Close()
			subscription, err = bus.Subscribe(ctx)
			if err != nil {
				log.Printf("⚠️  Failed to subscribe to board events: %v", err)
			} else {
				defer subscription.Close()
				publisher = bus
				log.Println("✅ Redis event bus connected successfully.")
			}
		}
	}

	boardService := services.NewBoardService(appService, eventService, userService, publisher, services.BoardOptions{
		ActivationDistance: cfg.ActivationDistance,
		SyncTimeout:        cfg.SyncTimeout,
	})
	if subscription != nil {
		go func() {
			if err := boardService.Serve(ctx, subscription); err != nil {
				log.Printf("❌ Board event subscription stopped: %v", err)
			}
		}()
	}

	// 5. Initialize Handlers and Router
	appHandler := handlers.NewApplicationHandler(appService, eventService, boardService)
	boardHandler := handlers.NewBoardHandler(boardService)
	r := handlers.NewRouter(userService, appHandler, boardHandler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on %s...", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start:", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	stop()

	// Let in-flight board persistence finish before the database goes away
	boardService.Wait()
	log.Println("Server stopped")
}

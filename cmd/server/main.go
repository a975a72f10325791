package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recycle-backend/internal/auth"
	"recycle-backend/internal/cache"
	"recycle-backend/internal/config"
	"recycle-backend/internal/database"
	"recycle-backend/internal/db"
	"recycle-backend/internal/handlers"
	"recycle-backend/internal/health"
	h "recycle-backend/internal/http"
	"recycle-backend/internal/live"
	"recycle-backend/internal/middleware"
	"recycle-backend/internal/repositories"
	"recycle-backend/internal/services"
	"recycle-backend/migrations"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	pool := db.Connect(cfg)
	defer pool.Close()

	// Redis is optional: every cache accessor degrades to a miss.
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (serving uncached)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Embedded migrations make the binary self-contained on the plant's
	// edge boxes.
	log.Println("Running database migrations...")
	migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
	mctx, mcancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrator.RunMigrations(mctx); err != nil {
		mcancel()
		log.Fatalf("Failed to run migrations: %v", err)
	}
	mcancel()

	jwtManager := auth.NewJWTManager(cfg)

	userRepo := repositories.NewUserRepository(pool)
	batchRepo := repositories.NewBatchRepository(pool)
	shiftRepo := repositories.NewShiftRepository(pool)
	byProductRepo := repositories.NewByProductRepository(pool)

	batchService := services.NewBatchService(batchRepo, shiftRepo)
	shiftService := services.NewShiftService(shiftRepo, byProductRepo, batchRepo)
	reportService := services.NewReportService(shiftService)
	authService := services.NewAuthService(userRepo, jwtManager)

	// Live dashboard feed: every ledger mutation rebroadcasts the
	// shift's full totals.
	hub := live.NewHub()
	go hub.Run()
	batchService.SetNotifier(hub)

	// Auto-close overdue shifts in the background.
	shiftService.StartExpiryWatcher(cfg.Shift.ExpiryCheckMinutes)
	defer shiftService.Stop()

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	healthChecker := health.NewChecker(pool)

	router := h.NewRouter(cfg, h.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Production: handlers.NewProductionHandler(batchService, shiftService, reportService, batchRepo),
		MasterData: handlers.NewMasterDataHandler(shiftRepo, shiftService),
		Health:     handlers.NewHealthHandler(healthChecker),
		Live:       hub,
		AuthMW:     authMiddleware,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	// No write timeout: /production/live holds websocket connections
	// open indefinitely.
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("Server running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

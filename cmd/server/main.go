// Package main is the entry point for the stockd API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockd/internal/core/security"
	"stockd/internal/domain/approval"
	"stockd/internal/domain/audit"
	"stockd/internal/domain/direction"
	"stockd/internal/domain/documents"
	"stockd/internal/domain/ledger"
	v1 "stockd/internal/infrastructure/http/v1"
	"stockd/internal/infrastructure/storage/postgres"
	"stockd/internal/infrastructure/storage/postgres/audit_repo"
	"stockd/internal/infrastructure/storage/postgres/catalog_repo"
	"stockd/internal/infrastructure/storage/postgres/document_repo"
	"stockd/internal/infrastructure/storage/postgres/ledger_repo"
	"stockd/pkg/logger"
)

const version = "1.0.0"

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stockd server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	// --- Transaction manager ---
	txOpts := postgres.DefaultTxOptions()
	if timeout := getEnvDuration("DB_STATEMENT_TIMEOUT", 0); timeout > 0 {
		txOpts.StatementTimeout = timeout
	}
	txManager := postgres.NewTxManager(pool, txOpts)
	readTxManager := postgres.NewReadOnlyTxManager(pool, txOpts)

	// --- Repositories ---
	docRepo := document_repo.NewInventoryRepo(txManager)
	stockRepo := ledger_repo.NewStockRepo(txManager)
	lotRepo := ledger_repo.NewLotRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	warehouseRepo := catalog_repo.NewWarehouseRepo(txManager)
	movementTypeRepo := catalog_repo.NewMovementTypeRepo(txManager)

	auditRepo, err := audit_repo.NewRepo(txManager)
	if err != nil {
		log.Fatalw("failed to create audit repository", "error", err)
	}

	// --- Services ---
	ledgerService := ledger.NewService(stockRepo, lotRepo)
	auditService := audit.NewService(auditRepo)
	documentService := documents.NewService(docRepo, readTxManager)
	resolver := direction.NewResolver(movementTypeRepo)

	approvalEngine := approval.NewEngine(
		docRepo,
		ledgerService,
		productRepo,
		warehouseRepo,
		resolver,
		auditService,
		txManager,
	)

	// --- JWT validation ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := security.NewJWTService(security.DefaultJWTConfig(jwtSecret))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:                   pool,
		Logger:                 log,
		JWTValidator:           jwtService,
		ApprovalPrivilegeLevel: getEnvInt("APPROVAL_PRIVILEGE_LEVEL", 2),
		Documents:              documentService,
		Approval:               approvalEngine,
		Ledger:                 ledgerService,
		Audit:                  auditService,
		Version:                version,
	})

	// --- HTTP server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Command server runs the provider verification API: it reconciles document
// uploads against verification records and serves the approval workflow to
// the ops dashboard.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"verifica/internal/accounts"
	"verifica/internal/audit"
	"verifica/internal/documents"
	"verifica/internal/documents/cache"
	"verifica/internal/documents/storageapi"
	httpapi "verifica/internal/http"
	"verifica/internal/jwtauth"
	"verifica/internal/platform/config"
	"verifica/internal/platform/httpserver"
	"verifica/internal/platform/logger"
	platformredis "verifica/internal/platform/redis"
	"verifica/internal/verification/handler"
	"verifica/internal/verification/metrics"
	"verifica/internal/verification/reconcile"
	"verifica/internal/verification/service"
	verifstore "verifica/internal/verification/store"
	"verifica/migrations"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.PingContext(startupCtx); err != nil {
		cancel()
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	if err := migrations.Apply(startupCtx, db); err != nil {
		cancel()
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	cancel()

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	verifications := verifstore.NewPostgresStore(db)
	audits := audit.NewPostgresStore(db)
	accountStore := accounts.NewPostgresStore(db)

	var docStore documents.Store = storageapi.NewClient(cfg.StorageAPI)
	var listings service.ListingInvalidator
	if rdb != nil {
		cached := cache.New(docStore, rdb.Client, cfg.ListingCacheTTL, log)
		docStore = cached
		listings = cached
	}

	// The reconciler reads blob storage directly so a reconcile pass never
	// trusts a cached listing; the uploads read path goes through the cache.
	reconciler := reconcile.New(verifications, sourceOf(docStore), accountStore, log)

	svc := service.New(verifications, audits, accountStore, docStore, reconciler, listings, metrics.New(), log)

	jwtService := jwtauth.New(cfg.JWTSigningKey, cfg.JWTIssuer)

	router := httpapi.NewRouter(httpapi.Deps{
		Verifications: handler.New(svc, log),
		Auth:          jwtService,
		Logger:        log,
		DB:            httpapi.HealthFunc(db.PingContext),
		Redis:         redisChecker(rdb),
		Timeout:       30 * time.Second,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting verifica", "addr", cfg.Addr, "redis", rdb != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// sourceOf unwraps the listing cache so reconciliation hits blob storage.
func sourceOf(store documents.Store) documents.Store {
	if cached, ok := store.(*cache.Store); ok {
		return cached.Source()
	}
	return store
}

func redisChecker(rdb *platformredis.Client) httpapi.HealthChecker {
	if rdb == nil {
		return nil
	}
	return rdb
}

// jobmate-ingest-service is the vacancy ingestion daemon.
//
// Wires config → PostgreSQL connection manager → repository →
// ingestion coordinator → cron scheduler, and serves a health
// endpoint. Record sources register via scheduler.Source.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"jobmate/ingest-service/internal/config"
	"jobmate/ingest-service/internal/db"
	"jobmate/ingest-service/internal/ingest"
	"jobmate/ingest-service/internal/repo"
	"jobmate/ingest-service/internal/scheduler"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Service: "ingest-service",
		Version: "0.1.0",
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ingest-service] Config error: %v", err)
	}

	mgr := db.NewManager(cfg.DatabaseURL)
	defer mgr.Close(context.Background())

	if err := db.EnsureSchema(ctx, mgr); err != nil {
		log.Fatalf("[ingest-service] Schema error: %v", err)
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[ingest-service] Redis error: %v", err)
	}

	validator := ingest.NewValidator()
	repository := repo.New(mgr, validator)
	dedup := ingest.NewDeduplicator(ingest.FingerprintMode(cfg.FingerprintMode))
	coordinator := ingest.NewCoordinator(repository, dedup, rdb)
	allow := ingest.ParseAllowList(cfg.AllowedEmployerIDs)

	var sources []scheduler.Source // populated by source-specific builds
	sched := scheduler.New(coordinator, sources, allow, cfg.IngestIntervalHours)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[ingest-service] Scheduler error: %v", err)
	}
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.Port), Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Printf("[ingest-service] Listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[ingest-service] Fatal: %v", err)
	}
}

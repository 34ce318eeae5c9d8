package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/withObsrvr/medallion-warehouse/config"
	"github.com/withObsrvr/medallion-warehouse/pipeline"
)

// HealthServer manages the HTTP health and metrics endpoints
type HealthServer struct {
	orchestrator *pipeline.Orchestrator
	config       *config.Config
	registry     *prometheus.Registry
	logger       *zap.Logger
	startTime    time.Time
	server       *http.Server
}

// NewHealthServer creates a new health server
func NewHealthServer(o *pipeline.Orchestrator, cfg *config.Config, reg *prometheus.Registry, logger *zap.Logger) *HealthServer {
	h := &HealthServer{
		orchestrator: o,
		config:       cfg,
		registry:     reg,
		logger:       logger,
		startTime:    time.Now(),
	}
	h.server = &http.Server{
		Addr:              ":" + cfg.Service.HealthPort,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Router returns the routes served by the health server.
func (h *HealthServer) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.handleHealth).Methods("GET")
	router.HandleFunc("/ready", h.handleReady).Methods("GET")
	router.HandleFunc("/live", h.handleLive).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})).Methods("GET")
	return router
}

// Start serves until Shutdown is called.
func (h *HealthServer) Start() error {
	h.logger.Info("🏥 Health server listening", zap.String("addr", h.server.Addr))
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *HealthServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// handleHealth returns detailed health information
func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := h.orchestrator.State()

	status := "healthy"
	if state.Status == pipeline.Failed {
		status = "degraded"
	}

	health := map[string]interface{}{
		"status":         status,
		"service":        h.config.Service.Name,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"state": map[string]interface{}{
			"status": state.Status,
			"step":   state.Step,
		},
		"config": map[string]interface{}{
			"feed_source":   h.config.Feeds.Source,
			"store_driver":  h.config.Store.Driver,
			"bronze_schema": h.config.Layers.Bronze,
			"silver_schema": h.config.Layers.Silver,
			"gold_schema":   h.config.Layers.Gold,
		},
	}

	if rep := h.orchestrator.LastReport(); rep != nil {
		last := map[string]interface{}{
			"run_id":           rep.RunID,
			"status":           rep.Status,
			"finished_at":      rep.FinishedAt.UTC().Format(time.RFC3339),
			"duration_seconds": rep.Duration.Seconds(),
		}
		if rep.Err != nil {
			last["failed_step"] = rep.FailedStep
			last["error"] = rep.Err.Error()
		}
		stages := make(map[string]float64, len(rep.Stages))
		for _, s := range rep.Stages {
			stages[string(s.Stage)] = s.Duration.Seconds()
		}
		last["stage_seconds"] = stages
		health["last_run"] = last
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleReady reports ready once a load has succeeded and none is running.
func (h *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator.State().Status != pipeline.Succeeded {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ready")
}

// handleLive returns liveness status (for k8s)
func (h *HealthServer) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "live")
}

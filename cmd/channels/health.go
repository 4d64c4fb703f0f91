package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/trend-channel/internal/channel"
)

// healthState tracks the stage of the current run for the ops endpoints
type healthState struct {
	mu      sync.RWMutex
	stage   string
	started time.Time
}

func newHealthState() *healthState {
	return &healthState{stage: "starting", started: time.Now()}
}

func (h *healthState) setStage(stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stage = stage
}

func (h *healthState) getStage() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stage
}

func newHealthServer(port int, health *healthState) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      setupHealthAndMetricsRouter(health),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// setupHealthAndMetricsRouter sets up HTTP endpoints for health checks and metrics
func setupHealthAndMetricsRouter(health *healthState) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "UP",
			"stage":     health.getStage(),
			"uptime":    time.Since(health.started).String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	// Ready once prices are loaded
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		switch health.getStage() {
		case "starting", channel.StageLoading:
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT READY"))
		default:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("READY"))
		}
	}).Methods("GET")

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("LIVE"))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler())

	return router
}

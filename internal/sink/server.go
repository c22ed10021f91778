// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Thermoquad/heliograph/pkg/vedirect"
)

// HealthState holds the latest health status for the /health endpoint. The
// reader goroutine stores, HTTP handlers load.
type HealthState struct {
	mu     sync.RWMutex
	status vedirect.HealthStatus
	stats  vedirect.DecoderStats
}

// Store replaces the published status
func (s *HealthState) Store(status vedirect.HealthStatus, stats vedirect.DecoderStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.stats = stats
}

// Load returns the published status
func (s *HealthState) Load() (vedirect.HealthStatus, vedirect.DecoderStats) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.stats
}

type healthResponse struct {
	Status        string  `json:"status"`
	DataValid     bool    `json:"data_valid"`
	FrameAge      float64 `json:"frame_age_seconds,omitempty"`
	FramesOK      uint64  `json:"frames_ok"`
	FramesBad     uint64  `json:"frames_bad"`
	LineOverflows uint64  `json:"line_overflows"`
	HexMessages   uint64  `json:"hex_messages"`
	Staleness     float64 `json:"staleness_limit_seconds"`
}

// ServeHTTP reports 200 while data is valid and 503 once it goes stale
func (s *HealthState) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, stats := s.Load()

	resp := healthResponse{
		Status:        "ok",
		DataValid:     status.DataValid,
		FramesOK:      status.FramesOK,
		FramesBad:     status.FramesBad,
		LineOverflows: status.LineOverflows,
		HexMessages:   stats.HexMessages,
		Staleness:     status.StalenessLimit.Seconds(),
	}
	if status.HasFrameAge {
		resp.FrameAge = status.FrameAge.Seconds()
	}

	code := http.StatusOK
	if !status.DataValid {
		resp.Status = "stale"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

// NewServer builds the HTTP server. A nil exporter or hub leaves its route
// unregistered.
func NewServer(listen string, exporter *Exporter, hub *Hub, streamPath string, health *HealthState) *http.Server {
	mux := http.NewServeMux()
	if exporter != nil {
		mux.Handle("/metrics", exporter.Handler())
	}
	if hub != nil {
		mux.Handle(streamPath, hub)
	}
	mux.Handle("/health", health)

	return &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

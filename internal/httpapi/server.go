// Package httpapi exposes the light indicators over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledhal/internal/arbiter"
	"github.com/dokzlo13/ledhal/internal/lights"
	"github.com/dokzlo13/ledhal/internal/metrics"
)

// Lights is the part of the arbiter the server needs.
type Lights interface {
	UpdateFrom(source string, ind lights.Indicator, s lights.State) error
	Snapshot() arbiter.Snapshot
}

// Server is the HTTP API server.
type Server struct {
	addr       string
	lights     Lights
	metrics    bool
	httpServer *http.Server
}

// NewServer creates a new API server. When withMetrics is set, /metrics
// serves the Prometheus registry.
func NewServer(host string, port int, l Lights, withMetrics bool) *Server {
	return &Server{
		addr:    fmt.Sprintf("%s:%d", host, port),
		lights:  l,
		metrics: withMetrics,
	}
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /lights", s.handleList)
	mux.HandleFunc("PUT /lights/{name}", s.handleSet)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if s.metrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	return mux
}

// Run starts the server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting HTTP API server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// setRequest is the body of PUT /lights/{name}.
type setRequest struct {
	Color      string `json:"color"`
	FlashMode  string `json:"flash_mode"`
	FlashOnMS  int    `json:"flash_on_ms"`
	FlashOffMS int    `json:"flash_off_ms"`
}

func (r setRequest) state() (lights.State, error) {
	color, err := lights.ParseColor(r.Color)
	if err != nil {
		return lights.State{}, err
	}
	mode, err := lights.ParseFlashMode(r.FlashMode)
	if err != nil {
		return lights.State{}, err
	}
	if r.FlashOnMS < 0 || r.FlashOffMS < 0 {
		return lights.State{}, &lights.Error{Kind: lights.InvalidArgument, Op: "parse state", Err: errors.New("negative flash duration")}
	}
	return lights.State{Color: color, FlashMode: mode, FlashOnMS: r.FlashOnMS, FlashOffMS: r.FlashOffMS}, nil
}

type lightView struct {
	Color      string `json:"color"`
	FlashMode  string `json:"flash_mode"`
	FlashOnMS  int    `json:"flash_on_ms"`
	FlashOffMS int    `json:"flash_off_ms"`
	Lit        bool   `json:"lit"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	snap := s.lights.Snapshot()

	views := make(map[string]lightView, len(snap.States))
	for ind, st := range snap.States {
		views[string(ind)] = lightView{
			Color:      lights.FormatColor(st.Color),
			FlashMode:  st.FlashMode.String(),
			FlashOnMS:  st.FlashOnMS,
			FlashOffMS: st.FlashOffMS,
			Lit:        lights.IsLit(st),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lights":        views,
		"speaker_owner": string(snap.Owner),
	})
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ind, err := lights.ParseIndicator(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req setRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, &lights.Error{Kind: lights.InvalidArgument, Op: "decode", Err: err})
		return
	}
	state, err := req.state()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	log.Debug().
		Str("indicator", name).
		Str("color", req.Color).
		Str("flash_mode", state.FlashMode.String()).
		Msg("Light update requested over HTTP")

	if err := s.lights.UpdateFrom("http", ind, state); err != nil {
		status := http.StatusBadGateway
		if lights.IsKind(err, lights.InvalidArgument) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "indicator": name, "code": 0})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"status": "error",
		"error":  err.Error(),
		"code":   lights.Code(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write HTTP response")
	}
}

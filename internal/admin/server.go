// Package admin exposes a simulation run over HTTP: a JSON control
// API, a websocket record feed, and a small embedded page using both.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/lifecycle"
	"github.com/AdiPat/ai-simulator/internal/sim"
)

//go:embed templates/index.html
var content embed.FS

// recordRingSize bounds how many records /api/records can replay.
const recordRingSize = 512

// shutdownTimeout bounds how long Start waits for in-flight requests
// once the run context ends.
const shutdownTimeout = 5 * time.Second

// Controller is the slice of the simulation controller the admin API
// drives. *sim.Controller satisfies it.
type Controller interface {
	Status() sim.Status
	Pause() error
	Resume() error
	Stop() error
	DescribeEnvironment(ctx context.Context) string
}

// Server hosts the admin page, the control API and the record feed for
// one simulation run.
type Server struct {
	ctrl   Controller
	cfg    *config.SimulationConfig
	hub    *Hub
	ring   *recordRing
	router *mux.Router
	tpl    *template.Template
	logger *slog.Logger
}

// NewServer wires the routes for the given controller. The config is
// only read for page metadata.
func NewServer(ctrl Controller, cfg *config.SimulationConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{
		ctrl:   ctrl,
		cfg:    cfg,
		hub:    NewHub(logger),
		ring:   &recordRing{max: recordRingSize},
		tpl:    tpl,
		logger: logger,
	}
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/pause", s.handlePause).Methods(http.MethodPost)
	r.HandleFunc("/api/resume", s.handleResume).Methods(http.MethodPost)
	r.HandleFunc("/api/stop", s.handleStop).Methods(http.MethodPost)
	r.HandleFunc("/api/describe", s.handleDescribe).Methods(http.MethodGet)
	r.HandleFunc("/api/records", s.handleRecords).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.ServeWS)
	s.router = r
	return s
}

// Feed returns the sink that drives /api/records and the websocket
// stream. Register it on the run's event bus.
func (s *Server) Feed() *FeedSink {
	return &FeedSink{ring: s.ring, hub: s.hub}
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)
	go s.dispatchActions(ctx)

	srv := &http.Server{Addr: addr, Handler: s.router}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("admin server listening", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// dispatchActions applies control actions arriving over websockets.
func (s *Server) dispatchActions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case action := <-s.hub.Actions:
			var err error
			switch action {
			case "pause":
				err = s.ctrl.Pause()
			case "resume":
				err = s.ctrl.Resume()
			case "stop":
				err = s.ctrl.Stop()
			default:
				s.logger.Warn("unknown control action", "action", action)
				continue
			}
			if err != nil {
				s.logger.Warn("control action rejected", "action", action, "error", err)
			}
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Name        string
		Description string
		Status      sim.Status
	}{
		Name:        s.cfg.Name,
		Description: s.cfg.Description,
		Status:      s.ctrl.Status(),
	}
	if err := s.tpl.Execute(w, data); err != nil {
		s.logger.Error("index render failed", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ctrl.Status())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.control(w, "pause", s.ctrl.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.control(w, "resume", s.ctrl.Resume)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.control(w, "stop", s.ctrl.Stop)
}

// control runs one lifecycle action. A rejected action (stopped run,
// double start and friends) maps to 409 rather than 500.
func (s *Server) control(w http.ResponseWriter, action string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.Warn("control request rejected", "action", action, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	desc := s.ctrl.DescribeEnvironment(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"description": desc})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ring.snapshot(limit))
}

// recordRing keeps the most recent records so a late-joining page can
// backfill its feed.
type recordRing struct {
	mu   sync.Mutex
	recs []lifecycle.Record
	max  int
}

func (r *recordRing) add(rec lifecycle.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	if len(r.recs) > r.max {
		r.recs = r.recs[len(r.recs)-r.max:]
	}
}

// snapshot copies the newest records, all of them when limit is zero.
func (r *recordRing) snapshot(limit int) []lifecycle.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.recs
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	out := make([]lifecycle.Record, len(recs))
	copy(out, recs)
	return out
}

// FeedSink publishes every lifecycle record to the ring buffer and to
// all connected websockets. It implements bus.Sink.
type FeedSink struct {
	ring *recordRing
	hub  *Hub
}

// Write stores the record and broadcasts it as JSON.
func (f *FeedSink) Write(rec lifecycle.Record) error {
	f.ring.add(rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	f.hub.Send(data)
	return nil
}

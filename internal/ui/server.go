// Package ui exposes the local HTTP and websocket surface that the
// rendering layer consumes: engine status, batch listings, session
// transitions, and the live toast stream. It binds to loopback; there is no
// auth on the socket itself, the session guard enforces view access.
package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/harvestguard/harvestguard-go/internal/engine"
	"github.com/harvestguard/harvestguard-go/internal/notify"
	"github.com/harvestguard/harvestguard-go/internal/session"
	"github.com/harvestguard/harvestguard-go/internal/store"
)

const shutdownGrace = 5 * time.Second

// BatchLister reads the stored batch collection. Satisfied by
// *store.SQLiteStore.
type BatchLister interface {
	ListBatches(ctx context.Context) ([]store.HarvestBatch, error)
}

// Config holds the collaborators for NewServer.
type Config struct {
	Addr    string
	Guard   *session.Guard
	Batches BatchLister
	Bus     *notify.Bus

	// SchedulerState and Offline feed /status. ReportOffline forwards
	// connectivity observations from the UI layer to the monitor.
	SchedulerState func() engine.State
	Offline        func() bool
	ReportOffline  func(ctx context.Context, offline bool)

	Version string
	Logger  *slog.Logger
}

// Server is the local UI-facing HTTP server.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	handler http.Handler
}

// NewServer creates a Server. It does not listen yet; call Run.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /batches", s.handleBatches)
	mux.HandleFunc("POST /session/login", s.handleLogin)
	mux.HandleFunc("POST /session/logout", s.handleLogout)
	mux.HandleFunc("POST /session/onboarding", s.handleOnboarding)
	mux.HandleFunc("POST /session/view", s.handleSetView)
	mux.HandleFunc("POST /session/tutorial/dismiss", s.handleDismissTutorial)
	mux.HandleFunc("POST /connectivity", s.handleConnectivity)
	mux.HandleFunc("GET /events", s.handleEvents)
	s.handler = mux

	return s
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("ui server listening", slog.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down ui server: %w", err)
		}

		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("ui server: %w", err)
	}
}

type statusResponse struct {
	Version         string `json:"version"`
	View            string `json:"view"`
	Authenticated   bool   `json:"authenticated"`
	TutorialVisible bool   `json:"tutorial_visible"`
	Offline         bool   `json:"offline"`
	Scheduler       string `json:"scheduler"`
	Toast           string `json:"toast,omitempty"`
	TotalBatches    int    `json:"total_batches"`
	ActiveBatches   int    `json:"active_batches"`
}

// batchResponse is the wire shape of one batch.
type batchResponse struct {
	ID          string   `json:"id"`
	CropType    string   `json:"crop_type"`
	WeightKg    float64  `json:"weight_kg"`
	HarvestDate string   `json:"harvest_date"`
	Division    string   `json:"division"`
	Upazila     string   `json:"upazila"`
	Union       string   `json:"union"`
	StorageType string   `json:"storage_type"`
	Status      string   `json:"status"`
	EtclHours   *float64 `json:"etcl_hours"`
	RiskLevel   *string  `json:"risk_level"`
	CreatedAt   int64    `json:"created_at"`
	UpdatedAt   int64    `json:"updated_at"`
}

func toBatchResponse(b store.HarvestBatch) batchResponse {
	resp := batchResponse{
		ID:          b.ID,
		CropType:    b.CropType,
		WeightKg:    b.WeightKg,
		HarvestDate: b.HarvestDate,
		Division:    b.Division,
		Upazila:     b.Upazila,
		Union:       b.Union,
		StorageType: b.StorageType,
		Status:      string(b.Status),
		EtclHours:   b.EtclHours,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}

	if b.RiskLevel != nil {
		level := string(*b.RiskLevel)
		resp.RiskLevel = &level
	}

	return resp
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	batches, err := s.cfg.Batches.ListBatches(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	active := 0
	for _, b := range batches {
		if b.Status == store.StatusActive {
			active++
		}
	}

	s.writeJSON(w, http.StatusOK, statusResponse{
		Version:         s.cfg.Version,
		View:            string(s.cfg.Guard.View()),
		Authenticated:   s.cfg.Guard.Authenticated(),
		TutorialVisible: s.cfg.Guard.TutorialVisible(),
		Offline:         s.cfg.Offline(),
		Scheduler:       s.cfg.SchedulerState().String(),
		Toast:           s.cfg.Bus.Current(),
		TotalBatches:    len(batches),
		ActiveBatches:   active,
	})
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.cfg.Batches.ListBatches(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := make([]batchResponse, 0, len(batches))
	for _, b := range batches {
		resp = append(resp, toBatchResponse(b))
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.cfg.Guard.LoginSucceeded(r.Context())
	s.writeSession(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.cfg.Guard.Logout()
	s.writeSession(w)
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	s.cfg.Guard.OnboardingCompleted(r.Context())
	s.writeSession(w)
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View string `json:"view"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	if req.View == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("view is required"))
		return
	}

	s.cfg.Guard.SetView(r.Context(), session.View(req.View))
	s.writeSession(w)
}

func (s *Server) handleDismissTutorial(w http.ResponseWriter, r *http.Request) {
	s.cfg.Guard.DismissTutorial(r.Context())
	s.writeSession(w)
}

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Offline *bool `json:"offline"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	if req.Offline == nil {
		s.writeError(w, http.StatusBadRequest, errors.New("offline is required"))
		return
	}

	s.cfg.ReportOffline(r.Context(), *req.Offline)
	w.WriteHeader(http.StatusNoContent)
}

// toastEvent is one websocket frame on /events.
type toastEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	toasts, cancel := s.cfg.Bus.Subscribe()
	defer cancel()

	ctx := r.Context()

	// Replay the toast currently showing so a late subscriber is not blank.
	if current := s.cfg.Bus.Current(); current != "" {
		if err := wsjson.Write(ctx, conn, toastEvent{Type: "toast", Message: current}); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case msg, ok := <-toasts:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}

			if err := wsjson.Write(ctx, conn, toastEvent{Type: "toast", Message: msg}); err != nil {
				return
			}
		}
	}
}

type sessionResponse struct {
	View            string `json:"view"`
	Authenticated   bool   `json:"authenticated"`
	TutorialVisible bool   `json:"tutorial_visible"`
}

// writeSession reports the guard state after a transition. The view in the
// response is post-reconcile, so a redirected navigation is visible to the
// caller immediately.
func (s *Server) writeSession(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, sessionResponse{
		View:            string(s.cfg.Guard.View()),
		Authenticated:   s.cfg.Guard.Authenticated(),
		TutorialVisible: s.cfg.Guard.TutorialVisible(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response failed", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request failed", slog.Int("status", status), slog.String("error", err.Error()))
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/mfitzp/kropbot/internal/auth"
	"github.com/mfitzp/kropbot/internal/direction"
	"github.com/mfitzp/kropbot/internal/relay"
)

// maxFrameBytes caps camera frame uploads.
const maxFrameBytes = 4 << 20

// IntentRequest is one operator steering submission. A null or absent
// direction is a stop request.
type IntentRequest struct {
	User      string `json:"user"`
	Direction *int   `json:"direction"`
}

// ReportRequest is the rover's status report for its last control tick.
type ReportRequest struct {
	Direction   int                    `json:"direction"`
	Magnitude   float64                `json:"magnitude"`
	TotalCounts map[direction.Code]int `json:"total_counts"`
	Controllers int                    `json:"n_controllers"`
}

// RegisterRoutes registers all v1 endpoints.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	apiV1 := "/api/v1"

	// Health endpoint (no auth required)
	mux.HandleFunc(apiV1+"/health", s.handleHealth)

	if s.authMiddleware == nil {
		mux.HandleFunc(apiV1+"/intents", s.handleIntents)
		mux.HandleFunc(apiV1+"/rover/report", s.handleReport)
		mux.HandleFunc(apiV1+"/rover/frame", s.handleFrame)
		mux.HandleFunc(apiV1+"/telemetry", s.handleTelemetry)
		mux.HandleFunc(apiV1+"/camera/latest", s.handleCameraLatest)
		mux.HandleFunc(apiV1+"/history", s.handleHistory)
		return
	}

	// Operators steer, the rover reports, everyone else watches
	mux.HandleFunc(apiV1+"/intents", s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(auth.ScopeOperator)(s.handleIntents)))
	mux.HandleFunc(apiV1+"/rover/report", s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(auth.ScopeRover)(s.handleReport)))
	mux.HandleFunc(apiV1+"/rover/frame", s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(auth.ScopeRover)(s.handleFrame)))
	mux.HandleFunc(apiV1+"/telemetry", s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(auth.ScopeViewer)(s.handleTelemetry)))
	mux.HandleFunc(apiV1+"/camera/latest", s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(auth.ScopeViewer)(s.handleCameraLatest)))
	mux.HandleFunc(apiV1+"/history", s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(auth.ScopeViewer)(s.handleHistory)))
}

// handleIntents handles POST /intents
func (s *Server) handleIntents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only POST method is allowed", nil)
		return
	}

	var req IntentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON or unknown fields", nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Trailing data after JSON object", nil)
		return
	}

	dir := direction.FromWire(req.Direction)

	if err := s.coordinator.RecordIntent(r.Context(), req.User, dir); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteAccepted(w, map[string]interface{}{
		"user":      req.User,
		"direction": int(dir),
	})
}

// handleReport handles POST /rover/report
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only POST method is allowed", nil)
		return
	}

	var req ReportRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON or unknown fields", nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Trailing data after JSON object", nil)
		return
	}

	report := relay.StatusReport{
		Direction:   direction.Coerce(req.Direction),
		Magnitude:   req.Magnitude,
		Controllers: req.Controllers,
		Counts:      req.TotalCounts,
	}

	dirs, err := s.coordinator.ServeReport(r.Context(), s.actorFromRequest(r), report)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	wire := make([]int, len(dirs))
	for i, d := range dirs {
		wire[i] = int(d)
	}

	WriteSuccess(w, map[string]interface{}{
		"directions": wire,
	})
}

// handleFrame handles POST /rover/frame with a raw JPEG body
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only POST method is allowed", nil)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes+1))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Failed to read frame body", nil)
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Empty frame body", nil)
		return
	}
	if len(data) > maxFrameBytes {
		WriteError(w, http.StatusRequestEntityTooLarge, "FRAME_TOO_LARGE",
			"Frame exceeds maximum size", nil)
		return
	}

	if err := s.coordinator.StoreFrame(r.Context(), s.actorFromRequest(r), data); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteAccepted(w, map[string]interface{}{
		"bytes": len(data),
	})
}

// handleTelemetry handles GET /telemetry
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Telemetry service not available", nil)
		return
	}

	// The stream may already be partially written when Subscribe fails,
	// so no JSON envelope here.
	if err := s.telemetryHub.Subscribe(r.Context(), w, r); err != nil {
		log.Printf("api: telemetry subscription ended: %v", err)
	}
}

// handleCameraLatest handles GET /camera/latest
func (s *Server) handleCameraLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	frame, ok := s.coordinator.LatestFrame()
	if !ok {
		WriteError(w, http.StatusNotFound, "NOT_FOUND",
			"No camera frame received yet", nil)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Frame-Seq", strconv.FormatInt(frame.Seq, 10))
	w.Header().Set("X-Frame-Time", frame.ReceivedAt.Format(time.RFC3339))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame.Data)
}

// handleHistory handles GET /history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			WriteError(w, http.StatusBadRequest, "INVALID_RANGE",
				"limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	records, err := s.coordinator.History(r.Context(), limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"reports": records,
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	uptime := 0.0
	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Seconds()
	}

	WriteSuccess(w, map[string]interface{}{
		"status":    "ok",
		"uptimeSec": uptime,
		"operators": s.coordinator.Operators(),
		"version":   "1.0.0",
	})
}

func (s *Server) actorFromRequest(r *http.Request) string {
	if claims := auth.GetClaimsFromRequest(r); claims != nil {
		return claims.Subject
	}
	return "anonymous"
}

// Package control exposes the HTTP JSON API the companion UI and browser
// extension use to drive the daemon:
//
//   - POST /api/start        — start a translation session
//   - POST /api/stop         — stop the current session
//   - POST /api/clear        — reset the current session's utterance state
//   - POST /api/display-mode — switch the presentation surface
//   - GET  /api/status       — session status
//   - GET  /api/debuglog     — recent log entries
//
// Every mutating response carries a top-level "status" field, "success" or
// "error"; errors additionally carry a "message".
package control

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tobfel/glossia/internal/config"
	"github.com/tobfel/glossia/internal/debuglog"
	"github.com/tobfel/glossia/internal/session"
)

// Handler serves the control API. Defaults fill in start-request fields the
// caller omits.
type Handler struct {
	log      *slog.Logger
	sessions *session.Manager
	logs     *debuglog.Buffer
	defaults Defaults
}

// Defaults are the configured fallbacks for omitted start-request fields.
type Defaults struct {
	InputLang   string
	OutputLang  string
	DisplayMode config.DisplayMode
}

// New creates a control Handler.
func New(sessions *session.Manager, logs *debuglog.Buffer, defaults Defaults, log *slog.Logger) *Handler {
	return &Handler{log: log, sessions: sessions, logs: logs, defaults: defaults}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/start", h.handleStart)
	mux.HandleFunc("POST /api/stop", h.handleStop)
	mux.HandleFunc("POST /api/clear", h.handleClear)
	mux.HandleFunc("POST /api/display-mode", h.handleDisplayMode)
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("GET /api/debuglog", h.handleDebugLog)
}

type startRequest struct {
	InputLang   string `json:"inputLang"`
	OutputLang  string `json:"outputLang"`
	DisplayMode string `json:"displayMode"`
}

type displayModeRequest struct {
	DisplayMode string `json:"displayMode"`
}

type statusResponse struct {
	APIStatus string `json:"status"`
	session.Status
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	// An empty body means "use the configured defaults".
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InputLang == "" {
		req.InputLang = h.defaults.InputLang
	}
	if req.OutputLang == "" {
		req.OutputLang = h.defaults.OutputLang
	}
	mode := h.defaults.DisplayMode
	if req.DisplayMode != "" {
		mode = config.DisplayMode(req.DisplayMode)
	}

	if req.OutputLang == "" {
		h.respondError(w, http.StatusBadRequest, "outputLang is required")
		return
	}
	if !mode.IsValid() {
		h.respondError(w, http.StatusBadRequest, "unknown display mode "+string(mode))
		return
	}

	if err := h.sessions.Start(r.Context(), req.InputLang, req.OutputLang, mode); err != nil {
		h.log.Error("control: start failed", "error", err)
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.respondSuccess(w)
}

func (h *Handler) handleStop(w http.ResponseWriter, _ *http.Request) {
	if err := h.sessions.Stop(); err != nil {
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	h.respondSuccess(w)
}

func (h *Handler) handleClear(w http.ResponseWriter, _ *http.Request) {
	if err := h.sessions.Clear(); err != nil {
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	h.respondSuccess(w)
}

func (h *Handler) handleDisplayMode(w http.ResponseWriter, r *http.Request) {
	var req displayModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode := config.DisplayMode(req.DisplayMode)
	if !mode.IsValid() {
		h.respondError(w, http.StatusBadRequest, "unknown display mode "+req.DisplayMode)
		return
	}
	if err := h.sessions.SetDisplayMode(mode); err != nil {
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	h.respondSuccess(w)
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{APIStatus: "success", Status: h.sessions.Status()})
}

func (h *Handler) handleDebugLog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"entries": h.logs.Entries(),
	})
}

func (h *Handler) respondSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) respondError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"status": "error", "message": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

package mailer

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Options struct {
	MinLatency time.Duration
	MaxLatency time.Duration
}

type Handler struct {
	opts   Options
	logger *slog.Logger

	mu   sync.Mutex
	sent map[string]struct{}
}

func NewHandler(opts Options, logger *slog.Logger) *Handler {
	return &Handler{
		opts:   opts,
		logger: logger,
		sent:   make(map[string]struct{}),
	}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /send", wrap(h.HandleSend))
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req Email
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !strings.Contains(req.To, "@") || strings.TrimSpace(req.Subject) == "" {
		h.writeError(w, http.StatusBadRequest, "recipient and subject are required")
		return
	}

	if key := r.Header.Get("Idempotency-Key"); key != "" {
		h.mu.Lock()
		_, dup := h.sent[key]
		h.sent[key] = struct{}{}
		h.mu.Unlock()

		if dup {
			h.logger.Info("duplicate email suppressed", "to", req.To, "key", key)
			h.writeJSON(w, http.StatusOK, sendResponse{Status: "duplicate"})
			return
		}
	}

	h.sleep()

	h.logger.Info("email sent", "to", req.To, "subject", req.Subject)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

func (h *Handler) sleep() {
	if h.opts.MaxLatency <= 0 {
		return
	}
	delay := h.opts.MinLatency
	if spread := h.opts.MaxLatency - h.opts.MinLatency; spread > 0 {
		delay += rand.N(spread)
	}
	time.Sleep(delay)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

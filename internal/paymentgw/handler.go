// Package paymentgw is a mock payment provider used in development and
// integration runs. Outcomes are deterministic so tests can force a decline.
package paymentgw

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/payment"
)

type Options struct {
	// DeclineAbove declines any charge with a larger amount. Zero disables it.
	DeclineAbove decimal.Decimal
	MinLatency   time.Duration
	MaxLatency   time.Duration
}

type Handler struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	charges map[string]payment.ChargeResult
}

func NewHandler(opts Options, logger *slog.Logger) *Handler {
	return &Handler{
		opts:    opts,
		logger:  logger,
		charges: make(map[string]payment.ChargeResult),
	}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /charges", wrap(h.HandleCharge))
}

// HandleCharge answers 200 for a successful charge and 402 for a decline.
// A repeated Idempotency-Key returns the first answer.
func (h *Handler) HandleCharge(w http.ResponseWriter, r *http.Request) {
	var req payment.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = req.PaymentID
	}

	h.mu.Lock()
	result, seen := h.charges[key]
	h.mu.Unlock()

	if !seen {
		h.sleep()
		result = h.decide(req)

		if key != "" {
			h.mu.Lock()
			if earlier, ok := h.charges[key]; ok {
				result = earlier
			} else {
				h.charges[key] = result
			}
			h.mu.Unlock()
		}
	}

	h.logger.Info("charge processed", "payment_id", req.PaymentID, "order_id", req.OrderID,
		"method", req.Method, "amount", req.Amount, "success", result.Success, "replayed", seen)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusPaymentRequired
	}
	h.writeJSON(w, status, result)
}

func (h *Handler) decide(req payment.ChargeRequest) payment.ChargeResult {
	switch {
	case !req.Method.Valid():
		return payment.ChargeResult{Reason: "unsupported payment method"}
	case !req.Amount.IsPositive():
		return payment.ChargeResult{Reason: "invalid amount"}
	case req.Method.IsUPI() && strings.HasSuffix(req.Detail, "@fail"):
		return payment.ChargeResult{Reason: "upi collect request rejected"}
	case req.Method == domain.PaymentMethodCard && strings.HasPrefix(req.Detail, "tok_decline"):
		return payment.ChargeResult{Reason: "card declined"}
	case h.opts.DeclineAbove.IsPositive() && req.Amount.GreaterThan(h.opts.DeclineAbove):
		return payment.ChargeResult{Reason: "amount exceeds limit"}
	}

	return payment.ChargeResult{Success: true, Reference: "pay_" + uuid.New().String()}
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

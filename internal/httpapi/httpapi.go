// Package httpapi holds the JSON response helpers and error mapping shared by
// the storefront handlers.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

// CustomerHeader carries the authenticated customer id set by the gateway.
const CustomerHeader = "X-Customer-ID"

const IdempotencyHeader = "Idempotency-Key"

func CustomerID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(CustomerHeader))
	if id == "" {
		return "", domain.ErrUnauthenticated
	}
	return id, nil
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	WriteJSON(w, logger, status, map[string]string{"error": message})
}

// WriteDomainError maps err to a status code and writes it. Unknown errors
// are logged and reported as 500 without leaking details.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, message := StatusFromError(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}

	body := map[string]string{"error": message}
	if errors.Is(err, domain.ErrEmptyCart) {
		body["redirect"] = "/cart"
	}
	if errors.Is(err, domain.ErrUnauthenticated) {
		body["redirect"] = "/login"
	}
	WriteJSON(w, logger, status, body)
}

func StatusFromError(err error) (int, string) {
	var validationErr *domain.ValidationError
	var paymentErr *domain.PaymentError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &paymentErr):
		return http.StatusPaymentRequired, paymentErr.Reason
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusConflict, "cart is empty"
	case errors.Is(err, domain.ErrInvalidStep):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("", "invalid request body")
	}
	return nil
}

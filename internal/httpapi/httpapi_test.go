package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.NewValidationError("mobile", "must be 10 digits"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("address a-1: %w", domain.ErrNotFound), http.StatusNotFound},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized},
		{"payment", &domain.PaymentError{OrderID: "o-1", Reason: "declined"}, http.StatusPaymentRequired},
		{"empty cart", domain.ErrEmptyCart, http.StatusConflict},
		{"invalid step", fmt.Errorf("proceed: %w", domain.ErrInvalidStep), http.StatusConflict},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := StatusFromError(tc.err)
			if status != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, status)
			}
		})
	}
}

func TestWriteDomainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("empty cart carries redirect", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteDomainError(rec, logger, domain.ErrEmptyCart)

		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["redirect"] != "/cart" {
			t.Errorf("expected redirect /cart, got %q", body["redirect"])
		}
	})

	t.Run("internal error hides details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteDomainError(rec, logger, errors.New("pq: connection refused"))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "pq") {
			t.Errorf("expected internal details hidden, got %s", rec.Body.String())
		}
	})
}

func TestCustomerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/addresses", nil)
	if _, err := CustomerID(req); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}

	req.Header.Set(CustomerHeader, " cust-1 ")
	id, err := CustomerID(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "cust-1" {
		t.Errorf("expected cust-1, got %q", id)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	err := DecodeJSON(req, &dst)
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := DecodeJSON(req, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Name != "x" {
		t.Errorf("expected name x, got %q", dst.Name)
	}
}

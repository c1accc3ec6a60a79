package addresses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/httpapi"
)

const addressBody = `{"full_name":"Asha Raman","mobile":"9876543210","street":"12 Anna Salai","city":"Chennai","state":"Tamil Nadu","postal_code":"600001","country":"India","type":"home"}`

func newTestMux(postal PostalLookup) (*http.ServeMux, *Service) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(NewMemoryStore(), postal, logger)
	mux := http.NewServeMux()
	NewHandler(svc, postal, logger).Register(mux, func(h http.HandlerFunc) http.HandlerFunc { return h })
	return mux, svc
}

func doRequest(mux *http.ServeMux, method, path, customerID, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if customerID != "" {
		req.Header.Set(httpapi.CustomerHeader, customerID)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Create(t *testing.T) {
	t.Run("creates first address as default and current", func(t *testing.T) {
		mux, _ := newTestMux(nil)

		rec := doRequest(mux, http.MethodPost, "/addresses", "cust-1", addressBody)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var addr domain.Address
		if err := json.NewDecoder(rec.Body).Decode(&addr); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if addr.ID == "" {
			t.Error("expected id to be set")
		}
		if !addr.IsDefault || !addr.IsCurrent {
			t.Errorf("expected default and current, got %+v", addr)
		}
	})

	t.Run("rejects missing customer", func(t *testing.T) {
		mux, _ := newTestMux(nil)

		rec := doRequest(mux, http.MethodPost, "/addresses", "", addressBody)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("rejects invalid mobile", func(t *testing.T) {
		mux, _ := newTestMux(nil)

		body := strings.Replace(addressBody, "9876543210", "12345", 1)
		rec := doRequest(mux, http.MethodPost, "/addresses", "cust-1", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !strings.HasPrefix(resp["error"], "mobile") {
			t.Errorf("expected mobile error, got %q", resp["error"])
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		mux, _ := newTestMux(nil)

		rec := doRequest(mux, http.MethodPost, "/addresses", "cust-1", `{"full_name":`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_FlagRoutes(t *testing.T) {
	mux, svc := newTestMux(nil)
	ctx := context.Background()

	first, _ := svc.Create(ctx, "cust-1", validInput())
	second, _ := svc.Create(ctx, "cust-1", validInput())

	rec := doRequest(mux, http.MethodPost, "/addresses/"+second.ID+"/default", "cust-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var addrs []domain.Address
	if err := json.NewDecoder(rec.Body).Decode(&addrs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if byID(addrs, first.ID).IsDefault || !byID(addrs, second.ID).IsDefault {
		t.Errorf("expected default moved, got %+v", addrs)
	}

	rec = doRequest(mux, http.MethodPost, "/addresses/"+second.ID+"/current", "cust-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = doRequest(mux, http.MethodPost, "/addresses/"+second.ID+"/current", "cust-2", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for foreign customer, got %d", rec.Code)
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	mux, svc := newTestMux(nil)
	ctx := context.Background()
	addr, _ := svc.Create(ctx, "cust-1", validInput())

	body := strings.Replace(addressBody, "12 Anna Salai", "1 Mount Road", 1)
	rec := doRequest(mux, http.MethodPut, "/addresses/"+addr.ID, "cust-1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(mux, http.MethodGet, "/addresses/"+addr.ID, "cust-1", "")
	var got domain.Address
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Street != "1 Mount Road" {
		t.Errorf("expected updated street, got %s", got.Street)
	}

	rec = doRequest(mux, http.MethodDelete, "/addresses/"+addr.ID, "cust-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	rec = doRequest(mux, http.MethodDelete, "/addresses/"+addr.ID, "cust-1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	rec = doRequest(mux, http.MethodGet, "/addresses", "cust-1", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}

func TestHandler_PostalLookup(t *testing.T) {
	t.Run("returns place", func(t *testing.T) {
		mux, _ := newTestMux(&fakePostal{place: domain.Place{City: "Chennai", State: "Tamil Nadu", Country: "India"}})

		rec := doRequest(mux, http.MethodGet, "/postal/600001", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var place domain.Place
		if err := json.NewDecoder(rec.Body).Decode(&place); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if place.City != "Chennai" {
			t.Errorf("expected Chennai, got %s", place.City)
		}
	})

	t.Run("rejects malformed code", func(t *testing.T) {
		mux, _ := newTestMux(&fakePostal{})

		rec := doRequest(mux, http.MethodGet, "/postal/60A001", "", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("lookup failure is a bad gateway", func(t *testing.T) {
		mux, _ := newTestMux(&fakePostal{err: errors.New("down")})

		rec := doRequest(mux, http.MethodGet, "/postal/600001", "", "")
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}
	})

	t.Run("no lookup configured", func(t *testing.T) {
		mux, _ := newTestMux(nil)

		rec := doRequest(mux, http.MethodGet, "/postal/600001", "", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rec.Code)
		}
	})
}

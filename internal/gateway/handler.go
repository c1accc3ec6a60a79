// Package gateway is the public entry point. It authenticates the caller,
// stamps the customer id on the request and proxies it to the storefront.
package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	CustomerHeader    = "X-Customer-ID"
	IdempotencyHeader = "Idempotency-Key"
)

type Handler struct {
	storefront *ServiceProxy
	logger     *slog.Logger
}

func NewHandler(storefront *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		storefront: storefront,
		logger:     logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	for _, prefix := range []string{"/addresses", "/checkout", "/orders"} {
		mux.HandleFunc(prefix, wrap(h.HandleStorefront))
		mux.HandleFunc(prefix+"/", wrap(h.HandleStorefront))
	}
	mux.HandleFunc("GET /postal/{code}", wrap(h.HandlePublic))
}

// HandleStorefront requires a bearer token and forwards the request with the
// customer id taken from it. A customer id sent by the client is discarded.
func (h *Handler) HandleStorefront(w http.ResponseWriter, r *http.Request) {
	r.Header.Del(CustomerHeader)

	customerID, ok := bearerSubject(r.Header.Get("Authorization"))
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":    "authentication required",
			"redirect": "/login",
		})
		return
	}
	r.Header.Set(CustomerHeader, customerID)

	h.proxyRequest(w, r, r.URL.Path)
}

func (h *Handler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	r.Header.Del(CustomerHeader)
	h.proxyRequest(w, r, r.URL.Path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, path string) {
	resp, err := h.storefront.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "service unavailable"})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode,
		"customer_id", r.Header.Get(CustomerHeader))

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// bearerSubject extracts the token from "Bearer <token>". Tokens are opaque
// customer ids in this deployment.
func bearerSubject(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

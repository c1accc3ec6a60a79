package addresses

import (
	"log/slog"
	"net/http"

	"github.com/Zyfrr/shopstreak/internal/httpapi"
)

type Handler struct {
	service *Service
	postal  PostalLookup
	logger  *slog.Logger
}

func NewHandler(service *Service, postal PostalLookup, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		postal:  postal,
		logger:  logger,
	}
}

// Register mounts the address routes on mux. wrap decorates each handler,
// e.g. with telemetry.WithHTTPRoute.
func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /addresses", wrap(h.HandleList))
	mux.HandleFunc("POST /addresses", wrap(h.HandleCreate))
	mux.HandleFunc("GET /addresses/{id}", wrap(h.HandleGet))
	mux.HandleFunc("PUT /addresses/{id}", wrap(h.HandleUpdate))
	mux.HandleFunc("DELETE /addresses/{id}", wrap(h.HandleDelete))
	mux.HandleFunc("POST /addresses/{id}/default", wrap(h.HandleSetDefault))
	mux.HandleFunc("POST /addresses/{id}/current", wrap(h.HandleSetCurrent))
	mux.HandleFunc("GET /postal/{code}", wrap(h.HandlePostalLookup))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	addrs, err := h.service.List(r.Context(), customerID)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("addresses listed", "customer_id", customerID, "count", len(addrs))
	httpapi.WriteJSON(w, h.logger, http.StatusOK, addrs)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	addr, err := h.service.Get(r.Context(), customerID, r.PathValue("id"))
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	httpapi.WriteJSON(w, h.logger, http.StatusOK, addr)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	var in AddressInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	addr, err := h.service.Create(r.Context(), customerID, in)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("address created", "customer_id", customerID, "address_id", addr.ID,
		"is_default", addr.IsDefault, "is_current", addr.IsCurrent)
	httpapi.WriteJSON(w, h.logger, http.StatusCreated, addr)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	var in AddressInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	addr, err := h.service.Update(r.Context(), customerID, r.PathValue("id"), in)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("address updated", "customer_id", customerID, "address_id", addr.ID)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, addr)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), customerID, id); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("address deleted", "customer_id", customerID, "address_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetDefault(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	id := r.PathValue("id")
	if err := h.service.SetDefault(r.Context(), customerID, id); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("default address set", "customer_id", customerID, "address_id", id)
	h.writeList(w, r, customerID)
}

func (h *Handler) HandleSetCurrent(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	id := r.PathValue("id")
	if err := h.service.SetCurrent(r.Context(), customerID, id); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("current address set", "customer_id", customerID, "address_id", id)
	h.writeList(w, r, customerID)
}

// HandlePostalLookup serves address auto-fill. Failures are reported but the
// client is expected to fall back to manual entry.
func (h *Handler) HandlePostalLookup(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if !IsPostalCode(code) {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, "postal code must be exactly 6 digits")
		return
	}

	if h.postal == nil {
		httpapi.WriteError(w, h.logger, http.StatusServiceUnavailable, "postal lookup unavailable")
		return
	}

	place, err := h.postal.Lookup(r.Context(), code)
	if err != nil {
		h.logger.Warn("postal lookup failed", "error", err, "postal_code", code)
		httpapi.WriteError(w, h.logger, http.StatusBadGateway, "postal lookup unavailable")
		return
	}

	httpapi.WriteJSON(w, h.logger, http.StatusOK, place)
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, customerID string) {
	addrs, err := h.service.List(r.Context(), customerID)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, h.logger, http.StatusOK, addrs)
}

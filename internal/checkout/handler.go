package checkout

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/httpapi"
)

type Handler struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
}

func NewHandler(orchestrator *Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /checkout", wrap(h.HandleBegin))
	mux.HandleFunc("GET /checkout/{id}", wrap(h.HandleGet))
	mux.HandleFunc("DELETE /checkout/{id}", wrap(h.HandleCancel))
	mux.HandleFunc("POST /checkout/{id}/address", wrap(h.HandleSelectAddress))
	mux.HandleFunc("POST /checkout/{id}/refresh", wrap(h.HandleRefresh))
	mux.HandleFunc("POST /checkout/{id}/next", wrap(h.HandleProceed))
	mux.HandleFunc("POST /checkout/{id}/back", wrap(h.HandleBack))
	mux.HandleFunc("POST /checkout/{id}/payment", wrap(h.HandleSelectPayment))
	mux.HandleFunc("POST /checkout/{id}/confirm", wrap(h.HandleConfirm))
}

type selectAddressRequest struct {
	AddressID string `json:"address_id"`
}

type selectPaymentRequest struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	PaymentDetail string               `json:"payment_detail"`
}

type confirmResponse struct {
	Error    string        `json:"error,omitempty"`
	Order    *domain.Order `json:"order"`
	Checkout *View         `json:"checkout"`
}

func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	view, err := h.orchestrator.Begin(r.Context(), customerID)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	httpapi.WriteJSON(w, h.logger, http.StatusCreated, view)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(customerID, sessionID string) (*View, error) {
		return h.orchestrator.Get(r.Context(), customerID, sessionID)
	})
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	if err := h.orchestrator.Cancel(r.Context(), customerID, r.PathValue("id")); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSelectAddress(w http.ResponseWriter, r *http.Request) {
	var req selectAddressRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.respond(w, r, func(customerID, sessionID string) (*View, error) {
		return h.orchestrator.SelectAddress(r.Context(), customerID, sessionID, req.AddressID)
	})
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(customerID, sessionID string) (*View, error) {
		return h.orchestrator.RefreshAddresses(r.Context(), customerID, sessionID)
	})
}

func (h *Handler) HandleProceed(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(customerID, sessionID string) (*View, error) {
		return h.orchestrator.Proceed(r.Context(), customerID, sessionID)
	})
}

func (h *Handler) HandleBack(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(customerID, sessionID string) (*View, error) {
		return h.orchestrator.Back(r.Context(), customerID, sessionID)
	})
}

func (h *Handler) HandleSelectPayment(w http.ResponseWriter, r *http.Request) {
	var req selectPaymentRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.respond(w, r, func(customerID, sessionID string) (*View, error) {
		return h.orchestrator.SelectPayment(r.Context(), customerID, sessionID, req.PaymentMethod, req.PaymentDetail)
	})
}

// HandleConfirm answers 200 with the order once paid. A failed payment is a
// 402 that still carries the order and the session, which stays at payment.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}
	sessionID := r.PathValue("id")

	order, err := h.orchestrator.Confirm(r.Context(), customerID, sessionID)

	var paymentErr *domain.PaymentError
	if err != nil && !(errors.As(err, &paymentErr) && order != nil) {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	view, viewErr := h.orchestrator.Get(r.Context(), customerID, sessionID)
	if viewErr != nil {
		h.logger.Warn("failed to load checkout view", "error", viewErr, "session_id", sessionID)
	}

	if paymentErr != nil {
		httpapi.WriteJSON(w, h.logger, http.StatusPaymentRequired, confirmResponse{
			Error:    paymentErr.Reason,
			Order:    order,
			Checkout: view,
		})
		return
	}

	h.logger.Info("checkout confirmed", "session_id", sessionID, "order_id", order.ID)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, confirmResponse{Order: order, Checkout: view})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, fn func(customerID, sessionID string) (*View, error)) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	view, err := fn(customerID, r.PathValue("id"))
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	httpapi.WriteJSON(w, h.logger, http.StatusOK, view)
}

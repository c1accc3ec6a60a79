package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/httpapi"
)

// AddressReader resolves a customer's address for direct order placement.
// addresses.Service satisfies it.
type AddressReader interface {
	Get(ctx context.Context, customerID, id string) (*domain.Address, error)
}

// CartReader supplies the priced lines for direct order placement. Prices
// never come from the request body. cart.Client satisfies it.
type CartReader interface {
	CheckoutItems(ctx context.Context, customerID string) (domain.CartSnapshot, error)
}

type Handler struct {
	coordinator *Coordinator
	addresses   AddressReader
	cart        CartReader
	logger      *slog.Logger
}

func NewHandler(coordinator *Coordinator, addresses AddressReader, cart CartReader, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		addresses:   addresses,
		cart:        cart,
		logger:      logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /orders", wrap(h.HandleList))
	mux.HandleFunc("POST /orders", wrap(h.HandleCreate))
	mux.HandleFunc("GET /orders/{id}", wrap(h.HandleGet))
	mux.HandleFunc("POST /orders/{id}/payments", wrap(h.HandleRetryPayment))
	mux.HandleFunc("POST /orders/{id}/cancel", wrap(h.HandleCancel))
}

type createOrderRequest struct {
	AddressID     string               `json:"address_id"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	PaymentDetail string               `json:"payment_detail"`
}

type paymentRequest struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	PaymentDetail string               `json:"payment_detail"`
}

// paymentFailedResponse is the 402 body. The order is included because it
// exists regardless of the payment outcome.
type paymentFailedResponse struct {
	Error string        `json:"error"`
	Order *domain.Order `json:"order"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	var req createOrderRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	if req.AddressID == "" {
		httpapi.WriteDomainError(w, h.logger, domain.NewValidationError("address_id", "is required"))
		return
	}

	addr, err := h.addresses.Get(r.Context(), customerID, req.AddressID)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	snapshot, err := h.cart.CheckoutItems(r.Context(), customerID)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}
	if len(snapshot.Items) == 0 {
		httpapi.WriteDomainError(w, h.logger, domain.ErrEmptyCart)
		return
	}

	order, err := h.coordinator.PlaceOrder(r.Context(), PlaceOrderRequest{
		CustomerID:     customerID,
		IdempotencyKey: r.Header.Get(httpapi.IdempotencyHeader),
		Items:          snapshot.OrderItems(),
		Shipping:       addr.Shipping(),
		Discount:       snapshot.Discount,
		Method:         req.PaymentMethod,
		Detail:         req.PaymentDetail,
	})
	if err != nil {
		h.writeOrderError(w, order, err)
		return
	}

	h.logger.Info("order placed", "order_id", order.ID, "customer_id", customerID, "status", order.Status)
	httpapi.WriteJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	order, err := h.coordinator.Get(r.Context(), customerID, r.PathValue("id"))
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	orders, err := h.coordinator.List(r.Context(), customerID)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("orders listed", "customer_id", customerID, "count", len(orders))
	httpapi.WriteJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleRetryPayment(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	var req paymentRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	order, err := h.coordinator.RetryPayment(r.Context(), customerID, r.PathValue("id"), req.PaymentMethod, req.PaymentDetail)
	if err != nil {
		h.writeOrderError(w, order, err)
		return
	}

	h.logger.Info("order payment retried", "order_id", order.ID, "payment_status", order.PaymentStatus)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpapi.CustomerID(r)
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	order, err := h.coordinator.Cancel(r.Context(), customerID, r.PathValue("id"))
	if err != nil {
		httpapi.WriteDomainError(w, h.logger, err)
		return
	}

	httpapi.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) writeOrderError(w http.ResponseWriter, order *domain.Order, err error) {
	var paymentErr *domain.PaymentError
	if errors.As(err, &paymentErr) && order != nil {
		httpapi.WriteJSON(w, h.logger, http.StatusPaymentRequired, paymentFailedResponse{
			Error: paymentErr.Reason,
			Order: order,
		})
		return
	}
	httpapi.WriteDomainError(w, h.logger, err)
}

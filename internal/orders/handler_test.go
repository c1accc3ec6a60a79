package orders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Zyfrr/shopstreak/internal/addresses"
	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/httpapi"
)

type fakeCart struct {
	snapshot domain.CartSnapshot
	err      error
}

func (f *fakeCart) CheckoutItems(context.Context, string) (domain.CartSnapshot, error) {
	return f.snapshot, f.err
}

type handlerFixture struct {
	mux       *http.ServeMux
	addresses *addresses.Service
	cart      *fakeCart
	provider  *fakeProvider
	addressID string
}

func newHandlerFixture(t *testing.T, provider *fakeProvider) *handlerFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	addrService := addresses.NewService(addresses.NewMemoryStore(), nil, logger)
	addr, err := addrService.Create(context.Background(), "cust-1", addresses.AddressInput{
		FullName:   "Asha Raman",
		Mobile:     "9876543210",
		Street:     "12 Anna Salai",
		City:       "Chennai",
		State:      "Tamil Nadu",
		PostalCode: "600001",
		Country:    "India",
		Type:       domain.AddressTypeHome,
	})
	if err != nil {
		t.Fatalf("failed to create address: %v", err)
	}

	cart := &fakeCart{snapshot: domain.CartSnapshot{Items: []domain.CartItem{
		{ItemID: "ci-1", ProductID: "p-1", Name: "Mug", UnitPrice: decimal.NewFromInt(400), Quantity: 3},
	}}}

	coord, _ := newTestCoordinator(provider)
	mux := http.NewServeMux()
	NewHandler(coord, addrService, cart, logger).Register(mux, func(h http.HandlerFunc) http.HandlerFunc { return h })

	return &handlerFixture{mux: mux, addresses: addrService, cart: cart, provider: provider, addressID: addr.ID}
}

func (f *handlerFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(httpapi.CustomerHeader, "cust-1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) orderBody(method, detail string) string {
	return `{"address_id":"` + f.addressID + `","payment_method":"` + method + `","payment_detail":"` + detail + `"}`
}

func TestHandler_Create(t *testing.T) {
	t.Run("places a paid order", func(t *testing.T) {
		f := newHandlerFixture(t, approving())

		rec := f.do(http.MethodPost, "/orders", f.orderBody("upi", "asha@okaxis"), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var order domain.Order
		if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.Status != domain.OrderStatusConfirmed {
			t.Errorf("expected confirmed, got %s", order.Status)
		}
		if !order.TotalAmount.Equal(decimal.NewFromInt(1416)) {
			t.Errorf("expected total 1416, got %s", order.TotalAmount)
		}
		if order.ShippingAddress.AddressID != f.addressID || order.ShippingAddress.City != "Chennai" {
			t.Errorf("unexpected shipping address %+v", order.ShippingAddress)
		}
	})

	t.Run("payment failure returns the order with 402", func(t *testing.T) {
		f := newHandlerFixture(t, declining("upi collect request rejected"))

		rec := f.do(http.MethodPost, "/orders", f.orderBody("upi", "asha@fail"), nil)
		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("expected status 402, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp paymentFailedResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Error != "upi collect request rejected" {
			t.Errorf("unexpected error %q", resp.Error)
		}
		if resp.Order == nil || resp.Order.PaymentStatus != domain.PaymentStatusFailed {
			t.Fatalf("expected failed order in body, got %+v", resp.Order)
		}

		rec = f.do(http.MethodGet, "/orders/"+resp.Order.ID, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected order retrievable, got %d", rec.Code)
		}
	})

	t.Run("idempotency key deduplicates", func(t *testing.T) {
		f := newHandlerFixture(t, approving())
		headers := map[string]string{httpapi.IdempotencyHeader: "k-1"}

		first := f.do(http.MethodPost, "/orders", f.orderBody("card", "tok_visa"), headers)
		second := f.do(http.MethodPost, "/orders", f.orderBody("card", "tok_visa"), headers)

		var a, b domain.Order
		_ = json.NewDecoder(first.Body).Decode(&a)
		_ = json.NewDecoder(second.Body).Decode(&b)
		if a.ID == "" || a.ID != b.ID {
			t.Errorf("expected the same order, got %q and %q", a.ID, b.ID)
		}
		if f.provider.callCount() != 1 {
			t.Errorf("expected one charge, got %d", f.provider.callCount())
		}
	})

	t.Run("unknown address", func(t *testing.T) {
		f := newHandlerFixture(t, approving())
		f.addressID = "missing"

		rec := f.do(http.MethodPost, "/orders", f.orderBody("card", "tok_visa"), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("client supplied prices are rejected", func(t *testing.T) {
		f := newHandlerFixture(t, approving())
		body := `{"address_id":"` + f.addressID + `","items":[{"product_id":"p-1","name":"Mug","unit_price":"1","quantity":3}],` +
			`"discount":"5000","payment_method":"card","payment_detail":"tok_visa"}`

		rec := f.do(http.MethodPost, "/orders", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
		}
		if f.provider.callCount() != 0 {
			t.Errorf("expected no charge, got %d", f.provider.callCount())
		}
	})

	t.Run("prices and discount come from the cart", func(t *testing.T) {
		f := newHandlerFixture(t, approving())
		f.cart.snapshot.Discount = decimal.NewFromInt(100)

		rec := f.do(http.MethodPost, "/orders", f.orderBody("card", "tok_visa"), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var order domain.Order
		if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(order.Items) != 1 || !order.Items[0].UnitPrice.Equal(decimal.NewFromInt(400)) {
			t.Errorf("expected cart line at 400, got %+v", order.Items)
		}
		if !order.DiscountAmount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected discount 100, got %s", order.DiscountAmount)
		}
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newHandlerFixture(t, approving())
		f.cart.snapshot = domain.CartSnapshot{}

		rec := f.do(http.MethodPost, "/orders", f.orderBody("card", "tok_visa"), nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
		if f.provider.callCount() != 0 {
			t.Errorf("expected no charge, got %d", f.provider.callCount())
		}
	})

	t.Run("upi without id", func(t *testing.T) {
		f := newHandlerFixture(t, approving())

		rec := f.do(http.MethodPost, "/orders", f.orderBody("upi-paytm", ""), nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_AddressEditDoesNotChangeOrder(t *testing.T) {
	f := newHandlerFixture(t, approving())

	rec := f.do(http.MethodPost, "/orders", f.orderBody("card", "tok_visa"), nil)
	var order domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	_, err := f.addresses.Update(context.Background(), "cust-1", f.addressID, addresses.AddressInput{
		FullName:   "Asha Raman",
		Mobile:     "9123456780",
		Street:     "1 Mount Road",
		City:       "Chennai",
		State:      "Tamil Nadu",
		PostalCode: "600002",
		Country:    "India",
		Type:       domain.AddressTypeWork,
	})
	if err != nil {
		t.Fatalf("failed to update address: %v", err)
	}

	rec = f.do(http.MethodGet, "/orders/"+order.ID, "", nil)
	var stored domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&stored); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stored.ShippingAddress.Street != "12 Anna Salai" || stored.ShippingAddress.Mobile != "9876543210" {
		t.Errorf("expected original shipping address, got %+v", stored.ShippingAddress)
	}
}

func TestHandler_RetryAndCancel(t *testing.T) {
	f := newHandlerFixture(t, declining("card declined"))

	rec := f.do(http.MethodPost, "/orders", f.orderBody("card", "tok_decline"), nil)
	var resp paymentFailedResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	orderID := resp.Order.ID

	rec = f.do(http.MethodPost, "/orders/"+orderID+"/payments", `{"payment_method":"card","payment_detail":"tok_decline"}`, nil)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected status 402, got %d", rec.Code)
	}

	rec = f.do(http.MethodPost, "/orders/"+orderID+"/cancel", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var cancelled domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&cancelled); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if len(cancelled.Payments) != 2 {
		t.Errorf("expected two payment attempts, got %d", len(cancelled.Payments))
	}

	rec = f.do(http.MethodPost, "/orders/"+orderID+"/payments", `{"payment_method":"card","payment_detail":"tok_visa"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rec.Code)
	}
}

func TestHandler_List(t *testing.T) {
	f := newHandlerFixture(t, approving())

	rec := f.do(http.MethodGet, "/orders", "", nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}

	f.do(http.MethodPost, "/orders", f.orderBody("card", "tok_visa"), nil)

	rec = f.do(http.MethodGet, "/orders", "", nil)
	var orders []domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 1 {
		t.Errorf("expected 1 order, got %d", len(orders))
	}

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	unauth := httptest.NewRecorder()
	f.mux.ServeHTTP(unauth, req)
	if unauth.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", unauth.Code)
	}
}

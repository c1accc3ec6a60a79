package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/mailer"
	"github.com/Zyfrr/shopstreak/internal/messaging"
)

type sentEmail struct {
	key   string
	email mailer.Email
}

type fakeMailer struct {
	sent []sentEmail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, key string, email mailer.Email) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{key: key, email: email})
	return nil
}

func newTestHandler(m *fakeMailer) *NotificationHandler {
	return NewNotificationHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func settledMessage(t *testing.T, state domain.PaymentState, reason string) messaging.Message {
	t.Helper()
	event := domain.PaymentSettledEvent{
		OrderID:     "order-1",
		OrderNumber: "ORD-20261019-ABCDEF12",
		CustomerID:  "cust-1",
		PaymentID:   "pay-1",
		Method:      domain.PaymentMethodUPIGPay,
		Amount:      decimal.NewFromInt(1416),
		Currency:    "INR",
		State:       state,
		Reference:   "pay_xyz",
		Reason:      reason,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return messaging.Message{Key: "order-1", EventType: event.EventType(), Payload: payload}
}

func TestNotificationHandler_Handle(t *testing.T) {
	t.Run("confirmation for successful payment", func(t *testing.T) {
		m := &fakeMailer{}
		if err := newTestHandler(m).Handle(context.Background(), settledMessage(t, domain.PaymentStateSucceeded, "")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.sent) != 1 {
			t.Fatalf("expected one email, got %d", len(m.sent))
		}
		got := m.sent[0]
		if got.key != "pay-1" {
			t.Errorf("expected payment id as key, got %q", got.key)
		}
		if got.email.To != "cust-1@example.com" {
			t.Errorf("unexpected recipient %q", got.email.To)
		}
		if got.email.Subject != "Order Confirmed: ORD-20261019-ABCDEF12" {
			t.Errorf("unexpected subject %q", got.email.Subject)
		}
		if !strings.Contains(got.email.Body, "INR 1416.00") {
			t.Errorf("expected amount in body, got %q", got.email.Body)
		}
	})

	t.Run("retry prompt for failed payment", func(t *testing.T) {
		m := &fakeMailer{}
		if err := newTestHandler(m).Handle(context.Background(), settledMessage(t, domain.PaymentStateFailed, "card declined")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.sent) != 1 {
			t.Fatalf("expected one email, got %d", len(m.sent))
		}
		if !strings.HasPrefix(m.sent[0].email.Subject, "Payment Failed") {
			t.Errorf("unexpected subject %q", m.sent[0].email.Subject)
		}
		if !strings.Contains(m.sent[0].email.Body, "card declined") {
			t.Errorf("expected reason in body, got %q", m.sent[0].email.Body)
		}
	})

	t.Run("skips pending and foreign events", func(t *testing.T) {
		m := &fakeMailer{}
		h := newTestHandler(m)

		if err := h.Handle(context.Background(), settledMessage(t, domain.PaymentStatePending, "")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := h.Handle(context.Background(), messaging.Message{EventType: domain.EventTypeOrderPlaced, Payload: []byte(`{}`)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := h.Handle(context.Background(), messaging.Message{Payload: []byte(`not json`)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.sent) != 0 {
			t.Errorf("expected no emails, got %d", len(m.sent))
		}
	})

	t.Run("mailer failure is returned for retry", func(t *testing.T) {
		m := &fakeMailer{err: errors.New("connection refused")}
		err := newTestHandler(m).Handle(context.Background(), settledMessage(t, domain.PaymentStateSucceeded, ""))
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

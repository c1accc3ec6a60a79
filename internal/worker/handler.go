// Package worker reacts to payment outcomes published by the storefront.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/mailer"
	"github.com/Zyfrr/shopstreak/internal/messaging"
)

type Mailer interface {
	Send(ctx context.Context, key string, email mailer.Email) error
}

type NotificationHandler struct {
	mailer Mailer
	logger *slog.Logger
}

func NewNotificationHandler(m Mailer, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		mailer: m,
		logger: logger,
	}
}

// Handle emails the customer once per settled payment attempt. Events of
// other types and attempts still pending are skipped.
func (h *NotificationHandler) Handle(ctx context.Context, msg messaging.Message) error {
	if msg.EventType != "" && msg.EventType != domain.EventTypePaymentSettled {
		h.logger.Debug("skipping event", "event_type", msg.EventType, "key", msg.Key)
		return nil
	}

	var event domain.PaymentSettledEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Malformed payloads are not retried.
		h.logger.Error("discarding malformed payment event", "error", err, "key", msg.Key)
		return nil
	}

	h.logger.Info("processing payment settled event",
		"order_id", event.OrderID, "payment_id", event.PaymentID, "state", event.State)

	var email mailer.Email
	switch event.State {
	case domain.PaymentStateSucceeded:
		email = confirmationEmail(event)
	case domain.PaymentStateFailed:
		email = paymentFailedEmail(event)
	default:
		return nil
	}

	if err := h.mailer.Send(ctx, event.PaymentID, email); err != nil {
		h.logger.Error("failed to send notification", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send notification for payment %s: %w", event.PaymentID, err)
	}

	h.logger.Info("notification sent", "order_id", event.OrderID, "subject", email.Subject)
	return nil
}

func recipient(customerID string) string {
	return customerID + "@example.com"
}

func confirmationEmail(event domain.PaymentSettledEvent) mailer.Email {
	return mailer.Email{
		To:      recipient(event.CustomerID),
		Subject: "Order Confirmed: " + event.OrderNumber,
		Body: fmt.Sprintf("We received your payment of %s %s for order %s (reference %s).",
			event.Currency, event.Amount.StringFixed(2), event.OrderNumber, event.Reference),
	}
}

func paymentFailedEmail(event domain.PaymentSettledEvent) mailer.Email {
	reason := event.Reason
	if reason == "" {
		reason = "payment declined"
	}
	return mailer.Email{
		To:      recipient(event.CustomerID),
		Subject: "Payment Failed: " + event.OrderNumber,
		Body: fmt.Sprintf("Your payment of %s %s for order %s did not go through (%s). "+
			"Your order is saved and you can retry the payment from your orders page.",
			event.Currency, event.Amount.StringFixed(2), event.OrderNumber, reason),
	}
}

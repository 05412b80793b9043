// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"newsdesk-server/db"
	"newsdesk-server/models"
	"newsdesk-server/payments"
	"time"

	"github.com/labstack/echo/v4"
)

type stripeEventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// StripeWebhookHandler godoc
// @Summary      Receive Stripe webhook events
// @Description  Verifies the event signature, records it exactly once, and processes the event types the platform cares about.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200 {object} MessageResponse   "Event accepted"
// @Failure      400 {object} echo.HTTPError    "Invalid payload or signature"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/webhooks/stripe [post]
func StripeWebhookHandler(c echo.Context) error {
	logger := c.Logger()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		logger.Error("Failed to read webhook payload:", err)
		return echo.ErrBadRequest
	}

	stripeClient, err := payments.NewStripeClient(payments.StripeConfig{})
	if err != nil {
		logger.Errorf("Failed to initialize Stripe client: %v", err)
		return echo.ErrInternalServerError
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if err := stripeClient.VerifyWebhookSignature(payload, signature, 5*time.Minute); err != nil {
		logger.Error("Webhook signature verification failed:", err)
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid webhook signature",
		}
	}

	var envelope stripeEventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.ID == "" || envelope.Type == "" {
		logger.Error("Malformed webhook event payload.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Malformed event payload",
		}
	}

	event, created, err := payments.RecordWebhookEvent(db.Conn, "stripe", envelope.ID, envelope.Type, payload)
	if err != nil {
		logger.Errorf("Failed to record webhook event: %v", err)
		return echo.ErrInternalServerError
	}

	if !created {
		// Only a finished event short-circuits; a redelivery that
		// finds the first attempt pending or failed runs again.
		switch event.Status {
		case models.ProcessedWebhookEvent, models.IgnoredWebhookEvent:
			logger.Debugf("Webhook event %s already processed, skipping.", envelope.ID)
			return c.JSON(http.StatusOK, MessageResponse{
				Message: "Event already received",
			})
		default:
			logger.Infof("Webhook event %s redelivered before completion, reprocessing.", envelope.ID)
		}
	}

	switch envelope.Type {
	case "checkout.session.completed":
		if err := payments.HandleCheckoutCompleted(db.Conn, event); err != nil {
			logger.Errorf("Failed to process checkout completion: %v", err)
			return echo.ErrInternalServerError
		}
	default:
		now := time.Now()
		if err := db.Conn.Model(event).Updates(map[string]any{
			"status":       models.IgnoredWebhookEvent,
			"processed_at": &now,
		}).Error; err != nil {
			logger.Errorf("Failed to mark webhook event ignored: %v", err)
		}
	}

	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Event accepted",
	})
}

// SPDX-License-Identifier: GPL-3.0-only

package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsdesk-server/commons"
	"newsdesk-server/events"
	"newsdesk-server/models"
	"newsdesk-server/subscriptions"

	"gorm.io/gorm"
)

// Allowed one-way transitions; every terminal state is a dead end and
// each step stamps ProcessedAt.
var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PendingPayment:    {models.ProcessingPayment, models.SucceededPayment, models.FailedPayment, models.CancelledPayment},
	models.ProcessingPayment: {models.SucceededPayment, models.FailedPayment, models.CancelledPayment},
	models.SucceededPayment:  {models.RefundedPayment},
}

func transition(conn *gorm.DB, payment *models.Payment, to models.PaymentStatus) error {
	return transitionWith(conn, payment, to, nil)
}

// transitionWith applies extra column updates in the same guarded
// statement as the status change, so they land atomically or not at
// all.
func transitionWith(conn *gorm.DB, payment *models.Payment, to models.PaymentStatus, extra map[string]any) error {
	allowed := false
	for _, next := range paymentTransitions[payment.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return &subscriptions.InvalidStateError{
			Message: fmt.Sprintf("payment cannot move from %s to %s", payment.Status, to),
		}
	}

	now := time.Now().UTC()
	updates := map[string]any{"status": to, "processed_at": now}
	for column, value := range extra {
		updates[column] = value
	}
	result := conn.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, payment.Status).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &subscriptions.InvalidStateError{
			Message: fmt.Sprintf("payment %s changed state concurrently", payment.PaymentID),
		}
	}
	payment.Status = to
	payment.ProcessedAt = &now
	return nil
}

func MarkProcessing(conn *gorm.DB, payment *models.Payment) error {
	return transition(conn, payment, models.ProcessingPayment)
}

func MarkSucceeded(conn *gorm.DB, payment *models.Payment) error {
	if err := transition(conn, payment, models.SucceededPayment); err != nil {
		return err
	}
	events.Publish(events.PaymentSucceeded, map[string]any{"payment_id": payment.PaymentID})
	return nil
}

func MarkFailed(conn *gorm.DB, payment *models.Payment, reason string) error {
	var extra map[string]any
	if reason != "" {
		meta := map[string]any{}
		if len(payment.Metadata) > 0 {
			if err := json.Unmarshal(payment.Metadata, &meta); err != nil {
				meta = map[string]any{}
			}
		}
		meta["failure_reason"] = reason
		if raw, err := json.Marshal(meta); err == nil {
			payment.Metadata = raw
			extra = map[string]any{"metadata": payment.Metadata}
		}
	}
	if err := transitionWith(conn, payment, models.FailedPayment, extra); err != nil {
		return err
	}
	events.Publish(events.PaymentFailed, map[string]any{"payment_id": payment.PaymentID})
	return nil
}

func MarkCancelled(conn *gorm.DB, payment *models.Payment) error {
	return transition(conn, payment, models.CancelledPayment)
}

func MarkRefunded(conn *gorm.DB, payment *models.Payment) error {
	return transition(conn, payment, models.RefundedPayment)
}

// checkoutEvent is the slice of a Stripe checkout.session.completed
// event this service consumes.
type checkoutEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentIntent string `json:"payment_intent"`
			Customer      string `json:"customer"`
			Metadata      struct {
				AccountID string `json:"account_id"`
				PlanID    string `json:"plan_id"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// RecordWebhookEvent stores a provider callback exactly once; the
// unique EventID column deduplicates redelivery. Returns the stored
// row and whether this call inserted it, so the caller can see the
// outcome of any earlier attempt and decide whether to reprocess.
func RecordWebhookEvent(conn *gorm.DB, provider, eventID, eventType string, data []byte) (*models.WebhookEvent, bool, error) {
	event := models.WebhookEvent{
		Provider:  provider,
		EventID:   eventID,
		EventType: eventType,
		Status:    models.PendingWebhookEvent,
		Data:      data,
	}
	err := conn.Create(&event).Error
	if err == nil {
		return &event, true, nil
	}

	var existing models.WebhookEvent
	if findErr := conn.Where("event_id = ?", eventID).First(&existing).Error; findErr == nil {
		return &existing, false, nil
	}
	return nil, false, err
}

func markEventProcessed(conn *gorm.DB, event *models.WebhookEvent) {
	now := time.Now().UTC()
	if err := conn.Model(event).Updates(map[string]any{
		"status": models.ProcessedWebhookEvent, "processed_at": now,
	}).Error; err != nil {
		commons.Logger.Errorf("Failed to mark webhook event %s processed: %v", event.EventID, err)
	}
}

func markEventFailed(conn *gorm.DB, event *models.WebhookEvent, reason string) {
	now := time.Now().UTC()
	if err := conn.Model(event).Updates(map[string]any{
		"status": models.FailedWebhookEvent, "error_message": reason, "processed_at": now,
	}).Error; err != nil {
		commons.Logger.Errorf("Failed to mark webhook event %s failed: %v", event.EventID, err)
	}
}

// HandleCheckoutCompleted settles the pending payment recorded at
// checkout time and activates the purchased subscription. Safe to call
// again for a redelivered event, including one whose first attempt
// failed partway: a payment already settled skips the transition and
// the flow resumes at subscription activation.
func HandleCheckoutCompleted(conn *gorm.DB, event *models.WebhookEvent) error {
	var parsed checkoutEvent
	if err := json.Unmarshal(event.Data, &parsed); err != nil {
		markEventFailed(conn, event, "malformed event payload")
		return err
	}
	sessionID := parsed.Data.Object.ID
	if sessionID == "" {
		markEventFailed(conn, event, "event carries no session id")
		return fmt.Errorf("checkout event %s carries no session id", event.EventID)
	}

	var payment models.Payment
	err := conn.Where("stripe_session_id = ?", sessionID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			markEventFailed(conn, event, "no payment for checkout session")
			return fmt.Errorf("no payment found for checkout session %s", sessionID)
		}
		return err
	}

	if parsed.Data.Object.PaymentIntent != "" {
		intentID := parsed.Data.Object.PaymentIntent
		payment.StripePaymentIntentID = &intentID
		if err := conn.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Update("stripe_payment_intent_id", intentID).Error; err != nil {
			commons.Logger.Errorf("Failed to store payment intent for %s: %v", payment.PaymentID, err)
		}
	}

	// A retried event can find the payment already settled by the
	// attempt that failed later on; the subscription activation below
	// still has to run in that case.
	if payment.Status != models.SucceededPayment {
		if err := MarkSucceeded(conn, &payment); err != nil {
			markEventFailed(conn, event, err.Error())
			return err
		}
	}

	var user models.User
	if err := conn.Where("id = ?", payment.UserID).First(&user).Error; err != nil {
		markEventFailed(conn, event, "payment user not found")
		return err
	}

	var plan models.SubscriptionPlan
	planID := parsed.Data.Object.Metadata.PlanID
	if err := conn.Where("plan_id = ? AND is_active = ?", planID, true).First(&plan).Error; err != nil {
		markEventFailed(conn, event, "plan not found or inactive")
		return fmt.Errorf("plan %s not found for checkout session %s", planID, sessionID)
	}

	subscription, err := subscriptions.Create(conn, &user, &plan, true)
	if err != nil {
		var conflict *subscriptions.ConflictError
		if !errors.As(err, &conflict) {
			markEventFailed(conn, event, err.Error())
			return err
		}
		// User already holds a live subscription; the payment is
		// settled and support resolves the overlap.
		commons.Logger.Warnf("Checkout for %s completed but user already subscribed", user.AccountID)
	}

	if subscription != nil {
		if err := conn.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Update("subscription_id", subscription.ID).Error; err != nil {
			commons.Logger.Errorf("Failed to link payment %s to subscription: %v", payment.PaymentID, err)
		}
	}

	markEventProcessed(conn, event)
	return nil
}

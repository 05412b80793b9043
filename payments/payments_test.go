// SPDX-License-Identifier: GPL-3.0-only

package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"newsdesk-server/models"
	"newsdesk-server/subscriptions"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(models.AllModels...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return conn
}

func newTestPayment(t *testing.T, conn *gorm.DB, status models.PaymentStatus) *models.Payment {
	t.Helper()
	user := models.User{Email: fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()), Password: "hashed"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	payment := models.Payment{
		Amount:   decimal.NewFromFloat(12.00),
		Currency: "USD",
		Status:   status,
		Method:   models.StripePayment,
		UserID:   user.ID,
	}
	if err := conn.Create(&payment).Error; err != nil {
		t.Fatalf("Failed to create test payment: %v", err)
	}
	return &payment
}

func TestPaymentTransitions(t *testing.T) {
	conn := newTestDB(t)

	payment := newTestPayment(t, conn, models.PendingPayment)
	if err := MarkProcessing(conn, payment); err != nil {
		t.Fatalf("pending -> processing failed: %v", err)
	}
	if err := MarkSucceeded(conn, payment); err != nil {
		t.Fatalf("processing -> succeeded failed: %v", err)
	}
	if payment.ProcessedAt == nil {
		t.Error("Expected ProcessedAt stamped on transition")
	}
	if err := MarkRefunded(conn, payment); err != nil {
		t.Fatalf("succeeded -> refunded failed: %v", err)
	}

	var invalid *subscriptions.InvalidStateError
	if err := MarkSucceeded(conn, payment); !errors.As(err, &invalid) {
		t.Errorf("Expected InvalidStateError out of refunded, got %v", err)
	}

	failed := newTestPayment(t, conn, models.PendingPayment)
	if err := MarkFailed(conn, failed, "card declined"); err != nil {
		t.Fatalf("pending -> failed failed: %v", err)
	}
	if err := MarkProcessing(conn, failed); !errors.As(err, &invalid) {
		t.Errorf("Expected InvalidStateError out of failed, got %v", err)
	}

	// The failure reason lands in the same guarded update as the
	// status change.
	var reloaded models.Payment
	if err := conn.Where("id = ?", failed.ID).First(&reloaded).Error; err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if reloaded.Status != models.FailedPayment {
		t.Errorf("Expected failed payment, got %s", reloaded.Status)
	}
	meta := map[string]any{}
	if err := json.Unmarshal(reloaded.Metadata, &meta); err != nil {
		t.Fatalf("Failed to decode payment metadata: %v", err)
	}
	if meta["failure_reason"] != "card declined" {
		t.Errorf("Expected failure reason recorded, got %v", meta["failure_reason"])
	}
}

func TestRecordWebhookEventIdempotent(t *testing.T) {
	conn := newTestDB(t)
	data := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	first, created, err := RecordWebhookEvent(conn, "stripe", "evt_1", "checkout.session.completed", data)
	if err != nil {
		t.Fatalf("RecordWebhookEvent failed: %v", err)
	}
	if !created {
		t.Error("Expected first record to insert")
	}

	second, created, err := RecordWebhookEvent(conn, "stripe", "evt_1", "checkout.session.completed", data)
	if err != nil {
		t.Fatalf("Second RecordWebhookEvent failed: %v", err)
	}
	if created {
		t.Error("Expected redelivered event to not insert")
	}
	if second.ID != first.ID {
		t.Errorf("Expected the same stored row, got %d and %d", first.ID, second.ID)
	}
}

func TestHandleCheckoutCompleted(t *testing.T) {
	conn := newTestDB(t)

	user := models.User{Email: "buyer@example.com", Password: "hashed"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	plan := models.SubscriptionPlan{
		Name:         "Premium Monthly",
		Price:        decimal.NewFromFloat(12.00),
		DurationDays: 30,
		PinPosts:     true,
		IsActive:     true,
	}
	if err := conn.Create(&plan).Error; err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}

	sessionID := "cs_test_123"
	payment := models.Payment{
		Amount:          decimal.NewFromFloat(12.00),
		Currency:        "USD",
		Status:          models.PendingPayment,
		Method:          models.StripePayment,
		UserID:          user.ID,
		StripeSessionID: &sessionID,
	}
	if err := conn.Create(&payment).Error; err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	data := []byte(fmt.Sprintf(`{
		"id": "evt_42",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": %q,
			"payment_intent": "pi_test_1",
			"metadata": {"account_id": %q, "plan_id": %q}
		}}
	}`, sessionID, user.AccountID, plan.PlanID))

	event, created, err := RecordWebhookEvent(conn, "stripe", "evt_42", "checkout.session.completed", data)
	if err != nil || !created {
		t.Fatalf("RecordWebhookEvent failed: created=%v err=%v", created, err)
	}

	if err := HandleCheckoutCompleted(conn, event); err != nil {
		t.Fatalf("HandleCheckoutCompleted failed: %v", err)
	}

	var reloadedPayment models.Payment
	if err := conn.Where("id = ?", payment.ID).First(&reloadedPayment).Error; err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if reloadedPayment.Status != models.SucceededPayment {
		t.Errorf("Expected payment succeeded, got %s", reloadedPayment.Status)
	}
	if reloadedPayment.SubscriptionID == nil {
		t.Error("Expected payment linked to the created subscription")
	}

	var subscription models.Subscription
	if err := conn.Where("user_id = ?", user.ID).First(&subscription).Error; err != nil {
		t.Fatalf("Expected subscription created: %v", err)
	}
	if subscription.Status != models.ActiveSubscription {
		t.Errorf("Expected active subscription, got %s", subscription.Status)
	}

	// Redelivery settles without touching state again.
	if err := HandleCheckoutCompleted(conn, event); err != nil {
		t.Fatalf("Redelivered HandleCheckoutCompleted failed: %v", err)
	}

	var count int64
	if err := conn.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected one subscription after redelivery, got %d", count)
	}
}

func TestHandleCheckoutCompletedRetryAfterFailure(t *testing.T) {
	conn := newTestDB(t)

	user := models.User{Email: "retry@example.com", Password: "hashed"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	// Inactive plan makes the first attempt fail after the payment
	// has already been settled.
	plan := models.SubscriptionPlan{
		Name:         "Premium Monthly",
		Price:        decimal.NewFromFloat(12.00),
		DurationDays: 30,
		IsActive:     false,
	}
	if err := conn.Create(&plan).Error; err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}

	sessionID := "cs_retry_1"
	payment := models.Payment{
		Amount:          decimal.NewFromFloat(12.00),
		Currency:        "USD",
		Status:          models.PendingPayment,
		Method:          models.StripePayment,
		UserID:          user.ID,
		StripeSessionID: &sessionID,
	}
	if err := conn.Create(&payment).Error; err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	data := []byte(fmt.Sprintf(`{
		"id": "evt_retry",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": %q,
			"metadata": {"account_id": %q, "plan_id": %q}
		}}
	}`, sessionID, user.AccountID, plan.PlanID))

	event, created, err := RecordWebhookEvent(conn, "stripe", "evt_retry", "checkout.session.completed", data)
	if err != nil || !created {
		t.Fatalf("RecordWebhookEvent failed: created=%v err=%v", created, err)
	}
	if err := HandleCheckoutCompleted(conn, event); err == nil {
		t.Fatal("Expected first attempt to fail on the inactive plan")
	}

	var reloadedPayment models.Payment
	if err := conn.Where("id = ?", payment.ID).First(&reloadedPayment).Error; err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if reloadedPayment.Status != models.SucceededPayment {
		t.Fatalf("Expected payment settled by the failed attempt, got %s", reloadedPayment.Status)
	}

	redelivered, created, err := RecordWebhookEvent(conn, "stripe", "evt_retry", "checkout.session.completed", data)
	if err != nil {
		t.Fatalf("Redelivered RecordWebhookEvent failed: %v", err)
	}
	if created {
		t.Fatal("Expected redelivery to dedup on the stored event")
	}
	if redelivered.Status != models.FailedWebhookEvent {
		t.Fatalf("Expected stored event failed after first attempt, got %s", redelivered.Status)
	}

	if err := conn.Model(&plan).Update("is_active", true).Error; err != nil {
		t.Fatalf("Failed to activate plan: %v", err)
	}

	// Redelivery resumes at subscription activation even though the
	// payment transition already happened.
	if err := HandleCheckoutCompleted(conn, redelivered); err != nil {
		t.Fatalf("Retried HandleCheckoutCompleted failed: %v", err)
	}

	var subscription models.Subscription
	if err := conn.Where("user_id = ?", user.ID).First(&subscription).Error; err != nil {
		t.Fatalf("Expected subscription created on retry: %v", err)
	}
	if subscription.Status != models.ActiveSubscription {
		t.Errorf("Expected active subscription, got %s", subscription.Status)
	}

	var settledEvent models.WebhookEvent
	if err := conn.Where("event_id = ?", "evt_retry").First(&settledEvent).Error; err != nil {
		t.Fatalf("Reload event failed: %v", err)
	}
	if settledEvent.Status != models.ProcessedWebhookEvent {
		t.Errorf("Expected event processed after retry, got %s", settledEvent.Status)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := &StripeClient{WebhookSecret: "whsec_test"}
	payload := []byte(`{"id":"evt_1"}`)

	sign := func(ts int64, secret string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		fmt.Fprintf(mac, "%d.", ts)
		mac.Write(payload)
		return hex.EncodeToString(mac.Sum(nil))
	}

	now := time.Now().Unix()
	header := fmt.Sprintf("t=%d,v1=%s", now, sign(now, "whsec_test"))
	if err := client.VerifyWebhookSignature(payload, header, 5*time.Minute); err != nil {
		t.Errorf("Expected valid signature to verify, got %v", err)
	}

	bad := fmt.Sprintf("t=%d,v1=%s", now, sign(now, "whsec_other"))
	if err := client.VerifyWebhookSignature(payload, bad, 5*time.Minute); err == nil {
		t.Error("Expected signature from wrong secret to fail")
	}

	stale := now - 3600
	old := fmt.Sprintf("t=%d,v1=%s", stale, sign(stale, "whsec_test"))
	if err := client.VerifyWebhookSignature(payload, old, 5*time.Minute); err == nil {
		t.Error("Expected stale timestamp to fail")
	}

	if err := client.VerifyWebhookSignature(payload, "garbage", 5*time.Minute); err == nil {
		t.Error("Expected malformed header to fail")
	}
}

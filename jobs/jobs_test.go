// SPDX-License-Identifier: GPL-3.0-only

package jobs

import (
	"testing"
	"time"

	"newsdesk-server/models"

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

func seedSubscription(t *testing.T, conn *gorm.DB, email string, endDate time.Time, autoRenew bool) {
	t.Helper()
	user := models.User{Email: email, Password: "hashed"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	plan := models.SubscriptionPlan{
		Name:         "Plan for " + email,
		Price:        decimal.NewFromFloat(12.00),
		DurationDays: 30,
		PinPosts:     true,
		IsActive:     true,
	}
	if err := conn.Create(&plan).Error; err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}
	subscription := models.Subscription{
		UserID:    user.ID,
		PlanID:    plan.ID,
		Status:    models.ActiveSubscription,
		AutoRenew: autoRenew,
		StartDate: endDate.Add(-30 * 24 * time.Hour),
		EndDate:   endDate,
	}
	if err := conn.Create(&subscription).Error; err != nil {
		t.Fatalf("Failed to create subscription: %v", err)
	}
}

func TestRemindersDueWindow(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// Ends exactly three days out: reminded.
	seedSubscription(t, conn, "due@example.com", now.Add(3*24*time.Hour), false)
	// Ends three days out but auto-renews: skipped.
	seedSubscription(t, conn, "renews@example.com", now.Add(3*24*time.Hour), true)
	// Ends two days out: outside the window.
	seedSubscription(t, conn, "soon@example.com", now.Add(2*24*time.Hour), false)
	// Ends five days out: outside the window.
	seedSubscription(t, conn, "later@example.com", now.Add(5*24*time.Hour), false)

	due, err := remindersDue(conn, now)
	if err != nil {
		t.Fatalf("remindersDue failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("Expected 1 subscription due for reminder, got %d", len(due))
	}
	if due[0].User.Email != "due@example.com" {
		t.Errorf("Expected due@example.com, got %s", due[0].User.Email)
	}
	if due[0].Plan.Name == "" {
		t.Error("Expected plan preloaded for the reminder body")
	}
}

func TestIntervalFromEnv(t *testing.T) {
	t.Setenv("TEST_SWEEP_INTERVAL", "15m")
	if got := intervalFromEnv("TEST_SWEEP_INTERVAL", time.Hour); got != 15*time.Minute {
		t.Errorf("Expected 15m, got %s", got)
	}

	t.Setenv("TEST_SWEEP_INTERVAL", "nonsense")
	if got := intervalFromEnv("TEST_SWEEP_INTERVAL", time.Hour); got != time.Hour {
		t.Errorf("Expected fallback 1h, got %s", got)
	}

	if got := intervalFromEnv("TEST_UNSET_INTERVAL", 24*time.Hour); got != 24*time.Hour {
		t.Errorf("Expected fallback 24h, got %s", got)
	}
}

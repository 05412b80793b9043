// SPDX-License-Identifier: GPL-3.0-only

package jobs

import (
	"context"
	"sync"
	"time"

	"newsdesk-server/commons"
	"newsdesk-server/models"
	"newsdesk-server/notifications"
	"newsdesk-server/subscriptions"

	"gorm.io/gorm"
)

// reminderLeadTime is how far ahead of the end date the expiry
// reminder goes out.
const reminderLeadTime = 3 * 24 * time.Hour

type Scheduler struct {
	conn *gorm.DB
	wg   sync.WaitGroup
}

func NewScheduler(conn *gorm.DB) *Scheduler {
	return &Scheduler{conn: conn}
}

// Start launches the periodic jobs. Both loops run until the context
// is cancelled; overlapping runs are tolerated because every sweep
// transition is guarded per row.
func (s *Scheduler) Start(ctx context.Context) {
	sweepInterval := intervalFromEnv("SWEEP_INTERVAL", time.Hour)
	reminderInterval := intervalFromEnv("REMINDER_INTERVAL", 24*time.Hour)

	s.wg.Add(2)
	go s.loop(ctx, "expiry-sweep", sweepInterval, func(now time.Time) {
		s.runExpirySweep(now)
	})
	go s.loop(ctx, "expiry-reminder", reminderInterval, func(now time.Time) {
		s.runExpiryReminders(now)
	})
	commons.Logger.Infof("Scheduler started, sweep every %s, reminders every %s", sweepInterval, reminderInterval)
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run func(now time.Time)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			commons.Logger.Infof("Job %s stopped", name)
			return
		case now := <-ticker.C:
			run(now.UTC())
		}
	}
}

func (s *Scheduler) runExpirySweep(now time.Time) {
	result, err := subscriptions.ExpireDue(s.conn, now)
	if err != nil {
		commons.Logger.Errorf("Expiry sweep failed: %v", err)
		return
	}
	commons.Logger.Infof("Expiry sweep completed: expired_subscriptions=%d pinned_posts_removed=%d failed=%d",
		result.ExpiredSubscriptions, result.PinnedPostsRemoved, len(result.Failed))
}

type ReminderFailure struct {
	SubscriptionID string
	Email          string
	Reason         string
}

type ReminderResult struct {
	RemindersSent int
	Failed        []ReminderFailure
}

func (s *Scheduler) runExpiryReminders(now time.Time) {
	result, err := SendExpiryReminders(s.conn, now)
	if err != nil {
		commons.Logger.Errorf("Expiry reminder job failed: %v", err)
		return
	}
	commons.Logger.Infof("Expiry reminders completed: reminders_sent=%d failed=%d",
		result.RemindersSent, len(result.Failed))
}

// SendExpiryReminders notifies holders of active, non-renewing
// subscriptions ending three days out. Delivery failures are collected
// per recipient; the batch always completes.
func SendExpiryReminders(conn *gorm.DB, now time.Time) (ReminderResult, error) {
	result := ReminderResult{}

	due, err := remindersDue(conn, now)
	if err != nil {
		return result, err
	}

	provider := notifications.NotificationProviders(commons.GetEnv("EMAIL_PROVIDER", string(notifications.SMTP)))
	for i := range due {
		subscription := &due[i]

		name := subscription.User.Email
		if subscription.User.FullName != nil {
			name = *subscription.User.FullName
		}

		err := notifications.DispatchNotification(notifications.Email, provider, notifications.NotificationData{
			To:       subscription.User.Email,
			ToName:   &name,
			Subject:  "Your subscription is expiring soon",
			Template: "subscription_expiry_reminder",
			Variables: map[string]any{
				"name":      name,
				"plan_name": subscription.Plan.Name,
				"end_date":  subscription.EndDate.Format("January 2, 2006"),
			},
		})
		if err != nil {
			commons.Logger.Errorf("Failed to send reminder to %s: %v", subscription.User.Email, err)
			result.Failed = append(result.Failed, ReminderFailure{
				SubscriptionID: subscription.SubscriptionID,
				Email:          subscription.User.Email,
				Reason:         err.Error(),
			})
			continue
		}
		result.RemindersSent++
	}

	return result, nil
}

// remindersDue selects active, non-auto-renewing subscriptions whose
// end date falls on the calendar day three days from now (UTC).
func remindersDue(conn *gorm.DB, now time.Time) ([]models.Subscription, error) {
	target := now.UTC().Add(reminderLeadTime)
	dayStart := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var due []models.Subscription
	err := conn.Preload("User").Preload("Plan").
		Where("status = ? AND auto_renew = ? AND end_date >= ? AND end_date < ?",
			models.ActiveSubscription, false, dayStart, dayEnd).
		Find(&due).Error
	if err != nil {
		return nil, err
	}
	return due, nil
}

func intervalFromEnv(key string, fallback time.Duration) time.Duration {
	raw := commons.GetEnv(key)
	if raw == "" {
		return fallback
	}
	interval, err := time.ParseDuration(raw)
	if err != nil || interval <= 0 {
		commons.Logger.Warnf("Invalid %s value %q, using %s", key, raw, fallback)
		return fallback
	}
	return interval
}

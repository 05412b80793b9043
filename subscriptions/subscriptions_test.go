// SPDX-License-Identifier: GPL-3.0-only

package subscriptions

import (
	"errors"
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

func newTestUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, Password: "hashed"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return &user
}

func newTestPlan(t *testing.T, conn *gorm.DB, name string, pinPosts bool) *models.SubscriptionPlan {
	t.Helper()
	plan := models.SubscriptionPlan{
		Name:         name,
		Price:        decimal.NewFromFloat(12.00),
		DurationDays: 30,
		PinPosts:     pinPosts,
		IsActive:     true,
	}
	if err := conn.Create(&plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}
	return &plan
}

func newTestPost(t *testing.T, conn *gorm.DB, author *models.User, slug string, status models.PostStatus) *models.Post {
	t.Helper()
	post := models.Post{
		Title:    "Post " + slug,
		Slug:     slug,
		Content:  "content",
		Status:   status,
		AuthorID: author.ID,
	}
	if err := conn.Create(&post).Error; err != nil {
		t.Fatalf("Failed to create test post: %v", err)
	}
	return &post
}

func historyActions(t *testing.T, conn *gorm.DB, userID uint) []models.HistoryAction {
	t.Helper()
	var entries []models.SubscriptionHistory
	if err := conn.Where("user_id = ?", userID).Order("id asc").Find(&entries).Error; err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	actions := make([]models.HistoryAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func TestCreateSubscription(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)

	subscription, err := Create(conn, user, plan, false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if subscription.Status != models.ActiveSubscription {
		t.Errorf("Expected status active, got %s", subscription.Status)
	}
	wantEnd := subscription.StartDate.Add(30 * 24 * time.Hour)
	if !subscription.EndDate.Equal(wantEnd) {
		t.Errorf("Expected end date %v, got %v", wantEnd, subscription.EndDate)
	}
	if !subscription.EndDate.After(subscription.StartDate) {
		t.Error("End date must be after start date")
	}

	actions := historyActions(t, conn, user.ID)
	if len(actions) != 1 || actions[0] != models.SubscriptionCreated {
		t.Errorf("Expected [created] history, got %v", actions)
	}
}

func TestCreateSubscriptionConflict(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)

	if _, err := Create(conn, user, plan, false); err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	_, err := Create(conn, user, plan, false)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
}

func TestCreateSubscriptionUniqueIndexRace(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)

	first, err := Create(conn, user, plan, false)
	if err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	// A soft-deleted row is invisible to the pre-insert read but still
	// occupies the unique index on user_id, so the insert collides the
	// same way it would against a row inserted by a concurrent create.
	// The unique index must decide, and the loser gets a ConflictError.
	if err := conn.Delete(first).Error; err != nil {
		t.Fatalf("Soft delete failed: %v", err)
	}

	_, err = Create(conn, user, plan, false)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError from the unique index, got %v", err)
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)

	now := time.Now().UTC()
	row := func() *models.Subscription {
		return &models.Subscription{
			UserID:    user.ID,
			PlanID:    plan.ID,
			Status:    models.ActiveSubscription,
			StartDate: now,
			EndDate:   now.Add(30 * 24 * time.Hour),
		}
	}
	if err := conn.Create(row()).Error; err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := conn.Create(row()).Error
	if err == nil {
		t.Fatal("Expected second insert for the same user to collide")
	}
	if !isDuplicateKeyError(err) {
		t.Errorf("Expected %v to classify as a duplicate key error", err)
	}
}

func TestCreateSubscriptionAfterTerminal(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)

	first, err := Create(conn, user, plan, false)
	if err != nil {
		t.Fatalf("First create failed: %v", err)
	}
	if err := Cancel(conn, first); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	second, err := Create(conn, user, plan, false)
	if err != nil {
		t.Fatalf("Create after cancel failed: %v", err)
	}
	if second.SubscriptionID == first.SubscriptionID {
		t.Error("Expected a fresh subscription row after re-subscribe")
	}

	var count int64
	if err := conn.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one subscription row per user, got %d", count)
	}
}

func TestCancelNotActive(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)

	subscription, err := Create(conn, user, plan, false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := Cancel(conn, subscription); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	err = Cancel(conn, subscription)
	var invalid *InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidStateError on second cancel, got %v", err)
	}
}

func TestCancelRemovesPinnedPost(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)
	post := newTestPost(t, conn, user, "my-post", models.PublishedPost)

	subscription, err := Create(conn, user, plan, false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := Pin(conn, user, post.PostID, time.Now().UTC()); err != nil {
		t.Fatalf("Pin failed: %v", err)
	}

	if err := Cancel(conn, subscription); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	var pinCount int64
	if err := conn.Model(&models.PinnedPost{}).Where("user_id = ?", user.ID).Count(&pinCount).Error; err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if pinCount != 0 {
		t.Errorf("Expected pinned post removed on cancel, found %d rows", pinCount)
	}

	actions := historyActions(t, conn, user.ID)
	want := []models.HistoryAction{
		models.SubscriptionCreated,
		models.PostPinned,
		models.SubscriptionCancelled,
		models.PostUnpinned,
	}
	if len(actions) != len(want) {
		t.Fatalf("Expected %d history entries, got %v", len(want), actions)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("History entry %d: expected %s, got %s", i, want[i], actions[i])
		}
	}
}

func TestExpireDue(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)
	post := newTestPost(t, conn, user, "my-post", models.PublishedPost)

	subscription, err := Create(conn, user, plan, false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := Pin(conn, user, post.PostID, time.Now().UTC()); err != nil {
		t.Fatalf("Pin failed: %v", err)
	}

	sweepTime := subscription.EndDate.Add(time.Hour)
	result, err := ExpireDue(conn, sweepTime)
	if err != nil {
		t.Fatalf("ExpireDue failed: %v", err)
	}
	if result.ExpiredSubscriptions != 1 {
		t.Errorf("Expected 1 expired subscription, got %d", result.ExpiredSubscriptions)
	}
	if result.PinnedPostsRemoved != 1 {
		t.Errorf("Expected 1 pinned post removed, got %d", result.PinnedPostsRemoved)
	}
	if len(result.Failed) != 0 {
		t.Errorf("Expected no failures, got %v", result.Failed)
	}

	var reloaded models.Subscription
	if err := conn.Where("id = ?", subscription.ID).First(&reloaded).Error; err != nil {
		t.Fatalf("Expected subscription row retained after expiry: %v", err)
	}
	if reloaded.Status != models.ExpiredSubscription {
		t.Errorf("Expected status expired, got %s", reloaded.Status)
	}

	actions := historyActions(t, conn, user.ID)
	found := false
	for _, a := range actions {
		if a == models.SubscriptionExpired {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an expired history entry, got %v", actions)
	}
}

func TestExpireDueIdempotent(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)

	subscription, err := Create(conn, user, plan, false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sweepTime := subscription.EndDate.Add(time.Hour)
	first, err := ExpireDue(conn, sweepTime)
	if err != nil {
		t.Fatalf("First sweep failed: %v", err)
	}
	if first.ExpiredSubscriptions != 1 {
		t.Fatalf("Expected 1 expired on first sweep, got %d", first.ExpiredSubscriptions)
	}

	second, err := ExpireDue(conn, sweepTime)
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if second.ExpiredSubscriptions != 0 || second.PinnedPostsRemoved != 0 {
		t.Errorf("Expected zero counts on second sweep, got %+v", second)
	}

	var expiredEntries int64
	if err := conn.Model(&models.SubscriptionHistory{}).
		Where("user_id = ? AND action = ?", user.ID, models.SubscriptionExpired).
		Count(&expiredEntries).Error; err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if expiredEntries != 1 {
		t.Errorf("Expected exactly one expired history entry, got %d", expiredEntries)
	}
}

func TestCanPinReasons(t *testing.T) {
	conn := newTestDB(t)
	author := newTestUser(t, conn, "alice@example.com")
	other := newTestUser(t, conn, "bob@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)
	post := newTestPost(t, conn, author, "my-post", models.PublishedPost)
	now := time.Now().UTC()

	t.Run("missing post", func(t *testing.T) {
		decision, err := CanPin(conn, author, "post_missing", now)
		if err != nil {
			t.Fatalf("CanPin failed: %v", err)
		}
		if decision.Allowed || decision.Reasons.PostExists {
			t.Errorf("Expected denial with post_exists=false, got %+v", decision)
		}
	})

	t.Run("no subscription", func(t *testing.T) {
		decision, err := CanPin(conn, author, post.PostID, now)
		if err != nil {
			t.Fatalf("CanPin failed: %v", err)
		}
		if decision.Allowed {
			t.Error("Expected denial without subscription")
		}
		if !decision.Reasons.PostExists || !decision.Reasons.IsOwnPost {
			t.Errorf("Expected post checks to pass, got %+v", decision.Reasons)
		}
		if decision.Reasons.HasSubscription {
			t.Error("Expected has_subscription=false")
		}
	})

	if _, err := Create(conn, author, plan, false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("not own post", func(t *testing.T) {
		decision, err := CanPin(conn, other, post.PostID, now)
		if err != nil {
			t.Fatalf("CanPin failed: %v", err)
		}
		if decision.Allowed || decision.Reasons.IsOwnPost {
			t.Errorf("Expected denial with is_own_post=false, got %+v", decision)
		}
	})

	t.Run("all checks pass", func(t *testing.T) {
		decision, err := CanPin(conn, author, post.PostID, now)
		if err != nil {
			t.Fatalf("CanPin failed: %v", err)
		}
		if !decision.Allowed {
			t.Errorf("Expected allowed, got %+v", decision)
		}
		r := decision.Reasons
		if !r.PostExists || !r.IsOwnPost || !r.HasSubscription || !r.SubscriptionActive {
			t.Errorf("Expected all reasons true, got %+v", r)
		}
	})

	t.Run("subscription past end date", func(t *testing.T) {
		future := time.Now().UTC().Add(31 * 24 * time.Hour)
		decision, err := CanPin(conn, author, post.PostID, future)
		if err != nil {
			t.Fatalf("CanPin failed: %v", err)
		}
		if decision.Allowed {
			t.Error("Expected denial past end date")
		}
		if !decision.Reasons.HasSubscription {
			t.Error("Expected has_subscription=true")
		}
		if decision.Reasons.SubscriptionActive {
			t.Error("Expected subscription_active=false past end date")
		}
	})
}

func TestCanPinPlanWithoutPinning(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Basic Monthly", false)
	post := newTestPost(t, conn, user, "my-post", models.PublishedPost)

	if _, err := Create(conn, user, plan, false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	decision, err := CanPin(conn, user, post.PostID, time.Now().UTC())
	if err != nil {
		t.Fatalf("CanPin failed: %v", err)
	}
	if decision.Allowed {
		t.Error("Expected denial when the plan does not grant pinning")
	}
	if !decision.Reasons.SubscriptionActive {
		t.Error("Subscription itself should still report active")
	}
}

func TestPinReplacesExisting(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)
	first := newTestPost(t, conn, user, "first-post", models.PublishedPost)
	second := newTestPost(t, conn, user, "second-post", models.PublishedPost)
	now := time.Now().UTC()

	if _, err := Create(conn, user, plan, false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := Pin(conn, user, first.PostID, now); err != nil {
		t.Fatalf("First pin failed: %v", err)
	}
	pinned, err := Pin(conn, user, second.PostID, now)
	if err != nil {
		t.Fatalf("Second pin failed: %v", err)
	}
	if pinned.PostID != second.ID {
		t.Errorf("Expected pin on second post, got post row %d", pinned.PostID)
	}

	var count int64
	if err := conn.Model(&models.PinnedPost{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one pinned post row, got %d", count)
	}
}

func TestPinErrors(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)
	draft := newTestPost(t, conn, user, "draft-post", models.DraftPost)
	published := newTestPost(t, conn, user, "live-post", models.PublishedPost)
	now := time.Now().UTC()

	_, err := Pin(conn, user, draft.PostID, now)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError for draft post, got %v", err)
	}

	_, err = Pin(conn, user, published.PostID, now)
	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("Expected ForbiddenError without subscription, got %v", err)
	}
	if forbidden.Reasons.HasSubscription {
		t.Error("Expected has_subscription=false in forbidden reasons")
	}

	if _, err := Create(conn, user, plan, false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := Pin(conn, user, published.PostID, now); err != nil {
		t.Fatalf("Pin failed after subscribing: %v", err)
	}
}

func TestUnpin(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)
	post := newTestPost(t, conn, user, "my-post", models.PublishedPost)

	err := Unpin(conn, user)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError with nothing pinned, got %v", err)
	}

	if _, err := Create(conn, user, plan, false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := Pin(conn, user, post.PostID, time.Now().UTC()); err != nil {
		t.Fatalf("Pin failed: %v", err)
	}

	if err := Unpin(conn, user); err != nil {
		t.Fatalf("Unpin failed: %v", err)
	}

	err = Unpin(conn, user)
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError on second unpin, got %v", err)
	}
}

func TestSubscriptionScenario(t *testing.T) {
	conn := newTestDB(t)
	user := newTestUser(t, conn, "alice@example.com")
	plan := newTestPlan(t, conn, "Premium Monthly", true)
	post := newTestPost(t, conn, user, "my-post", models.PublishedPost)

	subscription, err := Create(conn, user, plan, false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !subscription.IsActive(time.Now().UTC()) {
		t.Error("Fresh subscription should be active")
	}

	if _, err := Pin(conn, user, post.PostID, time.Now().UTC()); err != nil {
		t.Fatalf("Pin failed: %v", err)
	}

	if err := Cancel(conn, subscription); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	var pinCount int64
	conn.Model(&models.PinnedPost{}).Where("user_id = ?", user.ID).Count(&pinCount)
	if pinCount != 0 {
		t.Error("Pin should be gone after cancel")
	}

	var activeCount int64
	conn.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", user.ID, models.ActiveSubscription).
		Count(&activeCount)
	if activeCount != 0 {
		t.Error("Subscription should no longer be queryable as active")
	}

	actions := historyActions(t, conn, user.ID)
	createdIdx, cancelledIdx := -1, -1
	for i, a := range actions {
		switch a {
		case models.SubscriptionCreated:
			createdIdx = i
		case models.SubscriptionCancelled:
			cancelledIdx = i
		}
	}
	if createdIdx == -1 || cancelledIdx == -1 || createdIdx > cancelledIdx {
		t.Errorf("Expected created before cancelled in history, got %v", actions)
	}
}

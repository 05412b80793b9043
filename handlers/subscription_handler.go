// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"newsdesk-server/db"
	"newsdesk-server/middlewares"
	"newsdesk-server/models"
	"newsdesk-server/payments"
	"newsdesk-server/subscriptions"
	"time"

	"gorm.io/datatypes"

	"github.com/labstack/echo/v4"
)

// GetSubscriptionHandler godoc
// @Summary      Get the caller's subscription
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} SubscriptionDetails  "Subscription retrieved successfully"
// @Failure      401 {object} echo.HTTPError       "Unauthorized"
// @Failure      404 {object} echo.HTTPError       "No subscription"
// @Failure      500 {object} echo.HTTPError       "Internal server error"
// @Router       /v1/subscriptions [get]
func GetSubscriptionHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var subscription models.Subscription
	if err := db.Conn.Preload("Plan").Where("user_id = ?", user.ID).
		First(&subscription).Error; err != nil {
		logger.Error("No subscription found.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "You do not have a subscription",
		}
	}

	now := time.Now()
	daysRemaining := 0
	if subscription.IsActive(now) {
		daysRemaining = int(subscription.EndDate.Sub(now).Hours() / 24)
	}

	return c.JSON(http.StatusOK, SubscriptionDetails{
		SubscriptionID: subscription.SubscriptionID,
		Status:         string(subscription.Status),
		AutoRenew:      subscription.AutoRenew,
		StartDate:      subscription.StartDate.UTC().Format(time.RFC3339),
		EndDate:        subscription.EndDate.UTC().Format(time.RFC3339),
		DaysRemaining:  daysRemaining,
		Plan:           serializePlan(&subscription.Plan),
		Message:        "Subscription retrieved successfully",
	})
}

// SubscriptionStatusHandler godoc
// @Summary      Get the caller's subscription status
// @Description  A lightweight entitlement check. Always returns 200, even without a subscription.
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} SubscriptionStatusResponse  "Status retrieved successfully"
// @Failure      401 {object} echo.HTTPError              "Unauthorized"
// @Router       /v1/subscriptions/status [get]
func SubscriptionStatusHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var subscription models.Subscription
	if err := db.Conn.Preload("Plan").Where("user_id = ?", user.ID).
		First(&subscription).Error; err != nil {
		return c.JSON(http.StatusOK, SubscriptionStatusResponse{
			HasSubscription: false,
			IsActive:        false,
		})
	}

	status := string(subscription.Status)
	endDate := subscription.EndDate.UTC().Format(time.RFC3339)

	return c.JSON(http.StatusOK, SubscriptionStatusResponse{
		HasSubscription: true,
		Status:          &status,
		IsActive:        subscription.IsActive(time.Now()),
		EndDate:         &endDate,
		PlanName:        &subscription.Plan.Name,
	})
}

// SubscriptionHistoryHandler godoc
// @Summary      Get the caller's subscription history
// @Description  Lists the caller's subscription audit log, newest first.
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} HistoryListResponse  "History retrieved successfully"
// @Failure      401 {object} echo.HTTPError       "Unauthorized"
// @Failure      500 {object} echo.HTTPError       "Internal server error"
// @Router       /v1/subscriptions/history [get]
func SubscriptionHistoryHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var entries []models.SubscriptionHistory
	if err := db.Conn.Where("user_id = ?", user.ID).
		Order("created_at desc, id desc").Find(&entries).Error; err != nil {
		logger.Errorf("Failed to list subscription history: %v", err)
		return echo.ErrInternalServerError
	}

	data := make([]HistoryEntry, 0, len(entries))
	for i := range entries {
		data = append(data, serializeHistory(&entries[i]))
	}

	return c.JSON(http.StatusOK, HistoryListResponse{
		Data:    data,
		Message: "Subscription history retrieved successfully",
	})
}

// CancelSubscriptionHandler godoc
// @Summary      Cancel the caller's subscription
// @Description  Cancels an active subscription and removes any pinned post.
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MessageResponse   "Subscription cancelled successfully"
// @Failure      400 {object} echo.HTTPError    "Subscription not active"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      404 {object} echo.HTTPError    "No subscription"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/subscriptions/cancel [post]
func CancelSubscriptionHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var subscription models.Subscription
	if err := db.Conn.Where("user_id = ?", user.ID).First(&subscription).Error; err != nil {
		logger.Error("No subscription found to cancel.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "You do not have a subscription",
		}
	}

	if err := subscriptions.Cancel(db.Conn, &subscription); err != nil {
		logger.Errorf("Failed to cancel subscription: %v", err)
		return httpErrorFor(err)
	}

	logger.Debug("Subscription cancelled successfully.")
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Subscription cancelled successfully",
	})
}

// CheckoutHandler godoc
// @Summary      Start a subscription checkout
// @Description  Creates a pending payment and a Stripe checkout session for the chosen plan.
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        checkoutRequest  body  CheckoutRequest  true  "Checkout request payload"
// @Success      201 {object} CheckoutResponse  "Checkout session created"
// @Failure      400 {object} echo.HTTPError    "Bad request, missing required fields"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      404 {object} echo.HTTPError    "Plan not found"
// @Failure      409 {object} echo.HTTPError    "Already subscribed"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/subscriptions/checkout [post]
func CheckoutHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid checkout request payload:", err)
		return echo.ErrBadRequest
	}

	if req.PlanID == "" {
		logger.Error("Plan ID is required.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "plan_id field is required",
		}
	}

	if req.SuccessURL == "" || req.CancelURL == "" {
		logger.Error("Success and cancel URLs are required.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "success_url and cancel_url fields are required",
		}
	}

	var plan models.SubscriptionPlan
	if err := db.Conn.Where("plan_id = ? AND is_active = ?", req.PlanID, true).
		First(&plan).Error; err != nil {
		logger.Error("Plan not found for checkout.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Plan not found",
		}
	}

	if plan.StripePriceID == nil || *plan.StripePriceID == "" {
		logger.Error("Plan has no Stripe price configured.")
		return &echo.HTTPError{
			Code:    http.StatusInternalServerError,
			Message: "This plan is not available for purchase yet.",
		}
	}

	var existing models.Subscription
	if err := db.Conn.Where("user_id = ?", user.ID).First(&existing).Error; err == nil {
		if existing.IsActive(time.Now()) {
			logger.Error("User already has an active subscription.")
			return &echo.HTTPError{
				Code:    http.StatusConflict,
				Message: "You already have an active subscription",
			}
		}
	}

	stripeClient, err := payments.NewStripeClient(payments.StripeConfig{})
	if err != nil {
		logger.Errorf("Failed to initialize Stripe client: %v", err)
		return echo.ErrInternalServerError
	}

	session, err := stripeClient.CreateCheckoutSession(
		*plan.StripePriceID,
		user.Email,
		req.SuccessURL,
		req.CancelURL,
		map[string]string{
			"account_id": user.AccountID,
			"plan_id":    plan.PlanID,
		},
	)
	if err != nil {
		logger.Errorf("Failed to create checkout session: %v", err)
		return echo.ErrInternalServerError
	}

	payment := models.Payment{
		Amount:          plan.Price,
		Currency:        plan.Currency,
		Status:          models.PendingPayment,
		Method:          models.StripePayment,
		StripeSessionID: &session.ID,
		Description:     "Subscription to " + plan.Name,
		Metadata:        datatypes.JSON([]byte(`{"plan_id":"` + plan.PlanID + `"}`)),
		UserID:          user.ID,
	}

	if err := db.Conn.Create(&payment).Error; err != nil {
		logger.Errorf("Failed to create payment record: %v", err)
		return echo.ErrInternalServerError
	}

	logger.Debug("Checkout session created successfully.")
	return c.JSON(http.StatusCreated, CheckoutResponse{
		PaymentID:   payment.PaymentID,
		CheckoutURL: session.URL,
		Message:     "Checkout session created",
	})
}

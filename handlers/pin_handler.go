// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"newsdesk-server/db"
	"newsdesk-server/middlewares"
	"newsdesk-server/models"
	"newsdesk-server/subscriptions"
	"time"

	"github.com/labstack/echo/v4"
)

// GetPinnedPostHandler godoc
// @Summary      Get the caller's pinned post
// @Tags         pins
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} PinnedPostResponse  "Pinned post retrieved successfully"
// @Failure      401 {object} echo.HTTPError      "Unauthorized"
// @Failure      404 {object} echo.HTTPError      "No pinned post"
// @Failure      500 {object} echo.HTTPError      "Internal server error"
// @Router       /v1/pins [get]
func GetPinnedPostHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var pin models.PinnedPost
	if err := db.Conn.Preload("Post").Preload("Post.Author").Preload("Post.Category").
		Where("user_id = ?", user.ID).First(&pin).Error; err != nil {
		logger.Error("No pinned post found.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "You do not have a pinned post",
		}
	}

	details := serializePost(&pin.Post, false)
	details.IsPinned = true

	return c.JSON(http.StatusOK, PinnedPostResponse{
		Post:     details,
		PinnedAt: pin.PinnedAt.UTC().Format(time.RFC3339),
		Message:  "Pinned post retrieved successfully",
	})
}

// PinPostHandler godoc
// @Summary      Pin a post
// @Description  Pins one of the caller's published posts. A new pin replaces any existing one.
// @Tags         pins
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        pinPostRequest  body  PinPostRequest  true  "Pin request payload"
// @Success      201 {object} PinnedPostResponse  "Post pinned successfully"
// @Failure      400 {object} echo.HTTPError      "Bad request, missing required fields"
// @Failure      401 {object} echo.HTTPError      "Unauthorized"
// @Failure      403 {object} echo.HTTPError      "Pinning not allowed"
// @Failure      404 {object} echo.HTTPError      "Post not found"
// @Failure      500 {object} echo.HTTPError      "Internal server error"
// @Router       /v1/pins [post]
func PinPostHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var req PinPostRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid pin request payload:", err)
		return echo.ErrBadRequest
	}

	if req.PostID == "" {
		logger.Error("Post ID is required.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "post_id field is required",
		}
	}

	pin, err := subscriptions.Pin(db.Conn, user, req.PostID, time.Now())
	if err != nil {
		logger.Errorf("Failed to pin post: %v", err)
		return httpErrorFor(err)
	}

	if err := db.Conn.Preload("Post").Preload("Post.Author").Preload("Post.Category").
		First(pin, pin.ID).Error; err != nil {
		logger.Errorf("Failed to reload pinned post: %v", err)
		return echo.ErrInternalServerError
	}

	details := serializePost(&pin.Post, false)
	details.IsPinned = true

	logger.Debug("Post pinned successfully.")
	return c.JSON(http.StatusCreated, PinnedPostResponse{
		Post:     details,
		PinnedAt: pin.PinnedAt.UTC().Format(time.RFC3339),
		Message:  "Post pinned successfully",
	})
}

// UnpinPostHandler godoc
// @Summary      Unpin the caller's pinned post
// @Tags         pins
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MessageResponse   "Post unpinned successfully"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      404 {object} echo.HTTPError    "No pinned post"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/pins [delete]
func UnpinPostHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	if err := subscriptions.Unpin(db.Conn, user); err != nil {
		logger.Errorf("Failed to unpin post: %v", err)
		return httpErrorFor(err)
	}

	logger.Debug("Post unpinned successfully.")
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Post unpinned successfully",
	})
}

// CanPinHandler godoc
// @Summary      Check whether a post can be pinned
// @Description  Dry-run pin decision with itemized checks. Never mutates state.
// @Tags         pins
// @Produce      json
// @Security     BearerAuth
// @Param        post_id  path  string  true  "Post public ID"
// @Success      200 {object} CanPinResponse    "Decision computed successfully"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/pins/can-pin/{post_id} [get]
func CanPinHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	postID := c.Param("post_id")

	decision, err := subscriptions.CanPin(db.Conn, user, postID, time.Now())
	if err != nil {
		logger.Errorf("Failed to compute pin decision: %v", err)
		return echo.ErrInternalServerError
	}

	message := "Cannot pin post"
	if decision.Allowed {
		message = "Can pin post"
	}

	return c.JSON(http.StatusOK, CanPinResponse{
		PostID:  postID,
		CanPin:  decision.Allowed,
		Checks:  decision.Reasons,
		Message: message,
	})
}

// FeaturedPostsHandler godoc
// @Summary      List featured posts
// @Description  Lists pinned posts of users holding a live subscription, most recently pinned first. Public endpoint.
// @Tags         pins
// @Produce      json
// @Success      200 {object} map[string]any    "Featured posts retrieved successfully"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/pins/featured [get]
func FeaturedPostsHandler(c echo.Context) error {
	logger := c.Logger()

	// A pin may outlive its subscription for up to one sweep interval,
	// so the entitlement check is repeated here.
	var pins []models.PinnedPost
	if err := db.Conn.
		Joins("JOIN subscriptions ON subscriptions.user_id = pinned_posts.user_id").
		Where("subscriptions.status = ? AND subscriptions.end_date > ? AND subscriptions.deleted_at IS NULL",
			models.ActiveSubscription, time.Now()).
		Preload("Post").Preload("Post.Author").Preload("Post.Category").
		Order("pinned_at desc").Limit(50).Find(&pins).Error; err != nil {
		logger.Errorf("Failed to list featured posts: %v", err)
		return echo.ErrInternalServerError
	}

	data := make([]PostDetails, 0, len(pins))
	for i := range pins {
		if pins[i].Post.Status != models.PublishedPost {
			continue
		}
		details := serializePost(&pins[i].Post, false)
		details.IsPinned = true
		data = append(data, details)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data":    data,
		"message": "Featured posts retrieved successfully",
	})
}

// SPDX-License-Identifier: GPL-3.0-only

// Package handlers contains the HTTP handlers for the newsdesk API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"newsdesk-server/models"
	"newsdesk-server/subscriptions"

	"github.com/labstack/echo/v4"
)

// httpErrorFor translates the typed errors returned by the subscriptions
// package into HTTP errors. Unrecognized errors map to a 500 without
// leaking the underlying message.
func httpErrorFor(err error) *echo.HTTPError {
	var conflict *subscriptions.ConflictError
	var invalid *subscriptions.InvalidStateError
	var forbidden *subscriptions.ForbiddenError
	var notFound *subscriptions.NotFoundError

	switch {
	case errors.As(err, &conflict):
		return echo.NewHTTPError(http.StatusConflict, conflict.Error())
	case errors.As(err, &invalid):
		return echo.NewHTTPError(http.StatusBadRequest, invalid.Error())
	case errors.As(err, &forbidden):
		return echo.NewHTTPError(http.StatusForbidden, map[string]any{
			"message": forbidden.Message,
			"checks":  forbidden.Reasons,
		})
	case errors.As(err, &notFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong, please try again later.")
	}
}

func paginationParams(c echo.Context) (page, pageSize int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err = strconv.Atoi(c.QueryParam("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	pages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		pages++
	}
	return pages
}

// slugify derives a URL slug from free text. Anything that is not a
// letter or digit collapses into a single hyphen.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func serializePost(post *models.Post, includeContent bool) PostDetails {
	details := PostDetails{
		PostID:     post.PostID,
		Title:      post.Title,
		Slug:       post.Slug,
		Status:     string(post.Status),
		ViewsCount: post.ViewsCount,
		CreatedAt:  post.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  post.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if includeContent {
		details.Content = post.Content
	}
	if post.Category != nil {
		details.Category = &post.Category.Slug
	}
	details.Author = PostAuthor{
		AccountID: post.Author.AccountID,
		FullName:  post.Author.FullName,
	}
	return details
}

func serializePlan(plan *models.SubscriptionPlan) PlanDetails {
	return PlanDetails{
		PlanID:          plan.PlanID,
		Name:            plan.Name,
		Price:           plan.Price.StringFixed(2),
		Currency:        plan.Currency,
		DurationDays:    plan.DurationDays,
		PinPosts:        plan.PinPosts,
		PrioritySupport: plan.PrioritySupport,
		Analytics:       plan.Analytics,
	}
}

func serializeHistory(entry *models.SubscriptionHistory) HistoryEntry {
	out := HistoryEntry{
		EID:         entry.EID.String(),
		Action:      string(entry.Action),
		Description: entry.Description,
		PlanName:    entry.PlanName,
		CreatedAt:   entry.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(entry.Metadata) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(entry.Metadata, &meta); err == nil {
			out.Metadata = meta
		}
	}
	return out
}

func serializePayment(payment *models.Payment) PaymentDetails {
	details := PaymentDetails{
		PaymentID:   payment.PaymentID,
		Amount:      payment.Amount.StringFixed(2),
		Currency:    payment.Currency,
		Status:      string(payment.Status),
		Method:      string(payment.Method),
		Description: payment.Description,
		CreatedAt:   payment.CreatedAt.UTC().Format(time.RFC3339),
	}
	if payment.ProcessedAt != nil {
		formatted := payment.ProcessedAt.UTC().Format(time.RFC3339)
		details.ProcessedAt = &formatted
	}
	return details
}

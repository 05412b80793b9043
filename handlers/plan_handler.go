// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"newsdesk-server/db"
	"newsdesk-server/models"

	"github.com/labstack/echo/v4"
)

// ListPlansHandler godoc
// @Summary      List subscription plans
// @Description  Lists all active subscription plans.
// @Tags         plans
// @Produce      json
// @Success      200 {object} GetPlansResponse  "Plans retrieved successfully"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/plans [get]
func ListPlansHandler(c echo.Context) error {
	logger := c.Logger()

	var plans []models.SubscriptionPlan
	if err := db.Conn.Where("is_active = ?", true).Order("price asc").Find(&plans).Error; err != nil {
		logger.Errorf("Failed to list plans: %v", err)
		return echo.ErrInternalServerError
	}

	data := make([]PlanDetails, 0, len(plans))
	for i := range plans {
		data = append(data, serializePlan(&plans[i]))
	}

	return c.JSON(http.StatusOK, GetPlansResponse{
		Plans:   data,
		Message: "Plans retrieved successfully",
	})
}

// GetPlanHandler godoc
// @Summary      Get a subscription plan
// @Tags         plans
// @Produce      json
// @Param        plan_id  path  string  true  "Plan public ID"
// @Success      200 {object} PlanDetails       "Plan retrieved successfully"
// @Failure      404 {object} echo.HTTPError    "Plan not found"
// @Router       /v1/plans/{plan_id} [get]
func GetPlanHandler(c echo.Context) error {
	logger := c.Logger()

	var plan models.SubscriptionPlan
	if err := db.Conn.Where("plan_id = ? AND is_active = ?", c.Param("plan_id"), true).
		First(&plan).Error; err != nil {
		logger.Error("Plan not found.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Plan not found",
		}
	}

	return c.JSON(http.StatusOK, serializePlan(&plan))
}

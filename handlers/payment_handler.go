// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"newsdesk-server/db"
	"newsdesk-server/middlewares"
	"newsdesk-server/models"

	"github.com/labstack/echo/v4"
)

// ListPaymentsHandler godoc
// @Summary      List the caller's payments
// @Description  Lists the caller's payment records, newest first.
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} PaymentListResponse  "Payments retrieved successfully"
// @Failure      401 {object} echo.HTTPError       "Unauthorized"
// @Failure      500 {object} echo.HTTPError       "Internal server error"
// @Router       /v1/payments [get]
func ListPaymentsHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var records []models.Payment
	if err := db.Conn.Where("user_id = ?", user.ID).
		Order("created_at desc").Find(&records).Error; err != nil {
		logger.Errorf("Failed to list payments: %v", err)
		return echo.ErrInternalServerError
	}

	data := make([]PaymentDetails, 0, len(records))
	for i := range records {
		data = append(data, serializePayment(&records[i]))
	}

	return c.JSON(http.StatusOK, PaymentListResponse{
		Data:    data,
		Message: "Payments retrieved successfully",
	})
}

// GetPaymentHandler godoc
// @Summary      Get one of the caller's payments
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        payment_id  path  string  true  "Payment public ID"
// @Success      200 {object} PaymentDetails    "Payment retrieved successfully"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      404 {object} echo.HTTPError    "Payment not found"
// @Router       /v1/payments/{payment_id} [get]
func GetPaymentHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var payment models.Payment
	if err := db.Conn.Where("payment_id = ? AND user_id = ?", c.Param("payment_id"), user.ID).
		First(&payment).Error; err != nil {
		logger.Error("Payment not found.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Payment not found",
		}
	}

	return c.JSON(http.StatusOK, serializePayment(&payment))
}

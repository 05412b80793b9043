// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"newsdesk-server/db"
	"newsdesk-server/middlewares"
	"newsdesk-server/models"
	"time"

	"github.com/labstack/echo/v4"
)

func serializeCategory(category *models.Category) CategoryDetails {
	return CategoryDetails{
		ID:          category.ID,
		Name:        category.Name,
		Slug:        category.Slug,
		Description: category.Description,
		CreatedAt:   category.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ListCategoriesHandler godoc
// @Summary      List all categories
// @Tags         categories
// @Produce      json
// @Success      200 {object} map[string]any    "Categories retrieved successfully"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/categories [get]
func ListCategoriesHandler(c echo.Context) error {
	logger := c.Logger()

	var categories []models.Category
	if err := db.Conn.Order("name asc").Find(&categories).Error; err != nil {
		logger.Errorf("Failed to list categories: %v", err)
		return echo.ErrInternalServerError
	}

	data := make([]CategoryDetails, 0, len(categories))
	for i := range categories {
		data = append(data, serializeCategory(&categories[i]))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data":    data,
		"message": "Categories retrieved successfully",
	})
}

// GetCategoryHandler godoc
// @Summary      Get a category by slug
// @Tags         categories
// @Produce      json
// @Param        slug  path  string  true  "Category slug"
// @Success      200 {object} CategoryDetails   "Category retrieved successfully"
// @Failure      404 {object} echo.HTTPError    "Category not found"
// @Router       /v1/categories/{slug} [get]
func GetCategoryHandler(c echo.Context) error {
	logger := c.Logger()

	var category models.Category
	if err := db.Conn.Where("slug = ?", c.Param("slug")).First(&category).Error; err != nil {
		logger.Error("Category not found.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Category not found",
		}
	}

	return c.JSON(http.StatusOK, serializeCategory(&category))
}

// CreateCategoryHandler godoc
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        categoryRequest  body  CategoryRequest  true  "Category request payload"
// @Success      201 {object} CategoryDetails   "Category created successfully"
// @Failure      400 {object} echo.HTTPError    "Bad request, missing required fields"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      409 {object} echo.HTTPError    "Duplicate category"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/categories [post]
func CreateCategoryHandler(c echo.Context) error {
	logger := c.Logger()

	if _, err := middlewares.GetAuthenticatedUser(c); err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid category request payload:", err)
		return echo.ErrBadRequest
	}

	if req.Name == "" {
		logger.Error("Category name is required.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "name field is required",
		}
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Name)
	}

	count := db.Conn.Where("name = ? OR slug = ?", req.Name, slug).First(&models.Category{}).RowsAffected
	if count > 0 {
		logger.Error("Category already exists.")
		return &echo.HTTPError{
			Code:    http.StatusConflict,
			Message: "A category with this name or slug already exists.",
		}
	}

	category := models.Category{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
	}

	if err := db.Conn.Create(&category).Error; err != nil {
		logger.Errorf("Failed to create category: %v", err)
		return echo.ErrInternalServerError
	}

	logger.Debug("Category created successfully.")
	return c.JSON(http.StatusCreated, serializeCategory(&category))
}

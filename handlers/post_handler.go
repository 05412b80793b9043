// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"newsdesk-server/db"
	"newsdesk-server/middlewares"
	"newsdesk-server/models"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// ListPostsHandler godoc
// @Summary      List published posts
// @Description  Lists published posts, newest first. Authenticated authors also see their own drafts.
// @Tags         posts
// @Produce      json
// @Param        page       query  int     false  "Page number"
// @Param        page_size  query  int     false  "Page size"
// @Param        category   query  string  false  "Filter by category slug"
// @Success      200 {object} PostListResponse  "Posts retrieved successfully"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/posts [get]
func ListPostsHandler(c echo.Context) error {
	logger := c.Logger()

	page, pageSize := paginationParams(c)

	query := db.Conn.Model(&models.Post{}).Preload("Author").Preload("Category")

	if user, err := middlewares.GetAuthenticatedUser(c); err == nil {
		query = query.Where("status = ? OR author_id = ?", models.PublishedPost, user.ID)
	} else {
		query = query.Where("status = ?", models.PublishedPost)
	}

	if categorySlug := c.QueryParam("category"); categorySlug != "" {
		var category models.Category
		if err := db.Conn.Where("slug = ?", categorySlug).First(&category).Error; err != nil {
			return &echo.HTTPError{
				Code:    http.StatusNotFound,
				Message: "Category not found",
			}
		}
		query = query.Where("category_id = ?", category.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Errorf("Failed to count posts: %v", err)
		return echo.ErrInternalServerError
	}

	var posts []models.Post
	if err := query.Order("created_at desc").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error; err != nil {
		logger.Errorf("Failed to list posts: %v", err)
		return echo.ErrInternalServerError
	}

	data := make([]PostDetails, 0, len(posts))
	for i := range posts {
		data = append(data, serializePost(&posts[i], false))
	}

	return c.JSON(http.StatusOK, PostListResponse{
		Data: data,
		Pagination: PaginationDetails{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages(total, pageSize),
		},
		Message: "Posts retrieved successfully",
	})
}

// CreatePostHandler godoc
// @Summary      Create a post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        createPostRequest  body  CreatePostRequest  true  "Post payload"
// @Success      201 {object} PostDetails       "Post created successfully"
// @Failure      400 {object} echo.HTTPError    "Bad request, missing required fields"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      409 {object} echo.HTTPError    "Duplicate slug"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/posts [post]
func CreatePostHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var req CreatePostRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid post request payload:", err)
		return echo.ErrBadRequest
	}

	if req.Title == "" {
		logger.Error("Post title is required.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "title field is required",
		}
	}

	if req.Content == "" {
		logger.Error("Post content is required.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "content field is required",
		}
	}

	status := models.DraftPost
	switch req.Status {
	case "", string(models.DraftPost):
	case string(models.PublishedPost):
		status = models.PublishedPost
	default:
		logger.Error("Invalid post status.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "status field must be either draft or published",
		}
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Title)
	}

	count := db.Conn.Where("slug = ?", slug).First(&models.Post{}).RowsAffected
	if count > 0 {
		logger.Error("Post slug already exists.")
		return &echo.HTTPError{
			Code:    http.StatusConflict,
			Message: "A post with this slug already exists.",
		}
	}

	post := models.Post{
		Title:    req.Title,
		Slug:     slug,
		Content:  req.Content,
		Status:   status,
		AuthorID: user.ID,
	}

	if req.Category != nil && *req.Category != "" {
		var category models.Category
		if err := db.Conn.Where("slug = ?", *req.Category).First(&category).Error; err != nil {
			logger.Error("Category not found for post.")
			return &echo.HTTPError{
				Code:    http.StatusBadRequest,
				Message: "category field must be an existing category slug",
			}
		}
		post.CategoryID = &category.ID
	}

	if err := db.Conn.Create(&post).Error; err != nil {
		logger.Errorf("Failed to create post: %v", err)
		return echo.ErrInternalServerError
	}

	if err := db.Conn.Preload("Author").Preload("Category").First(&post, post.ID).Error; err != nil {
		logger.Errorf("Failed to reload post: %v", err)
		return echo.ErrInternalServerError
	}

	logger.Debug("Post created successfully.")
	return c.JSON(http.StatusCreated, serializePost(&post, true))
}

// GetPostHandler godoc
// @Summary      Get a post by slug
// @Description  Fetches a published post and increments its view counter. Draft posts are visible to their author only.
// @Tags         posts
// @Produce      json
// @Param        slug  path  string  true  "Post slug"
// @Success      200 {object} PostDetails       "Post retrieved successfully"
// @Failure      404 {object} echo.HTTPError    "Post not found"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/posts/{slug} [get]
func GetPostHandler(c echo.Context) error {
	logger := c.Logger()

	slug := c.Param("slug")

	var post models.Post
	if err := db.Conn.Preload("Author").Preload("Category").
		Where("slug = ?", slug).First(&post).Error; err != nil {
		logger.Error("Post not found.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Post not found",
		}
	}

	if post.Status != models.PublishedPost {
		user, err := middlewares.GetAuthenticatedUser(c)
		if err != nil || user.ID != post.AuthorID {
			logger.Error("Draft post requested by non-author.")
			return &echo.HTTPError{
				Code:    http.StatusNotFound,
				Message: "Post not found",
			}
		}
	} else {
		if err := db.Conn.Model(&post).
			UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error; err != nil {
			logger.Errorf("Failed to increment view count: %v", err)
		}
	}

	details := serializePost(&post, true)

	var pinCount int64
	db.Conn.Model(&models.PinnedPost{}).Where("post_id = ?", post.ID).Count(&pinCount)
	details.IsPinned = pinCount > 0

	return c.JSON(http.StatusOK, details)
}

// UpdatePostHandler godoc
// @Summary      Update a post
// @Description  Updates a post. Only the author can update their post.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        slug               path  string             true  "Post slug"
// @Param        createPostRequest  body  CreatePostRequest  true  "Fields to update"
// @Success      200 {object} PostDetails       "Post updated successfully"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      403 {object} echo.HTTPError    "Not the author"
// @Failure      404 {object} echo.HTTPError    "Post not found"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/posts/{slug} [put]
func UpdatePostHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var post models.Post
	if err := db.Conn.Where("slug = ?", c.Param("slug")).First(&post).Error; err != nil {
		logger.Error("Post not found.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Post not found",
		}
	}

	if post.AuthorID != user.ID {
		logger.Error("Post update attempted by non-author.")
		return &echo.HTTPError{
			Code:    http.StatusForbidden,
			Message: "Only the author can update this post",
		}
	}

	var req CreatePostRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid post request payload:", err)
		return echo.ErrBadRequest
	}

	if req.Title != "" {
		post.Title = req.Title
	}
	if req.Content != "" {
		post.Content = req.Content
	}
	if req.Status != "" {
		switch req.Status {
		case string(models.DraftPost):
			post.Status = models.DraftPost
		case string(models.PublishedPost):
			post.Status = models.PublishedPost
		default:
			logger.Error("Invalid post status.")
			return &echo.HTTPError{
				Code:    http.StatusBadRequest,
				Message: "status field must be either draft or published",
			}
		}
	}
	if req.Category != nil {
		if *req.Category == "" {
			post.CategoryID = nil
		} else {
			var category models.Category
			if err := db.Conn.Where("slug = ?", *req.Category).First(&category).Error; err != nil {
				logger.Error("Category not found for post.")
				return &echo.HTTPError{
					Code:    http.StatusBadRequest,
					Message: "category field must be an existing category slug",
				}
			}
			post.CategoryID = &category.ID
		}
	}

	if err := db.Conn.Save(&post).Error; err != nil {
		logger.Errorf("Failed to update post: %v", err)
		return echo.ErrInternalServerError
	}

	if err := db.Conn.Preload("Author").Preload("Category").First(&post, post.ID).Error; err != nil {
		logger.Errorf("Failed to reload post: %v", err)
		return echo.ErrInternalServerError
	}

	logger.Debug("Post updated successfully.")
	return c.JSON(http.StatusOK, serializePost(&post, true))
}

// DeletePostHandler godoc
// @Summary      Delete a post
// @Description  Deletes a post. Only the author can delete their post. Pins referencing the post are removed.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        slug  path  string  true  "Post slug"
// @Success      200 {object} MessageResponse   "Post deleted successfully"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      403 {object} echo.HTTPError    "Not the author"
// @Failure      404 {object} echo.HTTPError    "Post not found"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/posts/{slug} [delete]
func DeletePostHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var post models.Post
	if err := db.Conn.Where("slug = ?", c.Param("slug")).First(&post).Error; err != nil {
		logger.Error("Post not found.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Post not found",
		}
	}

	if post.AuthorID != user.ID {
		logger.Error("Post deletion attempted by non-author.")
		return &echo.HTTPError{
			Code:    http.StatusForbidden,
			Message: "Only the author can delete this post",
		}
	}

	err = db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PinnedPost{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		logger.Errorf("Failed to delete post: %v", err)
		return echo.ErrInternalServerError
	}

	logger.Debug("Post deleted successfully.")
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Post deleted successfully",
	})
}

// PopularPostsHandler godoc
// @Summary      List popular posts
// @Description  Lists published posts ordered by view count.
// @Tags         posts
// @Produce      json
// @Param        page       query  int  false  "Page number"
// @Param        page_size  query  int  false  "Page size"
// @Success      200 {object} PostListResponse  "Posts retrieved successfully"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/posts/popular [get]
func PopularPostsHandler(c echo.Context) error {
	return listPublishedPosts(c, "views_count desc, created_at desc")
}

// RecentPostsHandler godoc
// @Summary      List recent posts
// @Description  Lists published posts ordered by publication time.
// @Tags         posts
// @Produce      json
// @Param        page       query  int  false  "Page number"
// @Param        page_size  query  int  false  "Page size"
// @Success      200 {object} PostListResponse  "Posts retrieved successfully"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/posts/recent [get]
func RecentPostsHandler(c echo.Context) error {
	return listPublishedPosts(c, "created_at desc")
}

// PostsByCategoryHandler godoc
// @Summary      List published posts in a category
// @Tags         posts
// @Produce      json
// @Param        slug       path   string  true   "Category slug"
// @Param        page       query  int     false  "Page number"
// @Param        page_size  query  int     false  "Page size"
// @Success      200 {object} PostListResponse  "Posts retrieved successfully"
// @Failure      404 {object} echo.HTTPError    "Category not found"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/posts/category/{slug} [get]
func PostsByCategoryHandler(c echo.Context) error {
	logger := c.Logger()

	var category models.Category
	if err := db.Conn.Where("slug = ?", c.Param("slug")).First(&category).Error; err != nil {
		logger.Error("Category not found.")
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Category not found",
		}
	}

	return listPublishedPosts(c, "created_at desc", "category_id = ?", category.ID)
}

func listPublishedPosts(c echo.Context, order string, conditions ...any) error {
	logger := c.Logger()

	page, pageSize := paginationParams(c)

	query := db.Conn.Model(&models.Post{}).Preload("Author").Preload("Category").
		Where("status = ?", models.PublishedPost)
	if len(conditions) > 0 {
		query = query.Where(conditions[0], conditions[1:]...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Errorf("Failed to count posts: %v", err)
		return echo.ErrInternalServerError
	}

	var posts []models.Post
	if err := query.Order(order).
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error; err != nil {
		logger.Errorf("Failed to list posts: %v", err)
		return echo.ErrInternalServerError
	}

	data := make([]PostDetails, 0, len(posts))
	for i := range posts {
		data = append(data, serializePost(&posts[i], false))
	}

	return c.JSON(http.StatusOK, PostListResponse{
		Data: data,
		Pagination: PaginationDetails{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages(total, pageSize),
		},
		Message: "Posts retrieved successfully",
	})
}

// MyPostsHandler godoc
// @Summary      List the authenticated user's posts
// @Description  Lists the caller's posts, drafts included.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        page       query  int  false  "Page number"
// @Param        page_size  query  int  false  "Page size"
// @Success      200 {object} PostListResponse  "Posts retrieved successfully"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /v1/posts/mine [get]
func MyPostsHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	page, pageSize := paginationParams(c)

	query := db.Conn.Model(&models.Post{}).Preload("Author").Preload("Category").
		Where("author_id = ?", user.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Errorf("Failed to count posts: %v", err)
		return echo.ErrInternalServerError
	}

	var posts []models.Post
	if err := query.Order("created_at desc").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error; err != nil {
		logger.Errorf("Failed to list posts: %v", err)
		return echo.ErrInternalServerError
	}

	data := make([]PostDetails, 0, len(posts))
	for i := range posts {
		data = append(data, serializePost(&posts[i], false))
	}

	return c.JSON(http.StatusOK, PostListResponse{
		Data: data,
		Pagination: PaginationDetails{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages(total, pageSize),
		},
		Message: "Posts retrieved successfully",
	})
}

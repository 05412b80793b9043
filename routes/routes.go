// SPDX-License-Identifier: GPL-3.0-only

package routes

import (
	"newsdesk-server/commons"
	"newsdesk-server/handlers"
	"newsdesk-server/middlewares"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	commons.Logger.Debug("Registering v1 routes")
	api_v1 := e.Group("/v1")

	api_v1.POST("/auth/signup", handlers.SignupHandler)
	api_v1.POST("/auth/login", handlers.LoginHandler)
	api_v1.POST("/auth/logout", handlers.LogoutHandler, middlewares.VerifyAuthMiddleware())
	api_v1.GET("/auth/profile", handlers.GetProfileHandler, middlewares.VerifyAuthMiddleware())

	api_v1.GET("/categories", handlers.ListCategoriesHandler)
	api_v1.POST("/categories", handlers.CreateCategoryHandler, middlewares.VerifyAuthMiddleware())
	api_v1.GET("/categories/:slug", handlers.GetCategoryHandler)

	api_v1.GET("/posts", handlers.ListPostsHandler, middlewares.OptionalAuthMiddleware())
	api_v1.POST("/posts", handlers.CreatePostHandler, middlewares.VerifyAuthMiddleware())
	api_v1.GET("/posts/popular", handlers.PopularPostsHandler)
	api_v1.GET("/posts/recent", handlers.RecentPostsHandler)
	api_v1.GET("/posts/mine", handlers.MyPostsHandler, middlewares.VerifyAuthMiddleware())
	api_v1.GET("/posts/category/:slug", handlers.PostsByCategoryHandler)
	api_v1.GET("/posts/:slug", handlers.GetPostHandler, middlewares.OptionalAuthMiddleware())
	api_v1.PUT("/posts/:slug", handlers.UpdatePostHandler, middlewares.VerifyAuthMiddleware())
	api_v1.DELETE("/posts/:slug", handlers.DeletePostHandler, middlewares.VerifyAuthMiddleware())

	api_v1.GET("/plans", handlers.ListPlansHandler)
	api_v1.GET("/plans/:plan_id", handlers.GetPlanHandler)

	api_v1.GET("/subscriptions", handlers.GetSubscriptionHandler, middlewares.VerifyAuthMiddleware())
	api_v1.GET("/subscriptions/status", handlers.SubscriptionStatusHandler, middlewares.VerifyAuthMiddleware())
	api_v1.GET("/subscriptions/history", handlers.SubscriptionHistoryHandler, middlewares.VerifyAuthMiddleware())
	api_v1.POST("/subscriptions/cancel", handlers.CancelSubscriptionHandler, middlewares.VerifyAuthMiddleware())
	api_v1.POST("/subscriptions/checkout", handlers.CheckoutHandler, middlewares.VerifyAuthMiddleware())

	api_v1.GET("/pins", handlers.GetPinnedPostHandler, middlewares.VerifyAuthMiddleware())
	api_v1.POST("/pins", handlers.PinPostHandler, middlewares.VerifyAuthMiddleware())
	api_v1.DELETE("/pins", handlers.UnpinPostHandler, middlewares.VerifyAuthMiddleware())
	api_v1.GET("/pins/can-pin/:post_id", handlers.CanPinHandler, middlewares.VerifyAuthMiddleware())
	api_v1.GET("/pins/featured", handlers.FeaturedPostsHandler)

	api_v1.GET("/payments", handlers.ListPaymentsHandler, middlewares.VerifyAuthMiddleware())
	api_v1.GET("/payments/:payment_id", handlers.GetPaymentHandler, middlewares.VerifyAuthMiddleware())

	api_v1.POST("/webhooks/stripe", handlers.StripeWebhookHandler)

	commons.Logger.Info("v1 routes registered successfully")
}

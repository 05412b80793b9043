// SPDX-License-Identifier: GPL-3.0-only

package handlers

import "newsdesk-server/subscriptions"

// swagger:model SignupRequest
type SignupRequest struct {
	// User's email address
	// required: true
	Email string `json:"email" example:"user@example.com"`
	// User's password
	// required: true
	Password string `json:"password" example:"MySecretPassword@123"`
	// Optional full name
	FullName *string `json:"full_name" example:"John Doe"`
}

// swagger:model AuthResponse
type AuthResponse struct {
	// Authentication session token.
	// Should be used in the Authorization header as a Bearer token.
	SessionToken string `json:"session_token" example:"sample_session_token"`
	// Message indicating successful operation
	Message string `json:"message" example:"Operation successful"`
}

// swagger:model LoginRequest
type LoginRequest struct {
	// User's email address
	Email string `json:"email" example:"user@example.com"`
	// User's password
	Password string `json:"password" example:"MySecretPassword@123"`
}

// swagger:model MessageResponse
type MessageResponse struct {
	Message string `json:"message" example:"Operation successful"`
}

// swagger:model CategoryRequest
type CategoryRequest struct {
	// Display name for the category
	Name string `json:"name" example:"Technology"`
	// URL slug; derived from the name when omitted
	Slug string `json:"slug" example:"technology"`
	// Optional description
	Description *string `json:"description" example:"Posts about technology."`
}

// swagger:model CategoryDetails
type CategoryDetails struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name" example:"Technology"`
	Slug        string  `json:"slug" example:"technology"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at" example:"2023-10-01T12:00:00Z"`
}

// swagger:model CreatePostRequest
type CreatePostRequest struct {
	// Post title
	Title string `json:"title" example:"My first post"`
	// URL slug; derived from the title when omitted
	Slug string `json:"slug" example:"my-first-post"`
	// Post body
	Content string `json:"content" example:"Hello world."`
	// Post status, draft or published
	Status string `json:"status" example:"published"`
	// Optional category slug
	Category *string `json:"category" example:"technology"`
}

// swagger:model PostAuthor
type PostAuthor struct {
	AccountID string  `json:"account_id" example:"acct_1234567890"`
	FullName  *string `json:"full_name,omitempty" example:"John Doe"`
}

// swagger:model PostDetails
type PostDetails struct {
	PostID     string     `json:"post_id" example:"post_jkdfkjdfkdfjkd"`
	Title      string     `json:"title" example:"My first post"`
	Slug       string     `json:"slug" example:"my-first-post"`
	Content    string     `json:"content,omitempty"`
	Status     string     `json:"status" example:"published"`
	ViewsCount uint       `json:"views_count" example:"42"`
	Category   *string    `json:"category,omitempty" example:"technology"`
	Author     PostAuthor `json:"author"`
	IsPinned   bool       `json:"is_pinned,omitempty"`
	CreatedAt  string     `json:"created_at" example:"2023-10-01T12:00:00Z"`
	UpdatedAt  string     `json:"updated_at" example:"2023-10-01T12:00:00Z"`
}

// swagger:model PaginationDetails
type PaginationDetails struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// swagger:model PostListResponse
type PostListResponse struct {
	Data       []PostDetails     `json:"data"`
	Pagination PaginationDetails `json:"pagination"`
	Message    string            `json:"message" example:"Posts retrieved successfully"`
}

// swagger:model PlanDetails
type PlanDetails struct {
	PlanID          string `json:"plan_id" example:"plan_jkdfkjdfkdfjkd"`
	Name            string `json:"name" example:"Premium Monthly"`
	Price           string `json:"price" example:"12.00"`
	Currency        string `json:"currency" example:"USD"`
	DurationDays    uint   `json:"duration_days" example:"30"`
	PinPosts        bool   `json:"pin_posts" example:"true"`
	PrioritySupport bool   `json:"priority_support" example:"true"`
	Analytics       bool   `json:"analytics" example:"true"`
}

// swagger:model GetPlansResponse
type GetPlansResponse struct {
	Plans   []PlanDetails `json:"plans"`
	Message string        `json:"message" example:"Plans retrieved successfully"`
}

// swagger:model SubscriptionDetails
type SubscriptionDetails struct {
	SubscriptionID string      `json:"subscription_id" example:"sub_jkdfkjdfkdfjkd"`
	Status         string      `json:"status" example:"active"`
	AutoRenew      bool        `json:"auto_renew" example:"false"`
	StartDate      string      `json:"start_date" example:"2023-10-01T12:00:00Z"`
	EndDate        string      `json:"end_date" example:"2023-10-31T12:00:00Z"`
	DaysRemaining  int         `json:"days_remaining" example:"12"`
	Plan           PlanDetails `json:"plan"`
	Message        string      `json:"message,omitempty"`
}

// swagger:model SubscriptionStatusResponse
type SubscriptionStatusResponse struct {
	HasSubscription bool    `json:"has_subscription" example:"true"`
	Status          *string `json:"status,omitempty" example:"active"`
	IsActive        bool    `json:"is_active" example:"true"`
	EndDate         *string `json:"end_date,omitempty" example:"2023-10-31T12:00:00Z"`
	PlanName        *string `json:"plan_name,omitempty" example:"Premium Monthly"`
}

// swagger:model HistoryEntry
type HistoryEntry struct {
	EID         string         `json:"eid" example:"b2b9e1a0-0000-0000-0000-000000000000"`
	Action      string         `json:"action" example:"created"`
	Description string         `json:"description" example:"Subscription created for plan Premium Monthly"`
	PlanName    string         `json:"plan_name,omitempty" example:"Premium Monthly"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at" example:"2023-10-01T12:00:00Z"`
}

// swagger:model HistoryListResponse
type HistoryListResponse struct {
	Data    []HistoryEntry `json:"data"`
	Message string         `json:"message" example:"Subscription history retrieved successfully"`
}

// swagger:model PinPostRequest
type PinPostRequest struct {
	// Public ID of the post to pin
	PostID string `json:"post_id" example:"post_jkdfkjdfkdfjkd"`
}

// swagger:model PinnedPostResponse
type PinnedPostResponse struct {
	Post     PostDetails `json:"post"`
	PinnedAt string      `json:"pinned_at" example:"2023-10-01T12:00:00Z"`
	Message  string      `json:"message,omitempty"`
}

// swagger:model CanPinResponse
type CanPinResponse struct {
	PostID  string                  `json:"post_id" example:"post_jkdfkjdfkdfjkd"`
	CanPin  bool                    `json:"can_pin" example:"true"`
	Checks  subscriptions.PinReasons `json:"checks"`
	Message string                  `json:"message" example:"Can pin post"`
}

// swagger:model CheckoutRequest
type CheckoutRequest struct {
	// Public ID of the plan to subscribe to
	PlanID string `json:"plan_id" example:"plan_jkdfkjdfkdfjkd"`
	// Where Stripe redirects after a successful checkout
	SuccessURL string `json:"success_url" example:"https://newsdesk.example.com/checkout/success"`
	// Where Stripe redirects when checkout is abandoned
	CancelURL string `json:"cancel_url" example:"https://newsdesk.example.com/checkout/cancel"`
}

// swagger:model CheckoutResponse
type CheckoutResponse struct {
	PaymentID   string `json:"payment_id" example:"pay_jkdfkjdfkdfjkd"`
	CheckoutURL string `json:"checkout_url" example:"https://checkout.stripe.com/c/pay/cs_test"`
	Message     string `json:"message" example:"Checkout session created"`
}

// swagger:model PaymentDetails
type PaymentDetails struct {
	PaymentID   string  `json:"payment_id" example:"pay_jkdfkjdfkdfjkd"`
	Amount      string  `json:"amount" example:"12.00"`
	Currency    string  `json:"currency" example:"USD"`
	Status      string  `json:"status" example:"succeeded"`
	Method      string  `json:"method" example:"stripe"`
	Description string  `json:"description,omitempty"`
	ProcessedAt *string `json:"processed_at,omitempty" example:"2023-10-01T12:00:00Z"`
	CreatedAt   string  `json:"created_at" example:"2023-10-01T12:00:00Z"`
}

// swagger:model PaymentListResponse
type PaymentListResponse struct {
	Data    []PaymentDetails `json:"data"`
	Message string           `json:"message" example:"Payments retrieved successfully"`
}

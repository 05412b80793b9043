// SPDX-License-Identifier: GPL-3.0-only

package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsdesk-server/commons"
)

type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	BaseURL       string
}

type StripeClient struct {
	BaseURL       *url.URL
	APIKey        string
	WebhookSecret string
	HTTPClient    *http.Client
}

func NewStripeClient(c StripeConfig) (*StripeClient, error) {
	if c.BaseURL == "" {
		c.BaseURL = commons.GetEnv("STRIPE_API_URL", "https://api.stripe.com")
	}
	if c.APIKey == "" {
		c.APIKey = commons.GetEnv("STRIPE_SECRET_KEY")
	}
	if c.WebhookSecret == "" {
		c.WebhookSecret = commons.GetEnv("STRIPE_WEBHOOK_SECRET")
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable is not set")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		commons.Logger.Error("Failed to parse Stripe API base URL:", err)
		return nil, err
	}
	commons.Logger.Debugf("Stripe API client initialized for %s", c.BaseURL)
	return &StripeClient{
		BaseURL:       parsedURL,
		APIKey:        c.APIKey,
		WebhookSecret: c.WebhookSecret,
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type StripeError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type stripeErrorResponse struct {
	Error *StripeError `json:"error"`
}

type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	Customer      string `json:"customer"`
	Status        string `json:"status"`
}

type StripeProduct struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type StripePrice struct {
	ID         string `json:"id"`
	Product    string `json:"product"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
}

type StripeRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type StripeBalance struct {
	Object    string `json:"object"`
	Livemode  bool   `json:"livemode"`
	Available []struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"available"`
}

func (c *StripeClient) do(method, path string, form url.Values, out any) error {
	rel := &url.URL{Path: path}
	u := c.BaseURL.ResolveReference(rel)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		commons.Logger.Error("Failed to create Stripe HTTP request:", err)
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		commons.Logger.Error("Stripe API request failed:", err)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp stripeErrorResponse
		if jsonErr := json.Unmarshal(raw, &errResp); jsonErr == nil && errResp.Error != nil {
			commons.Logger.Errorf("Stripe API error on %s %s: %s", method, path, errResp.Error.Message)
			return fmt.Errorf("stripe: %s (%s)", errResp.Error.Message, errResp.Error.Type)
		}
		return fmt.Errorf("stripe: unexpected status %s", resp.Status)
	}

	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

// GetBalance is the cheapest authenticated call; used as a
// connectivity check by the plan sync CLI.
func (c *StripeClient) GetBalance() (*StripeBalance, error) {
	var balance StripeBalance
	if err := c.do(http.MethodGet, "/v1/balance", nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (c *StripeClient) CreateProduct(name, description string, metadata map[string]string) (*StripeProduct, error) {
	form := url.Values{}
	form.Set("name", name)
	if description != "" {
		form.Set("description", description)
	}
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var product StripeProduct
	if err := c.do(http.MethodPost, "/v1/products", form, &product); err != nil {
		return nil, err
	}
	commons.Logger.Infof("Stripe product created: %s", product.ID)
	return &product, nil
}

func (c *StripeClient) CreatePrice(productID string, unitAmountCents int64, currency string, metadata map[string]string) (*StripePrice, error) {
	form := url.Values{}
	form.Set("product", productID)
	form.Set("unit_amount", strconv.FormatInt(unitAmountCents, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("recurring[interval]", "month")
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var price StripePrice
	if err := c.do(http.MethodPost, "/v1/prices", form, &price); err != nil {
		return nil, err
	}
	commons.Logger.Infof("Stripe price created: %s", price.ID)
	return &price, nil
}

func (c *StripeClient) CreateCheckoutSession(priceID, customerEmail, successURL, cancelURL string, metadata map[string]string) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	if customerEmail != "" {
		form.Set("customer_email", customerEmail)
	}
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var session CheckoutSession
	if err := c.do(http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	commons.Logger.Debugf("Stripe checkout session created: %s", session.ID)
	return &session, nil
}

func (c *StripeClient) CreateRefund(paymentIntentID string, amountCents int64, reason string) (*StripeRefund, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	if amountCents > 0 {
		form.Set("amount", strconv.FormatInt(amountCents, 10))
	}
	if reason != "" {
		form.Set("reason", reason)
	}

	var refund StripeRefund
	if err := c.do(http.MethodPost, "/v1/refunds", form, &refund); err != nil {
		return nil, err
	}
	commons.Logger.Infof("Stripe refund created: %s", refund.ID)
	return &refund, nil
}

// VerifyWebhookSignature checks a Stripe-Signature header of the form
// "t=<unix>,v1=<hmac>" against the raw payload. The timestamp must be
// within the tolerance window to defeat replay.
func (c *StripeClient) VerifyWebhookSignature(payload []byte, header string, tolerance time.Duration) error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("webhook secret is not configured")
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed signature timestamp")
	}
	age := time.Since(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("signature timestamp outside of tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature found")
}

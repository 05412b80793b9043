// SPDX-License-Identifier: GPL-3.0-only

// Command plansynccli pushes the active subscription plans to Stripe.
// For every active plan without a Stripe price it creates a product
// and a recurring price, then writes the price ID back to the plan
// row so checkout can use it.
package main

import (
	"flag"
	"fmt"
	"strings"

	"newsdesk-server/commons"
	"newsdesk-server/db"
	"newsdesk-server/models"
	"newsdesk-server/payments"

	"github.com/shopspring/decimal"
)

func main() {
	force := flag.Bool("force", false, "Recreate Stripe prices even for plans that already have one")
	flag.Parse()

	commons.LoadEnvFile()
	commons.InitLogger()
	db.InitDB()

	stripeClient, err := payments.NewStripeClient(payments.StripeConfig{})
	if err != nil {
		commons.Logger.Fatalf("Failed to initialize Stripe client: %v", err)
	}

	balance, err := stripeClient.GetBalance()
	if err != nil {
		commons.Logger.Fatalf("Stripe connectivity check failed: %v", err)
	}
	mode := "live"
	if !balance.Livemode {
		mode = "test"
	}
	commons.Logger.Infof("Connected to Stripe in %s mode", mode)

	var plans []models.SubscriptionPlan
	if err := db.Conn.Where("is_active = ?", true).Find(&plans).Error; err != nil {
		commons.Logger.Fatalf("Failed to load plans: %v", err)
	}

	synced := 0
	for i := range plans {
		plan := &plans[i]

		if plan.StripePriceID != nil && *plan.StripePriceID != "" && !*force {
			commons.Logger.Debugf("Plan %s already has price %s, skipping", plan.Name, *plan.StripePriceID)
			continue
		}

		description := fmt.Sprintf("%s subscription, %d days per billing period", plan.Name, plan.DurationDays)
		product, err := stripeClient.CreateProduct(plan.Name, description, map[string]string{
			"plan_id": plan.PlanID,
		})
		if err != nil {
			commons.Logger.Errorf("Failed to create product for plan %s: %v", plan.Name, err)
			continue
		}

		cents := plan.Price.Mul(decimal.NewFromInt(100)).IntPart()
		price, err := stripeClient.CreatePrice(product.ID, cents, strings.ToLower(plan.Currency), map[string]string{
			"plan_id": plan.PlanID,
		})
		if err != nil {
			commons.Logger.Errorf("Failed to create price for plan %s: %v", plan.Name, err)
			continue
		}

		if err := db.Conn.Model(plan).Update("stripe_price_id", price.ID).Error; err != nil {
			commons.Logger.Errorf("Failed to save price ID for plan %s: %v", plan.Name, err)
			continue
		}

		commons.Logger.Infof("Plan %s synced: product=%s price=%s", plan.Name, product.ID, price.ID)
		synced++
	}

	commons.Logger.Infof("Plan sync complete, %d of %d plans updated", synced, len(plans))
}

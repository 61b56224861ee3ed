package utils

import (
	"io"
	"time"

	"collectra/config"
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ConstructStripeEvent securely constructs and verifies a Stripe webhook event
func ConstructStripeEvent(c *fiber.Ctx) (stripe.Event, error) {
	// Read the raw request body
	payload, err := io.ReadAll(c.Request().BodyStream())
	if err != nil {
		config.DB.Logger.Error(c.Context(), "Failed to read webhook payload", "error", err)
		return stripe.Event{}, fiber.NewError(fiber.StatusBadRequest, "Failed to read request body")
	}

	// Get and validate the Stripe-Signature header
	signature := c.Get("Stripe-Signature")
	if signature == "" {
		config.DB.Logger.Error(c.Context(), "Missing Stripe-Signature header")
		return stripe.Event{}, fiber.NewError(fiber.StatusBadRequest, "Missing Stripe-Signature header")
	}

	// Verify the webhook signature with tolerance for clock drift
	event, err := webhook.ConstructEventWithTolerance(
		payload,
		signature,
		config.AppConfig.StripeWebhookSecret,
		5*time.Minute,
	)
	if err != nil {
		config.DB.Logger.Error(c.Context(), "Failed to verify webhook signature", "error", err)
		return stripe.Event{}, fiber.NewError(fiber.StatusBadRequest, "Invalid webhook signature")
	}

	config.DB.Logger.Info(c.Context(), "Stripe webhook event verified",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	return event, nil
}

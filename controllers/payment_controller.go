package controller

import (
	"encoding/json"
	"strconv"

	"collectra/config"
	"collectra/models"
	"collectra/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/charge"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

func InitStripe() {
	stripe.Key = config.AppConfig.StripeSecretKey
}

type PaymentRequest struct {
	PlanID uint `json:"plan_id" validate:"required"`
}

// ListPlans returns the purchasable draft-credit packages
func ListPlans(c *fiber.Ctx) error {
	var plans []models.Plan
	if err := config.DB.Order("price ASC").Find(&plans).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load plans",
		})
	}
	return c.JSON(plans)
}

// CreatePaymentIntent creates a Stripe Payment Intent for a credit purchase
func CreatePaymentIntent(c *fiber.Ctx) error {
	var req PaymentRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.PlanID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Plan ID is required",
		})
	}

	user := c.Locals("user").(*models.User)

	// Get the plan from database
	var plan models.Plan
	if err := config.DB.First(&plan, req.PlanID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}

	if plan.Price == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "This plan cannot be purchased",
		})
	}

	// Create or get Stripe customer
	customerID, err := getOrCreateStripeCustomer(user)
	if err != nil {
		config.DB.Logger.Error(c.Context(), "Failed to create Stripe customer", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process payment",
		})
	}

	// Create Payment Intent
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(plan.Price)),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		Customer: stripe.String(customerID),
		Metadata: map[string]string{
			"user_id": strconv.Itoa(int(user.ID)),
			"plan_id": strconv.Itoa(int(plan.ID)),
		},
		Description: stripe.String("Purchase of " + plan.Name + " plan"),
	}

	if plan.BillingInterval != "one_time" {
		params.SetupFutureUsage = stripe.String("off_session")
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		config.DB.Logger.Error(c.Context(), "Failed to create payment intent", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process payment",
		})
	}

	// Create transaction record
	transaction := models.CreditTransaction{
		UserID:                user.ID,
		PlanID:                &plan.ID,
		DraftCredits:          plan.DraftCredits,
		Amount:                plan.Price,
		Currency:              "USD",
		PaymentStatus:         "requires_payment_method",
		StripePaymentIntentID: pi.ID,
		Description:           "Purchase of " + plan.Name + " plan",
	}

	if err := config.DB.Create(&transaction).Error; err != nil {
		config.DB.Logger.Error(c.Context(), "Failed to create transaction", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process transaction",
		})
	}

	return c.JSON(fiber.Map{
		"clientSecret":   pi.ClientSecret,
		"transaction_id": transaction.ID,
		"amount":         plan.Price,
		"currency":       "usd",
	})
}

// HandlePaymentWebhook handles Stripe webhook events
func HandlePaymentWebhook(c *fiber.Ctx) error {
	event, err := utils.ConstructStripeEvent(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error parsing payment intent",
			})
		}
		return handlePaymentIntentSucceeded(c, &paymentIntent)

	case "payment_intent.payment_failed":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error parsing payment intent",
			})
		}
		return handlePaymentIntentFailed(c, &paymentIntent)

	case "charge.succeeded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error parsing charge",
			})
		}
		return handleChargeSucceeded(c, &ch)

	default:
		return c.SendStatus(fiber.StatusOK)
	}
}

// handlePaymentIntentSucceeded credits the purchased drafts to the user
func handlePaymentIntentSucceeded(c *fiber.Ctx, pi *stripe.PaymentIntent) error {
	var transaction models.CreditTransaction
	if err := config.DB.Where("stripe_payment_intent_id = ?", pi.ID).First(&transaction).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transaction not found",
		})
	}

	// Webhooks retry; only credit once.
	if transaction.PaymentStatus == "succeeded" {
		return c.SendStatus(fiber.StatusOK)
	}

	transaction.PaymentStatus = "succeeded"
	if pi.PaymentMethod != nil {
		transaction.PaymentMethod = string(pi.PaymentMethod.Type)
	}

	if pi.LatestCharge != nil {
		ch, err := charge.Get(pi.LatestCharge.ID, nil)
		if err == nil {
			transaction.StripeChargeID = ch.ID
			transaction.ReceiptURL = ch.ReceiptURL
		}
	}

	if err := config.DB.Save(&transaction).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update transaction",
		})
	}

	var user models.User
	if err := config.DB.First(&user, transaction.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	user.DraftCredits += transaction.DraftCredits
	if transaction.PlanID != nil {
		var plan models.Plan
		if err := config.DB.First(&plan, *transaction.PlanID).Error; err == nil {
			user.PlanID = transaction.PlanID
			user.PlanName = plan.Name
			user.AutoRunEnabled = user.AutoRunEnabled || plan.AutoRunEnabled
		}
	}

	if err := config.DB.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update user credits",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// handleChargeSucceeded handles charge.succeeded events
func handleChargeSucceeded(c *fiber.Ctx, ch *stripe.Charge) error {
	if ch.PaymentIntent == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	var transaction models.CreditTransaction
	if err := config.DB.Where("stripe_payment_intent_id = ?", ch.PaymentIntent.ID).First(&transaction).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transaction not found",
		})
	}

	transaction.StripeChargeID = ch.ID
	transaction.ReceiptURL = ch.ReceiptURL

	if err := config.DB.Save(&transaction).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update transaction",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// handlePaymentIntentFailed processes failed payments
func handlePaymentIntentFailed(c *fiber.Ctx, pi *stripe.PaymentIntent) error {
	var transaction models.CreditTransaction
	if err := config.DB.Where("stripe_payment_intent_id = ?", pi.ID).First(&transaction).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transaction not found",
		})
	}

	transaction.PaymentStatus = "failed"
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		transaction.Description = "Payment failed: " + pi.LastPaymentError.Msg
	}

	if err := config.DB.Save(&transaction).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update transaction",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// getOrCreateStripeCustomer gets or creates a Stripe customer
func getOrCreateStripeCustomer(user *models.User) (string, error) {
	if user.StripeCustomerID != nil {
		return *user.StripeCustomerID, nil
	}

	var name string
	if user.Name != nil {
		name = *user.Name
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(name),
		Metadata: map[string]string{
			"user_id": strconv.Itoa(int(user.ID)),
		},
	}

	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}

	user.StripeCustomerID = &cust.ID
	if err := config.DB.Save(user).Error; err != nil {
		return "", err
	}

	return cust.ID, nil
}

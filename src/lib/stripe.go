package lib

import (
	"context"
	"fmt"
	"math"
	"os"

	"festreg/src/config"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

// GatewayConfigured reports whether direct-gateway credentials exist.
// The fallback path is only attempted when they do.
func GatewayConfigured() bool {
	return os.Getenv("STRIPE_SECRET_KEY") != ""
}

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// unitAmount converts a rupee amount to paise. Rounding to the nearest
// unit matters: amounts like 1437.49 carry float error and would lose a
// paisa under plain truncation.
func unitAmount(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateGatewayCheckout opens a hosted checkout session directly at the
// gateway, bypassing the backend proxy. Used only as the fallback when
// the backend order endpoint is unreachable; it requires client-held API
// credentials, which is why the primary path is preferred.
func CreateGatewayCheckout(ctx context.Context, amount float64, currency, customerEmail, orderNote string) (sessionID string, checkoutURL string, err error) {
	sc := GetStripeClient()
	successUrl := fmt.Sprintf("%s/checkout/callback/success", os.Getenv("APP_HOST"))
	if currency == "" {
		currency = config.DEFAULT_CURRENCY
	}
	params := stripe.CheckoutSessionCreateParams{
		SuccessURL:    stripe.String(successUrl),
		UIMode:        stripe.String("hosted"),
		Mode:          stripe.String("payment"),
		CustomerEmail: stripe.String(customerEmail),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(unitAmount(amount)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name:        stripe.String("Festival registration"),
						Description: stripe.String(orderNote),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	checkoutSession, err := sc.V1CheckoutSessions.Create(ctx, &params)
	if err != nil {
		return "", "", err
	}
	return checkoutSession.ID, checkoutSession.URL, nil
}

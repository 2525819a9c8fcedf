package routes

import (
	"github.com/galleryworks/atelier/internal/handler/storefront"
	"github.com/galleryworks/atelier/internal/handler/webhook"
	"github.com/galleryworks/atelier/internal/router"
)

// StorefrontDeps holds the handlers for customer-facing JSON routes.
type StorefrontDeps struct {
	Checkout *storefront.CheckoutHandler
	Orders   *storefront.OrderHandler
}

// RegisterStorefrontRoutes wires the checkout and order-confirmation routes.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	r.Post("/checkout/session", deps.Checkout.HandleBeginCheckout)
	r.Get("/orders/by-session/{session_id}", deps.Orders.HandleGetBySession)
}

// WebhookDeps holds the payment processor webhook handler.
type WebhookDeps struct {
	Stripe *webhook.StripeHandler
}

// RegisterWebhookRoutes wires the webhook endpoint. Note: no auth
// middleware here; the handler's signature verification is the
// authentication.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/stripe", deps.Stripe.HandleWebhook)
}

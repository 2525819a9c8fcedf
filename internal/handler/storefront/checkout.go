package storefront

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/galleryworks/atelier/internal/domain"
	"github.com/galleryworks/atelier/internal/handler"
)

// CheckoutHandler starts hosted checkout sessions for the storefront.
type CheckoutHandler struct {
	checkout domain.CheckoutService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewCheckoutHandler creates the storefront checkout handler.
func NewCheckoutHandler(checkout domain.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{
		checkout: checkout,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("handler", "checkout"),
	}
}

type beginCheckoutRequest struct {
	CatalogType string `json:"catalog_type" validate:"required,oneof=artwork edition"`
	CatalogID   string `json:"catalog_id" validate:"required,uuid"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type beginCheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// HandleBeginCheckout processes POST /checkout/session. On success the
// client redirects the customer to the returned processor URL; no order
// exists until the payment webhook lands.
func (h *CheckoutHandler) HandleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	var req beginCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("checkout.request", "invalid JSON body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "checkout.request", "invalid request: %v", err))
		return
	}

	ref, err := domain.ParseCatalogRef(req.CatalogType, req.CatalogID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	redirect, err := h.checkout.BeginCheckout(r.Context(), domain.BeginCheckoutParams{
		Ref:           ref,
		CustomerEmail: req.Email,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, beginCheckoutResponse{
		SessionID: redirect.SessionID,
		URL:       redirect.URL,
	})
}

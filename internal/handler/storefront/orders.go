package storefront

import (
	"log/slog"
	"net/http"

	"github.com/galleryworks/atelier/internal/domain"
	"github.com/galleryworks/atelier/internal/handler"
)

// OrderHandler serves the post-payment confirmation lookup. The success
// page polls it until the webhook has landed and the order exists.
type OrderHandler struct {
	orders domain.OrderStore
	logger *slog.Logger
}

// NewOrderHandler creates the storefront order handler.
func NewOrderHandler(orders domain.OrderStore, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{
		orders: orders,
		logger: logger.With("handler", "orders"),
	}
}

type orderItemResponse struct {
	Title          string `json:"title"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type orderResponse struct {
	OrderID          string              `json:"order_id"`
	Status           string              `json:"status"`
	AmountTotalCents int64               `json:"amount_total_cents"`
	Currency         string              `json:"currency"`
	Items            []orderItemResponse `json:"items"`
}

// HandleGetBySession processes GET /orders/by-session/{session_id}.
// Returns 404 until fulfillment has created the order.
func (h *OrderHandler) HandleGetBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		handler.ErrorResponse(w, r, domain.Invalid("order.get", "session id required"))
		return
	}

	order, err := h.orders.GetOrderBySessionID(r.Context(), sessionID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	items, err := h.orders.GetOrderItems(r.Context(), order.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	resp := orderResponse{
		OrderID:          domain.UUIDString(order.ID),
		Status:           string(order.Status),
		AmountTotalCents: order.AmountTotalCents,
		Currency:         order.Currency,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			Title:          item.TitleSnapshot,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	handler.JSON(w, http.StatusOK, resp)
}

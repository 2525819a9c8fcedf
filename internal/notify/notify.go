package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// SubjectReceipt is the subject receipt notifications are published on.
// Workers consume it in the "receipt-workers" queue group.
const SubjectReceipt = "orders.receipt"

// ReceiptMessage is the wire payload for a receipt notification.
type ReceiptMessage struct {
	OrderID string `json:"order_id"`
}

// Queue delivers post-commit notifications. Enqueue failures are the
// caller's to log; they must never influence the order that triggered them.
type Queue interface {
	EnqueueReceipt(ctx context.Context, orderID pgtype.UUID) error
}

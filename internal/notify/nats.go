package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nats-io/nats.go"

	"github.com/galleryworks/atelier/internal/domain"
)

// NATSQueue publishes notifications over a NATS connection. Publish is
// asynchronous at the client, which is exactly the fire-and-forget contract
// the fulfillment pipeline wants.
type NATSQueue struct {
	conn   *nats.Conn
	logger *slog.Logger
}

var _ Queue = (*NATSQueue)(nil)

// NewNATSQueue connects to the NATS server at url.
func NewNATSQueue(url string, logger *slog.Logger) (*NATSQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("atelier-notify"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}

	logger.Info("nats connected", "url", conn.ConnectedUrl())
	return &NATSQueue{conn: conn, logger: logger}, nil
}

// EnqueueReceipt publishes a receipt notification for the order.
func (q *NATSQueue) EnqueueReceipt(ctx context.Context, orderID pgtype.UUID) error {
	msg := ReceiptMessage{OrderID: domain.UUIDString(orderID)}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode receipt message: %w", err)
	}
	if err := q.conn.Publish(SubjectReceipt, data); err != nil {
		return fmt.Errorf("failed to publish receipt message: %w", err)
	}
	return nil
}

// Conn exposes the underlying connection for worker subscriptions.
func (q *NATSQueue) Conn() *nats.Conn {
	return q.conn
}

// Close drains the connection, flushing buffered publishes.
func (q *NATSQueue) Close() {
	if err := q.conn.Drain(); err != nil {
		q.logger.Error("nats drain failed", "error", err)
	}
}

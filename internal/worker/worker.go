package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/galleryworks/atelier/internal/domain"
	"github.com/galleryworks/atelier/internal/email"
	"github.com/galleryworks/atelier/internal/notify"
	"github.com/galleryworks/atelier/internal/telemetry"
)

// Config controls worker behavior.
type Config struct {
	// WorkerID identifies this worker in logs. Auto-generated if empty.
	WorkerID string

	// QueueGroup is the NATS queue group; members share the subject so a
	// message is handled by exactly one worker.
	QueueGroup string

	// MessageTimeout bounds the handling of a single message.
	MessageTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.WorkerID == "" {
		c.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if c.QueueGroup == "" {
		c.QueueGroup = "receipt-workers"
	}
	if c.MessageTimeout <= 0 {
		c.MessageTimeout = 30 * time.Second
	}
}

// Worker consumes receipt notifications and sends order confirmation
// emails. A failed send is logged and counted; the order it belongs to is
// already committed and is never touched.
type Worker struct {
	conn     *nats.Conn
	store    domain.OrderStore
	receipts *email.ReceiptService
	config   Config
	logger   *slog.Logger

	sub *nats.Subscription
}

// New creates a worker.
func New(conn *nats.Conn, store domain.OrderStore, receipts *email.ReceiptService, config Config, logger *slog.Logger) *Worker {
	config.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		conn:     conn,
		store:    store,
		receipts: receipts,
		config:   config,
		logger:   logger.With("worker_id", config.WorkerID),
	}
}

// Start subscribes and blocks until ctx is cancelled, then drains the
// subscription so in-flight messages finish.
func (w *Worker) Start(ctx context.Context) error {
	sub, err := w.conn.QueueSubscribe(notify.SubjectReceipt, w.config.QueueGroup, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", notify.SubjectReceipt, err)
	}
	w.sub = sub

	w.logger.Info("worker started",
		"subject", notify.SubjectReceipt,
		"queue_group", w.config.QueueGroup,
	)

	<-ctx.Done()
	return w.Stop()
}

// Stop drains the subscription.
func (w *Worker) Stop() error {
	w.logger.Info("worker stopping")
	if w.sub != nil {
		if err := w.sub.Drain(); err != nil {
			return fmt.Errorf("failed to drain subscription: %w", err)
		}
	}
	return nil
}

func (w *Worker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.MessageTimeout)
	defer cancel()

	var receipt notify.ReceiptMessage
	if err := json.Unmarshal(msg.Data, &receipt); err != nil {
		w.logger.Error("malformed receipt message", "error", err)
		return
	}

	if err := w.sendReceipt(ctx, receipt.OrderID); err != nil {
		w.logger.Error("receipt send failed",
			"error", err,
			"order_id", receipt.OrderID,
		)
		if telemetry.Business != nil {
			telemetry.Business.EmailFailed.Inc()
		}
		return
	}

	if telemetry.Business != nil {
		telemetry.Business.EmailSent.Inc()
	}
}

func (w *Worker) sendReceipt(ctx context.Context, rawOrderID string) error {
	orderID, err := domain.UUIDFromString(rawOrderID)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", rawOrderID, err)
	}

	order, err := w.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	items, err := w.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return err
	}

	data := email.ReceiptData{
		OrderID:        domain.UUIDString(order.ID),
		CustomerName:   order.CustomerName,
		TotalFormatted: email.FormatAmount(order.AmountTotalCents, order.Currency),
	}
	for _, item := range items {
		data.Items = append(data.Items, email.ReceiptItem{
			Title:          item.TitleSnapshot,
			PriceFormatted: email.FormatAmount(item.UnitPriceCents, order.Currency),
		})
	}

	return w.receipts.SendReceipt(ctx, order.CustomerEmail, data)
}

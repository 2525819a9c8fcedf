package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
)

const receiptTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Georgia, serif; color: #1a1a1a; max-width: 560px; margin: 0 auto;">
	<h2>Thank you for your purchase</h2>
	{{if .CustomerName}}<p>Dear {{.CustomerName}},</p>{{end}}
	<p>Your payment has been received and your order is confirmed.</p>
	<table style="width: 100%; border-collapse: collapse;">
		{{range .Items}}
		<tr>
			<td style="padding: 8px 0; border-bottom: 1px solid #ddd;">{{.Title}}</td>
			<td style="padding: 8px 0; border-bottom: 1px solid #ddd; text-align: right;">{{.PriceFormatted}}</td>
		</tr>
		{{end}}
		<tr>
			<td style="padding: 8px 0;"><strong>Total</strong></td>
			<td style="padding: 8px 0; text-align: right;"><strong>{{.TotalFormatted}}</strong></td>
		</tr>
	</table>
	<p style="color: #666; font-size: 13px;">Order reference: {{.OrderID}}</p>
</body>
</html>`

// ReceiptItem is one purchased line on the receipt.
type ReceiptItem struct {
	Title          string
	PriceFormatted string
}

// ReceiptData carries everything the receipt template renders.
type ReceiptData struct {
	OrderID        string
	CustomerName   string
	Items          []ReceiptItem
	TotalFormatted string
}

// ReceiptService renders and sends order receipt emails.
type ReceiptService struct {
	sender Sender
	tmpl   *template.Template
	logger *slog.Logger
}

// NewReceiptService creates the receipt service.
func NewReceiptService(sender Sender, logger *slog.Logger) (*ReceiptService, error) {
	tmpl, err := template.New("receipt").Parse(receiptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt template: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptService{
		sender: sender,
		tmpl:   tmpl,
		logger: logger,
	}, nil
}

// SendReceipt renders and sends a receipt to the given address.
func (s *ReceiptService) SendReceipt(ctx context.Context, to string, data ReceiptData) error {
	if to == "" {
		return fmt.Errorf("no recipient address for order %s", data.OrderID)
	}

	var html bytes.Buffer
	if err := s.tmpl.Execute(&html, data); err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}

	_, err := s.sender.Send(ctx, &Email{
		To:       []string{to},
		Subject:  "Your order confirmation",
		TextBody: plainTextReceipt(data),
		HTMLBody: html.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to send receipt for order %s: %w", data.OrderID, err)
	}
	return nil
}

// plainTextReceipt builds the text alternative from the same data.
func plainTextReceipt(data ReceiptData) string {
	var b strings.Builder
	b.WriteString("Thank you for your purchase\n\n")
	if data.CustomerName != "" {
		fmt.Fprintf(&b, "Dear %s,\n\n", data.CustomerName)
	}
	b.WriteString("Your payment has been received and your order is confirmed.\n\n")
	for _, item := range data.Items {
		fmt.Fprintf(&b, "  %s  %s\n", item.Title, item.PriceFormatted)
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", data.TotalFormatted)
	fmt.Fprintf(&b, "Order reference: %s\n", data.OrderID)
	return b.String()
}

// FormatAmount renders cents as a human amount with the currency code.
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, strings.ToUpper(currency))
}

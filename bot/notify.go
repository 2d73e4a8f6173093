package bot

import (
	"context"
	"strings"

	"market-telegram/lang"
	"market-telegram/services"
)

// notifyAdmins sends the new order to every admin in their own language. A
// failed delivery is logged and counted; it never affects the order.
func (b *Bot) notifyAdmins(ctx context.Context, c services.Customer, res services.CheckoutResult) {
	for _, adminID := range b.admins.IDs() {
		code := b.tr.Default()
		if stored, err := b.users.GetUserLanguage(ctx, adminID); err != nil {
			b.log.Debug("admin language", "admin_id", adminID, "err", err)
		} else if n := b.tr.Normalize(stored); n != "" {
			code = n
		}

		text := b.orderNotification(code, c, res)
		for _, chunk := range services.SplitMessage(text, services.MaxMessageLength) {
			if _, err := b.msgr.Send(ctx, adminID, View{Text: chunk}); err != nil {
				b.metrics.NotificationFailure.Inc()
				b.log.Warn("notify admin", "admin_id", adminID, "order_id", res.OrderID, "err", err)
				break
			}
		}
	}
}

func (b *Bot) orderNotification(code string, c services.Customer, res services.CheckoutResult) string {
	username := "N/A"
	if c.Username != "" {
		username = "@" + c.Username
	}
	lines := []string{
		b.tr.T(code, "admin_new_order_notification_title", lang.Vars{"order_id": res.OrderID}),
		b.tr.T(code, "admin_order_from", lang.Vars{"name": c.Name, "username": username, "customer_id": c.ID}),
		"",
		b.tr.T(code, "admin_order_items_header", nil),
	}
	for i, it := range res.Items {
		lines = append(lines, b.tr.T(code, "admin_order_item_line_format", lang.Vars{
			"index":         i + 1,
			"item_name":     it.Name,
			"quantity":      services.FormatWeight(it.Quantity),
			"price_per_kg":  services.FormatAmount(it.UnitPrice),
			"item_subtotal": services.FormatAmount(it.Subtotal()),
		}))
	}
	lines = append(lines, "", b.tr.T(code, "admin_order_grand_total", lang.Vars{"total_price": services.FormatAmount(res.Total)}))

	return strings.Join(lines, "\n")
}

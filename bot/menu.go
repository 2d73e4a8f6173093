package bot

import (
	"context"

	"market-telegram/engine"
	"market-telegram/lang"
	"market-telegram/services"
	"market-telegram/session"
)

const dateLayout = "2006-01-02 15:04"

func (b *Bot) mainMenu(ev engine.Event, s *session.Session) View {
	buttons := [][]Button{
		row(Button{b.t(s, "browse_products_button", nil), engine.Data(engine.TagBrowse)}),
		row(Button{b.t(s, "view_cart_button", nil), engine.Data(engine.TagViewCart)}),
		row(
			Button{b.t(s, "my_orders_button", nil), engine.Data(engine.TagMyOrders)},
			Button{b.t(s, "set_language_button", nil), engine.Data(engine.TagSelectLanguage)},
		),
	}
	if b.isAdmin(ev) {
		buttons = append(buttons, row(Button{b.t(s, "admin_panel_button", nil), engine.Data(engine.TagAdminPanel)}))
	}
	return View{Text: b.t(s, "main_menu_title", nil), Buttons: buttons}
}

func (b *Bot) backToMainMenu(s *session.Session) []Button {
	return row(Button{b.t(s, "back_to_main_menu_button", nil), engine.Data(engine.TagMainMenu)})
}

// handleStart greets the user with a fresh main menu. Cart and language survive.
func (b *Bot) handleStart(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	s.Reset()
	name := ev.From.FirstName
	if name == "" {
		name = ev.From.DisplayName()
	}
	b.show(ctx, ev, s, withNotice(b.t(s, "welcome_message", lang.Vars{"name": name}), b.mainMenu(ev, s)))
	return session.End
}

func (b *Bot) handleCancel(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	s.Reset()
	b.show(ctx, ev, s, withNotice(b.t(s, "action_cancelled", nil), b.mainMenu(ev, s)))
	return session.End
}

func (b *Bot) handleMainMenu(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	b.show(ctx, ev, s, b.mainMenu(ev, s))
	return session.End
}

// handleMyOrders lists the user's orders. It does not touch an active flow.
func (b *Bot) handleMyOrders(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	orders, err := b.orders.ListUserOrders(ctx, ev.UserID)
	if err != nil {
		b.log.Error("list user orders", "user_id", ev.UserID, "err", err)
		toast(ctx, b.t(s, "generic_error_message", nil), true)
		return s.State
	}
	text := b.t(s, "no_orders_yet", nil)
	if len(orders) > 0 {
		text = b.t(s, "my_orders_title", nil)
		for _, o := range orders {
			text += "\n\n" + b.t(s, "order_details_format", lang.Vars{
				"order_id": o.ID,
				"date":     o.Date.Format(dateLayout),
				"status":   b.t(s, "status_"+o.Status, nil),
				"total":    services.FormatAmount(o.Total),
				"items":    o.Items,
			})
		}
	}
	b.showLong(ctx, ev, s, View{Text: text, Buttons: [][]Button{b.backToMainMenu(s)}})
	return s.State
}

// handleUnhandled catches stale buttons (e.g. after a flow expired) and shows
// the main menu. Stray text and unknown commands are ignored.
func (b *Bot) handleUnhandled(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	if ev.Kind != engine.KindButton {
		return s.State
	}
	toast(ctx, b.t(s, "button_expired", nil), false)
	b.show(ctx, ev, s, b.mainMenu(ev, s))
	return session.End
}

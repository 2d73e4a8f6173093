package bot

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"market-telegram/engine"
	"market-telegram/lang"
	"market-telegram/models"
	"market-telegram/services"
	"market-telegram/session"
)

const maxProductName = 100

// maxCompleteButtons caps the "complete order" buttons under the orders list.
const maxCompleteButtons = 20

func (b *Bot) adminDenied(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	b.log.Warn("admin access denied", "user_id", ev.UserID)
	notice := b.t(s, "admin_unauthorized", nil)
	if ev.Kind == engine.KindButton {
		toast(ctx, notice, true)
	} else {
		b.say(ctx, ev, notice)
	}
	return session.End
}

func (b *Bot) backToPanel(s *session.Session) []Button {
	return row(Button{b.t(s, "admin_back_to_admin_panel_button", nil), engine.Data(engine.TagAdminPanel)})
}

func (b *Bot) renderPanel(ctx context.Context, ev engine.Event, s *session.Session, notice string) session.State {
	s.Payload = nil
	b.show(ctx, ev, s, withNotice(notice, View{
		Text: b.t(s, "admin_panel_title", nil),
		Buttons: [][]Button{
			row(Button{b.t(s, "admin_add_product_button", nil), engine.Data(engine.TagAdminAddProduct)}),
			row(Button{b.t(s, "admin_manage_products_button", nil), engine.Data(engine.TagAdminManageList)}),
			row(
				Button{b.t(s, "admin_view_orders_button", nil), engine.Data(engine.TagAdminOrders)},
				Button{b.t(s, "admin_shopping_list_button", nil), engine.Data(engine.TagAdminShoppingList)},
			),
			row(Button{b.t(s, "admin_clear_orders_button", nil), engine.Data(engine.TagAdminClearAsk)}),
			row(Button{b.t(s, "admin_exit_button", nil), engine.Data(engine.TagMainMenu)}),
		},
	}))
	return session.AdminPanel
}

func (b *Bot) handleAdminPanel(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	return b.renderPanel(ctx, ev, s, "")
}

// Add product.

func (b *Bot) handleAddStart(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	b.show(ctx, ev, s, View{
		Text:    b.t(s, "admin_enter_product_name", nil),
		Buttons: [][]Button{b.backToPanel(s)},
	})
	return session.AdminAddName
}

func (b *Bot) handleAddName(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	name := strings.Join(strings.Fields(ev.Text), " ")
	b.deleteInput(ctx, ev)
	if name == "" || utf8.RuneCountInString(name) > maxProductName {
		b.show(ctx, ev, s, View{Text: b.t(s, "admin_invalid_name", nil), Buttons: [][]Button{b.backToPanel(s)}})
		return session.AdminAddName
	}
	s.Payload = &session.NewProductDraft{Name: name}
	b.show(ctx, ev, s, View{
		Text:    b.t(s, "admin_enter_product_price", lang.Vars{"product_name": name}),
		Buttons: [][]Button{b.backToPanel(s)},
	})
	return session.AdminAddPrice
}

func (b *Bot) handleAddPrice(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	draft, ok := s.NewProductDraft()
	if !ok {
		return b.renderPanel(ctx, ev, s, b.t(s, "generic_error_message", nil))
	}
	b.deleteInput(ctx, ev)
	price, err := services.ParsePrice(ev.Text)
	if err != nil {
		b.show(ctx, ev, s, View{Text: b.t(s, "admin_invalid_price", nil), Buttons: [][]Button{b.backToPanel(s)}})
		return session.AdminAddPrice
	}

	vars := lang.Vars{"product_name": draft.Name, "price": services.FormatAmount(price)}
	var notice string
	id, err := b.catalog.AddProduct(ctx, draft.Name, price)
	switch {
	case errors.Is(err, services.ErrDuplicateProduct):
		notice = b.t(s, "admin_product_exists", vars)
	case err != nil:
		b.log.Error("add product", "user_id", ev.UserID, "name", draft.Name, "err", err)
		notice = b.t(s, "admin_product_add_failed", vars)
	default:
		b.log.Info("product added", "user_id", ev.UserID, "product_id", id, "name", draft.Name)
		notice = b.t(s, "admin_product_added", vars)
	}
	return b.renderPanel(ctx, ev, s, notice)
}

// Manage products.

func (b *Bot) renderProductList(ctx context.Context, ev engine.Event, s *session.Session, notice string) session.State {
	s.Payload = nil
	products, err := b.catalog.ListProducts(ctx, false)
	if err != nil {
		b.log.Error("list products", "user_id", ev.UserID, "err", err)
		return b.renderPanel(ctx, ev, s, b.t(s, "generic_error_message", nil))
	}
	text := b.t(s, "admin_select_product_to_manage", nil)
	if len(products) == 0 {
		text = b.t(s, "admin_no_products_to_manage", nil)
	}
	var buttons [][]Button
	for _, p := range products {
		buttons = append(buttons, row(Button{
			b.t(s, "admin_product_list_item", lang.Vars{
				"status": b.availabilityLabel(s, p.IsAvailable),
				"name":   p.Name,
				"price":  services.FormatAmount(p.PricePerKg),
			}),
			engine.DataInt(engine.TagAdminSelectProduct, p.ID),
		}))
	}
	buttons = append(buttons, b.backToPanel(s))
	b.show(ctx, ev, s, withNotice(notice, View{Text: text, Buttons: buttons}))
	return session.AdminManageList
}

func (b *Bot) availabilityLabel(s *session.Session, available bool) string {
	if available {
		return b.t(s, "admin_status_available", nil)
	}
	return b.t(s, "admin_status_unavailable", nil)
}

func (b *Bot) handleManageList(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	return b.renderProductList(ctx, ev, s, "")
}

// renderOptions shows the management options for one product in target and
// remembers that message for later refreshes.
func (b *Bot) renderOptions(ctx context.Context, ev engine.Event, s *session.Session, target session.View, productID int64, notice string) session.State {
	p, err := b.catalog.GetProduct(ctx, productID)
	if errors.Is(err, services.ErrProductNotFound) {
		return b.renderProductList(ctx, ev, s, b.t(s, "product_not_found", nil))
	}
	if err != nil {
		b.log.Error("get product", "user_id", ev.UserID, "product_id", productID, "err", err)
		return b.renderProductList(ctx, ev, s, b.t(s, "generic_error_message", nil))
	}

	toggleText, toggleTo := b.t(s, "admin_set_unavailable_button", nil), int64(0)
	if !p.IsAvailable {
		toggleText, toggleTo = b.t(s, "admin_set_available_button", nil), 1
	}
	v := View{
		Text: b.t(s, "admin_managing_product", lang.Vars{
			"product_name": p.Name,
			"price":        services.FormatAmount(p.PricePerKg),
			"status":       b.availabilityLabel(s, p.IsAvailable),
		}),
		Buttons: [][]Button{
			row(Button{b.t(s, "admin_change_price_button", nil), engine.Data(engine.TagAdminEditPrice)}),
			row(Button{toggleText, engine.DataInt(engine.TagAdminToggleAvail, toggleTo)}),
			row(Button{b.t(s, "admin_delete_product_button", nil), engine.Data(engine.TagAdminDeleteAsk)}),
			row(Button{b.t(s, "admin_back_to_product_list_button", nil), engine.Data(engine.TagAdminManageList)}),
			b.backToPanel(s),
		},
	}
	b.showAt(ctx, ev, s, target, withNotice(notice, v))
	s.Payload = &session.ProductEdit{ProductID: p.ID, Options: s.View}
	return session.AdminManageOptions
}

func (b *Bot) eventView(ev engine.Event) session.View {
	return session.View{ChatID: ev.ChatID, MessageID: ev.MessageID}
}

func (b *Bot) handleSelectManaged(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	if ev.Button.Err != nil {
		return b.renderProductList(ctx, ev, s, "")
	}
	return b.renderOptions(ctx, ev, s, b.eventView(ev), ev.Button.Arg, "")
}

func (b *Bot) handleEditPriceStart(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	pe, ok := s.ProductEdit()
	if !ok {
		return b.renderProductList(ctx, ev, s, b.t(s, "generic_error_message", nil))
	}
	p, err := b.catalog.GetProduct(ctx, pe.ProductID)
	if err != nil {
		return b.renderProductList(ctx, ev, s, b.t(s, "product_not_found", nil))
	}
	b.show(ctx, ev, s, View{
		Text: b.t(s, "admin_enter_new_price", lang.Vars{"product_name": p.Name}),
		Buttons: [][]Button{
			row(Button{b.t(s, "admin_back_to_product_list_button", nil), engine.DataInt(engine.TagAdminSelectProduct, p.ID)}),
		},
	})
	// The prompt replaced the options message; refreshes go there.
	pe.Options = s.View
	return session.AdminEditPrice
}

// handleEditPrice updates the price and redraws the options message directly.
func (b *Bot) handleEditPrice(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	pe, ok := s.ProductEdit()
	if !ok {
		return b.renderProductList(ctx, ev, s, b.t(s, "generic_error_message", nil))
	}
	b.deleteInput(ctx, ev)
	price, err := services.ParsePrice(ev.Text)
	if err != nil {
		b.showAt(ctx, ev, s, pe.Options, View{
			Text: b.t(s, "admin_invalid_price", nil),
			Buttons: [][]Button{
				row(Button{b.t(s, "admin_back_to_product_list_button", nil), engine.DataInt(engine.TagAdminSelectProduct, pe.ProductID)}),
			},
		})
		pe.Options = s.View
		return session.AdminEditPrice
	}

	err = b.catalog.UpdateProduct(ctx, pe.ProductID, models.ProductUpdate{Price: &price})
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return b.renderProductList(ctx, ev, s, b.t(s, "product_not_found", nil))
	case err != nil:
		b.log.Error("update price", "user_id", ev.UserID, "product_id", pe.ProductID, "err", err)
		return b.renderOptions(ctx, ev, s, pe.Options, pe.ProductID, b.t(s, "admin_price_update_failed", nil))
	}
	b.log.Info("price updated", "user_id", ev.UserID, "product_id", pe.ProductID, "price", price.String())
	notice := b.t(s, "admin_price_updated", lang.Vars{"product_name": "", "price": services.FormatAmount(price)})
	if p, err := b.catalog.GetProduct(ctx, pe.ProductID); err == nil {
		notice = b.t(s, "admin_price_updated", lang.Vars{"product_name": p.Name, "price": services.FormatAmount(price)})
	}
	return b.renderOptions(ctx, ev, s, pe.Options, pe.ProductID, notice)
}

func (b *Bot) handleToggleAvailability(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	pe, ok := s.ProductEdit()
	if !ok {
		return b.renderProductList(ctx, ev, s, "")
	}
	if ev.Button.Err != nil || (ev.Button.Arg != 0 && ev.Button.Arg != 1) {
		return b.renderOptions(ctx, ev, s, b.eventView(ev), pe.ProductID, "")
	}
	available := ev.Button.Arg == 1
	err := b.catalog.UpdateProduct(ctx, pe.ProductID, models.ProductUpdate{Available: &available})
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return b.renderProductList(ctx, ev, s, b.t(s, "product_not_found", nil))
	case err != nil:
		b.log.Error("toggle availability", "user_id", ev.UserID, "product_id", pe.ProductID, "err", err)
		toast(ctx, b.t(s, "generic_error_message", nil), true)
	default:
		toast(ctx, b.t(s, "admin_availability_updated", nil), false)
	}
	return b.renderOptions(ctx, ev, s, b.eventView(ev), pe.ProductID, "")
}

func (b *Bot) handleDeleteAsk(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	pe, ok := s.ProductEdit()
	if !ok {
		return b.renderProductList(ctx, ev, s, "")
	}
	p, err := b.catalog.GetProduct(ctx, pe.ProductID)
	if err != nil {
		return b.renderProductList(ctx, ev, s, b.t(s, "product_not_found", nil))
	}
	b.show(ctx, ev, s, View{
		Text: b.t(s, "admin_confirm_delete_prompt", lang.Vars{"product_name": p.Name}),
		Buttons: [][]Button{
			row(
				Button{b.t(s, "admin_confirm_delete_yes_button", nil), engine.Data(engine.TagAdminDeleteDo)},
				Button{b.t(s, "admin_confirm_delete_no_button", nil), engine.DataInt(engine.TagAdminSelectProduct, p.ID)},
			),
		},
	})
	return session.AdminDeleteConfirm
}

func (b *Bot) handleDeleteDo(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	pe, ok := s.ProductEdit()
	if !ok {
		return b.renderProductList(ctx, ev, s, "")
	}
	name := ""
	if p, err := b.catalog.GetProduct(ctx, pe.ProductID); err == nil {
		name = p.Name
	}
	err := b.catalog.DeleteProduct(ctx, pe.ProductID)
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return b.renderProductList(ctx, ev, s, b.t(s, "product_not_found", nil))
	case err != nil:
		b.log.Error("delete product", "user_id", ev.UserID, "product_id", pe.ProductID, "err", err)
		return b.renderProductList(ctx, ev, s, b.t(s, "admin_product_delete_failed", nil))
	}
	b.log.Info("product deleted", "user_id", ev.UserID, "product_id", pe.ProductID)
	return b.renderProductList(ctx, ev, s, b.t(s, "admin_product_deleted", lang.Vars{"product_name": name}))
}

// adminUnmatched re-renders the current admin view for stray buttons.
func (b *Bot) adminUnmatched(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	if ev.Kind == engine.KindText {
		return s.State
	}
	switch s.State {
	case session.AdminManageOptions, session.AdminEditPrice, session.AdminDeleteConfirm:
		if pe, ok := s.ProductEdit(); ok {
			return b.renderOptions(ctx, ev, s, b.eventView(ev), pe.ProductID, "")
		}
		return b.renderProductList(ctx, ev, s, "")
	case session.AdminManageList:
		return b.renderProductList(ctx, ev, s, "")
	default:
		return b.renderPanel(ctx, ev, s, "")
	}
}

// Clear completed orders.

func (b *Bot) handleClearAsk(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	b.show(ctx, ev, s, View{
		Text: b.t(s, "admin_clear_orders_confirm_prompt", nil),
		Buttons: [][]Button{
			row(
				Button{b.t(s, "admin_clear_orders_yes_button", nil), engine.Data(engine.TagAdminClearDo)},
				Button{b.t(s, "admin_clear_orders_no_button", nil), engine.Data(engine.TagAdminPanel)},
			),
		},
	})
	return session.AdminClearConfirm
}

func (b *Bot) handleClearDo(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	n, err := b.orders.DeleteCompletedOrders(ctx)
	var notice string
	switch {
	case err != nil:
		b.log.Error("clear completed orders", "user_id", ev.UserID, "err", err)
		notice = b.t(s, "admin_orders_cleared_error", nil)
	case n == 0:
		notice = b.t(s, "admin_orders_cleared_none", nil)
	default:
		b.log.Info("completed orders cleared", "user_id", ev.UserID, "count", n)
		notice = b.t(s, "admin_orders_cleared_success", lang.Vars{"count": n})
	}
	return b.renderPanel(ctx, ev, s, notice)
}

// Order views available to admins outside any flow.

// requireAdmin runs h only for admins. A refused event ends the active flow
// like a denied admin flow does.
func (b *Bot) requireAdmin(h engine.Handler) engine.Handler {
	return func(ctx context.Context, ev engine.Event, s *session.Session) session.State {
		if !b.isAdmin(ev) {
			return b.adminDenied(ctx, ev, s)
		}
		return h(ctx, ev, s)
	}
}

func (b *Bot) renderAllOrders(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	orders, err := b.orders.ListAllOrders(ctx)
	if err != nil {
		b.log.Error("list all orders", "user_id", ev.UserID, "err", err)
		toast(ctx, b.t(s, "generic_error_message", nil), true)
		return s.State
	}
	text := b.t(s, "admin_no_orders_found", nil)
	var buttons [][]Button
	if len(orders) > 0 {
		text = b.t(s, "admin_all_orders_title", nil)
		for _, o := range orders {
			text += "\n\n" + b.t(s, "admin_order_details_format", lang.Vars{
				"order_id":    o.ID,
				"date":        o.Date.Format(dateLayout),
				"status":      b.t(s, "status_"+o.Status, nil),
				"user_name":   o.UserName,
				"customer_id": o.UserID,
				"items":       o.Items,
				"total":       services.FormatAmount(o.Total),
			})
			if o.Status != services.OrderStatusCompleted && len(buttons) < maxCompleteButtons {
				buttons = append(buttons, row(Button{
					b.t(s, "admin_complete_order_button", lang.Vars{"order_id": o.ID}),
					engine.DataInt(engine.TagAdminCompleteOrder, o.ID),
				}))
			}
		}
	}
	buttons = append(buttons, b.backToPanel(s))
	b.showLong(ctx, ev, s, View{Text: text, Buttons: buttons})
	return s.State
}

func (b *Bot) handleCompleteOrder(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	if ev.Button.Err != nil {
		return b.renderAllOrders(ctx, ev, s)
	}
	id := ev.Button.Arg
	if err := b.orders.MarkOrderCompleted(ctx, id); err != nil {
		if !errors.Is(err, services.ErrInvalidTransition) && !errors.Is(err, services.ErrOrderNotFound) {
			b.log.Error("complete order", "user_id", ev.UserID, "order_id", id, "err", err)
		}
		toast(ctx, b.t(s, "admin_order_complete_failed", lang.Vars{"order_id": id}), true)
	} else {
		b.log.Info("order completed", "user_id", ev.UserID, "order_id", id)
		toast(ctx, b.t(s, "admin_order_completed", lang.Vars{"order_id": id}), false)
	}
	return b.renderAllOrders(ctx, ev, s)
}

func (b *Bot) renderShoppingList(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	items, err := b.orders.ShoppingList(ctx)
	if err != nil {
		b.log.Error("shopping list", "user_id", ev.UserID, "err", err)
		toast(ctx, b.t(s, "generic_error_message", nil), true)
		return s.State
	}
	text := b.t(s, "admin_shopping_list_empty", nil)
	if len(items) > 0 {
		lines := []string{b.t(s, "admin_shopping_list_title", nil)}
		for _, it := range items {
			lines = append(lines, b.t(s, "admin_shopping_list_item_format", lang.Vars{
				"name":           it.Name,
				"total_quantity": services.FormatWeight(it.Quantity),
			}))
		}
		text = joinLines(lines...)
	}
	b.showLong(ctx, ev, s, View{Text: text, Buttons: [][]Button{b.backToPanel(s)}})
	return s.State
}

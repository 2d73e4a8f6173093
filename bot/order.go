package bot

import (
	"context"
	"errors"

	"market-telegram/engine"
	"market-telegram/lang"
	"market-telegram/services"
	"market-telegram/session"
)

// cartText renders the cart lines and total, or the empty-cart notice.
func (b *Bot) cartText(s *session.Session) string {
	if s.Cart.Empty() {
		return b.t(s, "cart_empty", nil)
	}
	lines := []string{b.t(s, "your_cart_title", nil)}
	for i, it := range s.Cart.Items {
		lines = append(lines, b.t(s, "cart_item_line", lang.Vars{
			"index":    i + 1,
			"name":     it.Name,
			"quantity": services.FormatWeight(it.Quantity),
			"price":    services.FormatAmount(it.UnitPrice),
			"subtotal": services.FormatAmount(it.Subtotal()),
		}))
	}
	lines = append(lines, b.t(s, "cart_total", lang.Vars{"total_price": services.FormatAmount(s.Cart.Total())}))
	return joinLines(lines...)
}

// renderBrowse shows the catalog together with the cart summary.
func (b *Bot) renderBrowse(ctx context.Context, ev engine.Event, s *session.Session, notice string) session.State {
	products, err := b.catalog.ListProducts(ctx, true)
	if err != nil {
		b.log.Error("list products", "user_id", ev.UserID, "err", err)
		b.show(ctx, ev, s, withNotice(b.t(s, "generic_error_message", nil), b.mainMenu(ev, s)))
		return session.End
	}

	var buttons [][]Button
	text := b.t(s, "products_title", nil)
	if len(products) == 0 {
		text = b.t(s, "no_products_available", nil)
	}
	for _, p := range products {
		buttons = append(buttons, row(Button{
			b.t(s, "product_button", lang.Vars{"name": p.Name, "price": services.FormatAmount(p.PricePerKg)}),
			engine.DataInt(engine.TagSelectProduct, p.ID),
		}))
	}
	if !s.Cart.Empty() {
		buttons = append(buttons, row(
			Button{b.t(s, "manage_cart_button", nil), engine.Data(engine.TagManageCart)},
			Button{b.t(s, "checkout_button", nil), engine.Data(engine.TagCheckout)},
		))
	}
	buttons = append(buttons, b.backToMainMenu(s))

	text += "\n\n" + b.cartText(s)
	b.show(ctx, ev, s, withNotice(notice, View{Text: text, Buttons: buttons}))
	return session.Browsing
}

// renderCart shows the removable cart lines.
func (b *Bot) renderCart(ctx context.Context, ev engine.Event, s *session.Session, notice string) session.State {
	var buttons [][]Button
	for i := range s.Cart.Items {
		buttons = append(buttons, row(Button{
			b.t(s, "remove_item_button", lang.Vars{"item_index": i + 1}),
			engine.DataInt(engine.TagRemoveItem, int64(i)),
		}))
	}
	if !s.Cart.Empty() {
		buttons = append(buttons, row(Button{b.t(s, "checkout_button", nil), engine.Data(engine.TagCheckout)}))
	}
	buttons = append(buttons,
		row(Button{b.t(s, "back_to_main_list_button", nil), engine.Data(engine.TagBackToBrowse)}),
		b.backToMainMenu(s),
	)
	b.show(ctx, ev, s, withNotice(notice, View{Text: b.cartText(s), Buttons: buttons}))
	return session.ViewingCart
}

func (b *Bot) handleBrowse(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	return b.renderBrowse(ctx, ev, s, "")
}

func (b *Bot) handleViewCart(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	return b.renderCart(ctx, ev, s, "")
}

// handleSelectProduct stores a snapshot of the product and asks for a weight.
func (b *Bot) handleSelectProduct(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	if ev.Button.Err != nil {
		return b.renderBrowse(ctx, ev, s, "")
	}
	p, err := b.catalog.GetProduct(ctx, ev.Button.Arg)
	if err != nil && !errors.Is(err, services.ErrProductNotFound) {
		b.log.Error("get product", "user_id", ev.UserID, "product_id", ev.Button.Arg, "err", err)
		toast(ctx, b.t(s, "generic_error_message", nil), true)
		return b.renderBrowse(ctx, ev, s, "")
	}
	if err != nil || !p.IsAvailable {
		notice := b.t(s, "product_not_found", nil)
		toast(ctx, notice, true)
		return b.renderBrowse(ctx, ev, s, notice)
	}
	draft := &session.OrderDraft{Product: services.SnapshotOf(*p)}
	s.Payload = draft
	b.show(ctx, ev, s, View{Text: b.t(s, "product_selected_prompt", lang.Vars{"product_name": p.Name})})
	return session.SelectingQuantity
}

// handleQuantity validates the typed weight and merges it into the cart.
func (b *Bot) handleQuantity(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	draft, ok := s.OrderDraft()
	if !ok {
		return b.renderBrowse(ctx, ev, s, b.t(s, "product_not_found", nil))
	}
	qty, err := services.ParseQuantity(ev.Text)
	if err != nil {
		b.deleteInput(ctx, ev)
		b.show(ctx, ev, s, View{Text: b.t(s, "invalid_quantity_prompt", lang.Vars{"product_name": draft.Product.Name})})
		return session.SelectingQuantity
	}
	if err := s.Cart.Add(draft.Product, qty); err != nil {
		b.show(ctx, ev, s, View{Text: b.t(s, "invalid_quantity_prompt", lang.Vars{"product_name": draft.Product.Name})})
		return session.SelectingQuantity
	}
	s.Payload = nil
	b.deleteInput(ctx, ev)
	notice := b.t(s, "item_added_to_cart", lang.Vars{"quantity": services.FormatWeight(qty), "name": draft.Product.Name})
	return b.renderBrowse(ctx, ev, s, notice)
}

// handleQuantityReprompt keeps the user in SELECTING_QUANTITY on any button.
func (b *Bot) handleQuantityReprompt(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	draft, ok := s.OrderDraft()
	if !ok {
		return b.renderBrowse(ctx, ev, s, b.t(s, "product_not_found", nil))
	}
	prompt := b.t(s, "product_selected_prompt", lang.Vars{"product_name": draft.Product.Name})
	toast(ctx, prompt, false)
	b.showAt(ctx, ev, s, s.View, View{Text: prompt})
	return session.SelectingQuantity
}

func (b *Bot) handleRemoveItem(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	if ev.Button.Err != nil {
		return b.renderCart(ctx, ev, s, "")
	}
	removed, err := s.Cart.Remove(int(ev.Button.Arg))
	if err != nil {
		toast(ctx, b.t(s, "invalid_item_to_remove", nil), true)
		return b.renderCart(ctx, ev, s, "")
	}
	toast(ctx, b.t(s, "item_removed_from_cart", lang.Vars{"item_name": removed.Name}), false)
	return b.renderCart(ctx, ev, s, "")
}

// handleCheckout places the order. Only a stored order ends the flow.
func (b *Bot) handleCheckout(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	customer := services.Customer{ID: ev.UserID, Name: ev.From.DisplayName(), Username: ev.From.Username}
	res, err := services.Checkout(ctx, b.orders, customer, &s.Cart)
	b.metrics.Checkouts.WithLabelValues(res.Outcome.String()).Inc()

	switch res.Outcome {
	case services.CheckoutEmptyCart:
		notice := b.t(s, "cart_empty", nil)
		toast(ctx, notice, true)
		return b.renderBrowse(ctx, ev, s, notice)
	case services.CheckoutSaveFailed:
		b.log.Error("checkout", "user_id", ev.UserID, "total", res.Total.String(), "err", err)
		notice := b.t(s, "order_placed_error", nil)
		toast(ctx, notice, true)
		if s.State == session.ViewingCart {
			return b.renderCart(ctx, ev, s, notice)
		}
		return b.renderBrowse(ctx, ev, s, notice)
	}

	b.log.Info("order placed", "user_id", ev.UserID, "order_id", res.OrderID, "total", res.Total.String())
	s.Reset()
	b.notifyAdmins(ctx, customer, res)
	success := b.t(s, "order_placed_success", lang.Vars{"order_id": res.OrderID, "total_price": services.FormatAmount(res.Total)})
	b.show(ctx, ev, s, withNotice(success, b.mainMenu(ev, s)))
	return session.End
}

// orderUnmatched re-renders the current view for stray buttons and ignores
// stray text.
func (b *Bot) orderUnmatched(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	if ev.Kind == engine.KindText {
		return s.State
	}
	switch s.State {
	case session.ViewingCart:
		return b.renderCart(ctx, ev, s, "")
	case session.SelectingQuantity:
		return b.handleQuantityReprompt(ctx, ev, s)
	default:
		return b.renderBrowse(ctx, ev, s, "")
	}
}

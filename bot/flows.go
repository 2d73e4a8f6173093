package bot

import (
	"market-telegram/engine"
	"market-telegram/session"
)

// registerFlows builds the conversation graph. Order matters for entry
// points: the first flow whose entry matches wins.
func (b *Bot) registerFlows() error {
	exit := []engine.Route{
		engine.On(engine.Command("start"), b.handleStart),
		engine.On(engine.Command("cancel"), b.handleCancel),
		engine.On(engine.Pressed(engine.TagMainMenu), b.handleMainMenu),
	}
	adminExit := append([]engine.Route{
		engine.On(engine.Pressed(engine.TagAdminPanel), b.handleAdminPanel),
		engine.On(engine.Command("admin"), b.handleAdminPanel),
	}, exit...)

	flows := []*engine.Flow{
		{
			ID: session.FlowLanguage,
			Entry: []engine.Route{
				engine.On(engine.Pressed(engine.TagSelectLanguage), b.showLanguages),
				engine.On(engine.Command("language"), b.showLanguages),
			},
			States: map[session.State][]engine.Route{
				session.SelectLanguage: {
					engine.On(engine.Pressed(engine.TagLanguage), b.handleLanguageChosen),
				},
			},
			Fallbacks: exit,
			Unmatched: b.languageUnmatched,
		},
		{
			ID: session.FlowOrder,
			Entry: []engine.Route{
				engine.On(engine.Pressed(engine.TagBrowse), b.handleBrowse),
				engine.On(engine.Pressed(engine.TagViewCart), b.handleViewCart),
			},
			States: map[session.State][]engine.Route{
				session.Browsing: {
					engine.On(engine.Pressed(engine.TagSelectProduct), b.handleSelectProduct),
					engine.On(engine.Pressed(engine.TagManageCart), b.handleViewCart),
					engine.On(engine.Pressed(engine.TagCheckout), b.handleCheckout),
					engine.On(engine.Pressed(engine.TagBackToBrowse), b.handleBrowse),
				},
				session.SelectingQuantity: {
					engine.On(engine.Text(), b.handleQuantity),
					engine.On(engine.AnyButton(), b.handleQuantityReprompt),
				},
				session.ViewingCart: {
					engine.On(engine.Pressed(engine.TagRemoveItem), b.handleRemoveItem),
					engine.On(engine.Pressed(engine.TagCheckout), b.handleCheckout),
					engine.On(engine.Pressed(engine.TagBackToBrowse), b.handleBrowse),
				},
			},
			Fallbacks: exit,
			Unmatched: b.orderUnmatched,
		},
		{
			ID: session.FlowAdmin,
			Entry: []engine.Route{
				engine.On(engine.Pressed(engine.TagAdminPanel), b.handleAdminPanel),
				engine.On(engine.Command("admin"), b.handleAdminPanel),
			},
			States: map[session.State][]engine.Route{
				session.AdminPanel: {
					engine.On(engine.Pressed(engine.TagAdminOrders), b.renderAllOrders),
					engine.On(engine.Pressed(engine.TagAdminShoppingList), b.renderShoppingList),
					engine.On(engine.Pressed(engine.TagAdminCompleteOrder), b.handleCompleteOrder),
				},
			},
			Fallbacks: adminExit,
			Unmatched: b.adminUnmatched,
			Authorize: b.isAdmin,
			Denied:    b.adminDenied,
		},
		{
			ID: session.FlowAdminAdd,
			Entry: []engine.Route{
				engine.On(engine.Pressed(engine.TagAdminAddProduct), b.handleAddStart),
			},
			States: map[session.State][]engine.Route{
				session.AdminAddName:  {engine.On(engine.Text(), b.handleAddName)},
				session.AdminAddPrice: {engine.On(engine.Text(), b.handleAddPrice)},
			},
			Fallbacks: adminExit,
			Unmatched: b.adminUnmatched,
			Authorize: b.isAdmin,
			Denied:    b.adminDenied,
		},
		{
			ID: session.FlowAdminManage,
			Entry: []engine.Route{
				engine.On(engine.Pressed(engine.TagAdminManageList), b.handleManageList),
			},
			States: map[session.State][]engine.Route{
				session.AdminManageList: {
					engine.On(engine.Pressed(engine.TagAdminSelectProduct), b.handleSelectManaged),
				},
				session.AdminManageOptions: {
					engine.On(engine.Pressed(engine.TagAdminEditPrice), b.handleEditPriceStart),
					engine.On(engine.Pressed(engine.TagAdminToggleAvail), b.handleToggleAvailability),
					engine.On(engine.Pressed(engine.TagAdminDeleteAsk), b.handleDeleteAsk),
					engine.On(engine.Pressed(engine.TagAdminManageList), b.handleManageList),
				},
				session.AdminEditPrice: {
					engine.On(engine.Text(), b.handleEditPrice),
					engine.On(engine.Pressed(engine.TagAdminSelectProduct), b.handleSelectManaged),
				},
				session.AdminDeleteConfirm: {
					engine.On(engine.Pressed(engine.TagAdminDeleteDo), b.handleDeleteDo),
					engine.On(engine.Pressed(engine.TagAdminSelectProduct), b.handleSelectManaged),
				},
			},
			Fallbacks: adminExit,
			Unmatched: b.adminUnmatched,
			Authorize: b.isAdmin,
			Denied:    b.adminDenied,
		},
		{
			ID: session.FlowAdminClear,
			Entry: []engine.Route{
				engine.On(engine.Pressed(engine.TagAdminClearAsk), b.handleClearAsk),
			},
			States: map[session.State][]engine.Route{
				session.AdminClearConfirm: {
					engine.On(engine.Pressed(engine.TagAdminClearDo), b.handleClearDo),
				},
			},
			Fallbacks: adminExit,
			Unmatched: b.adminUnmatched,
			Authorize: b.isAdmin,
			Denied:    b.adminDenied,
		},
	}
	for _, f := range flows {
		if err := b.engine.Register(f); err != nil {
			return err
		}
	}

	b.engine.Global(append(exit,
		engine.On(engine.Pressed(engine.TagMyOrders), b.handleMyOrders),
		engine.On(engine.Pressed(engine.TagAdminOrders), b.requireAdmin(b.renderAllOrders)),
		engine.On(engine.Pressed(engine.TagAdminShoppingList), b.requireAdmin(b.renderShoppingList)),
		engine.On(engine.Pressed(engine.TagAdminCompleteOrder), b.requireAdmin(b.handleCompleteOrder)),
	)...)
	return nil
}

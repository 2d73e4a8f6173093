package bot

import (
	"context"

	"market-telegram/models"

	"github.com/shopspring/decimal"
)

// Button is one labelled action. Data is encoded with the engine codec.
type Button struct {
	Text string
	Data string
}

// View is a rendered message: text plus rows of buttons.
type View struct {
	Text    string
	Buttons [][]Button
}

func row(buttons ...Button) []Button { return buttons }

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	Send(ctx context.Context, chatID int64, v View) (messageID int, err error)
	Edit(ctx context.Context, chatID int64, messageID int, v View) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	Answer(ctx context.Context, callbackID, text string, alert bool) error
}

type Catalog interface {
	AddProduct(ctx context.Context, name string, price decimal.Decimal) (int64, error)
	ListProducts(ctx context.Context, availableOnly bool) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, u models.ProductUpdate) error
	DeleteProduct(ctx context.Context, id int64) error
}

type Orders interface {
	CreateOrder(ctx context.Context, in models.NewOrder) (int64, error)
	ListUserOrders(ctx context.Context, userID int64) ([]models.OrderSummary, error)
	ListAllOrders(ctx context.Context) ([]models.OrderSummary, error)
	ShoppingList(ctx context.Context) ([]models.ShoppingListItem, error)
	DeleteCompletedOrders(ctx context.Context) (int64, error)
	MarkOrderCompleted(ctx context.Context, id int64) error
}

type Users interface {
	EnsureUser(ctx context.Context, u models.User) (string, error)
	GetUserLanguage(ctx context.Context, userID int64) (string, error)
	SetUserLanguage(ctx context.Context, userID int64, code string) error
}

package services

import (
	"context"
	"os"
	"testing"

	"market-telegram/db"
	"market-telegram/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore connects to TEST_DATABASE_URL, applies migrations and empties the
// tables. Tests using it are skipped when no database is configured.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE order_items, orders, products, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return NewStore(pool)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStoreDuplicateProduct(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.AddProduct(ctx, "Apples", dec("2.50"))
	require.NoError(t, err)
	_, err = s.AddProduct(ctx, "Apples", dec("3.00"))
	assert.ErrorIs(t, err, ErrDuplicateProduct)

	products, err := s.ListProducts(ctx, false)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "2.50", FormatAmount(products[0].PricePerKg))
}

func TestStoreUpdateProduct(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.AddProduct(ctx, "Pears", dec("3.00"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.UpdateProduct(ctx, id, models.ProductUpdate{}), ErrNoChanges)
	assert.ErrorIs(t, s.UpdateProduct(ctx, id+100, models.ProductUpdate{Price: ptr(dec("1"))}), ErrProductNotFound)

	require.NoError(t, s.UpdateProduct(ctx, id, models.ProductUpdate{Available: ptr(false)}))
	p, err := s.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.False(t, p.IsAvailable)
	assert.Equal(t, "3.00", FormatAmount(p.PricePerKg))

	available, err := s.ListProducts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, available)

	require.NoError(t, s.DeleteProduct(ctx, id))
	_, err = s.GetProduct(ctx, id)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, id), ErrProductNotFound)
}

func TestStoreCheckoutAndQueries(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.EnsureUser(ctx, models.User{TelegramID: 1, FirstName: "Ona"})
	require.NoError(t, err)
	apples, err := s.AddProduct(ctx, "Apples", dec("2.50"))
	require.NoError(t, err)
	pears, err := s.AddProduct(ctx, "Pears", dec("3.00"))
	require.NoError(t, err)

	var cart Cart
	require.NoError(t, cart.Add(ProductSnapshot{ID: apples, Name: "Apples", PricePerKg: dec("2.50")}, dec("2")))
	require.NoError(t, cart.Add(ProductSnapshot{ID: pears, Name: "Pears", PricePerKg: dec("3.00")}, dec("1.5")))
	res, err := Checkout(ctx, s, Customer{ID: 1, Name: "Ona"}, &cart)
	require.NoError(t, err)
	require.Equal(t, CheckoutPlaced, res.Outcome)
	assert.Equal(t, "9.50", FormatAmount(res.Total))

	orders, err := s.ListUserOrders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "9.50", FormatAmount(orders[0].Total))
	assert.Equal(t, "Apples (2 kg), Pears (1.5 kg)", orders[0].Items)
	assert.Equal(t, OrderStatusPending, orders[0].Status)

	// A price change after ordering does not touch the stored snapshot.
	require.NoError(t, s.UpdateProduct(ctx, apples, models.ProductUpdate{Price: ptr(dec("9.99"))}))
	var priceAtOrder decimal.Decimal
	require.NoError(t, s.db.QueryRow(ctx,
		`SELECT price_at_order FROM order_items WHERE product_id = $1`, apples).Scan(&priceAtOrder))
	assert.Equal(t, "2.50", FormatAmount(priceAtOrder))

	// Deleted products still show their name in history.
	require.NoError(t, s.DeleteProduct(ctx, pears))
	all, err := s.ListAllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Contains(t, all[0].Items, "Pears (1.5 kg)")
}

func TestStoreOrderTotalMatchesItems(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.EnsureUser(ctx, models.User{TelegramID: 1, FirstName: "Ona"})
	require.NoError(t, err)
	apples, err := s.AddProduct(ctx, "Apples", dec("2.50"))
	require.NoError(t, err)
	plums, err := s.AddProduct(ctx, "Plums", dec("3.99"))
	require.NoError(t, err)

	var cart Cart
	require.NoError(t, cart.Add(ProductSnapshot{ID: apples, Name: "Apples", PricePerKg: dec("2.50")}, dec("0.333")))
	require.NoError(t, cart.Add(ProductSnapshot{ID: plums, Name: "Plums", PricePerKg: dec("3.99")}, dec("1.277")))
	res, err := Checkout(ctx, s, Customer{ID: 1, Name: "Ona"}, &cart)
	require.NoError(t, err)
	require.Equal(t, CheckoutPlaced, res.Outcome)

	var stored, itemsSum decimal.Decimal
	require.NoError(t, s.db.QueryRow(ctx, `
		SELECT o.total_price, SUM(oi.price_at_order * oi.quantity_kg)
		FROM orders o JOIN order_items oi ON oi.order_id = o.id
		WHERE o.id = $1
		GROUP BY o.total_price`, res.OrderID).Scan(&stored, &itemsSum))
	assert.True(t, stored.Equal(itemsSum), "stored %s, items %s", stored, itemsSum)
	assert.True(t, stored.Equal(res.Total), "stored %s, computed %s", stored, res.Total)
	assert.Equal(t, "5.92773", stored.String())
}

func TestStoreShoppingListAndCleanup(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.EnsureUser(ctx, models.User{TelegramID: 1, FirstName: "Ona"})
	require.NoError(t, err)
	apples, err := s.AddProduct(ctx, "Apples", dec("2.50"))
	require.NoError(t, err)

	place := func(qty string) int64 {
		id, err := s.CreateOrder(ctx, models.NewOrder{
			UserID: 1, UserName: "Ona", Total: dec("2.50").Mul(dec(qty)),
			Items: []models.OrderItem{{ProductID: apples, ProductName: "Apples", QuantityKg: dec(qty), PriceAtOrder: dec("2.50")}},
		})
		require.NoError(t, err)
		return id
	}
	place("2")
	done := place("5")
	require.NoError(t, s.MarkOrderCompleted(ctx, done))
	assert.ErrorIs(t, s.MarkOrderCompleted(ctx, done), ErrInvalidTransition)
	assert.ErrorIs(t, s.MarkOrderCompleted(ctx, 9999), ErrOrderNotFound)

	list, err := s.ShoppingList(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Apples", list[0].Name)
	assert.Equal(t, "2", FormatWeight(list[0].Quantity))

	n, err := s.DeleteCompletedOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteCompletedOrders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := s.ListAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStoreUserLanguageSurvivesUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	lang, err := s.EnsureUser(ctx, models.User{TelegramID: 5, FirstName: "Jonas", IsAdmin: true})
	require.NoError(t, err)
	assert.Empty(t, lang)

	require.NoError(t, s.SetUserLanguage(ctx, 5, "en"))
	lang, err = s.EnsureUser(ctx, models.User{TelegramID: 5, FirstName: "Jonas", LanguageCode: "lt"})
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	got, err := s.GetUserLanguage(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "en", got)

	got, err = s.GetUserLanguage(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func ptr[T any](v T) *T { return &v }

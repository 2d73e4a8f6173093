package bot

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"market-telegram/models"
	"market-telegram/services"

	"github.com/shopspring/decimal"
)

type sentMessage struct {
	ChatID int64
	ID     int
	View   View
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	View      View
}

type answer struct {
	ID    string
	Text  string
	Alert bool
}

// fakeMessenger records outbound traffic. Message ids start at 100.
type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int
	sent     []sentMessage
	edits    []editedMessage
	deleted  []int
	answers  []answer
	failEdit bool
	failSend map[int64]bool // by chat
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, v View) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend[chatID] {
		return 0, errors.New("chat not found")
	}
	m.nextID++
	id := 100 + m.nextID
	m.sent = append(m.sent, sentMessage{ChatID: chatID, ID: id, View: v})
	return id, nil
}

func (m *fakeMessenger) Edit(_ context.Context, chatID int64, messageID int, v View) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEdit {
		return errors.New("message to edit not found")
	}
	m.edits = append(m.edits, editedMessage{ChatID: chatID, MessageID: messageID, View: v})
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) Answer(_ context.Context, id, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, answer{ID: id, Text: text, Alert: alert})
	return nil
}

func (m *fakeMessenger) lastSent() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMessenger) lastEdit() editedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) == 0 {
		return editedMessage{}
	}
	return m.edits[len(m.edits)-1]
}

func (m *fakeMessenger) sentTo(chatID int64) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// memStore is an in-memory Catalog, Orders and Users.
type memStore struct {
	mu         sync.Mutex
	products   map[int64]*models.Product
	nextID     int64
	orders     []storedOrder
	langs      map[int64]string
	failCreate bool
}

type storedOrder struct {
	models.NewOrder
	ID     int64
	Status string
	Date   time.Time
}

func newMemStore() *memStore {
	return &memStore{products: map[int64]*models.Product{}, langs: map[int64]string{}}
}

func (s *memStore) AddProduct(_ context.Context, name string, price decimal.Decimal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if strings.EqualFold(p.Name, name) {
			return 0, services.ErrDuplicateProduct
		}
	}
	s.nextID++
	s.products[s.nextID] = &models.Product{ID: s.nextID, Name: name, PricePerKg: price, IsAvailable: true}
	return s.nextID, nil
}

func (s *memStore) ListProducts(_ context.Context, availableOnly bool) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, p := range s.products {
		if availableOnly && !p.IsAvailable {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, services.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) UpdateProduct(_ context.Context, id int64, u models.ProductUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Empty() {
		return services.ErrNoChanges
	}
	p, ok := s.products[id]
	if !ok {
		return services.ErrProductNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Price != nil {
		p.PricePerKg = *u.Price
	}
	if u.Available != nil {
		p.IsAvailable = *u.Available
	}
	return nil
}

func (s *memStore) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return services.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *memStore) CreateOrder(_ context.Context, in models.NewOrder) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return 0, errors.New("connection refused")
	}
	id := int64(len(s.orders) + 1)
	s.orders = append(s.orders, storedOrder{NewOrder: in, ID: id, Status: services.OrderStatusPending, Date: time.Now()})
	return id, nil
}

func (s *memStore) summaries(userID int64) []models.OrderSummary {
	var out []models.OrderSummary
	for i := len(s.orders) - 1; i >= 0; i-- {
		o := s.orders[i]
		if userID != 0 && o.UserID != userID {
			continue
		}
		var items []string
		for _, it := range o.Items {
			items = append(items, it.ProductName+" ("+it.QuantityKg.String()+" kg)")
		}
		out = append(out, models.OrderSummary{
			ID: o.ID, UserID: o.UserID, UserName: o.UserName, Date: o.Date,
			Total: o.Total, Status: o.Status, Items: strings.Join(items, ", "),
		})
	}
	return out
}

func (s *memStore) ListUserOrders(_ context.Context, userID int64) ([]models.OrderSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaries(userID), nil
}

func (s *memStore) ListAllOrders(context.Context) ([]models.OrderSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaries(0), nil
}

func (s *memStore) ShoppingList(context.Context) ([]models.ShoppingListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := map[string]decimal.Decimal{}
	for _, o := range s.orders {
		if o.Status == services.OrderStatusCompleted {
			continue
		}
		for _, it := range o.Items {
			totals[it.ProductName] = totals[it.ProductName].Add(it.QuantityKg)
		}
	}
	var out []models.ShoppingListItem
	for name, q := range totals {
		out = append(out, models.ShoppingListItem{Name: name, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) DeleteCompletedOrders(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []storedOrder
	for _, o := range s.orders {
		if o.Status != services.OrderStatusCompleted {
			kept = append(kept, o)
		}
	}
	n := int64(len(s.orders) - len(kept))
	s.orders = kept
	return n, nil
}

func (s *memStore) MarkOrderCompleted(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID != id {
			continue
		}
		if !services.ValidStatusTransition(s.orders[i].Status, services.OrderStatusCompleted) {
			return services.ErrInvalidTransition
		}
		s.orders[i].Status = services.OrderStatusCompleted
		return nil
	}
	return services.ErrOrderNotFound
}

func (s *memStore) EnsureUser(_ context.Context, u models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.langs[u.TelegramID], nil
}

func (s *memStore) GetUserLanguage(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.langs[userID], nil
}

func (s *memStore) SetUserLanguage(_ context.Context, userID int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.langs[userID] = code
	return nil
}

package session

import (
	"time"

	"market-telegram/services"
)

// View is the message the active flow currently owns and edits in place.
type View struct {
	ChatID    int64
	MessageID int
}

func (v View) Valid() bool { return v.ChatID != 0 && v.MessageID != 0 }

// Payload is the flow-scoped transient data. Exactly one shape is set at a
// time; Reset drops it.
type Payload interface {
	isPayload()
}

// OrderDraft is the product picked in BROWSING and waiting for a quantity.
type OrderDraft struct {
	Product services.ProductSnapshot
}

// NewProductDraft holds the product name entered in ADMIN_ADD_NAME.
type NewProductDraft struct {
	Name string
}

// ProductEdit tracks the product being managed and the message showing its
// options, so a price edit can refresh that message.
type ProductEdit struct {
	ProductID int64
	Options   View
}

func (*OrderDraft) isPayload()      {}
func (*NewProductDraft) isPayload() {}
func (*ProductEdit) isPayload()     {}

// Session is everything kept in memory for one user.
type Session struct {
	UserID     int64
	Lang       string // "" until loaded from the users table
	Cart       services.Cart
	Flow       FlowID
	State      State
	Payload    Payload
	View       View
	LastActive time.Time
}

func New(userID int64) *Session {
	return &Session{UserID: userID, State: StateIdle}
}

// Reset ends the active flow. Language and cart survive; everything else
// flow-scoped is cleared.
func (s *Session) Reset() {
	s.Flow = FlowNone
	s.State = StateIdle
	s.Payload = nil
	s.View = View{}
}

// Begin abandons whatever flow is active and starts flow.
func (s *Session) Begin(flow FlowID) {
	s.Reset()
	s.Flow = flow
}

func (s *Session) Active() bool { return s.Flow != FlowNone }

func (s *Session) OrderDraft() (*OrderDraft, bool) {
	p, ok := s.Payload.(*OrderDraft)
	return p, ok
}

func (s *Session) NewProductDraft() (*NewProductDraft, bool) {
	p, ok := s.Payload.(*NewProductDraft)
	return p, ok
}

func (s *Session) ProductEdit() (*ProductEdit, bool) {
	p, ok := s.Payload.(*ProductEdit)
	return p, ok
}

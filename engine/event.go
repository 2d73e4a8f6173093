// Package engine routes chat events through per-user conversation flows.
package engine

// Kind is the shape of an inbound event.
type Kind int

const (
	KindCommand Kind = iota + 1
	KindButton
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Profile is the sender as reported by the transport.
type Profile struct {
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}

// DisplayName is the name stored on orders.
func (p Profile) DisplayName() string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" && p.Username != "" {
		name = "@" + p.Username
	}
	return name
}

// Event is one inbound update, parsed once at the transport boundary.
type Event struct {
	Kind       Kind
	UserID     int64
	ChatID     int64
	MessageID  int    // message carrying the button, or the user's own text message
	CallbackID string // set for buttons; acknowledged once per event
	Command    string // without the leading slash
	Button     Button
	Text       string
	From       Profile
}

func CommandEvent(userID, chatID int64, name string) Event {
	return Event{Kind: KindCommand, UserID: userID, ChatID: chatID, Command: name}
}

func ButtonEvent(userID, chatID int64, messageID int, data string) Event {
	return Event{Kind: KindButton, UserID: userID, ChatID: chatID, MessageID: messageID, Button: ParseButton(data)}
}

func TextEvent(userID, chatID int64, messageID int, text string) Event {
	return Event{Kind: KindText, UserID: userID, ChatID: chatID, MessageID: messageID, Text: text}
}

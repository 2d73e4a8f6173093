package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"market-telegram/engine"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Telegram implements Messenger over the Bot API. Outbound calls share one
// rate limiter so bursts (admin notifications) stay under Telegram's limits.
type Telegram struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

func NewTelegram(token string, perSecond float64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Telegram{api: api, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}, nil
}

func (t *Telegram) Username() string { return t.api.Self.UserName }

// markup converts view buttons to an inline keyboard.
func markup(v View) *tgbotapi.InlineKeyboardMarkup {
	if len(v.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range v.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, b := range r {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		if len(btns) > 0 {
			rows = append(rows, btns)
		}
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (t *Telegram) Send(ctx context.Context, chatID int64, v View) (int, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, v.Text)
	if kb := markup(v); kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Edit replaces text and keyboard of a message. "Message is not modified"
// counts as success.
func (t *Telegram) Edit(ctx context.Context, chatID int64, messageID int, v View) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, v.Text)
	if kb := markup(v); kb != nil {
		edit.ReplyMarkup = kb
	} else {
		empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
		edit.ReplyMarkup = &empty
	}
	_, err := t.api.Send(edit)
	if err != nil && isNotModified(err) {
		return nil
	}
	return err
}

func (t *Telegram) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (t *Telegram) Answer(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	_, err := t.api.Request(cb)
	return err
}

func isNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.Message, "message is not modified")
	}
	return strings.Contains(err.Error(), "message is not modified")
}

// SetCommands registers the command menu shown by Telegram clients.
func (t *Telegram) SetCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Main menu"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Cancel the current action"},
		tgbotapi.BotCommand{Command: "language", Description: "Change language"},
		tgbotapi.BotCommand{Command: "admin", Description: "Admin panel"},
	)
	if _, err := t.api.Request(cfg); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}

// Events long-polls Telegram and emits parsed events until ctx is done.
func (t *Telegram) Events(ctx context.Context) <-chan engine.Event {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)

	out := make(chan engine.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				t.api.StopReceivingUpdates()
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				ev, ok := EventFromUpdate(upd)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					t.api.StopReceivingUpdates()
					return
				}
			}
		}
	}()
	return out
}

// EventFromUpdate converts an update into an engine event. Updates the bot
// does not react to (stickers, edits, channel posts) are skipped.
func EventFromUpdate(upd tgbotapi.Update) (engine.Event, bool) {
	if cq := upd.CallbackQuery; cq != nil {
		if cq.From == nil {
			return engine.Event{}, false
		}
		ev := engine.Event{
			Kind:       engine.KindButton,
			UserID:     cq.From.ID,
			ChatID:     cq.From.ID,
			CallbackID: cq.ID,
			Button:     engine.ParseButton(cq.Data),
			From:       profile(cq.From),
		}
		if cq.Message != nil {
			ev.ChatID = cq.Message.Chat.ID
			ev.MessageID = cq.Message.MessageID
		}
		return ev, true
	}

	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return engine.Event{}, false
	}
	ev := engine.Event{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		From:      profile(msg.From),
	}
	switch {
	case msg.IsCommand():
		ev.Kind = engine.KindCommand
		ev.Command = strings.ToLower(msg.Command())
	case strings.TrimSpace(msg.Text) != "":
		ev.Kind = engine.KindText
		ev.Text = msg.Text
	default:
		slog.Debug("update skipped", "user_id", msg.From.ID)
		return engine.Event{}, false
	}
	return ev, true
}

func profile(u *tgbotapi.User) engine.Profile {
	return engine.Profile{
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.UserName,
		LanguageCode: u.LanguageCode,
	}
}

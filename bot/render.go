package bot

import (
	"context"
	"strings"

	"market-telegram/engine"
	"market-telegram/services"
	"market-telegram/session"
)

// show renders v as the view owned by the session. A button press updates
// the message it sits on, free text updates the owned view and a command
// starts a new message. When an edit fails a new message takes over.
func (b *Bot) show(ctx context.Context, ev engine.Event, s *session.Session, v View) {
	var target session.View
	switch ev.Kind {
	case engine.KindButton:
		target = session.View{ChatID: ev.ChatID, MessageID: ev.MessageID}
	case engine.KindText:
		target = s.View
	}
	b.showAt(ctx, ev, s, target, v)
}

// showAt renders into a specific message, falling back to a new one.
func (b *Bot) showAt(ctx context.Context, ev engine.Event, s *session.Session, target session.View, v View) {
	if target.Valid() {
		err := b.msgr.Edit(ctx, target.ChatID, target.MessageID, v)
		if err == nil {
			s.View = target
			return
		}
		b.metrics.SendFailures.WithLabelValues("edit").Inc()
		b.log.Debug("edit failed, sending new message", "user_id", ev.UserID, "message_id", target.MessageID, "err", err)
	}
	id, err := b.msgr.Send(ctx, ev.ChatID, v)
	if err != nil {
		b.metrics.SendFailures.WithLabelValues("send").Inc()
		b.log.Error("send message", "user_id", ev.UserID, "err", err)
		s.View = session.View{}
		return
	}
	s.View = session.View{ChatID: ev.ChatID, MessageID: id}
}

// showLong renders text that may exceed one message. Overflow goes out as
// plain messages first; the last chunk carries the buttons and becomes the
// owned view.
func (b *Bot) showLong(ctx context.Context, ev engine.Event, s *session.Session, v View) {
	chunks := services.SplitMessage(v.Text, services.MaxMessageLength)
	if len(chunks) == 1 {
		b.show(ctx, ev, s, v)
		return
	}
	for _, c := range chunks[:len(chunks)-1] {
		if _, err := b.msgr.Send(ctx, ev.ChatID, View{Text: c}); err != nil {
			b.metrics.SendFailures.WithLabelValues("send").Inc()
			b.log.Error("send message", "user_id", ev.UserID, "err", err)
			return
		}
	}
	b.showAt(ctx, ev, s, session.View{}, View{Text: chunks[len(chunks)-1], Buttons: v.Buttons})
}

// say sends a standalone message that no flow owns.
func (b *Bot) say(ctx context.Context, ev engine.Event, text string) {
	if _, err := b.msgr.Send(ctx, ev.ChatID, View{Text: text}); err != nil {
		b.metrics.SendFailures.WithLabelValues("send").Inc()
		b.log.Error("send message", "user_id", ev.UserID, "err", err)
	}
}

// deleteInput removes the user's own text message to keep the chat tidy.
func (b *Bot) deleteInput(ctx context.Context, ev engine.Event) {
	if ev.Kind != engine.KindText || ev.MessageID == 0 {
		return
	}
	if err := b.msgr.Delete(ctx, ev.ChatID, ev.MessageID); err != nil {
		b.log.Debug("delete user message", "user_id", ev.UserID, "err", err)
	}
}

// withNotice prefixes a view's text with a one-line notice.
func withNotice(notice string, v View) View {
	if notice == "" {
		return v
	}
	v.Text = notice + "\n\n" + v.Text
	return v
}

func joinLines(lines ...string) string {
	var out []string
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

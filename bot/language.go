package bot

import (
	"context"

	"market-telegram/engine"
	"market-telegram/lang"
	"market-telegram/session"
)

func (b *Bot) showLanguages(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	var buttons [][]Button
	for _, code := range b.tr.Languages() {
		buttons = append(buttons, row(Button{b.tr.T(code, "language_name", nil), engine.DataStr(engine.TagLanguage, code)}))
	}
	buttons = append(buttons, b.backToMainMenu(s))
	b.show(ctx, ev, s, View{Text: b.t(s, "choose_language", nil), Buttons: buttons})
	return session.SelectLanguage
}

// handleLanguageChosen persists the choice and returns to the main menu.
func (b *Bot) handleLanguageChosen(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	code := ""
	if ev.Button.Err == nil {
		code = b.tr.Normalize(ev.Button.Str)
	}
	if code == "" {
		return b.showLanguages(ctx, ev, s)
	}
	if err := b.users.SetUserLanguage(ctx, ev.UserID, code); err != nil {
		// The choice still applies for this session.
		b.log.Error("set user language", "user_id", ev.UserID, "lang", code, "err", err)
	}
	s.Lang = code
	notice := b.t(s, "language_set_to", lang.Vars{"language_name": b.t(s, "language_name", nil)})
	toast(ctx, notice, false)
	b.show(ctx, ev, s, withNotice(notice, b.mainMenu(ev, s)))
	return session.End
}

func (b *Bot) languageUnmatched(ctx context.Context, ev engine.Event, s *session.Session) session.State {
	if ev.Kind == engine.KindText {
		return s.State
	}
	return b.showLanguages(ctx, ev, s)
}

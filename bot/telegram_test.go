package bot

import (
	"testing"

	"market-telegram/engine"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFromUpdate(t *testing.T) {
	from := &tgbotapi.User{ID: 7, FirstName: "Ana", UserName: "ana", LanguageCode: "lt"}
	chat := &tgbotapi.Chat{ID: 70}

	t.Run("callback", func(t *testing.T) {
		ev, ok := EventFromUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "q1",
			From:    from,
			Data:    "sel:12",
			Message: &tgbotapi.Message{MessageID: 5, Chat: chat},
		}})
		require.True(t, ok)
		assert.Equal(t, engine.KindButton, ev.Kind)
		assert.Equal(t, int64(7), ev.UserID)
		assert.Equal(t, int64(70), ev.ChatID)
		assert.Equal(t, 5, ev.MessageID)
		assert.Equal(t, "q1", ev.CallbackID)
		assert.Equal(t, engine.TagSelectProduct, ev.Button.Tag)
		assert.Equal(t, int64(12), ev.Button.Arg)
		assert.Equal(t, "lt", ev.From.LanguageCode)
	})

	t.Run("command", func(t *testing.T) {
		ev, ok := EventFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
			MessageID: 9,
			From:      from,
			Chat:      chat,
			Text:      "/Start",
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
		}})
		require.True(t, ok)
		assert.Equal(t, engine.KindCommand, ev.Kind)
		assert.Equal(t, "start", ev.Command)
	})

	t.Run("text", func(t *testing.T) {
		ev, ok := EventFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
			MessageID: 10, From: from, Chat: chat, Text: "1.5",
		}})
		require.True(t, ok)
		assert.Equal(t, engine.KindText, ev.Kind)
		assert.Equal(t, "1.5", ev.Text)
		assert.Equal(t, 10, ev.MessageID)
	})

	t.Run("skipped", func(t *testing.T) {
		_, ok := EventFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{From: from, Chat: chat}})
		assert.False(t, ok)
		_, ok = EventFromUpdate(tgbotapi.Update{EditedMessage: &tgbotapi.Message{From: from, Chat: chat, Text: "x"}})
		assert.False(t, ok)
	})
}

func TestMarkup(t *testing.T) {
	assert.Nil(t, markup(View{Text: "plain"}))

	kb := markup(View{Buttons: [][]Button{
		row(Button{"A", "browse"}, Button{"B", "view_cart"}),
		row(),
		row(Button{"C", "main_menu"}),
	}})
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Len(t, kb.InlineKeyboard[0], 2)
	require.NotNil(t, kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "main_menu", *kb.InlineKeyboard[1][0].CallbackData)
}

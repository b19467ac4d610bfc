package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gratefultolord/insurance_bot/internal/conversation"
)

// toEvent translates a Telegram update. Updates the bot does not handle are reported with ok=false.
func toEvent(update tgbotapi.Update) (conversation.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil {
			return conversation.Event{}, false
		}

		ev := conversation.Event{
			Kind:         conversation.EventCallback,
			UserID:       cq.From.ID,
			ChatID:       cq.From.ID,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ChatID = cq.Message.Chat.ID
			ev.MessageID = cq.Message.MessageID
		}
		return ev, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return conversation.Event{}, false
	}

	ev := conversation.Event{
		UserID: msg.Chat.ID,
		ChatID: msg.Chat.ID,
	}
	if msg.From != nil {
		ev.UserID = msg.From.ID
	}

	switch {
	case msg.IsCommand():
		ev.Kind = conversation.EventCommand
		ev.Command = msg.Command()
	case len(msg.Photo) > 0:
		// Telegram lists sizes in ascending order.
		ev.Kind = conversation.EventPhoto
		ev.PhotoFileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Text != "":
		ev.Kind = conversation.EventText
		ev.Text = msg.Text
	default:
		ev.Kind = conversation.EventOther
	}

	return ev, true
}

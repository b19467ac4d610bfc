package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gratefultolord/insurance_bot/internal/conversation"
)

// Sender is the part of *tgbotapi.BotAPI the messenger needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger implements conversation.Messenger on top of the Telegram Bot API.
type Messenger struct {
	api Sender
}

func NewMessenger(api Sender) *Messenger {
	return &Messenger{api: api}
}

func (m *Messenger) SendText(chatID int64, text string) error {
	if _, err := m.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("Messenger.SendText: %w", err)
	}
	return nil
}

func (m *Messenger) SendReplyKeyboard(chatID int64, text string, buttons ...string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = ReplyKeyboard(buttons...)

	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("Messenger.SendReplyKeyboard: %w", err)
	}
	return nil
}

func (m *Messenger) SendInlineButtons(chatID int64, text string, buttons ...conversation.Button) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = InlineButtons(buttons...)

	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("Messenger.SendInlineButtons: %w", err)
	}
	return nil
}

func (m *Messenger) EditText(chatID int64, messageID int, text string) error {
	if _, err := m.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return fmt.Errorf("Messenger.EditText: %w", err)
	}
	return nil
}

func (m *Messenger) AnswerCallback(callbackID, text string) error {
	if _, err := m.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("Messenger.AnswerCallback: %w", err)
	}
	return nil
}

func (m *Messenger) SendDocument(chatID int64, path string) error {
	if _, err := m.api.Send(tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))); err != nil {
		return fmt.Errorf("Messenger.SendDocument: %w", err)
	}
	return nil
}

func ReplyKeyboard(buttons ...string) tgbotapi.ReplyKeyboardMarkup {
	row := make([]tgbotapi.KeyboardButton, 0, len(buttons))
	for _, text := range buttons {
		row = append(row, tgbotapi.NewKeyboardButton(text))
	}

	keyboard := tgbotapi.NewReplyKeyboard(row)
	keyboard.ResizeKeyboard = true

	return keyboard
}

// InlineButtons puts all buttons on a single row.
func InlineButtons(buttons ...conversation.Button) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
	}

	return tgbotapi.NewInlineKeyboardMarkup(row)
}

var _ conversation.Messenger = (*Messenger)(nil)

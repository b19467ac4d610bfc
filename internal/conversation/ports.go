package conversation

import (
	"context"

	"github.com/gratefultolord/insurance_bot/internal/models"
)

type Button struct {
	Text string
	Data string
}

// Messenger delivers outbound messages to a chat.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendReplyKeyboard(chatID int64, text string, buttons ...string) error
	SendInlineButtons(chatID int64, text string, buttons ...Button) error
	// EditText replaces the text of messageID and drops its inline keyboard.
	EditText(chatID int64, messageID int, text string) error
	AnswerCallback(callbackID, text string) error
	SendDocument(chatID int64, path string) error
}

type Files interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
	NewPath(prefix, ext string) string
	DeleteFile(path string) error
}

type Extractor interface {
	ExtractPassport(ctx context.Context, image []byte) (*models.Passport, error)
	ExtractVehicle(ctx context.Context, image []byte) (*models.Vehicle, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Renderer interface {
	Render(text, path string) error
}

type PolicyLedger interface {
	Record(ctx context.Context, p models.IssuedPolicy) error
	CountByTelegramUserID(ctx context.Context, telegramUserID int64) (int, error)
}

package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gratefultolord/insurance_bot/internal/conversation"
	"github.com/gratefultolord/insurance_bot/internal/worker"
	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

// UpdateSource is the part of *tgbotapi.BotAPI that delivers updates.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type EventHandler interface {
	Handle(ctx context.Context, ev conversation.Event)
}

type BotService struct {
	source UpdateSource
	pool   *worker.Pool[conversation.Event]
}

func New(source UpdateSource, handler EventHandler, opts worker.Options) *BotService {
	return &BotService{
		source: source,
		pool:   worker.New(handler.Handle, opts),
	}
}

// Start reads updates until ctx is done, then stops polling and waits for
// in-flight events to finish.
func (b *BotService) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.source.GetUpdatesChan(u)

	defer b.pool.Stop()

	for {
		select {
		case <-ctx.Done():
			b.source.StopReceivingUpdates()
			logx.Info().Msg("bot stopped receiving updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(update)
		}
	}
}

func (b *BotService) dispatch(update tgbotapi.Update) {
	ev, ok := toEvent(update)
	if !ok {
		logx.Debug().Int("update_id", update.UpdateID).Msg("skipping unsupported update")
		return
	}

	b.pool.Submit(ev.UserID, ev, ev.Preempts())
}

package conversation

import (
	"context"
	"strings"

	"github.com/gratefultolord/insurance_bot/internal/models"
	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

func (c *Controller) handleCallback(ctx context.Context, ev Event, sess *models.Session) bool {
	data := ev.CallbackData

	logx.Debug().Int64("user_id", ev.UserID).Str("state", string(sess.State)).Str("data", data).Msg("callback received")

	switch {
	case strings.HasPrefix(data, callbackPassportPrefix):
		if sess.State != models.StateConfirmPassport {
			c.answer(ev.CallbackID, textUnknownRequest)
			return false
		}
		return c.handlePassportConfirmation(ctx, ev, sess)
	case strings.HasPrefix(data, callbackVehiclePrefix):
		if sess.State != models.StateConfirmVehicle {
			c.answer(ev.CallbackID, textUnknownRequest)
			return false
		}
		return c.handleVehicleConfirmation(ctx, ev, sess)
	default:
		// Any other payload is treated as a price answer, so outside the price step it is an unknown request.
		if sess.State != models.StatePriceConfirmation {
			c.answer(ev.CallbackID, textUnknownRequest)
			return false
		}
		return c.handlePriceConfirmation(ctx, ev, sess)
	}
}

func (c *Controller) handlePassportConfirmation(ctx context.Context, ev Event, sess *models.Session) bool {
	switch ev.CallbackData {
	case CallbackPassportYes:
		c.answer(ev.CallbackID, "")
		sess.Record.PassportConfirmed = true
		sess.State = models.StateAwaitingVehiclePlate
		c.editText(ev.ChatID, ev.MessageID, c.compose(ctx, promptPassportConfirmed))
		return true
	case CallbackPassportNo:
		c.answer(ev.CallbackID, "")
		sess.Record.Passport = nil
		sess.Record.PassportConfirmed = false
		sess.State = models.StateAwaitingPassport
		c.editText(ev.ChatID, ev.MessageID, c.compose(ctx, promptPassportReupload))
		return true
	default:
		c.answer(ev.CallbackID, textUnknownCommand)
		return false
	}
}

func (c *Controller) handleVehicleConfirmation(ctx context.Context, ev Event, sess *models.Session) bool {
	switch ev.CallbackData {
	case CallbackVehicleYes:
		c.answer(ev.CallbackID, "")
		sess.Record.VehicleConfirmed = true
		sess.State = models.StatePriceConfirmation
		c.editText(ev.ChatID, ev.MessageID, c.compose(ctx, promptVehicleConfirmed))
		c.askPrice(ctx, ev.ChatID)
		return true
	case CallbackVehicleNo:
		c.answer(ev.CallbackID, "")
		sess.Record.Vehicle = nil
		sess.Record.VehicleConfirmed = false
		sess.State = models.StateAwaitingVehiclePlate
		c.editText(ev.ChatID, ev.MessageID, c.compose(ctx, promptVehicleReupload))
		return true
	default:
		c.answer(ev.CallbackID, textUnknownCommand)
		return false
	}
}

func (c *Controller) handlePriceConfirmation(ctx context.Context, ev Event, sess *models.Session) bool {
	switch ev.CallbackData {
	case CallbackPriceAgree:
		c.answer(ev.CallbackID, "")
		c.editText(ev.ChatID, ev.MessageID, c.compose(ctx, promptPriceAgreed))
		sess.State = models.StatePolicyGeneration
		c.deliverPolicy(ctx, ev.UserID, ev.ChatID, sess)
		return true
	case CallbackPriceDisagree:
		c.answer(ev.CallbackID, "")
		c.editText(ev.ChatID, ev.MessageID, c.compose(ctx, priceFixed(c.priceUSD)))
		c.askPrice(ctx, ev.ChatID)
		return false
	default:
		c.answer(ev.CallbackID, textUnknownCommand)
		return false
	}
}

func (c *Controller) askPrice(ctx context.Context, chatID int64) {
	c.sendButtons(chatID, c.compose(ctx, priceQuestion(c.priceUSD)),
		Button{Text: buttonYes, Data: CallbackPriceAgree},
		Button{Text: buttonNo, Data: CallbackPriceDisagree},
	)
}

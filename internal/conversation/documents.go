package conversation

import (
	"context"
	"errors"

	"github.com/gratefultolord/insurance_bot/internal/models"
	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

var (
	errNoLicensePlate = errors.New("no license plate in extraction result")
	errNoVIN          = errors.New("no VIN in extraction result")
)

func (c *Controller) handlePhoto(ctx context.Context, ev Event, sess *models.Session) bool {
	if !sess.State.AwaitsPhoto() {
		logx.Debug().Int64("user_id", ev.UserID).Str("state", string(sess.State)).Msg("ignored photo")
		c.sendText(ev.ChatID, textFollowOrder)
		return false
	}

	if sess.State == models.StateAwaitingPassport {
		return c.handlePassportPhoto(ctx, ev, sess)
	}
	return c.handleVehiclePhoto(ctx, ev, sess)
}

func (c *Controller) handlePassportPhoto(ctx context.Context, ev Event, sess *models.Session) bool {
	c.sendText(ev.ChatID, c.compose(ctx, promptPassportProcessing))

	passport, err := c.extractPassport(ctx, ev.PhotoFileID)
	if err != nil {
		if ctx.Err() != nil {
			logx.Info().Int64("user_id", ev.UserID).Msg("passport extraction abandoned")
			return false
		}
		logx.Warn().Err(err).Int64("user_id", ev.UserID).Msg("passport extraction failed")
		c.sendText(ev.ChatID, c.compose(ctx, promptPassportRetry))
		return false
	}

	sess.Record.Passport = passport
	sess.Record.PassportConfirmed = false
	sess.State = models.StateConfirmPassport

	summary := passportSummary(orDash(passport.FirstName()), passport.Surname, orDash(passport.BirthDate))
	c.sendText(ev.ChatID, c.compose(ctx, summary))
	c.sendButtons(ev.ChatID, textConfirmDetails,
		Button{Text: buttonYes, Data: CallbackPassportYes},
		Button{Text: buttonNo, Data: CallbackPassportNo},
	)

	return true
}

// handleVehiclePhoto takes the license plate from the first vehicle photo and
// the VIN, make and model from the second.
func (c *Controller) handleVehiclePhoto(ctx context.Context, ev Event, sess *models.Session) bool {
	vehicle, err := c.extractVehicle(ctx, ev.PhotoFileID)
	if err == nil {
		switch {
		case sess.State == models.StateAwaitingVehiclePlate && vehicle.LicensePlate == "":
			err = errNoLicensePlate
		case sess.State == models.StateAwaitingVehicleVIN && vehicle.VIN == "":
			err = errNoVIN
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			logx.Info().Int64("user_id", ev.UserID).Msg("vehicle extraction abandoned")
			return false
		}
		logx.Warn().Err(err).Int64("user_id", ev.UserID).Str("state", string(sess.State)).Msg("vehicle extraction failed")
		c.sendText(ev.ChatID, c.compose(ctx, promptVehicleRetry))
		return false
	}

	if sess.State == models.StateAwaitingVehiclePlate {
		sess.Record.Vehicle = &models.Vehicle{LicensePlate: vehicle.LicensePlate}
		sess.Record.VehicleConfirmed = false
		sess.State = models.StateAwaitingVehicleVIN

		c.sendText(ev.ChatID, c.compose(ctx, promptVINRequest))
		return true
	}

	current := sess.Record.Vehicle
	if current == nil {
		current = &models.Vehicle{}
	}
	if current.LicensePlate == "" {
		current.LicensePlate = vehicle.LicensePlate
	}
	current.VIN = vehicle.VIN
	current.Make = vehicle.Make
	current.Model = vehicle.Model

	sess.Record.Vehicle = current
	sess.Record.VehicleConfirmed = false
	sess.State = models.StateConfirmVehicle

	summary := vehicleSummary(current.VIN, orDash(current.Make), orDash(current.Model), orDash(current.LicensePlate))
	c.sendText(ev.ChatID, c.compose(ctx, summary))
	c.sendButtons(ev.ChatID, textConfirmDetails,
		Button{Text: buttonYes, Data: CallbackVehicleYes},
		Button{Text: buttonNo, Data: CallbackVehicleNo},
	)

	return true
}

func (c *Controller) extractPassport(ctx context.Context, fileID string) (*models.Passport, error) {
	image, err := c.files.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.extractionTimeout)
	defer cancel()

	return c.extractor.ExtractPassport(ctx, image)
}

func (c *Controller) extractVehicle(ctx context.Context, fileID string) (*models.Vehicle, error) {
	image, err := c.files.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.extractionTimeout)
	defer cancel()

	return c.extractor.ExtractVehicle(ctx, image)
}

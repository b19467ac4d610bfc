package db

import (
	"context"
	"fmt"

	"github.com/AlekSi/pointer"
	"github.com/jmoiron/sqlx"

	"github.com/gratefultolord/insurance_bot/internal/models"
)

type PolicyRepository struct {
	db *sqlx.DB
}

func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{
		db: db,
	}
}

// Record stores a delivered policy.
func (r *PolicyRepository) Record(ctx context.Context, p models.IssuedPolicy) error {
	_, err := r.db.ExecContext(ctx, `
	    INSERT INTO policies
		(policy_number, telegram_user_id, holder_surname, holder_given_name, birth_date,
		license_plate, vin, vehicle_make, vehicle_model, price_usd, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		p.Number,
		p.UserID,
		p.Passport.Surname,
		p.Passport.FirstName(),
		pointer.ToStringOrNil(p.Passport.BirthDate),
		p.Vehicle.LicensePlate,
		p.Vehicle.VIN,
		pointer.ToStringOrNil(p.Vehicle.Make),
		pointer.ToStringOrNil(p.Vehicle.Model),
		p.PriceUSD,
		p.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("PolicyRepository.Record: %w", err)
	}

	return nil
}

// CountByTelegramUserID returns how many policies were issued to the user.
func (r *PolicyRepository) CountByTelegramUserID(ctx context.Context, telegramUserID int64) (int, error) {
	var count int

	err := r.db.GetContext(ctx, &count, `
	    SELECT COUNT(*) FROM policies
		WHERE telegram_user_id = $1
	`, telegramUserID)
	if err != nil {
		return 0, fmt.Errorf("PolicyRepository.CountByTelegramUserID: %w", err)
	}

	return count, nil
}

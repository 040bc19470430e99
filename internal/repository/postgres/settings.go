package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"investa/internal/domain"
	"investa/pkg/errors"
)

// SettingsRepository reads the single platform-settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (*domain.PlatformSettings, error) {
	settings := &domain.PlatformSettings{}
	query := `
		SELECT withdrawal_fee_rate, min_deposit, min_withdrawal, exchange_rate,
			withdrawal_start_hour, withdrawal_end_hour, updated_at
		FROM platform_settings
		ORDER BY updated_at DESC
		LIMIT 1
	`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), settings, query)
	if err == sql.ErrNoRows {
		return nil, errors.ErrSettingsUnavailable
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load platform settings")
	}
	return settings, nil
}

func (r *SettingsRepository) Update(ctx context.Context, settings *domain.PlatformSettings) error {
	query := `
		INSERT INTO platform_settings (
			withdrawal_fee_rate, min_deposit, min_withdrawal, exchange_rate,
			withdrawal_start_hour, withdrawal_end_hour, updated_at
		) VALUES (
			:withdrawal_fee_rate, :min_deposit, :min_withdrawal, :exchange_rate,
			:withdrawal_start_hour, :withdrawal_end_hour, NOW()
		)
	`
	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, settings)
	return errors.Wrap(err, "failed to update platform settings")
}

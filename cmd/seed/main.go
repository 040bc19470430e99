// Seeding tool for catalog products and platform settings. Idempotent:
// rows are inserted only when the table is empty.
//
// Reads DATABASE_URL and other core config via investa/pkg/config.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"investa/pkg/config"
	"investa/pkg/logger"
)

func main() {
	log := logger.New("seed")

	cfg := config.Load()
	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	ctx := context.Background()

	seedVIPPackages(ctx, db, log)
	seedStakingPlans(ctx, db, log)
	seedPaymentMethods(ctx, db, log)
	seedSettings(ctx, db, cfg, log)

	fmt.Println("OK: catalog and settings seeded")
}

func seedVIPPackages(ctx context.Context, db *sqlx.DB, log logger.Logger) {
	if !tableEmpty(ctx, db, log, "vip_packages") {
		return
	}

	packages := []struct {
		name      string
		min, max  int64
		dailyRate string
	}{
		{"VIP 1", 3000, 70000, "3.0"},
		{"VIP 2", 75000, 200000, "3.5"},
		{"VIP 3", 210000, 500000, "4.0"},
		{"VIP 4", 520000, 1000000, "4.5"},
	}

	for _, p := range packages {
		rate, _ := decimal.NewFromString(p.dailyRate)
		_, err := db.ExecContext(ctx, `
			INSERT INTO vip_packages (id, name, min_amount, max_amount, daily_rate, is_active)
			VALUES ($1, $2, $3, $4, $5, TRUE)`,
			uuid.New(), p.name, decimal.NewFromInt(p.min), decimal.NewFromInt(p.max), rate)
		if err != nil {
			log.Fatal("Failed to seed VIP package", map[string]interface{}{"error": err.Error(), "name": p.name})
		}
	}
	log.Info("VIP packages seeded", map[string]interface{}{"count": len(packages)})
}

func seedStakingPlans(ctx context.Context, db *sqlx.DB, log logger.Logger) {
	if !tableEmpty(ctx, db, log, "staking_plans") {
		return
	}

	plans := []struct {
		name      string
		min       int64
		dailyRate string
		days      int
	}{
		{"Staking 7", 2000, "2.0", 7},
		{"Staking 30", 5000, "2.5", 30},
		{"Staking 90", 10000, "3.0", 90},
	}

	for _, p := range plans {
		rate, _ := decimal.NewFromString(p.dailyRate)
		_, err := db.ExecContext(ctx, `
			INSERT INTO staking_plans (id, name, min_amount, daily_rate, duration_days, is_active)
			VALUES ($1, $2, $3, $4, $5, TRUE)`,
			uuid.New(), p.name, decimal.NewFromInt(p.min), rate, p.days)
		if err != nil {
			log.Fatal("Failed to seed staking plan", map[string]interface{}{"error": err.Error(), "name": p.name})
		}
	}
	log.Info("Staking plans seeded", map[string]interface{}{"count": len(plans)})
}

func seedPaymentMethods(ctx context.Context, db *sqlx.DB, log logger.Logger) {
	if !tableEmpty(ctx, db, log, "payment_methods") {
		return
	}

	methods := []struct {
		name     string
		currency string
	}{
		{"Orange Money", "XOF"},
		{"MTN MoMo", "XOF"},
		{"Wave", "XOF"},
		{"USDT TRC20", "USDT"},
	}

	for _, m := range methods {
		_, err := db.ExecContext(ctx, `
			INSERT INTO payment_methods (id, name, currency, is_active)
			VALUES ($1, $2, $3, TRUE)`,
			uuid.New(), m.name, m.currency)
		if err != nil {
			log.Fatal("Failed to seed payment method", map[string]interface{}{"error": err.Error(), "name": m.name})
		}
	}
	log.Info("Payment methods seeded", map[string]interface{}{"count": len(methods)})
}

func seedSettings(ctx context.Context, db *sqlx.DB, cfg *config.Config, log logger.Logger) {
	if !tableEmpty(ctx, db, log, "platform_settings") {
		return
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO platform_settings
			(withdrawal_fee_rate, min_deposit, min_withdrawal, exchange_rate,
			 withdrawal_start_hour, withdrawal_end_hour, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		decimal.NewFromFloat(cfg.Platform.WithdrawalFeeRate),
		decimal.NewFromFloat(cfg.Platform.MinDeposit),
		decimal.NewFromFloat(cfg.Platform.MinWithdrawal),
		decimal.NewFromFloat(cfg.Platform.ExchangeRate),
		cfg.Platform.WithdrawalStartHour,
		cfg.Platform.WithdrawalEndHour,
		time.Now(),
	)
	if err != nil {
		log.Fatal("Failed to seed settings", map[string]interface{}{"error": err.Error()})
	}
	log.Info("Platform settings seeded", nil)
}

func tableEmpty(ctx context.Context, db *sqlx.DB, log logger.Logger, table string) bool {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+table); err != nil {
		log.Fatal("Failed to count rows", map[string]interface{}{"error": err.Error(), "table": table})
	}
	if count > 0 {
		log.Info("Table already seeded, skipping", map[string]interface{}{"table": table, "rows": count})
		return false
	}
	return true
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"investa/internal/domain"
	"investa/pkg/errors"
)

// CatalogRepository reads the admin-managed product directory. The engine
// only ever sees it read-only.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) FindVIPPackage(ctx context.Context, id uuid.UUID) (*domain.VIPPackage, error) {
	pkg := &domain.VIPPackage{}
	query := `SELECT * FROM vip_packages WHERE id = $1 AND is_active = TRUE`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), pkg, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrPackageNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find vip package")
	}
	return pkg, nil
}

func (r *CatalogRepository) FindStakingPlan(ctx context.Context, id uuid.UUID) (*domain.StakingPlan, error) {
	plan := &domain.StakingPlan{}
	query := `SELECT * FROM staking_plans WHERE id = $1 AND is_active = TRUE`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), plan, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrPlanNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find staking plan")
	}
	return plan, nil
}

func (r *CatalogRepository) FindPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	method := &domain.PaymentMethod{}
	query := `SELECT * FROM payment_methods WHERE id = $1 AND is_active = TRUE`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), method, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment method")
	}
	return method, nil
}

func (r *CatalogRepository) ListVIPPackages(ctx context.Context) ([]*domain.VIPPackage, error) {
	var pkgs []*domain.VIPPackage
	query := `SELECT * FROM vip_packages WHERE is_active = TRUE ORDER BY min_amount ASC`
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &pkgs, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list vip packages")
	}
	return pkgs, nil
}

func (r *CatalogRepository) ListStakingPlans(ctx context.Context) ([]*domain.StakingPlan, error) {
	var plans []*domain.StakingPlan
	query := `SELECT * FROM staking_plans WHERE is_active = TRUE ORDER BY duration_days ASC`
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &plans, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list staking plans")
	}
	return plans, nil
}

func (r *CatalogRepository) ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	var methods []*domain.PaymentMethod
	query := `SELECT * FROM payment_methods WHERE is_active = TRUE ORDER BY name ASC`
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &methods, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list payment methods")
	}
	return methods, nil
}

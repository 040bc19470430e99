package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"investa/internal/domain"
	"investa/pkg/errors"
)

// BankCardRepository stores withdrawal destinations. The engine only needs
// the has-active precondition; card management lives with the outer surface.
type BankCardRepository struct {
	db *sqlx.DB
}

func NewBankCardRepository(db *sqlx.DB) *BankCardRepository {
	return &BankCardRepository{db: db}
}

func (r *BankCardRepository) Create(ctx context.Context, card *domain.BankCard) error {
	query := `
		INSERT INTO bank_cards (
			id, account_id, holder_name, card_number, bank_name, wallet_address, is_active, created_at
		) VALUES (
			:id, :account_id, :holder_name, :card_number, :bank_name, :wallet_address, :is_active, :created_at
		)
	`
	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, card)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "one_active_card") {
				return errors.ErrCardAlreadyBound
			}
		}
		return errors.Wrap(err, "failed to create bank card")
	}
	return nil
}

func (r *BankCardRepository) HasActive(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bank_cards WHERE account_id = $1 AND is_active = TRUE)`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &exists, query, accountID)
	return exists, errors.Wrap(err, "failed to check withdrawal destination")
}

func (r *BankCardRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.BankCard, error) {
	var cards []*domain.BankCard
	query := `SELECT * FROM bank_cards WHERE account_id = $1 ORDER BY created_at DESC`
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &cards, query, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find bank cards")
	}
	return cards, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"

	"cashora/internal/models"
)

type FeeStore struct {
	db DB
}

func NewFeeStore(db DB) *FeeStore {
	return &FeeStore{db: db}
}

// Get returns the fee rule for (user, kind), or nil when none is configured.
func (s *FeeStore) Get(ctx context.Context, q Getter, userID string, kind models.Kind) (*models.FeeRule, error) {
	if q == nil {
		q = s.db
	}
	var row models.FeeRule
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, transaction_type, fee_type, fee_value, updated_at
		FROM fees
		WHERE user_id = $1 AND transaction_type = $2
	`, userID, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *FeeStore) Upsert(ctx context.Context, tx Execer, rule models.FeeRule) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO fees (id, user_id, transaction_type, fee_type, fee_value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, transaction_type)
		DO UPDATE SET fee_type = EXCLUDED.fee_type, fee_value = EXCLUDED.fee_value, updated_at = NOW()
	`, rule.ID, rule.UserID, rule.TransactionType, rule.FeeType, rule.FeeValue)
	return err
}

func (s *FeeStore) ListByUser(ctx context.Context, userID string) ([]models.FeeRule, error) {
	var rows []models.FeeRule
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, transaction_type, fee_type, fee_value, updated_at
		FROM fees
		WHERE user_id = $1
		ORDER BY transaction_type
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type LimitStore struct {
	db DB
}

func NewLimitStore(db DB) *LimitStore {
	return &LimitStore{db: db}
}

// Get returns the limit rule for (user, kind), or nil when none is configured.
func (s *LimitStore) Get(ctx context.Context, q Getter, userID string, kind models.Kind) (*models.LimitRule, error) {
	if q == nil {
		q = s.db
	}
	var row models.LimitRule
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, transaction_type, daily_limit, weekly_limit, monthly_limit, limit_created_at
		FROM user_limits
		WHERE user_id = $1 AND transaction_type = $2
	`, userID, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *LimitStore) Upsert(ctx context.Context, tx Execer, rule models.LimitRule) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_limits (id, user_id, transaction_type, daily_limit, weekly_limit, monthly_limit, limit_created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, transaction_type)
		DO UPDATE SET daily_limit = EXCLUDED.daily_limit,
		              weekly_limit = EXCLUDED.weekly_limit,
		              monthly_limit = EXCLUDED.monthly_limit,
		              limit_created_at = NOW()
	`, rule.ID, rule.UserID, rule.TransactionType, rule.DailyLimit, rule.WeeklyLimit, rule.MonthlyLimit)
	return err
}

func (s *LimitStore) ListByUser(ctx context.Context, userID string) ([]models.LimitRule, error) {
	var rows []models.LimitRule
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, transaction_type, daily_limit, weekly_limit, monthly_limit, limit_created_at
		FROM user_limits
		WHERE user_id = $1
		ORDER BY transaction_type
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

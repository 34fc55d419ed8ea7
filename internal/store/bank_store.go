package store

import (
	"context"

	"cashora/internal/models"

	"github.com/lib/pq"
)

type BankStore struct {
	db DB
}

type BankAssignee struct {
	BankID    string `db:"bank_id" json:"-"`
	UserID    string `db:"user_id" json:"user_id"`
	Username  string `db:"username" json:"username"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

type BankWithUsers struct {
	models.Bank
	Users []BankAssignee `json:"users"`
}

func NewBankStore(db DB) *BankStore {
	return &BankStore{db: db}
}

func (s *BankStore) Create(ctx context.Context, tx Execer, id, name string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO banks (id, name) VALUES ($1, $2)`, id, name)
	return err
}

func (s *BankStore) Delete(ctx context.Context, tx Execer, bankID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM banks WHERE id = $1`, bankID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *BankStore) List(ctx context.Context) ([]BankWithUsers, error) {
	var banks []models.Bank
	if err := s.db.SelectContext(ctx, &banks, `SELECT id, name, created_at FROM banks ORDER BY name`); err != nil {
		return nil, err
	}
	var assignees []BankAssignee
	if err := s.db.SelectContext(ctx, &assignees, `
		SELECT ub.bank_id, ub.user_id, p.username, p.first_name, p.last_name
		FROM user_banks ub
		JOIN profiles p ON p.id = ub.user_id
		ORDER BY p.username
	`); err != nil {
		return nil, err
	}
	byBank := make(map[string][]BankAssignee, len(banks))
	for _, a := range assignees {
		byBank[a.BankID] = append(byBank[a.BankID], a)
	}
	out := make([]BankWithUsers, 0, len(banks))
	for _, bank := range banks {
		users := byBank[bank.ID]
		if users == nil {
			users = []BankAssignee{}
		}
		out = append(out, BankWithUsers{Bank: bank, Users: users})
	}
	return out, nil
}

func (s *BankStore) GetByID(ctx context.Context, bankID string) (models.Bank, error) {
	var row models.Bank
	err := s.db.GetContext(ctx, &row, `SELECT id, name, created_at FROM banks WHERE id = $1`, bankID)
	return row, err
}

func (s *BankStore) ListForUser(ctx context.Context, userID string) ([]models.Bank, error) {
	var rows []models.Bank
	err := s.db.SelectContext(ctx, &rows, `
		SELECT b.id, b.name, b.created_at
		FROM banks b
		JOIN user_banks ub ON ub.bank_id = b.id
		WHERE ub.user_id = $1
		ORDER BY b.name
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *BankStore) IsAssigned(ctx context.Context, q Getter, userID, bankID string) (bool, error) {
	if q == nil {
		q = s.db
	}
	var count int
	err := q.GetContext(ctx, &count, `SELECT COUNT(1) FROM user_banks WHERE user_id = $1 AND bank_id = $2`, userID, bankID)
	return count > 0, err
}

func (s *BankStore) AssignedUserIDs(ctx context.Context, q Selecter, bankID string) ([]string, error) {
	var ids []string
	if err := q.SelectContext(ctx, &ids, `SELECT user_id FROM user_banks WHERE bank_id = $1`, bankID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *BankStore) Assign(ctx context.Context, tx Execer, bankID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_banks (id, user_id, bank_id)
		SELECT gen_random_uuid()::text, u, $1 FROM unnest($2::text[]) AS u
		ON CONFLICT (user_id, bank_id) DO NOTHING
	`, bankID, pq.Array(userIDs))
	return err
}

func (s *BankStore) Unassign(ctx context.Context, tx Execer, bankID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM user_banks WHERE bank_id = $1 AND user_id = ANY($2)`, bankID, pq.Array(userIDs))
	return err
}

package store

import (
	"context"

	"cashora/internal/models"
)

// AdminStore manages the admin role on profiles. Reads take a Getter so
// callers can keep them inside the transaction that acts on the answer.
type AdminStore struct {
	db DB
}

func NewAdminStore(db DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) HasAnyAdmin(ctx context.Context, q Getter) (bool, error) {
	count, err := s.CountAdmins(ctx, q)
	return count > 0, err
}

func (s *AdminStore) CountAdmins(ctx context.Context, q Getter) (int, error) {
	if q == nil {
		q = s.db
	}
	var count int
	err := q.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM profiles
		WHERE role = $1
	`, models.RoleAdmin)
	return count, err
}

func (s *AdminStore) SetRole(ctx context.Context, tx Execer, userID, role string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET role = $1, updated_at = NOW()
		WHERE id = $2
	`, role, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

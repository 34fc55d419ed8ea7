package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cashora/internal/models"
)

const profileColumns = `id, username, email, first_name, last_name, password_hash, id_card_path, balance, status, role,
	date_of_birth, place_of_birth, residence, nationality, created_at`

type ProfileStore struct {
	db DB
}

func NewProfileStore(db DB) *ProfileStore {
	return &ProfileStore{db: db}
}

type ProfileInput struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IDCardPath   *string
	Status       models.Status
	Role         string
	DateOfBirth  *time.Time
	PlaceOfBirth *string
	Residence    *string
	Nationality  *string
}

func (s *ProfileStore) Create(ctx context.Context, tx Execer, input ProfileInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (id, username, email, first_name, last_name, password_hash, id_card_path, balance, status, role,
			date_of_birth, place_of_birth, residence, nationality)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12, $13)
	`, input.ID, input.Username, input.Email, input.FirstName, input.LastName, input.PasswordHash, input.IDCardPath, input.Status, input.Role,
		input.DateOfBirth, input.PlaceOfBirth, input.Residence, input.Nationality)
	return err
}

func (s *ProfileStore) GetByID(ctx context.Context, userID string) (models.Profile, error) {
	var row models.Profile
	err := s.db.GetContext(ctx, &row, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
	return row, err
}

func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (models.Profile, error) {
	var row models.Profile
	err := s.db.GetContext(ctx, &row, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email)
	return row, err
}

func (s *ProfileStore) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	var row models.Profile
	err := s.db.GetContext(ctx, &row, `SELECT `+profileColumns+` FROM profiles WHERE username = $1`, username)
	return row, err
}

// GetForUpdate locks the profile row for the rest of tx.
func (s *ProfileStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.Profile, error) {
	var row models.Profile
	err := tx.GetContext(ctx, &row, `SELECT `+profileColumns+` FROM profiles WHERE id = $1 FOR UPDATE`, userID)
	return row, err
}

func (s *ProfileStore) UpdateBalance(ctx context.Context, tx Execer, userID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, userID)
	return err
}

func (s *ProfileStore) SetStatus(ctx context.Context, tx Execer, userID string, status models.Status) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ProfileStore) RoleOf(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.GetContext(ctx, &role, `SELECT role FROM profiles WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return role, err
}

func (s *ProfileStore) List(ctx context.Context, status string, limit, offset int) ([]models.Profile, error) {
	var rows []models.Profile
	query := `SELECT ` + profileColumns + ` FROM profiles`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"cashora/internal/models"
)

const transactionColumns = `t.id, t.user_id, t.type, t.amount, t.fee, t.total_amount, t.status,
		       t.bank_id, t.account_holder, t.account_number, t.recipient_email, t.receipt_path, t.full_name,
		       t.client_request_id, t.reject_reason, t.decided_by, t.decided_at, t.created_at`

type TransactionStore struct {
	db DB
}

// TransactionView is a transaction joined with its owner and bank for listings.
type TransactionView struct {
	models.Transaction
	Username *string `db:"username" json:"username,omitempty"`
	Email    *string `db:"email" json:"email,omitempty"`
	BankName *string `db:"bank_name" json:"bank_name,omitempty"`
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, amount, fee, total_amount, status,
		                          bank_id, account_holder, account_number, recipient_email, receipt_path, full_name,
		                          client_request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.UserID, input.Kind, input.Amount, input.Fee, input.TotalAmount, input.Status,
		input.BankID, input.AccountHolder, input.AccountNumber, input.RecipientEmail, input.ReceiptPath, input.DepositorName,
		input.ClientRequestID, input.CreatedAt,
	)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1`, transactionID)
	return row, err
}

func (s *TransactionStore) GetForUpdate(ctx context.Context, tx Getter, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := tx.GetContext(ctx, &row, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1 FOR UPDATE`, transactionID)
	return row, err
}

func (s *TransactionStore) GetByClientRequestID(ctx context.Context, userID, clientRequestID string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+transactionColumns+`
		FROM transactions t
		WHERE t.user_id = $1 AND t.client_request_id = $2
	`, userID, clientRequestID)
	return row, err
}

// TransitionStatus moves a pending transaction to a terminal status. It
// returns 0 when the row was no longer pending.
func (s *TransactionStore) TransitionStatus(ctx context.Context, tx Execer, transactionID string, to models.Status, decidedBy string, reason *string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, decided_by = $2, decided_at = NOW(), reject_reason = $3
		WHERE id = $4 AND status = 'pending'
	`, to, decidedBy, reason, transactionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SumApprovedSince sums the principal of approved transactions of one kind
// created strictly after since.
func (s *TransactionStore) SumApprovedSince(ctx context.Context, q Getter, userID string, kind models.Kind, since time.Time) (int64, error) {
	if q == nil {
		q = s.db
	}
	var sum int64
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND type = $2 AND status = 'approved' AND created_at > $3
	`, userID, kind, since)
	return sum, err
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, kind string, limit, offset int) ([]TransactionView, error) {
	var rows []TransactionView
	query := `
		SELECT ` + transactionColumns + `, p.username, p.email, b.name AS bank_name
		FROM transactions t
		LEFT JOIN profiles p ON p.id = t.user_id
		LEFT JOIN banks b ON b.id = t.bank_id
		WHERE t.user_id = $1
	`
	args := []any{userID}
	param := 2
	if kind != "" {
		query += " AND t.type = $2"
		args = append(args, kind)
		param = 3
	}
	query += " ORDER BY t.created_at DESC LIMIT $" + itoa(param) + " OFFSET $" + itoa(param+1)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListAll(ctx context.Context, status string, limit, offset int) ([]TransactionView, error) {
	var rows []TransactionView
	query := `
		SELECT ` + transactionColumns + `, p.username, p.email, b.name AS bank_name
		FROM transactions t
		LEFT JOIN profiles p ON p.id = t.user_id
		LEFT JOIN banks b ON b.id = t.bank_id
	`
	args := []any{}
	param := 1
	if status != "" {
		query += " WHERE t.status = $1"
		args = append(args, status)
		param = 2
	}
	query += " ORDER BY t.created_at DESC LIMIT $" + itoa(param) + " OFFSET $" + itoa(param+1)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func itoa(value int) string {
	return fmt.Sprintf("%d", value)
}

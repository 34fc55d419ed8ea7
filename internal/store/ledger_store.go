package store

import "context"

type LedgerStore struct {
	db DB
}

type LedgerEntryInput struct {
	ID            string
	UserID        string
	TransactionID *string
	Amount        int64
	Description   string
}

// ReconcileRow compares a stored balance against the sum of its ledger entries.
type ReconcileRow struct {
	UserID     string `db:"user_id" json:"user_id"`
	Username   string `db:"username" json:"username"`
	Balance    int64  `db:"balance" json:"balance"`
	LedgerSum  int64  `db:"ledger_sum" json:"ledger_sum"`
	Difference int64  `db:"difference" json:"difference"`
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []LedgerEntryInput) error {
	query := `
		INSERT INTO ledger_entries (id, user_id, transaction_id, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query, entry.ID, entry.UserID, entry.TransactionID, entry.Amount, entry.Description); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerStore) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1
	`, userID)
	return sum, err
}

// Reconcile lists profiles; onlyMismatched keeps rows whose difference is non-zero.
func (s *LedgerStore) Reconcile(ctx context.Context, onlyMismatched bool) ([]ReconcileRow, error) {
	var rows []ReconcileRow
	query := `
		SELECT p.id AS user_id,
		       p.username,
		       p.balance,
		       COALESCE(SUM(l.amount), 0) AS ledger_sum,
		       (p.balance - COALESCE(SUM(l.amount), 0)) AS difference
		FROM profiles p
		LEFT JOIN ledger_entries l ON l.user_id = p.id
		GROUP BY p.id, p.username, p.balance
	`
	if onlyMismatched {
		query += " HAVING p.balance <> COALESCE(SUM(l.amount), 0)"
	}
	query += " ORDER BY p.username"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

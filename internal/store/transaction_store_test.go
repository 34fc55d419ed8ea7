package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"cashora/internal/models"
)

func TestTransactionStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO transactions") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 15 || args[0] != "tx-1" || args[4] != int64(500) || args[5] != int64(5500) {
				t.Fatalf("unexpected args: %#v", args)
			}
			if args[6] != models.StatusPending {
				t.Fatalf("unexpected status arg: %#v", args[6])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	err := store.Create(ctx, execer, models.Transaction{
		ID: "tx-1", Kind: models.KindSend, Amount: 5000, Fee: 500, TotalAmount: 5500, Status: models.StatusPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreGetForUpdate(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*models.Transaction) = models.Transaction{ID: "tx-1", Status: models.StatusPending}
			return nil
		},
	}
	store := NewTransactionStore(stubDB{})
	row, err := store.GetForUpdate(ctx, getter, "tx-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.ID != "tx-1" {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestTransactionStoreTransitionStatus(t *testing.T) {
	ctx := context.Background()
	reason := "bad receipt"
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "WHERE id = $4 AND status = 'pending'") {
				t.Fatalf("expected compare-and-swap on pending: %s", query)
			}
			if len(args) != 4 || args[0] != models.StatusRejected || args[1] != "admin-1" || args[3] != "tx-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 0}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	rows, err := store.TransitionStatus(ctx, execer, "tx-1", models.StatusRejected, "admin-1", &reason)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows, got %d", rows)
	}
}

func TestTransactionStoreSumApprovedSince(t *testing.T) {
	ctx := context.Background()
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "SUM(amount)") || !strings.Contains(query, "status = 'approved'") {
				t.Fatalf("unexpected query: %s", query)
			}
			if strings.Contains(query, "total_amount") {
				t.Fatalf("limit windows sum the principal only: %s", query)
			}
			if len(args) != 3 || args[0] != "user-1" || args[1] != models.KindWithdrawal || args[2] != since {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*int64) = 8000
			return nil
		},
	}
	store := NewTransactionStore(stubDB{})
	sum, err := store.SumApprovedSince(ctx, getter, "user-1", models.KindWithdrawal, since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != 8000 {
		t.Fatalf("unexpected sum: %d", sum)
	}
}

func TestTransactionStoreListByUser(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "LEFT JOIN profiles p") || !strings.Contains(query, "LEFT JOIN banks b") {
				t.Fatalf("unexpected query: %s", query)
			}
			if !strings.Contains(query, "LIMIT $2 OFFSET $3") {
				t.Fatalf("unexpected limit/offset in query: %s", query)
			}
			if len(args) != 3 || args[0] != "user-1" || args[1] != 10 || args[2] != 0 {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]TransactionView) = []TransactionView{{Transaction: models.Transaction{ID: "tx-1"}}}
			return nil
		},
	})
	rows, err := store.ListByUser(ctx, "user-1", "", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "tx-1" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestTransactionStoreListByUserWithKind(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "AND t.type = $2") || !strings.Contains(query, "LIMIT $3 OFFSET $4") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 4 || args[1] != "send" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return nil
		},
	})
	if _, err := store.ListByUser(ctx, "user-1", "send", 5, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreListAllByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE t.status = $1") || !strings.Contains(query, "LIMIT $2 OFFSET $3") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 3 || args[0] != "pending" || args[1] != 50 || args[2] != 0 {
				t.Fatalf("unexpected args: %#v", args)
			}
			return nil
		},
	})
	if _, err := store.ListAll(ctx, "pending", 50, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreListAll(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if strings.Contains(query, "WHERE t.status") {
				t.Fatalf("unexpected status filter: %s", query)
			}
			if len(args) != 2 || args[0] != 10 || args[1] != 10 {
				t.Fatalf("unexpected args: %#v", args)
			}
			return nil
		},
	})
	if _, err := store.ListAll(ctx, "", 10, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"cashora/internal/db"
	"cashora/internal/models"
	"cashora/internal/money"
	"cashora/internal/notify"
	"cashora/internal/store"
	"cashora/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type ProfileStore interface {
	GetByID(ctx context.Context, userID string) (models.Profile, error)
	GetByEmail(ctx context.Context, email string) (models.Profile, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Profile, error)
	UpdateBalance(ctx context.Context, tx store.Execer, userID string, balance int64) error
}

type FeeStore interface {
	Get(ctx context.Context, q store.Getter, userID string, kind models.Kind) (*models.FeeRule, error)
}

type LimitStore interface {
	Get(ctx context.Context, q store.Getter, userID string, kind models.Kind) (*models.LimitRule, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input models.Transaction) error
	GetForUpdate(ctx context.Context, tx store.Getter, transactionID string) (models.Transaction, error)
	GetByClientRequestID(ctx context.Context, userID, clientRequestID string) (models.Transaction, error)
	TransitionStatus(ctx context.Context, tx store.Execer, transactionID string, to models.Status, decidedBy string, reason *string) (int64, error)
	SumApprovedSince(ctx context.Context, q store.Getter, userID string, kind models.Kind, since time.Time) (int64, error)
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
}

type BankStore interface {
	GetByID(ctx context.Context, bankID string) (models.Bank, error)
	IsAssigned(ctx context.Context, q store.Getter, userID, bankID string) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type Notifier interface {
	Dispatch(msg notify.Message)
}

type Stores struct {
	Profiles     ProfileStore
	Fees         FeeStore
	Limits       LimitStore
	Transactions TransactionStore
	Ledger       LedgerStore
	Banks        BankStore
	Audit        AuditStore
}

type TransactionService struct {
	txRunner     db.TxRunner
	profiles     ProfileStore
	fees         FeeStore
	limits       LimitStore
	transactions TransactionStore
	ledger       LedgerStore
	banks        BankStore
	audit        AuditStore
	hub          BalanceHub
	notifier     Notifier
	adminEmail   string
	log          *zerolog.Logger
	now          func() time.Time
}

func NewTransactionService(txRunner db.TxRunner, stores Stores, hub BalanceHub, notifier Notifier, adminEmail string, log *zerolog.Logger) *TransactionService {
	return &TransactionService{
		txRunner:     txRunner,
		profiles:     stores.Profiles,
		fees:         stores.Fees,
		limits:       stores.Limits,
		transactions: stores.Transactions,
		ledger:       stores.Ledger,
		banks:        stores.Banks,
		audit:        stores.Audit,
		hub:          hub,
		notifier:     notifier,
		adminEmail:   adminEmail,
		log:          log,
		now:          time.Now,
	}
}

type Receipt struct {
	Transaction models.Transaction `json:"transaction"`
	Balance     int64              `json:"balance"`
}

// Submit records a pending transaction. Withdrawals and sends escrow
// amount+fee from the balance in the same database transaction that checks
// limits and inserts the row.
func (s *TransactionService) Submit(ctx context.Context, req SubmitRequest) (Receipt, error) {
	if req == nil {
		return Receipt{}, invalid("type", "unknown transaction type")
	}
	base := req.common()
	if base.UserID == "" {
		return Receipt{}, ErrNotAuthenticated
	}
	if err := req.validate(); err != nil {
		return Receipt{}, err
	}
	kind := req.Kind()
	if base.ClientRequestID != nil {
		_, err := s.transactions.GetByClientRequestID(ctx, base.UserID, *base.ClientRequestID)
		if err == nil {
			return Receipt{}, ErrDuplicateRequest
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Receipt{}, err
		}
	}

	var receipt Receipt
	var profile models.Profile
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		profile, err = s.profiles.GetForUpdate(ctx, tx, base.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotAuthenticated
		}
		if err != nil {
			return err
		}
		if profile.Status != models.StatusApproved {
			return ErrAccountNotApproved
		}
		switch r := req.(type) {
		case WithdrawalRequest:
			assigned, err := s.banks.IsAssigned(ctx, tx, base.UserID, strings.TrimSpace(r.BankID))
			if err != nil {
				return err
			}
			if !assigned {
				return ErrBankNotAssigned
			}
		case SendRequest:
			if strings.EqualFold(strings.TrimSpace(r.RecipientEmail), profile.Email) {
				return invalid("recipient_email", "cannot send to yourself")
			}
		}

		feeRule, err := s.fees.Get(ctx, tx, base.UserID, kind)
		if err != nil {
			return err
		}
		limitRule, err := s.limits.Get(ctx, tx, base.UserID, kind)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := evaluateLimits(limitRule, base.Amount, func(w limitWindow) (int64, error) {
			return s.transactions.SumApprovedSince(ctx, tx, base.UserID, kind, now.Add(-w.span))
		}); err != nil {
			return err
		}

		fee := ComputeFee(base.Amount, feeRule)
		total, err := TotalCharge(base.Amount, fee)
		if err != nil {
			return err
		}
		txn := models.Transaction{
			ID:              uuid.NewString(),
			UserID:          base.UserID,
			Kind:            kind,
			Amount:          base.Amount,
			Fee:             fee,
			TotalAmount:     total,
			Status:          models.StatusPending,
			ClientRequestID: base.ClientRequestID,
			CreatedAt:       now,
		}
		req.apply(&txn)
		if kind.Debits() && profile.Balance < txn.TotalAmount {
			return ErrInsufficientFunds
		}
		if err := s.transactions.Create(ctx, tx, txn); err != nil {
			return err
		}
		balance := profile.Balance
		if kind.Debits() {
			balance, err = s.adjustBalance(ctx, tx, base.UserID, -txn.TotalAmount, &txn.ID, describe(kind, "escrow"))
			if err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]any{
			"type":         kind,
			"amount":       txn.Amount,
			"fee":          txn.Fee,
			"total_amount": txn.TotalAmount,
		})
		if err := s.audit.Log(ctx, tx, base.UserID, "transaction.submit", "transaction", txn.ID, string(data)); err != nil {
			return err
		}
		receipt = Receipt{Transaction: txn, Balance: balance}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Receipt{}, ErrDuplicateRequest
		}
		return Receipt{}, err
	}
	if kind.Debits() {
		s.broadcast(base.UserID, receipt.Balance, receipt.Transaction.ID, "submitted")
	}
	s.notifySubmitted(ctx, profile, receipt.Transaction)
	return receipt, nil
}

// Approve finalizes a pending transaction. Deposits are credited here;
// withdrawals and sends were already debited at submission.
func (s *TransactionService) Approve(ctx context.Context, adminID, transactionID string) (Receipt, error) {
	return s.finalize(ctx, adminID, transactionID, models.StatusApproved, nil)
}

// Reject finalizes a pending transaction and refunds escrowed funds.
func (s *TransactionService) Reject(ctx context.Context, adminID, transactionID, reason string) (Receipt, error) {
	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonPtr = &trimmed
	}
	return s.finalize(ctx, adminID, transactionID, models.StatusRejected, reasonPtr)
}

func (s *TransactionService) finalize(ctx context.Context, adminID, transactionID string, to models.Status, reason *string) (Receipt, error) {
	if adminID == "" {
		return Receipt{}, ErrNotAuthenticated
	}
	var receipt Receipt
	var moved bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved = false
		txn, err := s.transactions.GetForUpdate(ctx, tx, transactionID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if txn.Status.Terminal() {
			return ErrAlreadyFinalized
		}
		rows, err := s.transactions.TransitionStatus(ctx, tx, transactionID, to, adminID, reason)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyFinalized
		}
		now := s.now().UTC()
		txn.Status = to
		txn.DecidedBy = &adminID
		txn.DecidedAt = &now
		txn.RejectReason = reason

		var delta int64
		var description string
		switch {
		case to == models.StatusApproved && txn.Kind == models.KindDeposit:
			delta, description = txn.Amount, describe(txn.Kind, "credit")
		case to == models.StatusRejected && txn.Kind.Debits():
			delta, description = txn.TotalAmount, describe(txn.Kind, "refund")
		}
		var balance int64
		if delta != 0 {
			moved = true
			balance, err = s.adjustBalance(ctx, tx, txn.UserID, delta, &txn.ID, description)
		} else {
			var profile models.Profile
			profile, err = s.profiles.GetForUpdate(ctx, tx, txn.UserID)
			balance = profile.Balance
		}
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{
			"status":        to,
			"balance_delta": delta,
			"reason":        reason,
		})
		action := "transaction.approve"
		if to == models.StatusRejected {
			action = "transaction.reject"
		}
		if err := s.audit.Log(ctx, tx, adminID, action, "transaction", txn.ID, string(data)); err != nil {
			return err
		}
		receipt = Receipt{Transaction: txn, Balance: balance}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	if moved {
		s.broadcast(receipt.Transaction.UserID, receipt.Balance, receipt.Transaction.ID, string(to))
	}
	s.notifyFinalized(ctx, receipt.Transaction)
	return receipt, nil
}

// AdjustBalance applies a manual credit (delta > 0) or debit (delta < 0).
func (s *TransactionService) AdjustBalance(ctx context.Context, adminID, userID string, delta int64, note string) (int64, error) {
	if adminID == "" {
		return 0, ErrNotAuthenticated
	}
	if delta == 0 {
		return 0, ErrInvalidAmount
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return 0, invalid("note", "a note is required")
	}
	var balance int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		balance, err = s.adjustBalance(ctx, tx, userID, delta, nil, "Manual adjustment: "+note)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"delta": delta, "note": note})
		return s.audit.Log(ctx, tx, adminID, "balance.adjust", "profile", userID, string(data))
	})
	if err != nil {
		return 0, err
	}
	s.broadcast(userID, balance, "", "adjustment")
	return balance, nil
}

// adjustBalance locks the profile row, applies delta and records the ledger
// entry. The balance never goes below zero.
func (s *TransactionService) adjustBalance(ctx context.Context, tx *sqlx.Tx, userID string, delta int64, transactionID *string, description string) (int64, error) {
	profile, err := s.profiles.GetForUpdate(ctx, tx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	next, err := money.Add(profile.Balance, delta)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if next < 0 {
		return 0, ErrInsufficientFunds
	}
	if err := s.profiles.UpdateBalance(ctx, tx, userID, next); err != nil {
		return 0, err
	}
	if err := s.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{{
		ID:            uuid.NewString(),
		UserID:        userID,
		TransactionID: transactionID,
		Amount:        delta,
		Description:   description,
	}}); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *TransactionService) broadcast(userID string, balance int64, transactionID, reason string) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		Balance:       money.FormatMinor(balance),
		BalanceMinor:  balance,
		TransactionID: transactionID,
		Reason:        reason,
	})
}

func describe(kind models.Kind, effect string) string {
	name := string(kind)
	return strings.ToUpper(name[:1]) + name[1:] + " " + effect
}

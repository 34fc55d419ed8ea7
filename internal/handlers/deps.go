package handlers

import (
	"context"

	"cashora/internal/models"
	"cashora/internal/notify"
	"cashora/internal/services"
	"cashora/internal/store"
)

type ProfileStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ProfileInput) error
	GetByID(ctx context.Context, userID string) (models.Profile, error)
	GetByEmail(ctx context.Context, email string) (models.Profile, error)
	GetByUsername(ctx context.Context, username string) (models.Profile, error)
	SetStatus(ctx context.Context, tx store.Execer, userID string, status models.Status) (int64, error)
	RoleOf(ctx context.Context, userID string) (string, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Profile, error)
}

type AdminStore interface {
	HasAnyAdmin(ctx context.Context, q store.Getter) (bool, error)
	CountAdmins(ctx context.Context, q store.Getter) (int, error)
	SetRole(ctx context.Context, tx store.Execer, userID, role string) (int64, error)
}

type FeeStore interface {
	Upsert(ctx context.Context, tx store.Execer, rule models.FeeRule) error
	ListByUser(ctx context.Context, userID string) ([]models.FeeRule, error)
}

type LimitStore interface {
	Upsert(ctx context.Context, tx store.Execer, rule models.LimitRule) error
	ListByUser(ctx context.Context, userID string) ([]models.LimitRule, error)
}

type BankStore interface {
	Create(ctx context.Context, tx store.Execer, id, name string) error
	Delete(ctx context.Context, tx store.Execer, bankID string) (int64, error)
	List(ctx context.Context) ([]store.BankWithUsers, error)
	ListForUser(ctx context.Context, userID string) ([]models.Bank, error)
	AssignedUserIDs(ctx context.Context, q store.Selecter, bankID string) ([]string, error)
	Assign(ctx context.Context, tx store.Execer, bankID string, userIDs []string) error
	Unassign(ctx context.Context, tx store.Execer, bankID string, userIDs []string) error
}

type TransactionStore interface {
	GetByID(ctx context.Context, transactionID string) (models.Transaction, error)
	ListByUser(ctx context.Context, userID, kind string, limit, offset int) ([]store.TransactionView, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]store.TransactionView, error)
}

type LedgerStore interface {
	Reconcile(ctx context.Context, onlyMismatched bool) ([]store.ReconcileRow, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
	ListForEntity(ctx context.Context, entityType, entityID string) ([]map[string]any, error)
}

type TransactionService interface {
	Submit(ctx context.Context, req services.SubmitRequest) (services.Receipt, error)
	Preview(ctx context.Context, userID string, kind models.Kind, amount int64) (services.Quote, error)
	Approve(ctx context.Context, adminID, transactionID string) (services.Receipt, error)
	Reject(ctx context.Context, adminID, transactionID, reason string) (services.Receipt, error)
	AdjustBalance(ctx context.Context, adminID, userID string, delta int64, note string) (int64, error)
}

type Notifier interface {
	Dispatch(msg notify.Message)
}

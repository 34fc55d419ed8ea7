package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cashora/internal/auth"
	"cashora/internal/config"
	"cashora/internal/middleware"
	"cashora/internal/models"
	"cashora/internal/notify"
	"cashora/internal/services"
	"cashora/internal/store"
	"cashora/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubProfileStore struct {
	createFn        func(ctx context.Context, tx store.Execer, input store.ProfileInput) error
	getByIDFn       func(ctx context.Context, userID string) (models.Profile, error)
	getByEmailFn    func(ctx context.Context, email string) (models.Profile, error)
	getByUsernameFn func(ctx context.Context, username string) (models.Profile, error)
	setStatusFn     func(ctx context.Context, tx store.Execer, userID string, status models.Status) (int64, error)
	roleOfFn        func(ctx context.Context, userID string) (string, error)
	listFn          func(ctx context.Context, status string, limit, offset int) ([]models.Profile, error)
}

func (s stubProfileStore) Create(ctx context.Context, tx store.Execer, input store.ProfileInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubProfileStore) GetByID(ctx context.Context, userID string) (models.Profile, error) {
	if s.getByIDFn == nil {
		return models.Profile{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubProfileStore) GetByEmail(ctx context.Context, email string) (models.Profile, error) {
	if s.getByEmailFn == nil {
		return models.Profile{}, sql.ErrNoRows
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubProfileStore) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	if s.getByUsernameFn == nil {
		return models.Profile{}, sql.ErrNoRows
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubProfileStore) SetStatus(ctx context.Context, tx store.Execer, userID string, status models.Status) (int64, error) {
	if s.setStatusFn == nil {
		return 1, nil
	}
	return s.setStatusFn(ctx, tx, userID, status)
}

func (s stubProfileStore) RoleOf(ctx context.Context, userID string) (string, error) {
	if s.roleOfFn == nil {
		return models.RoleUser, nil
	}
	return s.roleOfFn(ctx, userID)
}

func (s stubProfileStore) List(ctx context.Context, status string, limit, offset int) ([]models.Profile, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, status, limit, offset)
}

type stubAdminStore struct {
	hasAnyAdminFn func(ctx context.Context, q store.Getter) (bool, error)
	countAdminsFn func(ctx context.Context, q store.Getter) (int, error)
	setRoleFn     func(ctx context.Context, tx store.Execer, userID, role string) (int64, error)
}

func (s stubAdminStore) HasAnyAdmin(ctx context.Context, q store.Getter) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return true, nil
	}
	return s.hasAnyAdminFn(ctx, q)
}

func (s stubAdminStore) CountAdmins(ctx context.Context, q store.Getter) (int, error) {
	if s.countAdminsFn == nil {
		return 1, nil
	}
	return s.countAdminsFn(ctx, q)
}

func (s stubAdminStore) SetRole(ctx context.Context, tx store.Execer, userID, role string) (int64, error) {
	if s.setRoleFn == nil {
		return 1, nil
	}
	return s.setRoleFn(ctx, tx, userID, role)
}

type stubFeeStore struct {
	upsertFn func(ctx context.Context, tx store.Execer, rule models.FeeRule) error
	listFn   func(ctx context.Context, userID string) ([]models.FeeRule, error)
}

func (s stubFeeStore) Upsert(ctx context.Context, tx store.Execer, rule models.FeeRule) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, rule)
}

func (s stubFeeStore) ListByUser(ctx context.Context, userID string) ([]models.FeeRule, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID)
}

type stubLimitStore struct {
	upsertFn func(ctx context.Context, tx store.Execer, rule models.LimitRule) error
	listFn   func(ctx context.Context, userID string) ([]models.LimitRule, error)
}

func (s stubLimitStore) Upsert(ctx context.Context, tx store.Execer, rule models.LimitRule) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, rule)
}

func (s stubLimitStore) ListByUser(ctx context.Context, userID string) ([]models.LimitRule, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID)
}

type stubBankStore struct {
	createFn      func(ctx context.Context, tx store.Execer, id, name string) error
	deleteFn      func(ctx context.Context, tx store.Execer, bankID string) (int64, error)
	listFn        func(ctx context.Context) ([]store.BankWithUsers, error)
	listForUserFn func(ctx context.Context, userID string) ([]models.Bank, error)
	assignedFn    func(ctx context.Context, q store.Selecter, bankID string) ([]string, error)
	assignFn      func(ctx context.Context, tx store.Execer, bankID string, userIDs []string) error
	unassignFn    func(ctx context.Context, tx store.Execer, bankID string, userIDs []string) error
}

func (s stubBankStore) Create(ctx context.Context, tx store.Execer, id, name string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, name)
}

func (s stubBankStore) Delete(ctx context.Context, tx store.Execer, bankID string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, tx, bankID)
}

func (s stubBankStore) List(ctx context.Context) ([]store.BankWithUsers, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s stubBankStore) ListForUser(ctx context.Context, userID string) ([]models.Bank, error) {
	if s.listForUserFn == nil {
		return nil, nil
	}
	return s.listForUserFn(ctx, userID)
}

func (s stubBankStore) AssignedUserIDs(ctx context.Context, q store.Selecter, bankID string) ([]string, error) {
	if s.assignedFn == nil {
		return nil, nil
	}
	return s.assignedFn(ctx, q, bankID)
}

func (s stubBankStore) Assign(ctx context.Context, tx store.Execer, bankID string, userIDs []string) error {
	if s.assignFn == nil {
		return nil
	}
	return s.assignFn(ctx, tx, bankID, userIDs)
}

func (s stubBankStore) Unassign(ctx context.Context, tx store.Execer, bankID string, userIDs []string) error {
	if s.unassignFn == nil {
		return nil
	}
	return s.unassignFn(ctx, tx, bankID, userIDs)
}

type stubTransactionStore struct {
	getByIDFn    func(ctx context.Context, transactionID string) (models.Transaction, error)
	listByUserFn func(ctx context.Context, userID, kind string, limit, offset int) ([]store.TransactionView, error)
	listAllFn    func(ctx context.Context, status string, limit, offset int) ([]store.TransactionView, error)
}

func (s stubTransactionStore) GetByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	if s.getByIDFn == nil {
		return models.Transaction{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, transactionID)
}

func (s stubTransactionStore) ListByUser(ctx context.Context, userID, kind string, limit, offset int) ([]store.TransactionView, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, kind, limit, offset)
}

func (s stubTransactionStore) ListAll(ctx context.Context, status string, limit, offset int) ([]store.TransactionView, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx, status, limit, offset)
}

type stubLedgerStore struct {
	reconcileFn func(ctx context.Context, onlyMismatched bool) ([]store.ReconcileRow, error)
}

func (s stubLedgerStore) Reconcile(ctx context.Context, onlyMismatched bool) ([]store.ReconcileRow, error) {
	if s.reconcileFn == nil {
		return nil, nil
	}
	return s.reconcileFn(ctx, onlyMismatched)
}

type stubAuditStore struct {
	logFn           func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn          func(ctx context.Context, limit, offset int) ([]map[string]any, error)
	listForEntityFn func(ctx context.Context, entityType, entityID string) ([]map[string]any, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

func (s stubAuditStore) ListForEntity(ctx context.Context, entityType, entityID string) ([]map[string]any, error) {
	if s.listForEntityFn == nil {
		return nil, nil
	}
	return s.listForEntityFn(ctx, entityType, entityID)
}

type stubService struct {
	submitFn  func(ctx context.Context, req services.SubmitRequest) (services.Receipt, error)
	previewFn func(ctx context.Context, userID string, kind models.Kind, amount int64) (services.Quote, error)
	approveFn func(ctx context.Context, adminID, transactionID string) (services.Receipt, error)
	rejectFn  func(ctx context.Context, adminID, transactionID, reason string) (services.Receipt, error)
	adjustFn  func(ctx context.Context, adminID, userID string, delta int64, note string) (int64, error)
}

func (s stubService) Submit(ctx context.Context, req services.SubmitRequest) (services.Receipt, error) {
	if s.submitFn == nil {
		return services.Receipt{}, nil
	}
	return s.submitFn(ctx, req)
}

func (s stubService) Preview(ctx context.Context, userID string, kind models.Kind, amount int64) (services.Quote, error) {
	if s.previewFn == nil {
		return services.Quote{}, nil
	}
	return s.previewFn(ctx, userID, kind, amount)
}

func (s stubService) Approve(ctx context.Context, adminID, transactionID string) (services.Receipt, error) {
	if s.approveFn == nil {
		return services.Receipt{}, nil
	}
	return s.approveFn(ctx, adminID, transactionID)
}

func (s stubService) Reject(ctx context.Context, adminID, transactionID, reason string) (services.Receipt, error) {
	if s.rejectFn == nil {
		return services.Receipt{}, nil
	}
	return s.rejectFn(ctx, adminID, transactionID, reason)
}

func (s stubService) AdjustBalance(ctx context.Context, adminID, userID string, delta int64, note string) (int64, error) {
	if s.adjustFn == nil {
		return 0, nil
	}
	return s.adjustFn(ctx, adminID, userID, delta, note)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (n *recordingNotifier) Dispatch(msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}

const testSecret = "secret"

// newTestHandler fills every unset dependency with a permissive stub.
func newTestHandler(deps Deps) *Handler {
	if deps.TxRunner == nil {
		deps.TxRunner = fakeTxRunner{}
	}
	deps.Config = config.Config{
		AppEnv:          "test",
		Port:            "0",
		JWTSecret:       testSecret,
		TokenTTLMinutes: 1,
		AllowedOrigins:  "*",
	}
	if deps.Log == nil {
		nop := zerolog.Nop()
		deps.Log = &nop
	}
	if deps.Profiles == nil {
		deps.Profiles = stubProfileStore{}
	}
	if deps.Admins == nil {
		deps.Admins = stubAdminStore{}
	}
	if deps.Fees == nil {
		deps.Fees = stubFeeStore{}
	}
	if deps.Limits == nil {
		deps.Limits = stubLimitStore{}
	}
	if deps.Banks == nil {
		deps.Banks = stubBankStore{}
	}
	if deps.Transactions == nil {
		deps.Transactions = stubTransactionStore{}
	}
	if deps.Ledger == nil {
		deps.Ledger = stubLedgerStore{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	if deps.Service == nil {
		deps.Service = stubService{}
	}
	if deps.Notifier == nil {
		deps.Notifier = &recordingNotifier{}
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub()
	}
	return New(deps)
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, role, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return "Bearer " + token
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, userID string) *httptest.ResponseRecorder {
	t.Helper()
	return serveRequestWithAuth(t, handler, userID, httptest.NewRequest(http.MethodGet, "/", nil))
}

func serveRequestWithAuth(t *testing.T, handler http.HandlerFunc, userID string, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req.Header.Set("Authorization", bearer(t, userID, models.RoleUser))
	middleware.Auth(testSecret)(handler).ServeHTTP(rr, req)
	return rr
}

func jsonRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

func stringPtr(value string) *string {
	return &value
}

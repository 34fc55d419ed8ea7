package services

import (
	"bytes"
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"cashora/internal/logger"
	"cashora/internal/models"
	"cashora/internal/notify"
	"cashora/internal/store"
	"cashora/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ruleKey struct {
	userID string
	kind   models.Kind
}

// memState is an in-memory database. memRunner serializes transactions over
// it and restores the snapshot when fn fails.
type memState struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	fees     map[ruleKey]*models.FeeRule
	limits   map[ruleKey]*models.LimitRule
	txns     map[string]models.Transaction
	ledger   []store.LedgerEntryInput
	audits   []string
	banks    map[string]models.Bank
	assigned map[string]bool
}

type memSnapshot struct {
	profiles map[string]models.Profile
	txns     map[string]models.Transaction
	ledger   []store.LedgerEntryInput
	audits   []string
}

func newMemState() *memState {
	return &memState{
		profiles: map[string]models.Profile{},
		fees:     map[ruleKey]*models.FeeRule{},
		limits:   map[ruleKey]*models.LimitRule{},
		txns:     map[string]models.Transaction{},
		banks:    map[string]models.Bank{},
		assigned: map[string]bool{},
	}
}

func (m *memState) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memSnapshot{
		profiles: make(map[string]models.Profile, len(m.profiles)),
		txns:     make(map[string]models.Transaction, len(m.txns)),
		ledger:   append([]store.LedgerEntryInput(nil), m.ledger...),
		audits:   append([]string(nil), m.audits...),
	}
	for k, v := range m.profiles {
		snap.profiles[k] = v
	}
	for k, v := range m.txns {
		snap.txns[k] = v
	}
	return snap
}

func (m *memState) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = snap.profiles
	m.txns = snap.txns
	m.ledger = snap.ledger
	m.audits = snap.audits
}

// addProfile seeds an approved profile whose opening balance is backed by a
// ledger entry.
func (m *memState) addProfile(id, email string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id] = models.Profile{ID: id, Username: id, Email: email, FirstName: id, Balance: balance, Status: models.StatusApproved}
	if balance != 0 {
		m.ledger = append(m.ledger, store.LedgerEntryInput{ID: "open-" + id, UserID: id, Amount: balance, Description: "Opening balance"})
	}
}

func (m *memState) balance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID].Balance
}

func (m *memState) ledgerSum(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, entry := range m.ledger {
		if entry.UserID == userID {
			sum += entry.Amount
		}
	}
	return sum
}

func (m *memState) txn(id string) models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txns[id]
}

func (m *memState) txnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txns)
}

func (m *memState) ledgerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ledger)
}

type memRunner struct {
	st *memState
	mu *sync.Mutex
}

func (r memRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.st.snapshot()
	if err := fn(nil); err != nil {
		r.st.restore(snap)
		return err
	}
	return nil
}

type memProfiles struct{ st *memState }

func (p memProfiles) GetByID(_ context.Context, userID string) (models.Profile, error) {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()
	row, ok := p.st.profiles[userID]
	if !ok {
		return models.Profile{}, sql.ErrNoRows
	}
	return row, nil
}

func (p memProfiles) GetByEmail(_ context.Context, email string) (models.Profile, error) {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()
	for _, row := range p.st.profiles {
		if row.Email == email {
			return row, nil
		}
	}
	return models.Profile{}, sql.ErrNoRows
}

func (p memProfiles) GetForUpdate(ctx context.Context, _ store.Getter, userID string) (models.Profile, error) {
	return p.GetByID(ctx, userID)
}

func (p memProfiles) UpdateBalance(_ context.Context, _ store.Execer, userID string, balance int64) error {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()
	row := p.st.profiles[userID]
	row.Balance = balance
	p.st.profiles[userID] = row
	return nil
}

type memFees struct{ st *memState }

func (f memFees) Get(_ context.Context, _ store.Getter, userID string, kind models.Kind) (*models.FeeRule, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	return f.st.fees[ruleKey{userID, kind}], nil
}

type memLimits struct{ st *memState }

func (l memLimits) Get(_ context.Context, _ store.Getter, userID string, kind models.Kind) (*models.LimitRule, error) {
	l.st.mu.Lock()
	defer l.st.mu.Unlock()
	return l.st.limits[ruleKey{userID, kind}], nil
}

type memTxns struct{ st *memState }

func (t memTxns) Create(_ context.Context, _ store.Execer, input models.Transaction) error {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()
	if input.ClientRequestID != nil {
		for _, row := range t.st.txns {
			if row.UserID == input.UserID && row.ClientRequestID != nil && *row.ClientRequestID == *input.ClientRequestID {
				return &pq.Error{Code: "23505"}
			}
		}
	}
	t.st.txns[input.ID] = input
	return nil
}

func (t memTxns) GetForUpdate(_ context.Context, _ store.Getter, transactionID string) (models.Transaction, error) {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()
	row, ok := t.st.txns[transactionID]
	if !ok {
		return models.Transaction{}, sql.ErrNoRows
	}
	return row, nil
}

func (t memTxns) GetByClientRequestID(_ context.Context, userID, clientRequestID string) (models.Transaction, error) {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()
	for _, row := range t.st.txns {
		if row.UserID == userID && row.ClientRequestID != nil && *row.ClientRequestID == clientRequestID {
			return row, nil
		}
	}
	return models.Transaction{}, sql.ErrNoRows
}

func (t memTxns) TransitionStatus(_ context.Context, _ store.Execer, transactionID string, to models.Status, decidedBy string, reason *string) (int64, error) {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()
	row, ok := t.st.txns[transactionID]
	if !ok || row.Status != models.StatusPending {
		return 0, nil
	}
	row.Status = to
	row.DecidedBy = &decidedBy
	row.RejectReason = reason
	t.st.txns[transactionID] = row
	return 1, nil
}

func (t memTxns) SumApprovedSince(_ context.Context, _ store.Getter, userID string, kind models.Kind, since time.Time) (int64, error) {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()
	var sum int64
	for _, row := range t.st.txns {
		if row.UserID == userID && row.Kind == kind && row.Status == models.StatusApproved && row.CreatedAt.After(since) {
			sum += row.Amount
		}
	}
	return sum, nil
}

type memLedger struct {
	st  *memState
	err error
}

func (l memLedger) InsertEntries(_ context.Context, _ store.Execer, entries []store.LedgerEntryInput) error {
	if l.err != nil {
		return l.err
	}
	l.st.mu.Lock()
	defer l.st.mu.Unlock()
	l.st.ledger = append(l.st.ledger, entries...)
	return nil
}

type memBanks struct{ st *memState }

func (b memBanks) GetByID(_ context.Context, bankID string) (models.Bank, error) {
	b.st.mu.Lock()
	defer b.st.mu.Unlock()
	bank, ok := b.st.banks[bankID]
	if !ok {
		return models.Bank{}, sql.ErrNoRows
	}
	return bank, nil
}

func (b memBanks) IsAssigned(_ context.Context, _ store.Getter, userID, bankID string) (bool, error) {
	b.st.mu.Lock()
	defer b.st.mu.Unlock()
	return b.st.assigned[userID+"|"+bankID], nil
}

type memAudit struct{ st *memState }

func (a memAudit) Log(_ context.Context, _ store.Execer, actorID, action, entityType, entityID, data string) error {
	a.st.mu.Lock()
	defer a.st.mu.Unlock()
	a.st.audits = append(a.st.audits, action)
	return nil
}

type recordingHub struct {
	mu      sync.Mutex
	updates map[string][]websocket.BalanceUpdate
}

func (h *recordingHub) BroadcastBalance(userID string, update websocket.BalanceUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.updates == nil {
		h.updates = map[string][]websocket.BalanceUpdate{}
	}
	h.updates[userID] = append(h.updates[userID], update)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *recordingNotifier) Dispatch(msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Event, 0, len(n.sent))
	for _, msg := range n.sent {
		out = append(out, msg.Event)
	}
	return out
}

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	st       *memState
	svc      *TransactionService
	hub      *recordingHub
	notifier *recordingNotifier
	ledger   *memLedger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := newMemState()
	h := &harness{st: st, hub: &recordingHub{}, notifier: &recordingNotifier{}, ledger: &memLedger{st: st}}
	var buf bytes.Buffer
	h.svc = NewTransactionService(memRunner{st: st, mu: &sync.Mutex{}}, Stores{
		Profiles:     memProfiles{st},
		Fees:         memFees{st},
		Limits:       memLimits{st},
		Transactions: memTxns{st},
		Ledger:       ledgerProxy{h},
		Banks:        memBanks{st},
		Audit:        memAudit{st},
	}, h.hub, h.notifier, "admin@cashora.test", logger.New(&buf))
	h.svc.now = func() time.Time { return testNow }
	return h
}

// ledgerProxy lets a test swap in a failing ledger after construction.
type ledgerProxy struct{ h *harness }

func (p ledgerProxy) InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error {
	return p.h.ledger.InsertEntries(ctx, tx, entries)
}

func (h *harness) assignBank(userID, bankID, name string) {
	h.st.mu.Lock()
	defer h.st.mu.Unlock()
	h.st.banks[bankID] = models.Bank{ID: bankID, Name: name}
	h.st.assigned[userID+"|"+bankID] = true
}

func (h *harness) assertInvariant(t *testing.T, userID string) {
	t.Helper()
	balance := h.st.balance(userID)
	if balance < 0 {
		t.Fatalf("negative balance %d for %s", balance, userID)
	}
	if sum := h.st.ledgerSum(userID); sum != balance {
		t.Fatalf("balance %d does not match ledger sum %d for %s", balance, sum, userID)
	}
}

func withdrawal(userID string, amount int64) WithdrawalRequest {
	return WithdrawalRequest{
		RequestBase:   RequestBase{UserID: userID, Amount: amount},
		BankID:        "bank-1",
		AccountHolder: "Ana Silva",
		AccountNumber: "12345678",
	}
}

func send(userID string, amount int64, to string) SendRequest {
	return SendRequest{RequestBase: RequestBase{UserID: userID, Amount: amount}, RecipientEmail: to}
}

func deposit(userID string, amount int64) DepositRequest {
	return DepositRequest{
		RequestBase:   RequestBase{UserID: userID, Amount: amount},
		DepositorName: "Ana Silva",
		ReceiptPath:   "receipts/ana/1.png",
	}
}

func int64Ptr(v int64) *int64 { return &v }

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"cashora/internal/auth"
	"cashora/internal/db"
	"cashora/internal/middleware"
	"cashora/internal/models"
	"cashora/internal/money"
	"cashora/internal/notify"
	"cashora/internal/store"
	"cashora/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch models.Status(status) {
	case "", models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}
	limit, offset := pageParams(r)
	views, err := h.transactions.ListAll(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	normalized := make([]map[string]any, 0, len(views))
	for _, view := range views {
		normalized = append(normalized, transactionViewJSON(view))
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) AdminGetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	txn, err := h.transactions.GetByID(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load transaction")
		return
	}
	history, err := h.audit.ListForEntity(r.Context(), "transaction", transactionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load history")
		return
	}
	out := transactionJSON(txn)
	out["history"] = history
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	receipt, err := h.service.Approve(r.Context(), adminID, chi.URLParam(r, "id"))
	if err != nil {
		if !isClientError(err) {
			h.log.Error().Err(err).Str("admin_id", adminID).Msg("approve failed")
		}
		respondServiceError(w, err)
		return
	}
	out := transactionJSON(receipt.Transaction)
	out["balance"] = money.FormatMinor(receipt.Balance)
	respondJSON(w, http.StatusOK, out)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req rejectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid payload")
			return
		}
	}
	receipt, err := h.service.Reject(r.Context(), adminID, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		if !isClientError(err) {
			h.log.Error().Err(err).Str("admin_id", adminID).Msg("reject failed")
		}
		respondServiceError(w, err)
		return
	}
	out := transactionJSON(receipt.Transaction)
	out["balance"] = money.FormatMinor(receipt.Balance)
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit, offset := pageParams(r)
	profiles, err := h.profiles.List(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load users")
		return
	}
	normalized := make([]map[string]any, 0, len(profiles))
	for _, profile := range profiles {
		normalized = append(normalized, profileJSON(profile))
	}
	respondJSON(w, http.StatusOK, normalized)
}

type userStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req userStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	status := models.Status(req.Status)
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}
	userID := chi.URLParam(r, "id")
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		updated, err := h.profiles.SetStatus(r.Context(), tx, userID, status)
		if err != nil {
			return err
		}
		if updated == 0 {
			return sql.ErrNoRows
		}
		data, _ := json.Marshal(map[string]string{"status": req.Status})
		return h.audit.Log(r.Context(), tx, adminID, "set_user_status", "user", userID, string(data))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to update user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": userID, "status": req.Status})
}

type createUserRequest struct {
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Role       string  `json:"role"`
	IDCardPath *string `json:"id_card_path"`
	kycFields
}

// CreateUser adds an approved profile on behalf of an admin.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
		respondError(w, http.StatusBadRequest, "invalid role")
		return
	}
	for _, check := range []error{
		validator.ValidateUsername(req.Username),
		validator.ValidateEmail(req.Email),
		validator.ValidatePassword(req.Password),
		validator.ValidateName(req.FirstName),
		validator.ValidateName(req.LastName),
	} {
		if check != nil {
			respondError(w, http.StatusBadRequest, check.Error())
			return
		}
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to secure password")
		return
	}
	input := store.ProfileInput{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(req.Username),
		Email:        req.Email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: passwordHash,
		IDCardPath:   optionalText(derefString(req.IDCardPath)),
		Status:       models.StatusApproved,
		Role:         req.Role,
	}
	if err := req.kycFields.apply(&input, time.Now()); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.profiles.Create(r.Context(), tx, input); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"username": input.Username,
			"email":    input.Email,
			"role":     input.Role,
		})
		return h.audit.Log(r.Context(), tx, adminID, "create_user", "user", input.ID, string(data))
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "username or email already exists")
			return
		}
		h.log.Error().Err(err).Str("admin_id", adminID).Msg("create user failed")
		respondError(w, http.StatusInternalServerError, "unable to create user")
		return
	}
	h.notifier.Dispatch(notify.Welcome(input.Email, input.FirstName))
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":     input.ID,
		"role":   input.Role,
		"status": string(input.Status),
	})
}

var errLastAdmin = errors.New("cannot remove the last admin")

type userRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req userRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
		respondError(w, http.StatusBadRequest, "invalid role")
		return
	}
	userID := chi.URLParam(r, "id")
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		updated, err := h.admins.SetRole(r.Context(), tx, userID, req.Role)
		if err != nil {
			return err
		}
		if updated == 0 {
			return sql.ErrNoRows
		}
		if req.Role == models.RoleUser {
			remaining, err := h.admins.CountAdmins(r.Context(), tx)
			if err != nil {
				return err
			}
			if remaining == 0 {
				return errLastAdmin
			}
		}
		data, _ := json.Marshal(map[string]string{"role": req.Role})
		return h.audit.Log(r.Context(), tx, adminID, "set_user_role", "user", userID, string(data))
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		respondError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, errLastAdmin):
		respondError(w, http.StatusConflict, errLastAdmin.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, "unable to update role")
	default:
		respondJSON(w, http.StatusOK, map[string]string{"id": userID, "role": req.Role})
	}
}

type balanceAdjustmentRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

// AdjustUserBalance applies a signed manual correction, e.g. "-12.50".
func (h *Handler) AdjustUserBalance(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req balanceAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	delta, err := money.ParseMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	userID := chi.URLParam(r, "id")
	balance, err := h.service.AdjustBalance(r.Context(), adminID, userID, delta, req.Note)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"user_id": userID,
		"balance": money.FormatMinor(balance),
	})
}

func (h *Handler) ListFees(w http.ResponseWriter, r *http.Request) {
	rules, err := h.fees.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load fees")
		return
	}
	if rules == nil {
		rules = []models.FeeRule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

type feeRequest struct {
	UserID          string `json:"user_id"`
	TransactionType string `json:"transaction_type"`
	FeeType         string `json:"fee_type"`
	FeeValue        string `json:"fee_value"`
}

func (h *Handler) UpsertFee(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req feeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	kind, ok := models.ParseKind(req.TransactionType)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid transaction type")
		return
	}
	feeType := models.FeeType(req.FeeType)
	value, err := parseFeeValue(feeType, req.FeeValue)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule := models.FeeRule{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		TransactionType: kind,
		FeeType:         feeType,
		FeeValue:        value,
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.fees.Upsert(r.Context(), tx, rule); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"transaction_type": string(kind),
			"fee_type":         req.FeeType,
			"fee_value":        value.String(),
		})
		return h.audit.Log(r.Context(), tx, adminID, "upsert_fee", "user", req.UserID, string(data))
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to save fee")
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *Handler) ListLimits(w http.ResponseWriter, r *http.Request) {
	rules, err := h.limits.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load limits")
		return
	}
	if rules == nil {
		rules = []models.LimitRule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

type limitRequest struct {
	UserID          string  `json:"user_id"`
	TransactionType string  `json:"transaction_type"`
	DailyLimit      *string `json:"daily_limit"`
	WeeklyLimit     *string `json:"weekly_limit"`
	MonthlyLimit    *string `json:"monthly_limit"`
}

func (h *Handler) UpsertLimit(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req limitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	kind, ok := models.ParseKind(req.TransactionType)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid transaction type")
		return
	}
	rule := models.LimitRule{ID: uuid.NewString(), UserID: req.UserID, TransactionType: kind}
	var err error
	for _, field := range []struct {
		raw *string
		dst **int64
	}{
		{req.DailyLimit, &rule.DailyLimit},
		{req.WeeklyLimit, &rule.WeeklyLimit},
		{req.MonthlyLimit, &rule.MonthlyLimit},
	} {
		if *field.dst, err = parseOptionalLimit(field.raw); err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.limits.Upsert(r.Context(), tx, rule); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{
			"transaction_type": kind,
			"daily_limit":      rule.DailyLimit,
			"weekly_limit":     rule.WeeklyLimit,
			"monthly_limit":    rule.MonthlyLimit,
		})
		return h.audit.Log(r.Context(), tx, adminID, "upsert_limit", "user", req.UserID, string(data))
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to save limit")
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *Handler) AdminListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.banks.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load banks")
		return
	}
	respondJSON(w, http.StatusOK, banks)
}

type bankRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateBank(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req bankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := validator.ValidateName(name); err != nil {
		respondError(w, http.StatusBadRequest, "invalid bank name")
		return
	}
	bankID := uuid.NewString()
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.banks.Create(r.Context(), tx, bankID, name); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"name": name})
		return h.audit.Log(r.Context(), tx, adminID, "create_bank", "bank", bankID, string(data))
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create bank")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": bankID, "name": name})
}

func (h *Handler) DeleteBank(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	bankID := chi.URLParam(r, "id")
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		deleted, err := h.banks.Delete(r.Context(), tx, bankID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return sql.ErrNoRows
		}
		return h.audit.Log(r.Context(), tx, adminID, "delete_bank", "bank", bankID, "{}")
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "bank not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to delete bank")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bankAssignmentRequest struct {
	UserIDs []string `json:"user_ids"`
}

// SetBankAssignments replaces the set of users who may withdraw to a bank.
func (h *Handler) SetBankAssignments(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req bankAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	bankID := chi.URLParam(r, "id")
	var added, removed []string
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		current, err := h.banks.AssignedUserIDs(r.Context(), tx, bankID)
		if err != nil {
			return err
		}
		added, removed = diffSets(current, req.UserIDs)
		if err := h.banks.Assign(r.Context(), tx, bankID, added); err != nil {
			return err
		}
		if err := h.banks.Unassign(r.Context(), tx, bankID, removed); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string][]string{"added": added, "removed": removed})
		return h.audit.Log(r.Context(), tx, adminID, "set_bank_users", "bank", bankID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update assignments")
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"added": added, "removed": removed})
}

// diffSets returns the members of want missing from have, and the members
// of have missing from want. Both results are sorted.
func diffSets(have, want []string) ([]string, []string) {
	haveSet := make(map[string]struct{}, len(have))
	for _, id := range have {
		haveSet[id] = struct{}{}
	}
	wantSet := make(map[string]struct{}, len(want))
	added := []string{}
	for _, id := range want {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, seen := wantSet[id]; seen {
			continue
		}
		wantSet[id] = struct{}{}
		if _, ok := haveSet[id]; !ok {
			added = append(added, id)
		}
	}
	removed := []string{}
	for _, id := range have {
		if _, ok := wantSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	onlyMismatched := r.URL.Query().Get("mismatched") == "true"
	rows, err := h.ledger.Reconcile(r.Context(), onlyMismatched)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to reconcile balances")
		return
	}
	normalized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		normalized = append(normalized, map[string]any{
			"user_id":    row.UserID,
			"username":   row.Username,
			"balance":    money.FormatMinor(row.Balance),
			"ledger_sum": money.FormatMinor(row.LedgerSum),
			"difference": money.FormatMinor(row.Difference),
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

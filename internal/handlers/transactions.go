package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"cashora/internal/middleware"
	"cashora/internal/models"
	"cashora/internal/money"
	"cashora/internal/services"

	"github.com/go-chi/chi/v5"
)

type submitTransactionRequest struct {
	Type            string  `json:"type"`
	Amount          string  `json:"amount"`
	ClientRequestID *string `json:"client_request_id"`

	FullName    string `json:"full_name"`
	ReceiptPath string `json:"receipt_path"`

	BankID        string `json:"bank_id"`
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`

	RecipientEmail string `json:"recipient_email"`
}

func (req submitTransactionRequest) toServiceRequest(userID string, amount int64) (services.SubmitRequest, bool) {
	kind, ok := models.ParseKind(req.Type)
	if !ok {
		return nil, false
	}
	base := services.RequestBase{UserID: userID, Amount: amount, ClientRequestID: req.ClientRequestID}
	switch kind {
	case models.KindDeposit:
		return services.DepositRequest{RequestBase: base, DepositorName: req.FullName, ReceiptPath: req.ReceiptPath}, true
	case models.KindWithdrawal:
		return services.WithdrawalRequest{
			RequestBase:   base,
			BankID:        req.BankID,
			AccountHolder: req.AccountHolder,
			AccountNumber: req.AccountNumber,
		}, true
	default:
		return services.SendRequest{RequestBase: base, RecipientEmail: req.RecipientEmail}, true
	}
}

func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req submitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondServiceError(w, services.ErrInvalidAmount)
		return
	}
	submit, ok := req.toServiceRequest(userID, amount)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid transaction type")
		return
	}
	receipt, err := h.service.Submit(r.Context(), submit)
	if err != nil {
		if !isClientError(err) {
			h.log.Error().Err(err).Str("user_id", userID).Str("type", req.Type).Msg("submit failed")
		}
		respondServiceError(w, err)
		return
	}
	out := transactionJSON(receipt.Transaction)
	out["balance"] = money.FormatMinor(receipt.Balance)
	respondJSON(w, http.StatusCreated, out)
}

type previewRequest struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

func (h *Handler) PreviewTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	kind, ok := models.ParseKind(req.Type)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid transaction type")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondServiceError(w, services.ErrInvalidAmount)
		return
	}
	quote, err := h.service.Preview(r.Context(), userID, kind, amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quoteJSON(quote))
}

func quoteJSON(quote services.Quote) map[string]any {
	allowances := make([]map[string]any, 0, len(quote.Allowances))
	for _, allowance := range quote.Allowances {
		allowances = append(allowances, map[string]any{
			"period":    allowance.Period,
			"limit":     money.FormatMinor(allowance.Limit),
			"used":      money.FormatMinor(allowance.Used),
			"remaining": money.FormatMinor(allowance.Remaining),
		})
	}
	out := map[string]any{
		"type":         quote.Kind,
		"amount":       money.FormatMinor(quote.Amount),
		"fee":          money.FormatMinor(quote.Fee),
		"total_amount": money.FormatMinor(quote.Total),
		"balance":      money.FormatMinor(quote.Balance),
		"allowances":   allowances,
		"sufficient":   quote.Sufficient,
	}
	if quote.Violation != nil {
		out["violation"] = *quote.Violation
	}
	return out
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind := r.URL.Query().Get("type")
	if kind != "" {
		parsed, ok := models.ParseKind(kind)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid transaction type")
			return
		}
		kind = string(parsed)
	}
	limit, offset := pageParams(r)
	views, err := h.transactions.ListByUser(r.Context(), userID, kind, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list transactions")
		return
	}
	out := make([]map[string]any, 0, len(views))
	for _, view := range views {
		out = append(out, transactionViewJSON(view))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	txn, err := h.transactions.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load transaction")
		return
	}
	if txn.UserID != userID {
		respondError(w, http.StatusNotFound, "not_found")
		return
	}
	respondJSON(w, http.StatusOK, transactionJSON(txn))
}

func (h *Handler) ListMyBanks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	banks, err := h.banks.ListForUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list banks")
		return
	}
	if banks == nil {
		banks = []models.Bank{}
	}
	respondJSON(w, http.StatusOK, banks)
}

// isClientError reports whether err is a rejection the caller caused.
func isClientError(err error) bool {
	for _, target := range []error{
		services.ErrValidation,
		services.ErrLimitExceeded,
		services.ErrInsufficientFunds,
		services.ErrNotAuthenticated,
		services.ErrAccountNotApproved,
		services.ErrBankNotAssigned,
		services.ErrAlreadyFinalized,
		services.ErrDuplicateRequest,
		services.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

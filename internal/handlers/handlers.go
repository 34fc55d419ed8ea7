package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cashora/internal/models"
	"cashora/internal/money"
	"cashora/internal/services"
	"cashora/internal/store"
)

const (
	maxPageSize = 200
	maxPage     = 10000
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors from the transaction service to
// HTTP statuses. Unknown errors are reported as 500 without detail.
func respondServiceError(w http.ResponseWriter, err error) {
	var limitErr *services.LimitExceededError
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &limitErr):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  "limit_exceeded",
			"period": string(limitErr.Period),
			"limit":  money.FormatMinor(limitErr.Limit),
			"used":   money.FormatMinor(limitErr.Used),
		})
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation_error",
			"field":   validationErr.Field,
			"message": validationErr.Message,
		})
	case errors.Is(err, services.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient_funds")
	case errors.Is(err, services.ErrBankNotAssigned):
		respondError(w, http.StatusBadRequest, "bank_not_assigned")
	case errors.Is(err, services.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrAccountNotApproved):
		respondError(w, http.StatusForbidden, "account_not_approved")
	case errors.Is(err, services.ErrAlreadyFinalized):
		respondError(w, http.StatusConflict, "already_finalized")
	case errors.Is(err, services.ErrDuplicateRequest):
		respondError(w, http.StatusConflict, "duplicate_request")
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func pageParams(r *http.Request) (int, int) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := parseInt(query.Get("page"), 1)
	if page > maxPage {
		page = maxPage
	}
	return limit, (page - 1) * limit
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func transactionJSON(txn models.Transaction) map[string]any {
	out := map[string]any{
		"id":           txn.ID,
		"user_id":      txn.UserID,
		"type":         txn.Kind,
		"status":       txn.Status,
		"amount":       money.FormatMinor(txn.Amount),
		"fee":          money.FormatMinor(txn.Fee),
		"total_amount": money.FormatMinor(txn.TotalAmount),
		"created_at":   txn.CreatedAt,
	}
	optional := map[string]*string{
		"bank_id":           txn.BankID,
		"account_holder":    txn.AccountHolder,
		"account_number":    txn.AccountNumber,
		"recipient_email":   txn.RecipientEmail,
		"receipt_path":      txn.ReceiptPath,
		"full_name":         txn.DepositorName,
		"client_request_id": txn.ClientRequestID,
		"reject_reason":     txn.RejectReason,
		"decided_by":        txn.DecidedBy,
	}
	for key, value := range optional {
		if value != nil {
			out[key] = *value
		}
	}
	if txn.DecidedAt != nil {
		out["decided_at"] = *txn.DecidedAt
	}
	return out
}

func transactionViewJSON(view store.TransactionView) map[string]any {
	out := transactionJSON(view.Transaction)
	out["username"] = derefString(view.Username)
	out["email"] = derefString(view.Email)
	if view.BankName != nil {
		out["bank_name"] = *view.BankName
	}
	return out
}

func profileJSON(profile models.Profile) map[string]any {
	out := map[string]any{
		"id":         profile.ID,
		"username":   profile.Username,
		"email":      profile.Email,
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"balance":    money.FormatMinor(profile.Balance),
		"status":     profile.Status,
		"role":       profile.Role,
		"created_at": profile.CreatedAt,
	}
	if profile.IDCardPath != nil {
		out["id_card_path"] = *profile.IDCardPath
	}
	if profile.DateOfBirth != nil {
		out["date_of_birth"] = profile.DateOfBirth.Format(dateLayout)
	}
	for key, value := range map[string]*string{
		"place_of_birth": profile.PlaceOfBirth,
		"residence":      profile.Residence,
		"nationality":    profile.Nationality,
	} {
		if value != nil {
			out[key] = *value
		}
	}
	return out
}

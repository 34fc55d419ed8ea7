package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"cashora/internal/models"
)

// LookupRecipient resolves a send recipient by email so clients can confirm
// the name before submitting. Only approved profiles are returned.
func (h *Handler) LookupRecipient(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}
	profile, err := h.profiles.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load user")
		return
	}
	if profile.Status != models.StatusApproved {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":         profile.ID,
		"username":   profile.Username,
		"email":      profile.Email,
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
	})
}

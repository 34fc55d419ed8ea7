package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cashora/internal/auth"
	"cashora/internal/db"
	"cashora/internal/middleware"
	"cashora/internal/models"
	"cashora/internal/notify"
	"cashora/internal/store"
	"cashora/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type registerRequest struct {
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	IDCardPath *string `json:"id_card_path"`
	kycFields
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
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
	}
	if err := req.kycFields.apply(&input, time.Now()); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := input.ID
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		// WithTx may retry; role and status come from this attempt's read only.
		input.Role, input.Status = models.RoleUser, models.StatusPending
		hasAdmin, err := h.admins.HasAnyAdmin(r.Context(), tx)
		if err != nil {
			return err
		}
		if !hasAdmin {
			input.Role, input.Status = models.RoleAdmin, models.StatusApproved
		}
		if err := h.profiles.Create(r.Context(), tx, input); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"user_id":    userID,
			"role":       input.Role,
			"ip":         r.RemoteAddr,
			"user_agent": r.UserAgent(),
		})
		return h.audit.Log(r.Context(), tx, userID, "register", "user", userID, string(data))
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "username or email already exists")
			return
		}
		h.log.Error().Err(err).Msg("registration failed")
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	h.notifier.Dispatch(notify.Welcome(req.Email, strings.TrimSpace(req.FirstName)))

	token, err := auth.GenerateToken(h.cfg.JWTSecret, userID, input.Role, h.cfg.TokenTTL())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"token": token,
		"role":  input.Role,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	profile, err := h.profiles.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !auth.CheckPassword(profile.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		data, _ := json.Marshal(map[string]string{
			"user_id":    profile.ID,
			"ip":         r.RemoteAddr,
			"user_agent": r.UserAgent(),
		})
		return h.audit.Log(r.Context(), tx, profile.ID, "login", "user", profile.ID, string(data))
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, profile.ID, profile.Role, h.cfg.TokenTTL())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"role":  profile.Role,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.profiles.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load user")
		return
	}
	respondJSON(w, http.StatusOK, profileJSON(profile))
}

package handlers

import (
	"net/http"
	"strings"

	"cashora/internal/auth"
	"cashora/internal/money"
	"cashora/internal/websocket"
)

func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	profile, err := h.profiles.GetByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	websocket.ServeWS(w, r, h.hub, profile.ID, websocket.BalanceUpdate{
		Balance:      money.FormatMinor(profile.Balance),
		BalanceMinor: profile.Balance,
		Reason:       "snapshot",
	})
}

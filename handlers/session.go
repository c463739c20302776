// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

// Actions that require an action token
const (
	ActionUpdateMemberStatus   = "update_member_status"
	ActionGetMemberDetails     = "get_member_details"
	ActionGetNotifications     = "get_notifications"
	ActionMarkNotificationRead = "mark_notification_read"
	ActionGetStat              = "get_stat"
	ActionUpdateProfile        = "update_profile"
	ActionChangePassword       = "change_password"
)

var adminActions = []string{ActionUpdateMemberStatus, ActionGetMemberDetails}

var memberActions = []string{
	ActionGetNotifications, ActionMarkNotificationRead, ActionGetStat, ActionUpdateProfile, ActionChangePassword,
}

type SessionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewSessionHandler(db *sql.DB, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{db: db, cfg: cfg}
}

// Login handles POST /auth/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if middleware.IsFormEncoded(r) {
		fields, err := middleware.ParseFormBody(r)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid form body")
			return
		}
		req.Email, req.Password = fields["email"], fields["password"]
	} else if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := GetUserByEmail(r.Context(), h.db, req.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		slog.Error("failed to load user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}
	if err != nil || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	now := time.Now()
	token, err := auth.IssueSession(user.ID, user.Role, h.cfg.SessionSecret, h.cfg.SessionTTL, now)
	if err != nil {
		slog.Error("failed to issue session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}
	expires := now.Add(h.cfg.SessionTTL)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expires.UTC(),
		UserID:    user.ID,
		Role:      user.Role,
	})
}

// Logout handles POST /auth/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{Success: true, Message: "Logged out"})
}

// ActionToken handles GET /auth/action-token?action=...
func (h *SessionHandler) ActionToken(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())
	action := r.URL.Query().Get("action")

	switch {
	case lo.Contains(memberActions, action):
	case lo.Contains(adminActions, action):
		if !claims.IsAdmin() {
			middleware.ErrorResponse(w, http.StatusForbidden, "Unauthorized access")
			return
		}
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown action")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ActionTokenResponse{
		Action: action,
		Token:  auth.GenerateActionToken(claims.UserID, action, h.cfg.ActionTokenSalt, time.Now()),
	})
}

// optionalSession returns the claims of a valid session, or nil
func optionalSession(r *http.Request, secret string) *auth.SessionClaims {
	token := middleware.SessionToken(r)
	if token == "" {
		return nil
	}
	claims, err := auth.ParseSession(token, secret)
	if err != nil {
		return nil
	}
	return claims
}

func sessionUserID(r *http.Request, secret string) string {
	if claims := optionalSession(r, secret); claims != nil {
		return claims.UserID
	}
	return ""
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

var ErrEmailTaken = errors.New("email already registered")

// UpdateProfile applies the fields of the profile form. Identity fields go to
// the user record; everything else is merged into the member's custom fields.
// An invalid e-mail is ignored.
func UpdateProfile(ctx context.Context, conn *sql.DB, userID string, form models.Form, data map[string]string, now time.Time) error {
	user, err := GetUser(ctx, conn, userID)
	if err != nil {
		return err
	}
	member, err := GetMemberByUserID(ctx, conn, userID)
	if err != nil {
		return err
	}

	custom := lo.Assign(map[string]string{}, member.CustomFields)
	for _, f := range form.Fields {
		value, ok := data[f.Name]
		if !ok || lo.Contains(secretFields, f.Name) {
			continue
		}
		value = strings.TrimSpace(value)

		switch f.Name {
		case "first_name":
			user.FirstName = value
		case "last_name":
			user.LastName = value
		case "display_name":
			user.DisplayName = value
		case "email":
			if isValidEmail(strings.ToLower(value)) {
				user.Email = strings.ToLower(value)
			}
		case "phone":
			user.Phone = value
			custom[f.Name] = value
		default:
			custom[f.Name] = value
		}
	}

	taken, err := emailTaken(ctx, conn, user.Email, userID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}

	raw, _ := json.Marshal(custom)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET email = $1, first_name = $2, last_name = $3, display_name = $4, phone = $5
		WHERE id = $6
	`, user.Email, user.FirstName, user.LastName, user.DisplayName, user.Phone, userID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE member SET custom_fields = $1, updated_at = $2 WHERE id = $3`,
		string(raw), now.UTC(), member.ID)
	if err != nil {
		return fmt.Errorf("update custom fields: %w", err)
	}

	return tx.Commit()
}

// ChangePassword verifies the current password and stores the new one.
// A non-empty message is a user-facing rejection.
func ChangePassword(ctx context.Context, conn *sql.DB, userID string, req models.ChangePasswordRequest) (string, error) {
	user, err := GetUser(ctx, conn, userID)
	if err != nil {
		return "", err
	}
	if auth.CheckPassword(user.PasswordHash, req.CurrentPassword) != nil {
		return "Current password is incorrect.", nil
	}
	if len(req.NewPassword) < auth.MinPasswordLength {
		return fmt.Sprintf("New password must be at least %d characters long.", auth.MinPasswordLength), nil
	}
	if len(req.NewPassword) > auth.MaxPasswordLength {
		return fmt.Sprintf("New password must be at most %d bytes long.", auth.MaxPasswordLength), nil
	}
	if req.NewPassword != req.ConfirmPassword {
		return "New passwords do not match.", nil
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return fmt.Sprintf("New password must be at most %d bytes long.", auth.MaxPasswordLength), nil
	}
	if err != nil {
		return "", err
	}
	if _, err := conn.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, userID); err != nil {
		return "", fmt.Errorf("update password: %w", err)
	}
	return "", nil
}

type ProfileHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewProfileHandler(db *sql.DB, cfg cliparse.Config) *ProfileHandler {
	return &ProfileHandler{db: db, cfg: cfg}
}

// UpdateProfile handles POST /profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())

	var req models.SubmitFormRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	form, err := GetFormByType(r.Context(), h.db, models.FormProfile)
	if errors.Is(err, ErrFormNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Profile form not found")
		return
	}
	if err != nil {
		slog.Error("failed to load profile form", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	err = UpdateProfile(r.Context(), h.db, claims.UserID, form, req.Fields, time.Now())
	switch {
	case errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrUserNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Member not found")
		return
	case errors.Is(err, ErrEmailTaken):
		middleware.ErrorResponse(w, http.StatusUnprocessableEntity, "Email already registered")
		return
	case err != nil:
		slog.Error("failed to update profile", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	slog.Info("profile updated", "user_id", claims.UserID)
	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{Success: true, Message: "Profile updated successfully."})
}

// ChangePassword handles POST /profile/password
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())

	var req models.ChangePasswordRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	msg, err := ChangePassword(r.Context(), h.db, claims.UserID, req)
	if errors.Is(err, ErrUserNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		slog.Error("failed to change password", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to change password")
		return
	}
	if msg != "" {
		middleware.ErrorResponse(w, http.StatusUnprocessableEntity, msg)
		return
	}

	slog.Info("password changed", "user_id", claims.UserID)
	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{Success: true, Message: "Password changed successfully."})
}

// Me handles GET /me: the member dashboard payload
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())

	resp, err := LoadMemberDashboard(r.Context(), h.db, claims.UserID, time.Now())
	if errors.Is(err, ErrMemberNotFound) || errors.Is(err, ErrUserNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		slog.Error("failed to load dashboard", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// LoadMemberDashboard collects the user, member, statistics and unread count
func LoadMemberDashboard(ctx context.Context, conn *sql.DB, userID string, now time.Time) (models.MemberDashboardResponse, error) {
	var resp models.MemberDashboardResponse
	var err error

	if resp.User, err = GetUser(ctx, conn, userID); err != nil {
		return resp, err
	}
	if resp.Member, err = GetMemberByUserID(ctx, conn, userID); err != nil {
		return resp, err
	}
	if resp.Statistics, err = GetMemberStatistics(ctx, conn, userID, now); err != nil {
		return resp, err
	}
	if resp.Unread, err = CountUnread(ctx, conn, userID); err != nil {
		return resp, err
	}
	return resp, nil
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

// NotificationLimit is how many notifications a member sees at once
const NotificationLimit = 10

var ErrNotificationNotFound = errors.New("notification not found")

// AddNotification stores an in-app notification. actionURL may be empty.
func AddNotification(ctx context.Context, conn *sql.DB, userID, title, message, kind, actionURL string, now time.Time) (string, error) {
	id, err := auth.GenerateID(12)
	if err != nil {
		return "", err
	}

	var action *string
	if actionURL != "" {
		action = &actionURL
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO notification (id, user_id, title, message, notification_type, is_read, action_url, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
	`, id, userID, title, message, kind, action, now.UTC())
	if err != nil {
		return "", fmt.Errorf("add notification: %w", err)
	}
	return id, nil
}

// ListNotifications returns the newest notifications of a user
func ListNotifications(ctx context.Context, conn *sql.DB, userID string, limit int) ([]models.Notification, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, user_id, title, message, notification_type, is_read, action_url, created_at, read_at
		FROM notification
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var action sql.NullString
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &action, &n.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if action.Valid {
			n.ActionURL = &action.String
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags a notification owned by userID as read
func MarkNotificationRead(ctx context.Context, conn *sql.DB, notificationID, userID string, now time.Time) error {
	res, err := conn.ExecContext(ctx, `
		UPDATE notification SET is_read = TRUE, read_at = $1
		WHERE id = $2 AND user_id = $3
	`, now.UTC(), notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// CountUnread returns the number of unread notifications
func CountUnread(ctx context.Context, conn *sql.DB, userID string) (int, error) {
	var n int
	err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND is_read = FALSE`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

type NotificationHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewNotificationHandler(db *sql.DB, cfg cliparse.Config) *NotificationHandler {
	return &NotificationHandler{db: db, cfg: cfg}
}

// List handles GET /notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())

	notifications, err := ListNotifications(r.Context(), h.db, claims.UserID, NotificationLimit)
	if err != nil {
		slog.Error("failed to list notifications", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load notifications")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, notifications)
}

// MarkRead handles POST /notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())
	notificationID := r.PathValue("id")

	err := MarkNotificationRead(r.Context(), h.db, notificationID, claims.UserID, time.Now())
	if errors.Is(err, ErrNotificationNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Notification not found")
		return
	}
	if err != nil {
		slog.Error("failed to mark notification", "error", err, "notification_id", notificationID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update notification")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{Success: true, Message: "Notification marked as read"})
}

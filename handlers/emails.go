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

	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/mailer"
	"github.com/danielhkuo/mlm-members/metrics"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

var ErrTemplateNotFound = errors.New("email template not found")

func scanTemplate(row rowScanner) (models.EmailTemplate, error) {
	var t models.EmailTemplate
	var vars sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.Type, &t.Subject, &t.Content, &vars, &t.Status, &t.UpdatedAt); err != nil {
		return t, err
	}
	t.Variables = []string{}
	if vars.Valid && vars.String != "" {
		if err := json.Unmarshal([]byte(vars.String), &t.Variables); err != nil {
			slog.Warn("ignoring malformed template variables", "template", t.Name, "error", err)
			t.Variables = []string{}
		}
	}
	return t, nil
}

// GetActiveTemplate loads an active template by name
func GetActiveTemplate(ctx context.Context, conn *sql.DB, name string) (models.EmailTemplate, error) {
	row := conn.QueryRowContext(ctx, `
		SELECT id, name, template_type, subject, content, variables, status, updated_at
		FROM email_template WHERE name = $1 AND status = 'active'
	`, name)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrTemplateNotFound
	}
	if err != nil {
		return t, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// SendTemplateEmail renders the named template and hands it to the sender.
// Missing templates and delivery failures are logged and reported as false.
func SendTemplateEmail(ctx context.Context, conn *sql.DB, sender mailer.Sender, name, to string, vars map[string]string) bool {
	if to == "" {
		return false
	}

	tpl, err := GetActiveTemplate(ctx, conn, name)
	if err != nil {
		slog.Warn("email not sent", "template", name, "error", err)
		return false
	}

	subject, body := mailer.Render(tpl.Subject, tpl.Content, vars)
	if err := sender.Send(ctx, mailer.Message{To: []string{to}, Subject: subject, Body: body}); err != nil {
		metrics.MailFailures.Inc()
		slog.Error("email delivery failed", "template", name, "to", to, "error", err)
		return false
	}

	slog.Info("email sent", "template", name, "to", to)
	return true
}

// memberAreaURL is the configured member area or the site root
func memberAreaURL(settings models.GeneralSettings, cfg cliparse.Config) string {
	if settings.MemberAreaURL != "" {
		return settings.MemberAreaURL
	}
	return cfg.SiteURL
}

type EmailTemplateHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewEmailTemplateHandler(db *sql.DB, cfg cliparse.Config) *EmailTemplateHandler {
	return &EmailTemplateHandler{db: db, cfg: cfg}
}

// ListTemplates handles GET /admin/email-templates
func (h *EmailTemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, name, template_type, subject, content, variables, status, updated_at
		FROM email_template ORDER BY name
	`)
	if err != nil {
		slog.Error("failed to list templates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}
	defer rows.Close()

	templates := []models.EmailTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			slog.Error("failed to scan template", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list templates")
			return
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate templates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, templates)
}

// UpdateTemplate handles PUT /admin/email-templates/{name}
func (h *EmailTemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req models.UpdateEmailTemplateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" || strings.TrimSpace(req.Content) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "subject and content are required")
		return
	}
	if req.Status == "" {
		req.Status = models.RecordActive
	}
	if req.Status != models.RecordActive && req.Status != models.RecordInactive {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid status")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE email_template SET subject = $1, content = $2, status = $3, updated_at = $4
		WHERE name = $5
	`, req.Subject, req.Content, req.Status, time.Now().UTC(), name)
	if err != nil {
		slog.Error("failed to update template", "error", err, "template", name)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update template")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Template not found")
		return
	}

	slog.Info("email template updated", "template", name)
	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{Success: true, Message: "Template updated"})
}

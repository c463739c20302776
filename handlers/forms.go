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
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

var (
	ErrFormNotFound   = errors.New("form not found")
	ErrInvalidForm    = errors.New("invalid form definition")
	ErrFieldViolation = errors.New("field validation failed")
)

// Form settings keys read by the submission pipeline
const (
	SettingAutoActivate     = "auto_activate"
	SettingSendWelcomeEmail = "send_welcome_email"
	SettingRequireSponsor   = "require_sponsor"
	SettingRedirect         = "redirect_after_submit"
)

// FieldTypes lists the input types a form field may use
var FieldTypes = []string{"text", "email", "tel", "url", "number", "password", "date", "textarea", "select", "radio", "checkbox"}

var formTypes = []string{models.FormRegistration, models.FormProfile, models.FormProspect, models.FormSubscribe, models.FormCustom}

var phonePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)

// SettingBool reads a boolean form setting. Builders store checkboxes as
// strings, so "1", "true", "yes" and "on" count as true.
func SettingBool(settings json.RawMessage, key string) bool {
	v := gjson.GetBytes(settings, key)
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return lo.Contains([]string{"1", "true", "yes", "on"}, strings.ToLower(strings.TrimSpace(v.Str)))
	default:
		return false
	}
}

// SettingString reads a string form setting, empty when absent
func SettingString(settings json.RawMessage, key string) string {
	return gjson.GetBytes(settings, key).String()
}

func isValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

func fieldLabel(f models.FormField) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// ValidateSubmission checks required fields and per-type syntax. The first
// violation is returned wrapped in ErrFieldViolation.
func ValidateSubmission(fields []models.FormField, data map[string]string) error {
	for _, f := range fields {
		value := strings.TrimSpace(data[f.Name])
		if value == "" {
			if f.Required {
				return fmt.Errorf("%w: Field %q is required", ErrFieldViolation, fieldLabel(f))
			}
			continue
		}

		var ok = true
		var want string
		switch f.Type {
		case "email":
			ok, want = isValidEmail(value), "a valid email address"
		case "tel":
			ok, want = phonePattern.MatchString(value), "a valid phone number"
		case "url":
			u, err := url.ParseRequestURI(value)
			ok, want = err == nil && u.Scheme != "" && u.Host != "", "a valid URL"
		case "number":
			_, err := strconv.ParseFloat(value, 64)
			ok, want = err == nil, "a number"
		case "select", "radio":
			if len(f.Options) > 0 {
				ok, want = lo.Contains(f.Options, value), "one of the listed options"
			}
		}
		if !ok {
			return fmt.Errorf("%w: Field %q must be %s", ErrFieldViolation, fieldLabel(f), want)
		}
	}
	return nil
}

// violationMessage strips the sentinel prefix for user-facing output
func violationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrFieldViolation.Error()+": ")
}

func validateFormDefinition(req models.SaveFormRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidForm)
	}
	if !lo.Contains(formTypes, req.Type) {
		return fmt.Errorf("%w: unknown form type %q", ErrInvalidForm, req.Type)
	}
	if len(req.Fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", ErrInvalidForm)
	}

	seen := map[string]bool{}
	for i, f := range req.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidForm, i+1)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field name %q", ErrInvalidForm, f.Name)
		}
		seen[f.Name] = true
		if !lo.Contains(FieldTypes, f.Type) {
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidForm, f.Name, f.Type)
		}
	}

	if req.Type == models.FormRegistration {
		for _, name := range []string{"email", "password", "confirm_password"} {
			if !seen[name] {
				return fmt.Errorf("%w: registration forms need a %q field", ErrInvalidForm, name)
			}
		}
	}

	if len(req.Settings) > 0 && !gjson.ParseBytes(req.Settings).IsObject() {
		return fmt.Errorf("%w: settings must be a JSON object", ErrInvalidForm)
	}
	if req.Status != "" && req.Status != models.RecordActive && req.Status != models.RecordInactive {
		return fmt.Errorf("%w: invalid status %q", ErrInvalidForm, req.Status)
	}
	return nil
}

const formColumns = `id, name, form_type, fields, settings, status, created_by, created_at, updated_at`

func scanForm(row rowScanner) (models.Form, error) {
	var f models.Form
	var fields string
	var settings sql.NullString
	if err := row.Scan(&f.ID, &f.Name, &f.Type, &fields, &settings, &f.Status, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return f, err
	}
	if err := json.Unmarshal([]byte(fields), &f.Fields); err != nil {
		return f, fmt.Errorf("decode fields of form %s: %w", f.ID, err)
	}
	f.Settings = json.RawMessage(`{}`)
	if settings.Valid && gjson.Valid(settings.String) {
		f.Settings = json.RawMessage(settings.String)
	}
	return f, nil
}

func queryForm(ctx context.Context, conn *sql.DB, query string, args ...any) (models.Form, error) {
	f, err := scanForm(conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return f, ErrFormNotFound
	}
	if err != nil {
		return f, fmt.Errorf("get form: %w", err)
	}
	return f, nil
}

// GetForm loads an active form by ID
func GetForm(ctx context.Context, conn *sql.DB, formID string) (models.Form, error) {
	return queryForm(ctx, conn, `SELECT `+formColumns+` FROM form WHERE id = $1 AND status = 'active'`, formID)
}

// GetFormByType returns the newest active form of a type
func GetFormByType(ctx context.Context, conn *sql.DB, formType string) (models.Form, error) {
	return queryForm(ctx, conn, `
		SELECT `+formColumns+` FROM form
		WHERE form_type = $1 AND status = 'active'
		ORDER BY created_at DESC LIMIT 1
	`, formType)
}

type FormHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewFormHandler(db *sql.DB, cfg cliparse.Config) *FormHandler {
	return &FormHandler{db: db, cfg: cfg}
}

// GetForm handles GET /forms/{id}
func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := GetForm(r.Context(), h.db, r.PathValue("id"))
	if errors.Is(err, ErrFormNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Form not found")
		return
	}
	if err != nil {
		slog.Error("failed to get form", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to get form")
		return
	}
	if form.Type == models.FormRegistration {
		recordReferralClick(r, h.db)
	}
	middleware.JSONResponse(w, http.StatusOK, form)
}

// ListForms handles GET /admin/forms
func (h *FormHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	query := `SELECT ` + formColumns + ` FROM form`
	var args []any
	if t := r.URL.Query().Get("type"); t != "" {
		query += ` WHERE form_type = $1`
		args = append(args, t)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		slog.Error("failed to list forms", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list forms")
		return
	}
	defer rows.Close()

	forms := []models.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			slog.Error("failed to scan form", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list forms")
			return
		}
		forms = append(forms, f)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate forms", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list forms")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, forms)
}

// CreateForm handles POST /admin/forms
func (h *FormHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var req models.SaveFormRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := validateFormDefinition(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	formID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate form ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create form")
		return
	}

	fields, _ := json.Marshal(req.Fields)
	settings := settingsText(req.Settings)
	status := lo.Ternary(req.Status == "", models.RecordActive, req.Status)
	createdBy := ""
	if claims := middleware.SessionFrom(r.Context()); claims != nil {
		createdBy = claims.UserID
	}
	now := time.Now().UTC()

	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO form (id, name, form_type, fields, settings, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, formID, strings.TrimSpace(req.Name), req.Type, string(fields), settings, status, createdBy, now)
	if err != nil {
		slog.Error("failed to insert form", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create form")
		return
	}

	slog.Info("form created", "form_id", formID, "type", req.Type)

	form, err := queryForm(r.Context(), h.db, `SELECT `+formColumns+` FROM form WHERE id = $1`, formID)
	if err != nil {
		slog.Error("failed to reload form", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create form")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, form)
}

// UpdateForm handles PUT /admin/forms/{id}
func (h *FormHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	formID := r.PathValue("id")

	var req models.SaveFormRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := validateFormDefinition(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	fields, _ := json.Marshal(req.Fields)
	status := lo.Ternary(req.Status == "", models.RecordActive, req.Status)

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE form SET name = $1, form_type = $2, fields = $3, settings = $4, status = $5, updated_at = $6
		WHERE id = $7
	`, strings.TrimSpace(req.Name), req.Type, string(fields), settingsText(req.Settings), status, time.Now().UTC(), formID)
	if err != nil {
		slog.Error("failed to update form", "error", err, "form_id", formID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update form")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Form not found")
		return
	}

	slog.Info("form updated", "form_id", formID)
	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{Success: true, Message: "Form saved"})
}

// DeleteForm handles DELETE /admin/forms/{id}
func (h *FormHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	formID := r.PathValue("id")

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete form")
		return
	}
	defer tx.Rollback()

	// SQLite does not enforce the cascade unless foreign keys are enabled
	if _, err := tx.ExecContext(r.Context(), `DELETE FROM form_submission WHERE form_id = $1`, formID); err != nil {
		slog.Error("failed to delete submissions", "error", err, "form_id", formID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete form")
		return
	}
	res, err := tx.ExecContext(r.Context(), `DELETE FROM form WHERE id = $1`, formID)
	if err != nil {
		slog.Error("failed to delete form", "error", err, "form_id", formID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete form")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Form not found")
		return
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit form deletion", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete form")
		return
	}

	slog.Info("form deleted", "form_id", formID)
	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{Success: true, Message: "Form deleted"})
}

func settingsText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

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
	"github.com/danielhkuo/mlm-members/db"
	"github.com/danielhkuo/mlm-members/mailer"
	"github.com/danielhkuo/mlm-members/metrics"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

// Fields never copied into stored payloads or custom fields
var secretFields = []string{"password", "confirm_password"}

// Submission is one form post with the context it arrived in
type Submission struct {
	Data         map[string]string
	ReferrerID   string // member ID from the referral cookie
	ReferrerCode string // member code typed into the form
	UserID       string // logged-in submitter, if any
	Hit          Hit
}

// RegistrationResult is the outcome of a submission. Rejections have
// Success false and a user-facing Message.
type RegistrationResult struct {
	Success  bool
	Message  string
	UserID   string
	MemberID string
	Redirect string
}

func rejected(message string) RegistrationResult {
	return RegistrationResult{Message: message}
}

// Pipeline processes form submissions and registrations
type Pipeline struct {
	DB     *sql.DB
	Config cliparse.Config
	Mail   mailer.Sender
	Now    func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ProcessSubmission validates a submission against its form. Registration
// forms go through RegisterMember; other forms store a pending submission.
func (p *Pipeline) ProcessSubmission(ctx context.Context, form models.Form, sub Submission) (RegistrationResult, error) {
	if form.Type == models.FormRegistration {
		return p.RegisterMember(ctx, form, sub)
	}

	if err := ValidateSubmission(form.Fields, sub.Data); err != nil {
		return rejected(violationMessage(err)), nil
	}

	if err := p.storeSubmission(ctx, p.DB, form.ID, sub, models.SubmissionPending, sub.UserID); err != nil {
		return RegistrationResult{}, err
	}

	slog.Info("form submitted", "form_id", form.ID, "type", form.Type)
	return RegistrationResult{
		Success:  true,
		Message:  "Form submitted successfully",
		Redirect: SettingString(form.Settings, SettingRedirect),
	}, nil
}

// RegisterMember turns a registration submission into a user and a member.
// All validation happens before anything is written; the writes share one
// transaction. Mail and notifications follow the commit and never fail the
// registration.
func (p *Pipeline) RegisterMember(ctx context.Context, form models.Form, sub Submission) (RegistrationResult, error) {
	result, err := p.registerMember(ctx, form, sub)
	switch {
	case err != nil:
		metrics.Registrations.WithLabelValues("error").Inc()
	case result.Success:
		metrics.Registrations.WithLabelValues("accepted").Inc()
	default:
		metrics.Registrations.WithLabelValues("rejected").Inc()
		slog.Info("registration rejected", "form_id", form.ID, "reason", result.Message)
	}
	return result, err
}

func (p *Pipeline) registerMember(ctx context.Context, form models.Form, sub Submission) (RegistrationResult, error) {
	data := sub.Data
	if err := ValidateSubmission(form.Fields, data); err != nil {
		return rejected(violationMessage(err)), nil
	}

	email := strings.ToLower(strings.TrimSpace(data["email"]))
	if !isValidEmail(email) {
		return rejected("Invalid email address"), nil
	}
	taken, err := emailTaken(ctx, p.DB, email, "")
	if err != nil {
		return RegistrationResult{}, err
	}
	if taken {
		return rejected("Email already registered"), nil
	}

	password := data["password"]
	if len(password) < auth.MinPasswordLength {
		return rejected(fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength)), nil
	}
	if len(password) > auth.MaxPasswordLength {
		return rejected(fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordLength)), nil
	}
	if password != data["confirm_password"] {
		return rejected("Passwords do not match"), nil
	}

	settings, err := LoadGeneralSettings(ctx, p.DB)
	if err != nil {
		return RegistrationResult{}, err
	}

	sponsor, msg, err := p.resolveSponsor(ctx, sub, settings)
	if err != nil {
		return RegistrationResult{}, err
	}
	if msg != "" {
		return rejected(msg), nil
	}
	if sponsor == nil && SettingBool(form.Settings, SettingRequireSponsor) {
		return rejected("A sponsor is required to register"), nil
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return rejected(fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordLength)), nil
	}
	if err != nil {
		return RegistrationResult{}, err
	}

	firstName := strings.TrimSpace(data["first_name"])
	lastName := strings.TrimSpace(data["last_name"])
	displayName := strings.TrimSpace(firstName + " " + lastName)
	if displayName == "" {
		displayName = email
	}

	status := models.StatusPending
	if SettingBool(form.Settings, SettingAutoActivate) || settings.AutoApproveMembers {
		status = models.StatusActive
	}

	now := p.now().UTC()
	userID, err := auth.GenerateID(12)
	if err != nil {
		return RegistrationResult{}, err
	}
	memberID, err := auth.GenerateID(12)
	if err != nil {
		return RegistrationResult{}, err
	}

	custom, _ := json.Marshal(lo.OmitByKeys(data, secretFields))

	var sponsorID *string
	level := 1
	if sponsor != nil {
		sponsorID = &sponsor.ID
		level = sponsor.LevelPosition + 1
	}
	var activation *time.Time
	if status == models.StatusActive {
		activation = &now
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return RegistrationResult{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, display_name, phone, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, userID, email, hash, firstName, lastName, displayName, strings.TrimSpace(data["phone"]), auth.RoleMember, now)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("insert user: %w", err)
	}

	code, err := generateUniqueMemberCode(ctx, tx)
	if err != nil {
		return RegistrationResult{}, err
	}
	replica := ReplicaURL(p.Config.SiteURL, settings.ReplicaURLType, code)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO member (id, user_id, sponsor_id, member_code, status, registration_date, activation_date,
			replica_url, level_position, custom_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $6, $6)
	`, memberID, userID, sponsorID, code, status, now, activation, replica, level, string(custom))
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("insert member: %w", err)
	}

	if sponsor != nil {
		if err := UpdateReferralCount(ctx, tx, sponsor.ID); err != nil {
			return RegistrationResult{}, err
		}
	}

	sub.ReferrerID = lo.FromPtr(sponsorID)
	if err := p.storeSubmission(ctx, tx, form.ID, sub, models.SubmissionProcessed, userID); err != nil {
		return RegistrationResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return RegistrationResult{}, fmt.Errorf("commit registration: %w", err)
	}

	slog.Info("member registered", "member_id", memberID, "user_id", userID, "status", status, "sponsor_id", lo.FromPtr(sponsorID))

	areaURL := memberAreaURL(settings, p.Config)
	if SettingBool(form.Settings, SettingSendWelcomeEmail) {
		SendTemplateEmail(ctx, p.DB, p.Mail, db.TemplateWelcome, email, map[string]string{
			"member_name":     displayName,
			"member_code":     code,
			"replica_url":     replica,
			"member_area_url": areaURL,
		})
	}

	if sponsor != nil {
		p.notifySponsor(ctx, *sponsor, displayName, settings, areaURL, sub.Hit, now)
	}

	redirect := SettingString(form.Settings, SettingRedirect)
	if redirect == "" {
		redirect = settings.SuccessURL
	}

	return RegistrationResult{
		Success:  true,
		Message:  "Registration successful! Please check your email for login details.",
		UserID:   userID,
		MemberID: memberID,
		Redirect: redirect,
	}, nil
}

// resolveSponsor picks the sponsor: a typed code, then the referral cookie,
// then the configured default. A non-empty message rejects the submission.
func (p *Pipeline) resolveSponsor(ctx context.Context, sub Submission, settings models.GeneralSettings) (*models.Member, string, error) {
	code := strings.TrimSpace(sub.ReferrerCode)
	if code == "" {
		code = strings.TrimSpace(sub.Data["sponsor_code"])
	}
	if code != "" {
		m, err := GetMemberByCode(ctx, p.DB, code)
		if errors.Is(err, ErrMemberNotFound) {
			return nil, "Invalid sponsor code", nil
		}
		if err != nil {
			return nil, "", err
		}
		return &m, "", nil
	}

	candidates := []string{sub.ReferrerID}
	if settings.DefaultSponsor != models.DefaultSponsorRandom {
		candidates = append(candidates, settings.DefaultSponsor)
	}
	for _, id := range lo.Compact(candidates) {
		m, err := GetMemberByID(ctx, p.DB, id)
		if errors.Is(err, ErrMemberNotFound) {
			slog.Warn("ignoring unknown sponsor", "member_id", id)
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return &m, "", nil
	}
	return nil, "", nil
}

func (p *Pipeline) notifySponsor(ctx context.Context, sponsor models.Member, referralName string, settings models.GeneralSettings, areaURL string, hit Hit, now time.Time) {
	if err := RecordStatistic(ctx, p.DB, sponsor.UserID, models.StatConversion, 1, hit, now); err != nil {
		slog.Error("failed to record conversion", "error", err, "sponsor_id", sponsor.ID)
	}

	if !settings.EnableNotifications {
		return
	}

	user, err := GetUser(ctx, p.DB, sponsor.UserID)
	if err != nil {
		slog.Warn("sponsor notification skipped", "sponsor_id", sponsor.ID, "error", err)
		return
	}

	networkURL := areaURL + "?page=network"
	SendTemplateEmail(ctx, p.DB, p.Mail, db.TemplateNewReferral, user.Email, map[string]string{
		"sponsor_name":      user.DisplayName,
		"referral_name":     referralName,
		"registration_date": now.Format("January 2, 2006"),
		"network_url":       networkURL,
	})

	_, err = AddNotification(ctx, p.DB, sponsor.UserID, "New Referral!",
		fmt.Sprintf("You have a new referral: %s", referralName), models.NotifySuccess, networkURL, now)
	if err != nil {
		slog.Error("failed to add notification", "error", err, "sponsor_id", sponsor.ID)
	}
}

func (p *Pipeline) storeSubmission(ctx context.Context, q execer, formID string, sub Submission, status, userID string) error {
	id, err := auth.GenerateID(12)
	if err != nil {
		return err
	}
	payload, _ := json.Marshal(lo.OmitByKeys(sub.Data, secretFields))

	now := p.now().UTC()
	var processed *time.Time
	if status == models.SubmissionProcessed {
		processed = &now
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO form_submission (id, form_id, user_id, referrer_id, payload, ip_address, user_agent, status, submitted_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, id, formID, nullIfEmpty(userID), nullIfEmpty(sub.ReferrerID), string(payload), sub.Hit.IP, sub.Hit.UserAgent, status, now, processed)
	if err != nil {
		return fmt.Errorf("store submission: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type SubmissionHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	pipeline *Pipeline
}

func NewSubmissionHandler(db *sql.DB, cfg cliparse.Config, mail mailer.Sender) *SubmissionHandler {
	return &SubmissionHandler{
		db:       db,
		cfg:      cfg,
		pipeline: &Pipeline{DB: db, Config: cfg, Mail: mail},
	}
}

// Submit handles POST /forms/{id}/submit
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	formID := r.PathValue("id")

	var req models.SubmitFormRequest
	browserPost := middleware.IsFormEncoded(r)
	if browserPost {
		fields, err := middleware.ParseFormBody(r)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid form body")
			return
		}
		req.ReferrerCode = fields["referrer_code"]
		delete(fields, "referrer_code")
		req.Fields = fields
	} else if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Fields == nil {
		req.Fields = map[string]string{}
	}

	form, err := GetForm(r.Context(), h.db, formID)
	if errors.Is(err, ErrFormNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Form not found")
		return
	}
	if err != nil {
		slog.Error("failed to load form", "error", err, "form_id", formID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit form")
		return
	}

	sub := Submission{
		Data:         req.Fields,
		ReferrerID:   ReferrerFromRequest(r),
		ReferrerCode: req.ReferrerCode,
		UserID:       sessionUserID(r, h.cfg.SessionSecret),
		Hit:          HitFromRequest(r),
	}

	result, err := h.pipeline.ProcessSubmission(r.Context(), form, sub)
	if err != nil {
		slog.Error("failed to process submission", "error", err, "form_id", formID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit form")
		return
	}
	if !result.Success {
		middleware.ErrorResponse(w, http.StatusUnprocessableEntity, result.Message)
		return
	}

	status := http.StatusOK
	if form.Type == models.FormRegistration {
		clearReferrerCookie(w)
		status = http.StatusCreated
	}

	if browserPost && result.Redirect != "" {
		http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
		return
	}

	middleware.JSONResponse(w, status, models.ResultResponse{
		Success:  true,
		Message:  result.Message,
		UserID:   result.UserID,
		MemberID: result.MemberID,
		Redirect: result.Redirect,
	})
}

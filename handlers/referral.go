// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/metrics"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

// ReferrerCookie carries the referring member ID until registration
const ReferrerCookie = "mmp_referrer"

// ReferrerCookieTTL is how long a referral link visit is remembered
const ReferrerCookieTTL = 30 * 24 * time.Hour

// ReferrerFromRequest returns the member ID stored by a replica link visit
func ReferrerFromRequest(r *http.Request) string {
	c, err := r.Cookie(ReferrerCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func clearReferrerCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     ReferrerCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// ReferralCode returns the last path segment after a /ref/ segment anywhere
// in the path, or "" when the path is not a replica link
func ReferralCode(path string) string {
	i := strings.Index(path, "/ref/")
	if i < 0 {
		return ""
	}
	rest := strings.Trim(path[i+len("/ref/"):], "/")
	if j := strings.LastIndex(rest, "/"); j >= 0 {
		rest = rest[j+1:]
	}
	return rest
}

type ReferralHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewReferralHandler(db *sql.DB, cfg cliparse.Config) *ReferralHandler {
	return &ReferralHandler{db: db, cfg: cfg}
}

// Visit handles GET /ref/{code} and any other path carrying a /ref/ segment
func (h *ReferralHandler) Visit(w http.ResponseWriter, r *http.Request) {
	code := ReferralCode(r.URL.Path)
	if code == "" {
		code = r.PathValue("code")
	}
	if code == "" {
		middleware.ErrorResponse(w, http.StatusNotFound, "Referral link not found")
		return
	}

	member, err := GetMemberByCode(r.Context(), h.db, code)
	if errors.Is(err, ErrMemberNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Referral link not found")
		return
	}
	if err != nil {
		slog.Error("failed to resolve referral code", "error", err, "code", code)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to resolve referral link")
		return
	}

	now := time.Now()
	if err := RecordStatistic(r.Context(), h.db, member.UserID, models.StatVisit, 1, HitFromRequest(r), now); err != nil {
		slog.Error("failed to record visit", "error", err, "member_id", member.ID)
	}
	metrics.ReferralVisits.Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     ReferrerCookie,
		Value:    member.ID,
		Path:     "/",
		Expires:  now.Add(ReferrerCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	target := h.cfg.SiteURL
	settings, err := LoadGeneralSettings(r.Context(), h.db)
	if err != nil {
		slog.Error("failed to load settings", "error", err)
	} else if settings.RegistrationURL != "" {
		target = settings.RegistrationURL
	}

	slog.Info("referral visit", "member_id", member.ID)
	http.Redirect(w, r, target, http.StatusFound)
}

// Fallback handles GET requests no other route matched. Paths with a /ref/
// segment count as replica link visits; everything else is 404.
func (h *ReferralHandler) Fallback(w http.ResponseWriter, r *http.Request) {
	if ReferralCode(r.URL.Path) == "" {
		middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}
	h.Visit(w, r)
}

// recordReferralClick counts a registration form view for the referring member
func recordReferralClick(r *http.Request, conn *sql.DB) {
	referrerID := ReferrerFromRequest(r)
	if referrerID == "" {
		return
	}
	member, err := GetMemberByID(r.Context(), conn, referrerID)
	if err != nil {
		return
	}
	if err := RecordStatistic(r.Context(), conn, member.UserID, models.StatClick, 1, HitFromRequest(r), time.Now()); err != nil {
		slog.Error("failed to record click", "error", err, "member_id", member.ID)
	}
}

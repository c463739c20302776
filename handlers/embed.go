// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
	"github.com/danielhkuo/mlm-members/render"
)

// Render points that need a logged-in member
var memberEmbeds = map[string]bool{
	"dashboard":  true,
	"profile":    true,
	"members":    true,
	"network":    true,
	"downloads":  true,
	"statistics": true,
}

type EmbedHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewEmbedHandler(db *sql.DB, cfg cliparse.Config) *EmbedHandler {
	return &EmbedHandler{db: db, cfg: cfg}
}

// Render handles GET /embed/{name}
func (h *EmbedHandler) Render(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var html string
	var status = http.StatusOK
	var err error

	switch {
	case name == "form":
		html, status, err = h.renderForm(r)
	case name == "login":
		html, err = render.Login("/auth/login")
	case name == "logout":
		html, err = render.Logout("/auth/logout")
	case memberEmbeds[name]:
		html, status, err = h.renderMemberArea(r, name)
	default:
		middleware.HTMLResponse(w, http.StatusNotFound, "<p>Unknown render point</p>")
		return
	}

	if err != nil {
		slog.Error("failed to render", "embed", name, "error", err)
		middleware.HTMLResponse(w, http.StatusInternalServerError, "<p>Something went wrong</p>")
		return
	}
	middleware.HTMLResponse(w, status, html)
}

func (h *EmbedHandler) renderForm(r *http.Request) (string, int, error) {
	formID := r.URL.Query().Get("id")
	form, err := GetForm(r.Context(), h.db, formID)
	if errors.Is(err, ErrFormNotFound) {
		return "<p>Form not found</p>", http.StatusNotFound, nil
	}
	if err != nil {
		return "", 0, err
	}

	if form.Type == models.FormRegistration {
		recordReferralClick(r, h.db)
	}

	html, err := render.Form(form, nil, "/forms/"+form.ID+"/submit")
	return html, http.StatusOK, err
}

func (h *EmbedHandler) renderMemberArea(r *http.Request, name string) (string, int, error) {
	claims := optionalSession(r, h.cfg.SessionSecret)
	if claims == nil {
		html, err := render.LoginRequired("/embed/login")
		return html, http.StatusOK, err
	}

	ctx := r.Context()
	member, err := GetMemberByUserID(ctx, h.db, claims.UserID)
	if errors.Is(err, ErrMemberNotFound) {
		return "<p>Member not found</p>", http.StatusNotFound, nil
	}
	if err != nil {
		return "", 0, err
	}

	var html string
	switch name {
	case "dashboard":
		var d models.MemberDashboardResponse
		if d, err = LoadMemberDashboard(ctx, h.db, claims.UserID, time.Now()); err == nil {
			html, err = render.Dashboard(d)
		}
	case "profile":
		var form models.Form
		var user models.User
		if form, err = GetFormByType(ctx, h.db, models.FormProfile); err != nil {
			break
		}
		if user, err = GetUser(ctx, h.db, claims.UserID); err == nil {
			html, err = render.Profile(form, user, member, "/profile")
		}
	case "members":
		var levels [][]models.NetworkNode
		if levels, err = BuildNetworkTree(ctx, h.db, member.ID, 1); err == nil {
			var direct []models.NetworkNode
			if len(levels) > 0 {
				direct = levels[0]
			}
			html, err = render.Members(direct)
		}
	case "network":
		var levels [][]models.NetworkNode
		if levels, err = BuildNetworkTree(ctx, h.db, member.ID, 0); err == nil {
			html, err = render.Network(levels)
		}
	case "downloads":
		var downloads []models.Download
		if downloads, err = ListMemberDownloads(ctx, h.db, member.Status); err == nil {
			html, err = render.Downloads(downloads)
		}
	case "statistics":
		var stats models.MemberStatistics
		if stats, err = GetMemberStatistics(ctx, h.db, claims.UserID, time.Now()); err == nil {
			html, err = render.Statistics(stats)
		}
	}
	return html, http.StatusOK, err
}

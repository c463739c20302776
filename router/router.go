// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/handlers"
	"github.com/danielhkuo/mlm-members/mailer"
	"github.com/danielhkuo/mlm-members/metrics"
	"github.com/danielhkuo/mlm-members/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, mail mailer.Sender) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(db, cfg)
	memberHandler := handlers.NewMemberHandler(db, cfg, mail)
	formHandler := handlers.NewFormHandler(db, cfg)
	submissionHandler := handlers.NewSubmissionHandler(db, cfg, mail)
	networkHandler := handlers.NewNetworkHandler(db, cfg)
	statisticsHandler := handlers.NewStatisticsHandler(db, cfg)
	notificationHandler := handlers.NewNotificationHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(db, cfg)
	downloadHandler := handlers.NewDownloadHandler(db, cfg)
	templateHandler := handlers.NewEmailTemplateHandler(db, cfg)
	settingsHandler := handlers.NewSettingsHandler(db, cfg)
	referralHandler := handlers.NewReferralHandler(db, cfg)
	embedHandler := handlers.NewEmbedHandler(db, cfg)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.WithLogging(middleware.WithMetrics(pattern, h)))
	}
	session := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireSession(cfg.SessionSecret, h)
	}
	action := func(name string, h http.HandlerFunc) http.HandlerFunc {
		return session(middleware.RequireActionToken(name, cfg.ActionTokenSalt, h))
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return session(middleware.RequireAdmin(h))
	}
	adminAction := func(name string, h http.HandlerFunc) http.HandlerFunc {
		return session(middleware.RequireAdmin(middleware.RequireActionToken(name, cfg.ActionTokenSalt, h)))
	}

	// Health check and metrics
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Sessions
	handle("POST /auth/login", sessionHandler.Login)
	handle("POST /auth/logout", sessionHandler.Logout)
	handle("GET /auth/action-token", session(sessionHandler.ActionToken))

	// Public forms and referral links
	handle("GET /forms/{id}", formHandler.GetForm)
	handle("POST /forms/{id}/submit", submissionHandler.Submit)
	handle("GET /ref/{code}", referralHandler.Visit)
	handle("GET /ref/{code}/", referralHandler.Visit)
	handle("GET /embed/{name}", embedHandler.Render)

	// Member area
	handle("GET /me", session(profileHandler.Me))
	handle("GET /network", session(networkHandler.GetNetwork))
	handle("GET /statistics", session(statisticsHandler.GetStatistics))
	handle("GET /statistics/{type}", action(handlers.ActionGetStat, statisticsHandler.GetStat))
	handle("GET /notifications", action(handlers.ActionGetNotifications, notificationHandler.List))
	handle("POST /notifications/{id}/read", action(handlers.ActionMarkNotificationRead, notificationHandler.MarkRead))
	handle("POST /profile", action(handlers.ActionUpdateProfile, profileHandler.UpdateProfile))
	handle("POST /profile/password", action(handlers.ActionChangePassword, profileHandler.ChangePassword))
	handle("GET /downloads", session(downloadHandler.ListForMember))
	handle("GET /downloads/{id}", session(downloadHandler.Fetch))

	// Admin: members
	handle("GET /admin/dashboard", admin(memberHandler.Dashboard))
	handle("GET /admin/members", admin(memberHandler.ListMembers))
	handle("POST /admin/members/bulk", admin(memberHandler.BulkAction))
	handle("GET /admin/members/{id}", adminAction(handlers.ActionGetMemberDetails, memberHandler.GetMember))
	handle("POST /admin/members/{id}/status", adminAction(handlers.ActionUpdateMemberStatus, memberHandler.UpdateStatus))
	handle("DELETE /admin/members/{id}", admin(memberHandler.DeleteMember))

	// Admin: configuration
	handle("GET /admin/forms", admin(formHandler.ListForms))
	handle("POST /admin/forms", admin(formHandler.CreateForm))
	handle("PUT /admin/forms/{id}", admin(formHandler.UpdateForm))
	handle("DELETE /admin/forms/{id}", admin(formHandler.DeleteForm))
	handle("GET /admin/settings", admin(settingsHandler.GetSettings))
	handle("PUT /admin/settings", admin(settingsHandler.UpdateSettings))
	handle("GET /admin/email-templates", admin(templateHandler.ListTemplates))
	handle("PUT /admin/email-templates/{name}", admin(templateHandler.UpdateTemplate))
	handle("GET /admin/downloads", admin(downloadHandler.ListAll))
	handle("POST /admin/downloads", admin(downloadHandler.Create))
	handle("DELETE /admin/downloads/{id}", admin(downloadHandler.Delete))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mlm-members API v1"))
	})

	// Replica links under any prefix, otherwise 404
	handle("GET /{path...}", referralHandler.Fallback)

	return mux
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the mlm-members API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, mail)

Every route except /health, /metrics and / is wrapped with request logging
and per-route metrics.

# Endpoints

Operations:

	GET /health  - Liveness check
	GET /metrics - Prometheus scrape endpoint

Sessions:

	POST /auth/login        - Exchange e-mail and password for a session
	POST /auth/logout       - Clear the session cookie
	GET  /auth/action-token - Issue a token for ?action= (session)

Public:

	GET  /forms/{id}        - Active form definition
	POST /forms/{id}/submit - Submit a form (registration or generic)
	GET  /ref/{code}        - Replica link: record visit, set referrer, redirect
	GET  /ref/{code}/       - Same, trailing slash
	GET  /{path...}         - Any other path with a /ref/ segment is a replica
	                          link (last segment is the code); otherwise 404
	GET  /embed/{name}      - HTML render point (form, login, member areas)

Member area (session, some routes also need X-Action-Token):

	GET  /me                      - Current user, member and unread count
	GET  /network                 - Downline tree by level
	GET  /statistics              - Summary and 30-day history
	GET  /statistics/{type}       - Single stat (action get_stat)
	GET  /notifications           - Latest notifications (action get_notifications)
	POST /notifications/{id}/read - Mark read (action mark_notification_read)
	POST /profile                 - Update profile (action update_profile)
	POST /profile/password        - Change password (action change_password)
	GET  /downloads               - Downloads visible to the member
	GET  /downloads/{id}          - Log and redirect to the file

Administration (admin session):

	GET    /admin/dashboard             - Member counts
	GET    /admin/members               - Filtered, paginated list
	POST   /admin/members/bulk          - Bulk status change or delete
	GET    /admin/members/{id}          - Member details (action get_member_details)
	POST   /admin/members/{id}/status   - Set status (action update_member_status)
	DELETE /admin/members/{id}          - Delete member
	GET    /admin/forms                 - List forms
	POST   /admin/forms                 - Create form
	PUT    /admin/forms/{id}            - Update form
	DELETE /admin/forms/{id}            - Delete form and its submissions
	GET    /admin/settings              - General settings
	PUT    /admin/settings              - Update general settings
	GET    /admin/email-templates       - List templates
	PUT    /admin/email-templates/{name} - Update template
	GET    /admin/downloads             - List downloads
	POST   /admin/downloads             - Create download
	DELETE /admin/downloads/{id}        - Delete download

All handlers receive the database connection and configuration; handlers
that send mail also receive the mailer.
*/
package router

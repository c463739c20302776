// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the mlm-members API server.

mlm-members runs a multi-level membership program: visitors arrive through
a member's replica link, register through a configurable form, and join
the network under their sponsor. Members get a dashboard with their
downline tree, referral statistics, notifications and downloads.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=members.db SESSION_SECRET=... ACTION_TOKEN_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -site-url https://example.com

A .env file in the working directory is read first if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path or PostgreSQL connection string
  - SESSION_SECRET (-session-secret): Secret for session token signing
  - ACTION_TOKEN_SALT (-action-salt): Secret for per-action verification tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SITE_URL (-site-url): Public base URL for replica links
  - SESSION_TTL: Session lifetime as a Go duration (default: 24h)
  - SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD: Outgoing mail server
  - MAIL_FROM, MAIL_FROM_NAME: Sender address and display name

Without SMTP_HOST, outgoing mail is logged instead of sent.

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP handlers and the registration pipeline
  - render: HTML fragments for the embed render points
  - router: Route definitions using Go 1.22+ routing
  - middleware: Logging, metrics, sessions, CORS, JSON helpers
  - models: Request/response and domain types
  - auth: Passwords, session tokens, action tokens, member codes
  - mailer: Template rendering and SMTP delivery
  - metrics: Prometheus collectors
  - db: Driver selection, schema creation and default rows
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main

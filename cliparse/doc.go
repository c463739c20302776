// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: PostgreSQL connection string or SQLite DSN (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - SiteURL: Public base URL used to build replica links
  - SessionSecret: HMAC secret for session tokens (required)
  - ActionTokenSalt: Secret for per-action verification tokens (required)
  - SessionTTL: Session lifetime (default: 24h)
  - SMTP*: Optional mail relay settings

# CLI Flags

	-p               Server port
	-d               Database URL
	-t               Database type
	--site-url       Public site URL
	--session-secret Session signing secret
	--action-salt    Action token salt

# Environment Variables

Flags fall back to environment variables. A .env file in the working
directory is loaded before the lookup; variables already set in the process
environment are not overwritten by it.

	PORT              → -p
	DATABASE_URL      → -d
	DATABASE_TYPE     → -t
	SITE_URL          → --site-url
	SESSION_SECRET    → --session-secret
	ACTION_TOKEN_SALT → --action-salt
	SESSION_TTL, SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD,
	MAIL_FROM, MAIL_FROM_NAME

CLI flags take precedence over environment variables.
*/
package cliparse

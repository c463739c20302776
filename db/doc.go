// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections, schema creation, and default data.

# Connections

Open selects the driver from the configured database type:

	conn, err := db.Open("postgres", "postgres://...")
	conn, err := db.Open("sqlite", "file:mlm.db")

SQLite pools are limited to a single connection.

# Schema Creation

CreateSchema initializes all required tables and seeds defaults:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for tables and indexes and
ON CONFLICT DO NOTHING for seeded rows. The schema only uses SQL understood
by both PostgreSQL and SQLite; queries use $N placeholders throughout.

# Tables

  - users: identity records
  - member: network members (sponsor_id is a self reference, not a foreign key)
  - form: form definitions (fields and settings are JSON text)
  - form_submission: raw submitted payloads
  - download, download_log: member downloads and their audit trail
  - notification: per-user inbox
  - statistic: per-day counters, unique on (user_id, stat_type, stat_date)
  - email_template: {{variable}} templates
  - setting: named JSON documents

# Relationships

	users 1──1 member
	member 1──* member (sponsor_id)
	form 1──* form_submission
	download 1──* download_log

# Seeded Rows

  - e-mail templates welcome_email, activation_email, new_referral_notification
  - a default registration form and a default profile form
  - the general settings document
*/
package db

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application and seeds the
// default templates, forms and settings.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := Seed(db); err != nil {
		return fmt.Errorf("failed to seed defaults: %w", err)
	}

	return nil
}

// The statements stay within the SQL shared by PostgreSQL and SQLite.
const schema = `
-- Identity records
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    display_name TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('member', 'admin')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Members
CREATE TABLE IF NOT EXISTS member (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    sponsor_id TEXT,
    member_code TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active', 'inactive', 'free')),
    registration_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    activation_date TIMESTAMP,
    replica_url TEXT NOT NULL DEFAULT '',
    total_referrals INTEGER NOT NULL DEFAULT 0,
    level_position INTEGER NOT NULL DEFAULT 1,
    custom_fields TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_member_sponsor_id ON member(sponsor_id);
CREATE INDEX IF NOT EXISTS idx_member_status ON member(status);

-- Forms
CREATE TABLE IF NOT EXISTS form (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    form_type TEXT NOT NULL DEFAULT 'custom' CHECK (form_type IN ('registration', 'profile', 'prospect', 'subscribe', 'custom')),
    fields TEXT NOT NULL,
    settings TEXT,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
    created_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_form_type ON form(form_type);

-- Form submissions
CREATE TABLE IF NOT EXISTS form_submission (
    id TEXT PRIMARY KEY,
    form_id TEXT NOT NULL REFERENCES form(id) ON DELETE CASCADE,
    user_id TEXT,
    referrer_id TEXT,
    payload TEXT NOT NULL,
    ip_address TEXT,
    user_agent TEXT,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'processed', 'rejected')),
    submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    processed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_form_submission_form_id ON form_submission(form_id);

-- Downloads
CREATE TABLE IF NOT EXISTS download (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    file_url TEXT NOT NULL,
    file_type TEXT NOT NULL DEFAULT '',
    file_size BIGINT NOT NULL DEFAULT 0,
    access_level TEXT NOT NULL DEFAULT 'active' CHECK (access_level IN ('all', 'active', 'premium')),
    download_count INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
    created_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS download_log (
    id TEXT PRIMARY KEY,
    download_id TEXT NOT NULL REFERENCES download(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    ip_address TEXT,
    downloaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_download_log_download_id ON download_log(download_id);

-- Notifications
CREATE TABLE IF NOT EXISTS notification (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    notification_type TEXT NOT NULL DEFAULT 'info' CHECK (notification_type IN ('info', 'success', 'warning', 'error')),
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    action_url TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    read_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notification_user_id ON notification(user_id);

-- Statistics: one row per user, type and day
CREATE TABLE IF NOT EXISTS statistic (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    stat_type TEXT NOT NULL CHECK (stat_type IN ('visit', 'click', 'conversion', 'referral')),
    stat_value INTEGER NOT NULL DEFAULT 1,
    referrer_url TEXT,
    ip_address TEXT,
    user_agent TEXT,
    stat_date TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, stat_type, stat_date)
);

CREATE INDEX IF NOT EXISTS idx_statistic_user_date ON statistic(user_id, stat_date);

-- E-mail templates
CREATE TABLE IF NOT EXISTS email_template (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    template_type TEXT NOT NULL CHECK (template_type IN ('welcome', 'activation', 'notification', 'reminder', 'custom')),
    subject TEXT NOT NULL,
    content TEXT NOT NULL,
    variables TEXT,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Settings documents
CREATE TABLE IF NOT EXISTS setting (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

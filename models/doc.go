// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types.

# Domain Types

  - User: identity record (e-mail, bcrypt hash, names, role)
  - Member: network membership of a user (sponsor, code, status, cached
    referral count, custom fields)
  - Form / FormField: form definitions persisted as JSON
  - Submission: raw posted payload of a form
  - Notification, Download, EmailTemplate
  - GeneralSettings: site-wide settings document

# Member Status

	pending → active ↔ inactive
	free

Access checks order statuses free < pending < inactive < active.

# JSON Conventions

Fields use snake_case. Secrets are tagged json:"-":

	PasswordHash string `json:"-"` // Never expose in JSON

Optional values are pointers with omitempty.
*/
package models

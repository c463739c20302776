// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/models"
)

// GeneralSettingsKey names the general settings row in the setting table
const GeneralSettingsKey = "general"

// Template names used by the registration and member pipelines
const (
	TemplateWelcome     = "welcome_email"
	TemplateActivation  = "activation_email"
	TemplateNewReferral = "new_referral_notification"
)

type templateSeed struct {
	name, kind, subject, content string
	variables                    []string
}

var defaultTemplates = []templateSeed{
	{
		name:    TemplateWelcome,
		kind:    "welcome",
		subject: "Welcome to Our MLM Network!",
		content: `<h2>Welcome {{member_name}}!</h2>
<p>Thank you for joining our network. Your member code is: <strong>{{member_code}}</strong></p>
<p>Your replica link: <a href="{{replica_url}}">{{replica_url}}</a></p>
<p>Login to your member area: <a href="{{member_area_url}}">Member Area</a></p>`,
		variables: []string{"member_name", "member_code", "replica_url", "member_area_url"},
	},
	{
		name:    TemplateActivation,
		kind:    "activation",
		subject: "Your Account Has Been Activated",
		content: `<h2>Congratulations {{member_name}}!</h2>
<p>Your account has been activated and you now have full access to all member benefits.</p>
<p>Login to your member area: <a href="{{member_area_url}}">Member Area</a></p>`,
		variables: []string{"member_name", "member_area_url"},
	},
	{
		name:    TemplateNewReferral,
		kind:    "notification",
		subject: "New Referral Registered!",
		content: `<h2>Great News {{sponsor_name}}!</h2>
<p>You have a new referral: <strong>{{referral_name}}</strong></p>
<p>Registration Date: {{registration_date}}</p>
<p>View your network: <a href="{{network_url}}">Network Tree</a></p>`,
		variables: []string{"sponsor_name", "referral_name", "registration_date", "network_url"},
	},
}

// DefaultRegistrationFields is the field list of the seeded registration form
func DefaultRegistrationFields() []models.FormField {
	return []models.FormField{
		{Type: "text", Name: "first_name", Label: "First Name", Required: true, Placeholder: "Enter your first name"},
		{Type: "text", Name: "last_name", Label: "Last Name", Required: true, Placeholder: "Enter your last name"},
		{Type: "email", Name: "email", Label: "Email Address", Required: true, Placeholder: "Enter your email address"},
		{Type: "tel", Name: "phone", Label: "Phone Number", Required: true, Placeholder: "Enter your phone number"},
		{Type: "password", Name: "password", Label: "Password", Required: true, Placeholder: "Create a password"},
		{Type: "password", Name: "confirm_password", Label: "Confirm Password", Required: true, Placeholder: "Confirm your password"},
	}
}

// DefaultProfileFields is the field list of the seeded profile form
func DefaultProfileFields() []models.FormField {
	return []models.FormField{
		{Type: "text", Name: "first_name", Label: "First Name", Required: true, Placeholder: "Enter your first name"},
		{Type: "text", Name: "last_name", Label: "Last Name", Required: true, Placeholder: "Enter your last name"},
		{Type: "email", Name: "email", Label: "Email Address", Required: true, Placeholder: "Enter your email address"},
		{Type: "tel", Name: "phone", Label: "Phone Number", Placeholder: "Enter your phone number"},
		{Type: "textarea", Name: "bio", Label: "Bio", Placeholder: "Tell us about yourself"},
	}
}

// DefaultGeneralSettings returns the settings used until an admin saves their own
func DefaultGeneralSettings() models.GeneralSettings {
	return models.GeneralSettings{
		DefaultSponsor:      models.DefaultSponsorRandom,
		ReplicaURLType:      models.ReplicaPath,
		NetworkTreeLevels:   3,
		EnableNotifications: true,
		BankDetails:         []models.BankDetail{},
	}
}

// Seed inserts default rows that are missing. Existing rows are never touched.
func Seed(db *sql.DB) error {
	now := time.Now().UTC()

	for _, tpl := range defaultTemplates {
		id, err := auth.GenerateID(12)
		if err != nil {
			return err
		}
		vars, _ := json.Marshal(tpl.variables)
		_, err = db.Exec(`
			INSERT INTO email_template (id, name, template_type, subject, content, variables, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'active', $7, $7)
			ON CONFLICT (name) DO NOTHING
		`, id, tpl.name, tpl.kind, tpl.subject, tpl.content, string(vars), now)
		if err != nil {
			return fmt.Errorf("seed template %s: %w", tpl.name, err)
		}
	}

	forms := []struct {
		name, kind string
		fields     []models.FormField
		settings   map[string]any
	}{
		{
			name:   "Default Registration Form",
			kind:   models.FormRegistration,
			fields: DefaultRegistrationFields(),
			settings: map[string]any{
				"redirect_after_submit": "",
				"auto_activate":         false,
				"send_welcome_email":    true,
				"require_sponsor":       false,
			},
		},
		{
			name:   "Default Profile Form",
			kind:   models.FormProfile,
			fields: DefaultProfileFields(),
			settings: map[string]any{
				"redirect_after_submit": "",
				"show_success_message":  true,
			},
		},
	}

	for _, f := range forms {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM form WHERE form_type = $1`, f.kind).Scan(&count); err != nil {
			return fmt.Errorf("count %s forms: %w", f.kind, err)
		}
		if count > 0 {
			continue
		}

		id, err := auth.GenerateID(12)
		if err != nil {
			return err
		}
		fields, _ := json.Marshal(f.fields)
		settings, _ := json.Marshal(f.settings)
		_, err = db.Exec(`
			INSERT INTO form (id, name, form_type, fields, settings, status, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'active', '', $6, $6)
		`, id, f.name, f.kind, string(fields), string(settings), now)
		if err != nil {
			return fmt.Errorf("seed form %s: %w", f.kind, err)
		}
	}

	settings, _ := json.Marshal(DefaultGeneralSettings())
	_, err := db.Exec(`
		INSERT INTO setting (name, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`, GeneralSettingsKey, string(settings), now)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	return nil
}

// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	// Set env vars
	os.Setenv("PORT", "9000")
	os.Setenv("DATABASE_URL", "file:test.db")
	os.Setenv("SESSION_SECRET", "test-secret")
	os.Setenv("ACTION_TOKEN_SALT", "test-salt")
	os.Setenv("SITE_URL", "https://example.com/")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected default database type sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.SiteURL != "https://example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.SiteURL)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected default session TTL 24h, got %s", cfg.SessionTTL)
	}
	if cfg.MailEnabled() {
		t.Error("mail should be disabled without SMTP_HOST")
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	os.Setenv("PORT", "9000")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-session-secret", "s1", "-action-salt", "s2"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.SiteURL != "http://localhost:8080" {
		t.Errorf("expected site URL derived from port, got %s", cfg.SiteURL)
	}
}

func TestParseFlags_MissingSecrets(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name string
		args []string
	}{
		{"no database", []string{"-session-secret", "s1", "-action-salt", "s2"}},
		{"no session secret", []string{"-d", "file:test.db", "-action-salt", "s2"}},
		{"no action salt", []string{"-d", "file:test.db", "-session-secret", "s1"}},
		{"bad database type", []string{"-d", "x", "-t", "mysql", "-session-secret", "s1", "-action-salt", "s2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseFlags_SMTP(t *testing.T) {
	os.Setenv("SMTP_HOST", "smtp.example.com")
	os.Setenv("SMTP_PORT", "2525")
	os.Setenv("SMTP_USER", "mailer@example.com")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-d", "file:test.db", "-session-secret", "s1", "-action-salt", "s2"})
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.MailEnabled() {
		t.Error("expected mail enabled")
	}
	if cfg.SMTPPort != 2525 {
		t.Errorf("expected SMTP port 2525, got %d", cfg.SMTPPort)
	}
	if cfg.MailFrom != "mailer@example.com" {
		t.Errorf("expected MailFrom to default to SMTP user, got %s", cfg.MailFrom)
	}
}

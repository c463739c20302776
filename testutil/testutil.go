// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/db"
	"github.com/danielhkuo/mlm-members/middleware"
)

// TestPassword is the plain password of every user created by CreateTestUser
const TestPassword = "password123"

// SetupTestDB opens a private in-memory SQLite database with the full schema
// and seeds. It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseURL:     ":memory:",
		DatabaseType:    "sqlite",
		SessionSecret:   "test-session-secret",
		ActionTokenSalt: "test-action-salt",
		SiteURL:         "http://example.test",
		SessionTTL:      time.Hour,
	}
}

// CreateTestUser inserts an identity record and returns its ID.
// role is "member" or "admin".
func CreateTestUser(t *testing.T, db *sql.DB, email, name, role string) string {
	t.Helper()

	userID, _ := auth.GenerateID(12)
	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (id, email, password_hash, first_name, display_name, role, created_at)
		VALUES ($1, $2, $3, $4, $4, $5, $6)
	`, userID, email, hash, name, role, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return userID
}

// CreateTestMember creates a user and its member row. sponsorID may be empty.
// The sponsor's cached referral count is refreshed.
func CreateTestMember(t *testing.T, db *sql.DB, name, sponsorID, status string) (memberID, userID string) {
	t.Helper()

	userID = CreateTestUser(t, db, name+"@example.test", name, auth.RoleMember)
	memberID, _ = auth.GenerateID(12)
	code, err := auth.GenerateMemberCode()
	if err != nil {
		t.Fatalf("Failed to generate member code: %v", err)
	}

	var sponsor *string
	level := 1
	if sponsorID != "" {
		sponsor = &sponsorID
		if err := db.QueryRow(`SELECT level_position + 1 FROM member WHERE id = $1`, sponsorID).Scan(&level); err != nil {
			t.Fatalf("Failed to read sponsor level: %v", err)
		}
	}

	now := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO member (id, user_id, sponsor_id, member_code, status, registration_date, replica_url, level_position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $6, $6)
	`, memberID, userID, sponsor, code, status, now, "http://example.test/"+name, level)
	if err != nil {
		t.Fatalf("Failed to create test member: %v", err)
	}

	if sponsorID != "" {
		_, err = db.Exec(`
			UPDATE member SET total_referrals = (SELECT COUNT(*) FROM member c WHERE c.sponsor_id = $1)
			WHERE id = $1
		`, sponsorID)
		if err != nil {
			t.Fatalf("Failed to refresh referral count: %v", err)
		}
	}

	return memberID, userID
}

// AuthHeaders returns a bearer session for the user and, when action is not
// empty, a matching action token
func AuthHeaders(t *testing.T, cfg cliparse.Config, userID, role, action string) map[string]string {
	t.Helper()

	token, err := auth.IssueSession(userID, role, cfg.SessionSecret, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	if action != "" {
		headers[middleware.ActionTokenHeader] = auth.GenerateActionToken(userID, action, cfg.ActionTokenSalt, time.Now())
	}
	return headers
}

// WithSession runs the request's claims through RequireSession so handlers
// can be called directly
func WithSession(t *testing.T, cfg cliparse.Config, h http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	return middleware.RequireSession(cfg.SessionSecret, h)
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/mlm-members/db"
	"github.com/danielhkuo/mlm-members/mailer"
	"github.com/danielhkuo/mlm-members/models"
	"github.com/danielhkuo/mlm-members/testutil"
)

type failingSender struct{}

func (failingSender) Send(context.Context, mailer.Message) error {
	return errors.New("relay down")
}

func TestSendTemplateEmail(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	rec := &mailer.Recorder{}

	vars := map[string]string{
		"member_name":     "Ann <b>",
		"member_code":     "MEMABC",
		"replica_url":     "http://example.test/ref/memabc",
		"member_area_url": "http://example.test",
	}

	if !SendTemplateEmail(ctx, conn, rec, db.TemplateWelcome, "ann@example.com", vars) {
		t.Fatal("Expected welcome mail to be sent")
	}
	sent := rec.Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(sent))
	}
	if sent[0].Subject != "Welcome to Our MLM Network!" {
		t.Errorf("Unexpected subject %q", sent[0].Subject)
	}
	if !strings.Contains(sent[0].Body, "Welcome Ann &lt;b&gt;!") || !strings.Contains(sent[0].Body, "MEMABC") {
		t.Errorf("Variables not substituted:\n%s", sent[0].Body)
	}

	testCases := []struct {
		name   string
		sender mailer.Sender
		tpl    string
		to     string
	}{
		{"no recipient", rec, db.TemplateWelcome, ""},
		{"unknown template", rec, "missing_template", "ann@example.com"},
		{"delivery failure", failingSender{}, db.TemplateWelcome, "ann@example.com"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if SendTemplateEmail(ctx, conn, tc.sender, tc.tpl, tc.to, vars) {
				t.Error("Expected send to report false")
			}
		})
	}

	t.Run("inactive template", func(t *testing.T) {
		conn.Exec(`UPDATE email_template SET status = 'inactive' WHERE name = $1`, db.TemplateActivation)
		if SendTemplateEmail(ctx, conn, rec, db.TemplateActivation, "ann@example.com", vars) {
			t.Error("Inactive templates must not be sent")
		}
	})
}

func TestEmailTemplateHandler(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewEmailTemplateHandler(conn, cfg)

	w := httptest.NewRecorder()
	h.ListTemplates(w, testutil.MakeRequest("GET", "/admin/email-templates", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var templates []models.EmailTemplate
	testutil.AssertJSON(t, w, &templates)
	if len(templates) != 3 {
		t.Fatalf("Expected 3 seeded templates, got %d", len(templates))
	}
	if templates[0].Name != db.TemplateActivation || len(templates[0].Variables) != 2 {
		t.Errorf("Unexpected first template %+v", templates[0])
	}

	testCases := []struct {
		name           string
		template       string
		req            models.UpdateEmailTemplateRequest
		expectedStatus int
	}{
		{"update", db.TemplateWelcome, models.UpdateEmailTemplateRequest{Subject: "Hi {{member_name}}", Content: "<p>Code {{member_code}}</p>"}, http.StatusOK},
		{"missing content", db.TemplateWelcome, models.UpdateEmailTemplateRequest{Subject: "Hi"}, http.StatusBadRequest},
		{"bad status", db.TemplateWelcome, models.UpdateEmailTemplateRequest{Subject: "Hi", Content: "x", Status: "draft"}, http.StatusBadRequest},
		{"unknown template", "nope", models.UpdateEmailTemplateRequest{Subject: "Hi", Content: "x"}, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("PUT", "/admin/email-templates/"+tc.template, tc.req, nil)
			req.SetPathValue("name", tc.template)
			w := httptest.NewRecorder()

			h.UpdateTemplate(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)
		})
	}

	rec := &mailer.Recorder{}
	SendTemplateEmail(context.Background(), conn, rec, db.TemplateWelcome, "x@example.com", map[string]string{"member_name": "Zed", "member_code": "MEMZ"})
	if msg := rec.Sent()[0]; msg.Subject != "Hi Zed" || msg.Body != "<p>Code MEMZ</p>" {
		t.Errorf("Updated template not used: %+v", msg)
	}
}

func TestListTemplates_MalformedVariables(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	h := NewEmailTemplateHandler(conn, testutil.GetTestConfig())

	if _, err := conn.Exec(`UPDATE email_template SET variables = 'not json' WHERE name = $1`, db.TemplateWelcome); err != nil {
		t.Fatalf("Failed to corrupt variables: %v", err)
	}

	w := httptest.NewRecorder()
	h.ListTemplates(w, testutil.MakeRequest("GET", "/admin/email-templates", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var templates []models.EmailTemplate
	testutil.AssertJSON(t, w, &templates)
	for _, tpl := range templates {
		if tpl.Name == db.TemplateWelcome && (tpl.Variables == nil || len(tpl.Variables) != 0) {
			t.Errorf("Expected empty variables for malformed row, got %v", tpl.Variables)
		}
	}

	if _, err := GetActiveTemplate(context.Background(), conn, db.TemplateWelcome); err != nil {
		t.Errorf("Expected template to stay usable: %v", err)
	}
}

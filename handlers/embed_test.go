// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/models"
	"github.com/danielhkuo/mlm-members/testutil"
)

func TestEmbedRender(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewEmbedHandler(db, cfg)
	form := registrationForm(t, db)

	root, rootUser := testutil.CreateTestMember(t, db, "root", "", models.StatusActive)
	testutil.CreateTestMember(t, db, "kid", root, models.StatusPending)
	admin := testutil.CreateTestUser(t, db, "admin@example.test", "Admin", auth.RoleAdmin)

	member := testutil.AuthHeaders(t, cfg, rootUser, auth.RoleMember, "")
	noMember := testutil.AuthHeaders(t, cfg, admin, auth.RoleAdmin, "")

	testCases := []struct {
		name           string
		embed          string
		query          string
		headers        map[string]string
		expectedStatus int
		contains       string
	}{
		{"registration form", "form", "?id=" + form.ID, nil, http.StatusOK, `action="/forms/` + form.ID + `/submit"`},
		{"unknown form", "form", "?id=missing", nil, http.StatusNotFound, "Form not found"},
		{"login", "login", "", nil, http.StatusOK, `action="/auth/login"`},
		{"logout", "logout", "", nil, http.StatusOK, `action="/auth/logout"`},
		{"dashboard anonymous", "dashboard", "", nil, http.StatusOK, "Member Area Access Required"},
		{"dashboard", "dashboard", "", member, http.StatusOK, "Welcome, root"},
		{"members", "members", "", member, http.StatusOK, "<td>kid</td>"},
		{"network", "network", "", member, http.StatusOK, "Level 1 (1)"},
		{"profile", "profile", "", member, http.StatusOK, `value="root@example.test"`},
		{"downloads", "downloads", "", member, http.StatusOK, "No downloads available."},
		{"statistics", "statistics", "", member, http.StatusOK, "Conversion rate: 0.00%"},
		{"member area without member", "dashboard", "", noMember, http.StatusNotFound, "Member not found"},
		{"unknown render point", "shop", "", nil, http.StatusNotFound, "Unknown render point"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("GET", "/embed/"+tc.embed+tc.query, nil, tc.headers)
			req.SetPathValue("name", tc.embed)
			w := httptest.NewRecorder()

			h.Render(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Expected HTML content type, got %s", ct)
			}
			if !strings.Contains(w.Body.String(), tc.contains) {
				t.Errorf("Expected body to contain %q, got:\n%s", tc.contains, w.Body.String())
			}
		})
	}
}

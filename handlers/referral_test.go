// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/mlm-members/models"
	"github.com/danielhkuo/mlm-members/testutil"
)

func TestReferralVisit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewReferralHandler(db, cfg)
	ctx := context.Background()

	memberID, userID := testutil.CreateTestMember(t, db, "host", "", models.StatusActive)
	member, _ := GetMemberByID(ctx, db, memberID)

	visit := func(code string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("GET", "/ref/"+code, nil, map[string]string{"Referer": "https://social.example/post"})
		req.SetPathValue("code", code)
		w := httptest.NewRecorder()
		h.Visit(w, req)
		return w
	}

	t.Run("unknown code", func(t *testing.T) {
		w := visit("MEMNOPE")
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("redirects to site without registration URL", func(t *testing.T) {
		w := visit(strings.ToLower(member.MemberCode))
		testutil.AssertStatus(t, w, http.StatusFound)
		if loc := w.Header().Get("Location"); loc != cfg.SiteURL {
			t.Errorf("Expected redirect to %s, got %s", cfg.SiteURL, loc)
		}

		var cookie *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == ReferrerCookie {
				cookie = c
			}
		}
		if cookie == nil || cookie.Value != memberID {
			t.Fatalf("Expected referrer cookie with member id, got %+v", cookie)
		}
		if !cookie.HttpOnly || cookie.Expires.Before(time.Now().Add(ReferrerCookieTTL-time.Hour)) {
			t.Errorf("Unexpected cookie attributes %+v", cookie)
		}
	})

	t.Run("redirects to registration URL", func(t *testing.T) {
		settings, _ := LoadGeneralSettings(ctx, db)
		settings.RegistrationURL = "https://example.test/join"
		if err := SaveGeneralSettings(ctx, db, settings); err != nil {
			t.Fatalf("Failed to save settings: %v", err)
		}

		w := visit(member.MemberCode)
		testutil.AssertStatus(t, w, http.StatusFound)
		if loc := w.Header().Get("Location"); loc != "https://example.test/join" {
			t.Errorf("Expected redirect to registration URL, got %s", loc)
		}
	})

	paths := []struct {
		name     string
		path     string
		expected int
	}{
		{"trailing slash", "/ref/" + member.MemberCode + "/", http.StatusFound},
		{"prefixed path", "/join/ref/" + member.MemberCode, http.StatusFound},
		{"prefixed with trailing slash", "/lp/promo/ref/" + member.MemberCode + "/", http.StatusFound},
		{"no ref segment", "/join/" + member.MemberCode, http.StatusNotFound},
		{"empty code", "/join/ref/", http.StatusNotFound},
	}
	for _, tc := range paths {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Fallback(w, testutil.MakeRequest("GET", tc.path, nil, nil))
			testutil.AssertStatus(t, w, tc.expected)
		})
	}

	stats, _ := GetMemberStatistics(ctx, db, userID, time.Now())
	if stats.TotalVisits != 5 {
		t.Errorf("Expected 5 visits recorded, got %d", stats.TotalVisits)
	}
}

func TestReferralCode(t *testing.T) {
	testCases := []struct {
		path     string
		expected string
	}{
		{"/ref/MEMABC123", "MEMABC123"},
		{"/ref/MEMABC123/", "MEMABC123"},
		{"/join/ref/MEMABC123", "MEMABC123"},
		{"/ref/MEMABC123/extra", "extra"},
		{"/ref/", ""},
		{"/referral/MEMABC123", ""},
		{"/", ""},
	}

	for _, tc := range testCases {
		if got := ReferralCode(tc.path); got != tc.expected {
			t.Errorf("ReferralCode(%q) = %q, want %q", tc.path, got, tc.expected)
		}
	}
}

func TestRegistrationFormView_RecordsClick(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewFormHandler(db, cfg)
	form := registrationForm(t, db)

	memberID, userID := testutil.CreateTestMember(t, db, "host", "", models.StatusActive)

	view := func(cookie string) {
		req := testutil.MakeRequest("GET", "/forms/"+form.ID, nil, nil)
		req.SetPathValue("id", form.ID)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: ReferrerCookie, Value: cookie})
		}
		w := httptest.NewRecorder()
		h.GetForm(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	view("")
	view(memberID)
	view(memberID)
	view("stale-member")

	stats, _ := GetMemberStatistics(context.Background(), db, userID, time.Now())
	if stats.TotalClicks != 2 {
		t.Errorf("Expected 2 clicks, got %d", stats.TotalClicks)
	}
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/mailer"
	"github.com/danielhkuo/mlm-members/models"
	"github.com/danielhkuo/mlm-members/testutil"
)

// TestFullReferralWorkflow tests the complete end-to-end workflow:
// 1. Visitor follows a sponsor's replica link
// 2. Visitor opens the registration form
// 3. Visitor registers
// 4. Admin activates the new member
// 5. New member logs in and loads the dashboard
// 6. Sponsor sees the referral in network and statistics
func TestFullReferralWorkflow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mail := &mailer.Recorder{}

	referralHandler := NewReferralHandler(db, cfg)
	formHandler := NewFormHandler(db, cfg)
	submissionHandler := NewSubmissionHandler(db, cfg, mail)
	memberHandler := NewMemberHandler(db, cfg, mail)
	sessionHandler := NewSessionHandler(db, cfg)
	profileHandler := NewProfileHandler(db, cfg)
	networkHandler := NewNetworkHandler(db, cfg)
	statisticsHandler := NewStatisticsHandler(db, cfg)

	sponsorID, sponsorUser := testutil.CreateTestMember(t, db, "sponsor", "", models.StatusActive)
	sponsor, err := GetMemberByID(context.Background(), db, sponsorID)
	if err != nil {
		t.Fatalf("Failed to load sponsor: %v", err)
	}

	// Step 1: Replica link visit
	req := testutil.MakeRequest("GET", "/ref/"+sponsor.MemberCode, nil, nil)
	req.SetPathValue("code", sponsor.MemberCode)
	w := httptest.NewRecorder()
	referralHandler.Visit(w, req)
	testutil.AssertStatus(t, w, http.StatusFound)

	var referrer *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == ReferrerCookie {
			referrer = c
		}
	}
	if referrer == nil || referrer.Value != sponsorID {
		t.Fatalf("Step 1 - Expected referrer cookie for %s, got %+v", sponsorID, referrer)
	}

	// Step 2: Registration form view
	form := registrationForm(t, db)
	req = testutil.MakeRequest("GET", "/forms/"+form.ID, nil, nil)
	req.SetPathValue("id", form.ID)
	req.AddCookie(referrer)
	w = httptest.NewRecorder()
	formHandler.GetForm(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	// Step 3: Registration carried by the cookie alone
	req = testutil.MakeRequest("POST", "/forms/"+form.ID+"/submit",
		models.SubmitFormRequest{Fields: registrationData("newbie@example.com")}, nil)
	req.SetPathValue("id", form.ID)
	req.AddCookie(referrer)
	w = httptest.NewRecorder()
	submissionHandler.Submit(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var registered models.ResultResponse
	testutil.AssertJSON(t, w, &registered)
	if registered.MemberID == "" || registered.UserID == "" {
		t.Fatalf("Step 3 - Missing ids in %+v", registered)
	}

	newMember, err := GetMemberByID(context.Background(), db, registered.MemberID)
	if err != nil {
		t.Fatalf("Step 3 - Failed to load new member: %v", err)
	}
	if newMember.SponsorID == nil || *newMember.SponsorID != sponsorID {
		t.Errorf("Step 3 - Expected sponsor %s, got %v", sponsorID, newMember.SponsorID)
	}
	if newMember.Status != models.StatusPending {
		t.Errorf("Step 3 - Expected pending, got %s", newMember.Status)
	}

	// Step 4: Admin activation
	adminID := testutil.CreateTestUser(t, db, "admin@example.test", "Admin", auth.RoleAdmin)
	headers := testutil.AuthHeaders(t, cfg, adminID, auth.RoleAdmin, "")
	req = testutil.MakeRequest("POST", "/admin/members/"+newMember.ID+"/status",
		models.UpdateStatusRequest{Status: models.StatusActive}, headers)
	req.SetPathValue("id", newMember.ID)
	w = httptest.NewRecorder()
	testutil.WithSession(t, cfg, memberHandler.UpdateStatus)(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	memberMails := 0
	for _, msg := range mail.Sent() {
		if len(msg.To) == 1 && msg.To[0] == "newbie@example.com" {
			memberMails++
		}
	}
	// welcome + activation
	if memberMails != 2 {
		t.Errorf("Step 4 - Expected 2 mails to the new member, got %d", memberMails)
	}

	// Step 5: Login and dashboard
	req = testutil.MakeRequest("POST", "/auth/login",
		models.LoginRequest{Email: "NewBie@example.com", Password: "secret123"}, nil)
	w = httptest.NewRecorder()
	sessionHandler.Login(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var login models.LoginResponse
	testutil.AssertJSON(t, w, &login)
	if login.UserID != registered.UserID || login.Role != auth.RoleMember {
		t.Fatalf("Step 5 - Unexpected login %+v", login)
	}

	req = testutil.MakeRequest("GET", "/me", nil, map[string]string{"Authorization": "Bearer " + login.Token})
	w = httptest.NewRecorder()
	testutil.WithSession(t, cfg, profileHandler.Me)(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var dashboard models.MemberDashboardResponse
	testutil.AssertJSON(t, w, &dashboard)
	if dashboard.Member.Status != models.StatusActive {
		t.Errorf("Step 5 - Expected active member, got %s", dashboard.Member.Status)
	}

	// Step 6: Sponsor view
	sponsorHeaders := testutil.AuthHeaders(t, cfg, sponsorUser, auth.RoleMember, "")

	req = testutil.MakeRequest("GET", "/network", nil, sponsorHeaders)
	w = httptest.NewRecorder()
	testutil.WithSession(t, cfg, networkHandler.GetNetwork)(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var network models.NetworkResponse
	testutil.AssertJSON(t, w, &network)
	if network.Depth != 1 || len(network.Levels[0]) != 1 || network.Levels[0][0].MemberID != newMember.ID {
		t.Errorf("Step 6 - Unexpected network %+v", network)
	}

	req = testutil.MakeRequest("GET", "/statistics", nil, sponsorHeaders)
	w = httptest.NewRecorder()
	testutil.WithSession(t, cfg, statisticsHandler.GetStatistics)(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var stats models.MemberStatistics
	testutil.AssertJSON(t, w, &stats)
	if stats.TotalVisits != 1 || stats.TotalClicks != 1 || stats.TotalConversions != 1 {
		t.Errorf("Step 6 - Expected 1 visit, 1 click, 1 conversion, got %+v", stats)
	}
	if stats.ConversionRate != 100 {
		t.Errorf("Step 6 - Expected conversion rate 100, got %v", stats.ConversionRate)
	}

	updated, _ := GetMemberByID(context.Background(), db, sponsorID)
	if updated.TotalReferrals != 1 {
		t.Errorf("Step 6 - Expected 1 referral, got %d", updated.TotalReferrals)
	}
}

func TestReferralCookieOverriddenByTypedCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewSubmissionHandler(db, cfg, &mailer.Recorder{})

	cookieSponsor, _ := testutil.CreateTestMember(t, db, "cookie", "", models.StatusActive)
	typedSponsor, _ := testutil.CreateTestMember(t, db, "typed", "", models.StatusActive)
	typed, _ := GetMemberByID(context.Background(), db, typedSponsor)

	form := registrationForm(t, db)
	req := testutil.MakeRequest("POST", "/forms/"+form.ID+"/submit", models.SubmitFormRequest{
		Fields:       registrationData("typed@example.com"),
		ReferrerCode: typed.MemberCode,
	}, nil)
	req.SetPathValue("id", form.ID)
	req.AddCookie(&http.Cookie{Name: ReferrerCookie, Value: cookieSponsor})
	w := httptest.NewRecorder()
	h.Submit(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var result models.ResultResponse
	testutil.AssertJSON(t, w, &result)
	m, err := GetMemberByID(context.Background(), db, result.MemberID)
	if err != nil {
		t.Fatalf("Failed to load member: %v", err)
	}
	if m.SponsorID == nil || *m.SponsorID != typedSponsor {
		t.Errorf("Expected typed sponsor %s, got %v", typedSponsor, m.SponsorID)
	}
}

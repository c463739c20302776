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
	"time"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/models"
	"github.com/danielhkuo/mlm-members/testutil"
)

func TestUpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	form, err := GetFormByType(ctx, db, models.FormProfile)
	if err != nil {
		t.Fatalf("Failed to load profile form: %v", err)
	}

	_, userID := testutil.CreateTestMember(t, db, "profile", "", models.StatusActive)
	testutil.CreateTestMember(t, db, "someone", "", models.StatusActive)
	db.Exec(`UPDATE member SET custom_fields = '{"company":"Acme"}' WHERE user_id = $1`, userID)

	err = UpdateProfile(ctx, db, userID, form, map[string]string{
		"first_name": " Pat ",
		"last_name":  "Lee",
		"email":      "New@Example.com",
		"phone":      "555-0199",
		"bio":        "Hello",
		"password":   "ignored",
		"unknown":    "dropped",
	}, time.Now())
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	user, _ := GetUser(ctx, db, userID)
	if user.FirstName != "Pat" || user.LastName != "Lee" || user.Email != "new@example.com" || user.Phone != "555-0199" {
		t.Errorf("Unexpected user %+v", user)
	}
	if auth.CheckPassword(user.PasswordHash, testutil.TestPassword) != nil {
		t.Error("Profile update must not change the password")
	}

	member, _ := GetMemberByUserID(ctx, db, userID)
	want := map[string]string{"company": "Acme", "phone": "555-0199", "bio": "Hello"}
	if len(member.CustomFields) != len(want) {
		t.Errorf("Expected custom fields %v, got %v", want, member.CustomFields)
	}
	for k, v := range want {
		if member.CustomFields[k] != v {
			t.Errorf("Custom field %s = %q, want %q", k, member.CustomFields[k], v)
		}
	}

	t.Run("invalid email is ignored", func(t *testing.T) {
		if err := UpdateProfile(ctx, db, userID, form, map[string]string{"email": "broken"}, time.Now()); err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		user, _ := GetUser(ctx, db, userID)
		if user.Email != "new@example.com" {
			t.Errorf("Expected email unchanged, got %s", user.Email)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		err := UpdateProfile(ctx, db, userID, form, map[string]string{"email": "someone@example.test"}, time.Now())
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("Expected ErrEmailTaken, got %v", err)
		}
	})
}

func TestChangePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	_, userID := testutil.CreateTestMember(t, db, "pw", "", models.StatusActive)

	testCases := []struct {
		name     string
		req      models.ChangePasswordRequest
		expected string
	}{
		{"wrong current", models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newpass1", ConfirmPassword: "newpass1"}, "Current password is incorrect."},
		{"too short", models.ChangePasswordRequest{CurrentPassword: testutil.TestPassword, NewPassword: "abc", ConfirmPassword: "abc"}, "New password must be at least 6 characters long."},
		{"too long", models.ChangePasswordRequest{CurrentPassword: testutil.TestPassword, NewPassword: strings.Repeat("x", 80), ConfirmPassword: strings.Repeat("x", 80)}, "New password must be at most 72 bytes long."},
		{"mismatch", models.ChangePasswordRequest{CurrentPassword: testutil.TestPassword, NewPassword: "newpass1", ConfirmPassword: "newpass2"}, "New passwords do not match."},
		{"success", models.ChangePasswordRequest{CurrentPassword: testutil.TestPassword, NewPassword: "newpass1", ConfirmPassword: "newpass1"}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := ChangePassword(ctx, db, userID, tc.req)
			if err != nil {
				t.Fatalf("ChangePassword failed: %v", err)
			}
			if msg != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, msg)
			}
		})
	}

	user, _ := GetUser(ctx, db, userID)
	if auth.CheckPassword(user.PasswordHash, "newpass1") != nil {
		t.Error("Expected new password to be stored")
	}
}

func TestProfileHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewProfileHandler(db, cfg)

	_, userID := testutil.CreateTestMember(t, db, "me", "", models.StatusActive)
	testutil.CreateTestMember(t, db, "taken", "", models.StatusActive)
	admin := testutil.CreateTestUser(t, db, "admin@example.test", "Admin", auth.RoleAdmin)
	headers := testutil.AuthHeaders(t, cfg, userID, auth.RoleMember, "")

	t.Run("me", func(t *testing.T) {
		AddNotification(context.Background(), db, userID, "Hi", "Welcome", models.NotifyInfo, "", time.Now())

		w := httptest.NewRecorder()
		testutil.WithSession(t, cfg, h.Me)(w, testutil.MakeRequest("GET", "/me", nil, headers))

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.MemberDashboardResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.User.ID != userID || resp.Member.UserID != userID || resp.Unread != 1 {
			t.Errorf("Unexpected dashboard %+v", resp)
		}
	})

	t.Run("me without member", func(t *testing.T) {
		w := httptest.NewRecorder()
		testutil.WithSession(t, cfg, h.Me)(w, testutil.MakeRequest("GET", "/me", nil,
			testutil.AuthHeaders(t, cfg, admin, auth.RoleAdmin, "")))
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("update profile with taken email", func(t *testing.T) {
		body := models.SubmitFormRequest{Fields: map[string]string{"email": "taken@example.test"}}
		w := httptest.NewRecorder()
		testutil.WithSession(t, cfg, h.UpdateProfile)(w, testutil.MakeRequest("POST", "/profile", body, headers))
		testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)
	})

	t.Run("update profile", func(t *testing.T) {
		body := models.SubmitFormRequest{Fields: map[string]string{"first_name": "Renamed"}}
		w := httptest.NewRecorder()
		testutil.WithSession(t, cfg, h.UpdateProfile)(w, testutil.MakeRequest("POST", "/profile", body, headers))
		testutil.AssertStatus(t, w, http.StatusOK)
	})

	t.Run("change password rejected", func(t *testing.T) {
		body := models.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "abcdef", ConfirmPassword: "abcdef"}
		w := httptest.NewRecorder()
		testutil.WithSession(t, cfg, h.ChangePassword)(w, testutil.MakeRequest("POST", "/profile/password", body, headers))
		testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)
	})
}

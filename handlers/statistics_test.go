// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/models"
	"github.com/danielhkuo/mlm-members/testutil"
)

func TestConversionRate(t *testing.T) {
	testCases := []struct {
		conversions int
		clicks      int
		expected    float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 10, 0},
		{1, 4, 25},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
	}

	for _, tc := range testCases {
		got := ConversionRate(tc.conversions, tc.clicks)
		if got != tc.expected {
			t.Errorf("ConversionRate(%d, %d) = %v, want %v", tc.conversions, tc.clicks, got, tc.expected)
		}
	}
}

func TestRecordStatistic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	_, userID := testutil.CreateTestMember(t, db, "stats", "", models.StatusActive)

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	hit := Hit{ReferrerURL: "http://ref.example", IP: "10.0.0.1", UserAgent: "test"}

	for _, rec := range []struct {
		statType string
		value    int
		at       time.Time
	}{
		{models.StatVisit, 1, day},
		{models.StatVisit, 1, day.Add(3 * time.Hour)},
		{models.StatVisit, 1, day.AddDate(0, 0, 1)},
		{models.StatClick, 4, day},
		{models.StatConversion, 1, day},
	} {
		if err := RecordStatistic(ctx, db, userID, rec.statType, rec.value, hit, rec.at); err != nil {
			t.Fatalf("RecordStatistic(%s) failed: %v", rec.statType, err)
		}
	}

	var rows int
	db.QueryRow(`SELECT COUNT(*) FROM statistic WHERE user_id = $1 AND stat_type = 'visit'`, userID).Scan(&rows)
	if rows != 2 {
		t.Errorf("Expected one visit row per day (2), got %d", rows)
	}

	stats, err := GetMemberStatistics(ctx, db, userID, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("GetMemberStatistics failed: %v", err)
	}
	if stats.TotalVisits != 3 || stats.TotalClicks != 4 || stats.TotalConversions != 1 {
		t.Errorf("Unexpected totals %+v", stats)
	}
	if stats.ConversionRate != 25 {
		t.Errorf("Expected conversion rate 25, got %v", stats.ConversionRate)
	}
	if len(stats.DailyVisits) != 2 || stats.DailyVisits[0].Date != "2025-03-10" || stats.DailyVisits[0].Value != 2 {
		t.Errorf("Unexpected daily visits %+v", stats.DailyVisits)
	}

	// Outside the history window
	old, _ := GetMemberStatistics(ctx, db, userID, day.AddDate(0, 0, StatHistoryDays+5))
	if len(old.DailyVisits) != 0 || old.TotalVisits != 3 {
		t.Errorf("Expected no recent visits but lifetime total 3, got %+v", old)
	}

	if err := RecordStatistic(ctx, db, userID, "bogus", 1, hit, day); !errors.Is(err, ErrInvalidStatType) {
		t.Errorf("Expected ErrInvalidStatType, got %v", err)
	}
}

// TestConcurrentStatisticUpdates verifies that simultaneous visits on the
// same day are all counted
func TestConcurrentStatisticUpdates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, userID := testutil.CreateTestMember(t, db, "busy", "", models.StatusActive)

	now := time.Now()
	numVisits := 20

	var wg sync.WaitGroup
	errs := make(chan error, numVisits)
	for i := 0; i < numVisits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- RecordStatistic(context.Background(), db, userID, models.StatVisit, 1, Hit{}, now)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("RecordStatistic failed: %v", err)
		}
	}

	var total int
	db.QueryRow(`SELECT stat_value FROM statistic WHERE user_id = $1 AND stat_type = 'visit'`, userID).Scan(&total)
	if total != numVisits {
		t.Errorf("Expected %d visits, got %d", numVisits, total)
	}
}

func TestGetStatHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := testutil.WithSession(t, cfg, NewStatisticsHandler(db, cfg).GetStat)
	ctx := context.Background()

	sponsor, userID := testutil.CreateTestMember(t, db, "sponsor", "", models.StatusActive)
	testutil.CreateTestMember(t, db, "r1", sponsor, models.StatusActive)
	testutil.CreateTestMember(t, db, "r2", sponsor, models.StatusPending)

	now := time.Now()
	RecordStatistic(ctx, db, userID, models.StatVisit, 7, Hit{}, now)
	RecordStatistic(ctx, db, userID, models.StatClick, 8, Hit{}, now)
	RecordStatistic(ctx, db, userID, models.StatConversion, 2, Hit{}, now)

	outsider := testutil.CreateTestUser(t, db, "nomember@example.test", "No Member", auth.RoleMember)

	testCases := []struct {
		statType       string
		userID         string
		expectedStatus int
		expectedValue  float64
	}{
		{"referrals", userID, http.StatusOK, 2},
		{"visits", userID, http.StatusOK, 7},
		{"conversions", userID, http.StatusOK, 2},
		{"conversion_rate", userID, http.StatusOK, 25},
		{"clicks", userID, http.StatusBadRequest, 0},
		{"visits", outsider, http.StatusNotFound, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.statType, func(t *testing.T) {
			req := testutil.MakeRequest("GET", "/statistics/"+tc.statType, nil,
				testutil.AuthHeaders(t, cfg, tc.userID, auth.RoleMember, ""))
			req.SetPathValue("type", tc.statType)
			w := httptest.NewRecorder()

			handler(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)
			if tc.expectedStatus != http.StatusOK {
				return
			}
			var resp models.StatValueResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Value != tc.expectedValue {
				t.Errorf("Expected %s = %v, got %v", tc.statType, tc.expectedValue, resp.Value)
			}
		})
	}
}

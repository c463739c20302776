// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

// StatHistoryDays is the length of the daily visit series
const StatHistoryDays = 30

const statDateLayout = "2006-01-02"

var ErrInvalidStatType = errors.New("invalid statistic type")

var statTypes = []string{models.StatVisit, models.StatClick, models.StatConversion, models.StatReferral}

// Hit describes the request that produced a statistic
type Hit struct {
	ReferrerURL string
	IP          string
	UserAgent   string
}

// HitFromRequest captures referrer, client IP and user agent
func HitFromRequest(r *http.Request) Hit {
	return Hit{
		ReferrerURL: r.Referer(),
		IP:          middleware.GetClientIP(r),
		UserAgent:   r.UserAgent(),
	}
}

// RecordStatistic adds value to the user's counter for statType on the day of
// now. The hit details are kept from the first hit of the day.
func RecordStatistic(ctx context.Context, conn *sql.DB, userID, statType string, value int, hit Hit, now time.Time) error {
	if !lo.Contains(statTypes, statType) {
		return ErrInvalidStatType
	}

	id, err := auth.GenerateID(12)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO statistic (id, user_id, stat_type, stat_value, referrer_url, ip_address, user_agent, stat_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, stat_type, stat_date)
		DO UPDATE SET stat_value = statistic.stat_value + EXCLUDED.stat_value
	`, id, userID, statType, value, hit.ReferrerURL, hit.IP, hit.UserAgent, now.UTC().Format(statDateLayout), now.UTC())
	if err != nil {
		return fmt.Errorf("record statistic: %w", err)
	}
	return nil
}

// GetMemberStatistics returns the last 30 days of visits and lifetime totals
func GetMemberStatistics(ctx context.Context, conn *sql.DB, userID string, now time.Time) (models.MemberStatistics, error) {
	stats := models.MemberStatistics{DailyVisits: []models.DailyValue{}}
	since := now.UTC().AddDate(0, 0, -StatHistoryDays).Format(statDateLayout)

	rows, err := conn.QueryContext(ctx, `
		SELECT stat_date, SUM(stat_value)
		FROM statistic
		WHERE user_id = $1 AND stat_type = 'visit' AND stat_date >= $2
		GROUP BY stat_date
		ORDER BY stat_date ASC
	`, userID, since)
	if err != nil {
		return stats, fmt.Errorf("daily visits: %w", err)
	}
	for rows.Next() {
		var d models.DailyValue
		if err := rows.Scan(&d.Date, &d.Value); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan daily visits: %w", err)
		}
		stats.DailyVisits = append(stats.DailyVisits, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = conn.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN stat_type = 'visit' THEN stat_value ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN stat_type = 'click' THEN stat_value ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN stat_type = 'conversion' THEN stat_value ELSE 0 END), 0)
		FROM statistic WHERE user_id = $1
	`, userID).Scan(&stats.TotalVisits, &stats.TotalClicks, &stats.TotalConversions)
	if err != nil {
		return stats, fmt.Errorf("statistic totals: %w", err)
	}

	stats.ConversionRate = ConversionRate(stats.TotalConversions, stats.TotalClicks)
	return stats, nil
}

// ConversionRate is conversions per click as a percentage with two decimals
func ConversionRate(conversions, clicks int) float64 {
	if clicks <= 0 {
		return 0
	}
	return math.Round(float64(conversions)/float64(clicks)*100*100) / 100
}

type StatisticsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewStatisticsHandler(db *sql.DB, cfg cliparse.Config) *StatisticsHandler {
	return &StatisticsHandler{db: db, cfg: cfg}
}

// GetStat handles GET /statistics/{type}
func (h *StatisticsHandler) GetStat(w http.ResponseWriter, r *http.Request) {
	statType := r.PathValue("type")
	claims := middleware.SessionFrom(r.Context())

	member, err := GetMemberByUserID(r.Context(), h.db, claims.UserID)
	if errors.Is(err, ErrMemberNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		slog.Error("failed to load member", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load statistics")
		return
	}

	if statType == "referrals" {
		middleware.JSONResponse(w, http.StatusOK, models.StatValueResponse{Type: statType, Value: float64(member.TotalReferrals)})
		return
	}

	if !lo.Contains([]string{"visits", "conversions", "conversion_rate"}, statType) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown statistic type")
		return
	}

	stats, err := GetMemberStatistics(r.Context(), h.db, claims.UserID, time.Now())
	if err != nil {
		slog.Error("failed to load statistics", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load statistics")
		return
	}

	var value float64
	switch statType {
	case "visits":
		value = float64(stats.TotalVisits)
	case "conversions":
		value = float64(stats.TotalConversions)
	case "conversion_rate":
		value = stats.ConversionRate
	}

	middleware.JSONResponse(w, http.StatusOK, models.StatValueResponse{Type: statType, Value: value})
}

// GetStatistics handles GET /statistics
func (h *StatisticsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())
	stats, err := GetMemberStatistics(r.Context(), h.db, claims.UserID, time.Now())
	if err != nil {
		slog.Error("failed to load statistics", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load statistics")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stats)
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/db"
	"github.com/danielhkuo/mlm-members/mailer"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

// MembersPerPage is the admin list page size
const MembersPerPage = 20

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidStatus  = errors.New("invalid member status")
)

var memberStatuses = []string{models.StatusPending, models.StatusActive, models.StatusInactive, models.StatusFree}

var statusLevels = map[string]int{
	models.StatusFree:     1,
	models.StatusPending:  2,
	models.StatusInactive: 3,
	models.StatusActive:   4,
}

// StatusLevel ranks a status in the access hierarchy. Unknown statuses rank 0.
func StatusLevel(status string) int {
	return statusLevels[status]
}

// HasAccess reports whether a member status meets the required status.
// An unknown required status demands active.
func HasAccess(memberStatus, required string) bool {
	need, ok := statusLevels[required]
	if !ok {
		need = statusLevels[models.StatusActive]
	}
	return StatusLevel(memberStatus) >= need
}

// IsValidStatus reports whether s is one of the member statuses
func IsValidStatus(s string) bool {
	return lo.Contains(memberStatuses, s)
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const memberColumns = `m.id, m.user_id, m.sponsor_id, m.member_code, m.status, m.registration_date,
	m.activation_date, m.replica_url, m.total_referrals, m.level_position, m.custom_fields,
	m.created_at, m.updated_at`

func scanMember(row rowScanner, extra ...any) (models.Member, error) {
	var m models.Member
	var sponsorID, customFields sql.NullString
	var activation sql.NullTime

	dest := []any{
		&m.ID, &m.UserID, &sponsorID, &m.MemberCode, &m.Status, &m.RegistrationDate,
		&activation, &m.ReplicaURL, &m.TotalReferrals, &m.LevelPosition, &customFields,
		&m.CreatedAt, &m.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return m, err
	}

	if sponsorID.Valid && sponsorID.String != "" {
		m.SponsorID = &sponsorID.String
	}
	if activation.Valid {
		t := activation.Time
		m.ActivationDate = &t
	}
	if customFields.Valid && customFields.String != "" {
		if err := json.Unmarshal([]byte(customFields.String), &m.CustomFields); err != nil {
			slog.Warn("ignoring malformed custom fields", "member_id", m.ID, "error", err)
		}
	}
	return m, nil
}

func getMember(ctx context.Context, q execer, where string, arg any) (models.Member, error) {
	row := q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM member m WHERE `+where, arg)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrMemberNotFound
	}
	if err != nil {
		return m, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// GetMemberByID loads a member by primary key
func GetMemberByID(ctx context.Context, conn *sql.DB, memberID string) (models.Member, error) {
	return getMember(ctx, conn, `m.id = $1`, memberID)
}

// GetMemberByUserID loads the member row of an identity record
func GetMemberByUserID(ctx context.Context, conn *sql.DB, userID string) (models.Member, error) {
	return getMember(ctx, conn, `m.user_id = $1`, userID)
}

// GetMemberByCode loads a member by code, ignoring case
func GetMemberByCode(ctx context.Context, conn *sql.DB, code string) (models.Member, error) {
	return getMember(ctx, conn, `m.member_code = $1`, strings.ToUpper(strings.TrimSpace(code)))
}

// UpdateMemberStatus sets the status and, for active, the activation date.
// Sponsor referral counts are not touched.
func UpdateMemberStatus(ctx context.Context, conn *sql.DB, memberID, status string, now time.Time) error {
	if !IsValidStatus(status) {
		return ErrInvalidStatus
	}

	var res sql.Result
	var err error
	if status == models.StatusActive {
		res, err = conn.ExecContext(ctx, `
			UPDATE member SET status = $1, activation_date = $2, updated_at = $2 WHERE id = $3
		`, status, now.UTC(), memberID)
	} else {
		res, err = conn.ExecContext(ctx, `
			UPDATE member SET status = $1, updated_at = $2 WHERE id = $3
		`, status, now.UTC(), memberID)
	}
	if err != nil {
		return fmt.Errorf("update member status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// UpdateReferralCount stores the live child count on the sponsor row
func UpdateReferralCount(ctx context.Context, q execer, sponsorID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE member SET total_referrals = (SELECT COUNT(*) FROM member c WHERE c.sponsor_id = $1)
		WHERE id = $1
	`, sponsorID)
	if err != nil {
		return fmt.Errorf("update referral count: %w", err)
	}
	return nil
}

// DeleteMember removes a member row and recounts its sponsor's referrals.
// Children keep their sponsor_id. The identity record is kept.
func DeleteMember(ctx context.Context, conn *sql.DB, memberID string) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var sponsorID sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT sponsor_id FROM member WHERE id = $1`, memberID).Scan(&sponsorID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMemberNotFound
	}
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM member WHERE id = $1`, memberID); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}

	if sponsorID.Valid && sponsorID.String != "" {
		if err := UpdateReferralCount(ctx, tx, sponsorID.String); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// generateUniqueMemberCode draws codes until one is not taken
func generateUniqueMemberCode(ctx context.Context, q execer) (string, error) {
	for {
		code, err := auth.GenerateMemberCode()
		if err != nil {
			return "", err
		}

		var exists int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM member WHERE member_code = $1`, code).Scan(&exists); err != nil {
			return "", fmt.Errorf("check member code: %w", err)
		}
		if exists == 0 {
			return code, nil
		}
	}
}

// ReplicaURL builds a member's referral link from the site URL
func ReplicaURL(siteURL, urlType, code string) string {
	code = strings.ToLower(code)
	if urlType == models.ReplicaSubdomain {
		if u, err := url.Parse(siteURL); err == nil && u.Host != "" {
			return u.Scheme + "://" + code + "." + u.Host
		}
	}
	return strings.TrimRight(siteURL, "/") + "/ref/" + code
}

type MemberHandler struct {
	db   *sql.DB
	cfg  cliparse.Config
	mail mailer.Sender
}

func NewMemberHandler(db *sql.DB, cfg cliparse.Config, mail mailer.Sender) *MemberHandler {
	return &MemberHandler{db: db, cfg: cfg, mail: mail}
}

// MemberListFilter selects and orders the admin member list
type MemberListFilter struct {
	Search    string
	Status    string
	DateRange string
	OrderBy   string
	Order     string
	Page      int
}

var memberOrderColumns = map[string]string{
	"member":    "u.display_name",
	"code":      "m.member_code",
	"status":    "m.status",
	"referrals": "m.total_referrals",
	"date":      "m.registration_date",
}

// ListMembers returns one page of members joined with their user and sponsor
func ListMembers(ctx context.Context, conn *sql.DB, f MemberListFilter, now time.Time) (models.MemberListResponse, error) {
	if f.Page < 1 {
		f.Page = 1
	}

	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Search != "" {
		p := arg("%" + strings.ToLower(f.Search) + "%")
		where = append(where, fmt.Sprintf(
			"(LOWER(u.display_name) LIKE %[1]s OR LOWER(u.email) LIKE %[1]s OR LOWER(m.member_code) LIKE %[1]s)", p))
	}
	if f.Status != "" {
		where = append(where, "m.status = "+arg(f.Status))
	}

	now = now.UTC()
	switch f.DateRange {
	case "today":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		where = append(where, "m.registration_date >= "+arg(start))
	case "week":
		where = append(where, "m.registration_date >= "+arg(now.AddDate(0, 0, -7)))
	case "month":
		where = append(where, "m.registration_date >= "+arg(now.AddDate(0, -1, 0)))
	}

	column, ok := memberOrderColumns[f.OrderBy]
	if !ok {
		column = memberOrderColumns["date"]
	}
	direction := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		direction = "ASC"
	}

	from := `
		FROM member m
		LEFT JOIN users u ON m.user_id = u.id
		LEFT JOIN member s ON m.sponsor_id = s.id
		LEFT JOIN users su ON s.user_id = su.id
		WHERE ` + strings.Join(where, " AND ")

	var resp models.MemberListResponse
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) `+from, args...).Scan(&resp.Total); err != nil {
		return resp, fmt.Errorf("count members: %w", err)
	}

	limit := arg(MembersPerPage)
	offset := arg((f.Page - 1) * MembersPerPage)
	rows, err := conn.QueryContext(ctx, `
		SELECT `+memberColumns+`, COALESCE(u.display_name, ''), COALESCE(u.email, ''), s.member_code, su.display_name
		`+from+`
		ORDER BY `+column+` `+direction+`, m.id
		LIMIT `+limit+` OFFSET `+offset, args...)
	if err != nil {
		return resp, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	resp.Members = []models.MemberView{}
	for rows.Next() {
		var v models.MemberView
		var sponsorCode, sponsorName sql.NullString
		m, err := scanMember(rows, &v.DisplayName, &v.Email, &sponsorCode, &sponsorName)
		if err != nil {
			return resp, fmt.Errorf("scan member: %w", err)
		}
		v.Member = m
		if sponsorCode.Valid {
			v.SponsorCode = &sponsorCode.String
		}
		if sponsorName.Valid {
			v.SponsorName = &sponsorName.String
		}
		resp.Members = append(resp.Members, v)
	}
	if err := rows.Err(); err != nil {
		return resp, err
	}

	resp.CurrentPage = f.Page
	resp.TotalPages = int(math.Ceil(float64(resp.Total) / MembersPerPage))
	return resp, nil
}

// GetDashboardCounts returns the admin dashboard counters
func GetDashboardCounts(ctx context.Context, conn *sql.DB, now time.Time) (models.DashboardCounts, error) {
	var c models.DashboardCounts
	err := conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN registration_date >= $1 THEN 1 ELSE 0 END), 0)
		FROM member
	`, now.UTC().AddDate(0, 0, -7)).Scan(&c.TotalMembers, &c.ActiveMembers, &c.PendingMembers, &c.RecentRegistrations)
	if err != nil {
		return c, fmt.Errorf("dashboard counts: %w", err)
	}
	return c, nil
}

// ListMembers handles GET /admin/members
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))

	filter := MemberListFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		Status:    q.Get("status"),
		DateRange: q.Get("date_range"),
		OrderBy:   q.Get("orderby"),
		Order:     q.Get("order"),
		Page:      page,
	}
	if filter.Status != "" && !IsValidStatus(filter.Status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	resp, err := ListMembers(r.Context(), h.db, filter, time.Now())
	if err != nil {
		slog.Error("failed to list members", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list members")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetMember handles GET /admin/members/{id}
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("id")

	member, err := h.memberView(r.Context(), memberID)
	if errors.Is(err, ErrMemberNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		slog.Error("failed to get member", "error", err, "member_id", memberID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to get member")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, member)
}

func (h *MemberHandler) memberView(ctx context.Context, memberID string) (models.MemberView, error) {
	var v models.MemberView
	var sponsorCode, sponsorName sql.NullString
	row := h.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+`, COALESCE(u.display_name, ''), COALESCE(u.email, ''), s.member_code, su.display_name
		FROM member m
		LEFT JOIN users u ON m.user_id = u.id
		LEFT JOIN member s ON m.sponsor_id = s.id
		LEFT JOIN users su ON s.user_id = su.id
		WHERE m.id = $1
	`, memberID)
	m, err := scanMember(row, &v.DisplayName, &v.Email, &sponsorCode, &sponsorName)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrMemberNotFound
	}
	if err != nil {
		return v, fmt.Errorf("get member view: %w", err)
	}
	v.Member = m
	if sponsorCode.Valid {
		v.SponsorCode = &sponsorCode.String
	}
	if sponsorName.Valid {
		v.SponsorName = &sponsorName.String
	}
	return v, nil
}

// UpdateStatus handles POST /admin/members/{id}/status
func (h *MemberHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("id")

	var req models.UpdateStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.setStatus(r.Context(), memberID, req.Status); err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid status")
		case errors.Is(err, ErrMemberNotFound):
			middleware.ErrorResponse(w, http.StatusNotFound, "Member not found")
		default:
			slog.Error("failed to update member status", "error", err, "member_id", memberID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update member status")
		}
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{
		Success:  true,
		Message:  "Member status updated successfully",
		MemberID: memberID,
	})
}

// setStatus updates the status and mails the activation template when a
// member becomes active
func (h *MemberHandler) setStatus(ctx context.Context, memberID, status string) error {
	before, err := GetMemberByID(ctx, h.db, memberID)
	if err != nil {
		return err
	}

	if err := UpdateMemberStatus(ctx, h.db, memberID, status, time.Now()); err != nil {
		return err
	}
	slog.Info("member status updated", "member_id", memberID, "from", before.Status, "to", status)

	if status == models.StatusActive && before.Status != models.StatusActive {
		h.sendActivationEmail(ctx, before)
	}
	return nil
}

func (h *MemberHandler) sendActivationEmail(ctx context.Context, m models.Member) {
	user, err := GetUser(ctx, h.db, m.UserID)
	if err != nil {
		slog.Warn("activation email skipped", "member_id", m.ID, "error", err)
		return
	}
	settings, err := LoadGeneralSettings(ctx, h.db)
	if err != nil {
		slog.Warn("activation email skipped", "member_id", m.ID, "error", err)
		return
	}

	SendTemplateEmail(ctx, h.db, h.mail, db.TemplateActivation, user.Email, map[string]string{
		"member_name":     user.DisplayName,
		"member_area_url": memberAreaURL(settings, h.cfg),
	})
}

// DeleteMember handles DELETE /admin/members/{id}
func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("id")

	err := DeleteMember(r.Context(), h.db, memberID)
	if errors.Is(err, ErrMemberNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete member", "error", err, "member_id", memberID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete member")
		return
	}

	slog.Info("member deleted", "member_id", memberID)
	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{
		Success:  true,
		Message:  "Member deleted successfully.",
		MemberID: memberID,
	})
}

var bulkActions = map[string]struct {
	status string
	verb   string
}{
	"activate":    {models.StatusActive, "activated"},
	"deactivate":  {models.StatusInactive, "deactivated"},
	"set_pending": {models.StatusPending, "set to pending"},
	"delete":      {"", "deleted"},
}

// BulkAction handles POST /admin/members/bulk
func (h *MemberHandler) BulkAction(w http.ResponseWriter, r *http.Request) {
	var req models.BulkActionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	action, ok := bulkActions[req.Action]
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown bulk action")
		return
	}
	ids := lo.Uniq(lo.Compact(req.MemberIDs))
	if len(ids) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "member_ids is required")
		return
	}

	count := 0
	for _, id := range ids {
		var err error
		if req.Action == "delete" {
			err = DeleteMember(r.Context(), h.db, id)
		} else {
			err = h.setStatus(r.Context(), id, action.status)
		}
		if err != nil {
			if !errors.Is(err, ErrMemberNotFound) {
				slog.Error("bulk action failed", "action", req.Action, "member_id", id, "error", err)
			}
			continue
		}
		count++
	}

	slog.Info("bulk action applied", "action", req.Action, "requested", len(ids), "applied", count)
	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{
		Success: true,
		Message: fmt.Sprintf("%d members %s.", count, action.verb),
	})
}

// Dashboard handles GET /admin/dashboard
func (h *MemberHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := GetDashboardCounts(r.Context(), h.db, time.Now())
	if err != nil {
		slog.Error("failed to load dashboard counts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, counts)
}

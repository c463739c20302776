// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

// BuildNetworkTree returns the downline of root grouped by distance. Level 0
// holds direct referrals. Expansion stops after depth levels or at the first
// empty level. depth <= 0 uses the configured level count; anything above
// MaxNetworkTreeLevels is clamped.
//
// Each level is fetched with a single query. Members already placed are
// skipped, so a cyclic sponsor chain ends instead of repeating.
func BuildNetworkTree(ctx context.Context, conn *sql.DB, rootMemberID string, depth int) ([][]models.NetworkNode, error) {
	if depth <= 0 {
		settings, err := LoadGeneralSettings(ctx, conn)
		if err != nil {
			return nil, err
		}
		depth = settings.NetworkTreeLevels
	}
	depth = min(depth, MaxNetworkTreeLevels)

	tree := [][]models.NetworkNode{}
	visited := map[string]bool{rootMemberID: true}
	frontier := []string{rootMemberID}

	for level := 0; level < depth && len(frontier) > 0; level++ {
		children, err := fetchChildren(ctx, conn, frontier)
		if err != nil {
			return nil, fmt.Errorf("network level %d: %w", level, err)
		}

		var nodes []models.NetworkNode
		var next []string
		for _, c := range children {
			if visited[c.MemberID] {
				continue
			}
			visited[c.MemberID] = true
			nodes = append(nodes, c)
			next = append(next, c.MemberID)
		}
		if len(nodes) == 0 {
			break
		}

		tree = append(tree, nodes)
		frontier = next
	}

	return tree, nil
}

func fetchChildren(ctx context.Context, conn *sql.DB, parents []string) ([]models.NetworkNode, error) {
	placeholders := make([]string, len(parents))
	args := make([]any, len(parents))
	for i, id := range parents {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT m.id, m.sponsor_id, m.member_code, COALESCE(u.display_name, ''), COALESCE(u.email, ''),
			m.status, m.total_referrals, m.registration_date
		FROM member m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.sponsor_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY m.registration_date DESC, m.id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []models.NetworkNode
	for rows.Next() {
		var n models.NetworkNode
		if err := rows.Scan(&n.MemberID, &n.SponsorID, &n.MemberCode, &n.DisplayName, &n.Email,
			&n.Status, &n.TotalReferrals, &n.Registered); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

type NetworkHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewNetworkHandler(db *sql.DB, cfg cliparse.Config) *NetworkHandler {
	return &NetworkHandler{db: db, cfg: cfg}
}

// GetNetwork handles GET /network?depth=N for the session member
func (h *NetworkHandler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())

	depth := 0
	if v := r.URL.Query().Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "depth must be a number")
			return
		}
		depth = d
	}

	member, err := GetMemberByUserID(r.Context(), h.db, claims.UserID)
	if errors.Is(err, ErrMemberNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		slog.Error("failed to load member", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load network")
		return
	}

	levels, err := BuildNetworkTree(r.Context(), h.db, member.ID, depth)
	if err != nil {
		slog.Error("failed to build network tree", "error", err, "member_id", member.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load network")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.NetworkResponse{
		RootID: member.ID,
		Depth:  len(levels),
		Levels: levels,
	})
}

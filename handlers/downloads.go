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
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/danielhkuo/mlm-members/auth"
	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

var accessLevels = []string{models.AccessAll, models.AccessActive, models.AccessPremium}

// AccessLevelsFor lists the download access levels a member status may see
func AccessLevelsFor(status string) []string {
	if status == models.StatusActive {
		return accessLevels
	}
	return []string{models.AccessAll}
}

const downloadColumns = `id, title, description, file_url, file_type, file_size, access_level, download_count, status, created_by, created_at`

func scanDownload(row rowScanner) (models.Download, error) {
	var d models.Download
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.FileURL, &d.FileType, &d.FileSize,
		&d.AccessLevel, &d.DownloadCount, &d.Status, &d.CreatedBy, &d.CreatedAt)
	return d, err
}

func queryDownloads(ctx context.Context, conn *sql.DB, query string, args ...any) ([]models.Download, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	downloads := []models.Download{}
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

// ListMemberDownloads returns the active downloads visible to a member status
func ListMemberDownloads(ctx context.Context, conn *sql.DB, status string) ([]models.Download, error) {
	levels := AccessLevelsFor(status)
	placeholders := make([]string, len(levels))
	args := make([]any, len(levels))
	for i, l := range levels {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = l
	}

	return queryDownloads(ctx, conn, `
		SELECT `+downloadColumns+` FROM download
		WHERE status = 'active' AND access_level IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY created_at DESC, id
	`, args...)
}

// LogDownload records a fetch and bumps the counter
func LogDownload(ctx context.Context, conn *sql.DB, downloadID, userID, ip string, now time.Time) error {
	id, err := auth.GenerateID(12)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO download_log (id, download_id, user_id, ip_address, downloaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, downloadID, userID, ip, now.UTC())
	if err != nil {
		return fmt.Errorf("log download: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE download SET download_count = download_count + 1 WHERE id = $1`, downloadID)
	if err != nil {
		return fmt.Errorf("count download: %w", err)
	}

	return tx.Commit()
}

type DownloadHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewDownloadHandler(db *sql.DB, cfg cliparse.Config) *DownloadHandler {
	return &DownloadHandler{db: db, cfg: cfg}
}

// ListForMember handles GET /downloads
func (h *DownloadHandler) ListForMember(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())

	member, err := GetMemberByUserID(r.Context(), h.db, claims.UserID)
	if errors.Is(err, ErrMemberNotFound) {
		middleware.JSONResponse(w, http.StatusOK, []models.Download{})
		return
	}
	if err != nil {
		slog.Error("failed to load member", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list downloads")
		return
	}

	downloads, err := ListMemberDownloads(r.Context(), h.db, member.Status)
	if err != nil {
		slog.Error("failed to list downloads", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list downloads")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, downloads)
}

// Fetch handles GET /downloads/{id}: logs the download and redirects to the file
func (h *DownloadHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFrom(r.Context())
	downloadID := r.PathValue("id")

	d, err := scanDownload(h.db.QueryRowContext(r.Context(),
		`SELECT `+downloadColumns+` FROM download WHERE id = $1 AND status = 'active'`, downloadID))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Download not found")
		return
	}
	if err != nil {
		slog.Error("failed to load download", "error", err, "download_id", downloadID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load download")
		return
	}

	status := ""
	if member, err := GetMemberByUserID(r.Context(), h.db, claims.UserID); err == nil {
		status = member.Status
	} else if !errors.Is(err, ErrMemberNotFound) {
		slog.Error("failed to load member", "error", err, "user_id", claims.UserID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load download")
		return
	}
	if !lo.Contains(AccessLevelsFor(status), d.AccessLevel) {
		middleware.ErrorResponse(w, http.StatusForbidden, "This download is for active members")
		return
	}

	if err := LogDownload(r.Context(), h.db, d.ID, claims.UserID, middleware.GetClientIP(r), time.Now()); err != nil {
		slog.Error("failed to log download", "error", err, "download_id", d.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load download")
		return
	}

	http.Redirect(w, r, d.FileURL, http.StatusFound)
}

// ListAll handles GET /admin/downloads
func (h *DownloadHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	downloads, err := queryDownloads(r.Context(), h.db, `SELECT `+downloadColumns+` FROM download ORDER BY created_at DESC, id`)
	if err != nil {
		slog.Error("failed to list downloads", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list downloads")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, downloads)
}

// Create handles POST /admin/downloads
func (h *DownloadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDownloadRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if u, err := url.ParseRequestURI(req.FileURL); err != nil || u.Scheme == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "file_url must be an absolute URL")
		return
	}
	if req.AccessLevel == "" {
		req.AccessLevel = models.AccessActive
	}
	if !lo.Contains(accessLevels, req.AccessLevel) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid access_level")
		return
	}

	downloadID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate download ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create download")
		return
	}

	claims := middleware.SessionFrom(r.Context())
	now := time.Now().UTC()
	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO download (id, title, description, file_url, file_type, file_size, access_level, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8, $9, $9)
	`, downloadID, req.Title, req.Description, req.FileURL, req.FileType, req.FileSize, req.AccessLevel, claims.UserID, now)
	if err != nil {
		slog.Error("failed to insert download", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create download")
		return
	}

	slog.Info("download created", "download_id", downloadID, "access_level", req.AccessLevel)
	middleware.JSONResponse(w, http.StatusCreated, models.Download{
		ID:          downloadID,
		Title:       req.Title,
		Description: req.Description,
		FileURL:     req.FileURL,
		FileType:    req.FileType,
		FileSize:    req.FileSize,
		AccessLevel: req.AccessLevel,
		Status:      models.RecordActive,
		CreatedBy:   claims.UserID,
		CreatedAt:   now,
	})
}

// Delete handles DELETE /admin/downloads/{id}
func (h *DownloadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	downloadID := r.PathValue("id")

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete download")
		return
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(r.Context(), `DELETE FROM download_log WHERE download_id = $1`, downloadID); err != nil {
		slog.Error("failed to delete download logs", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete download")
		return
	}
	res, err := tx.ExecContext(r.Context(), `DELETE FROM download WHERE id = $1`, downloadID)
	if err != nil {
		slog.Error("failed to delete download", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete download")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Download not found")
		return
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit download deletion", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete download")
		return
	}

	slog.Info("download deleted", "download_id", downloadID)
	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{Success: true, Message: "Download deleted"})
}

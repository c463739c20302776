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
	"net/http"
	"time"

	"github.com/danielhkuo/mlm-members/cliparse"
	"github.com/danielhkuo/mlm-members/db"
	"github.com/danielhkuo/mlm-members/middleware"
	"github.com/danielhkuo/mlm-members/models"
)

// MaxNetworkTreeLevels caps how deep a network tree may be expanded
const MaxNetworkTreeLevels = 10

// LoadGeneralSettings reads the stored settings document. Keys missing from
// the stored document keep their default values.
func LoadGeneralSettings(ctx context.Context, conn *sql.DB) (models.GeneralSettings, error) {
	settings := db.DefaultGeneralSettings()

	var raw string
	err := conn.QueryRowContext(ctx, `SELECT value FROM setting WHERE name = $1`, db.GeneralSettingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("load settings: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return settings, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// SaveGeneralSettings validates and stores the settings document
func SaveGeneralSettings(ctx context.Context, conn *sql.DB, settings models.GeneralSettings) error {
	if settings.NetworkTreeLevels < 1 || settings.NetworkTreeLevels > MaxNetworkTreeLevels {
		return fmt.Errorf("%w: network_tree_levels must be between 1 and %d", ErrInvalidSettings, MaxNetworkTreeLevels)
	}
	if settings.ReplicaURLType != models.ReplicaPath && settings.ReplicaURLType != models.ReplicaSubdomain {
		return fmt.Errorf("%w: replica_url_type must be %q or %q", ErrInvalidSettings, models.ReplicaPath, models.ReplicaSubdomain)
	}
	if settings.AdminEmail != "" && !isValidEmail(settings.AdminEmail) {
		return fmt.Errorf("%w: admin_email is not a valid address", ErrInvalidSettings)
	}
	if settings.DefaultSponsor == "" {
		settings.DefaultSponsor = models.DefaultSponsorRandom
	}
	if settings.BankDetails == nil {
		settings.BankDetails = []models.BankDetail{}
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO setting (name, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, db.GeneralSettingsKey, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ErrInvalidSettings marks a settings document that fails validation
var ErrInvalidSettings = errors.New("invalid settings")

type SettingsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewSettingsHandler(db *sql.DB, cfg cliparse.Config) *SettingsHandler {
	return &SettingsHandler{db: db, cfg: cfg}
}

// GetSettings handles GET /admin/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := LoadGeneralSettings(r.Context(), h.db)
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /admin/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	// Start from the stored document so partial bodies keep other keys
	settings, err := LoadGeneralSettings(r.Context(), h.db)
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	if err := middleware.ParseJSONBody(r, &settings); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if settings.DefaultSponsor != "" && settings.DefaultSponsor != models.DefaultSponsorRandom {
		if _, err := GetMemberByID(r.Context(), h.db, settings.DefaultSponsor); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "default_sponsor is not a member")
			return
		}
	}

	if err := SaveGeneralSettings(r.Context(), h.db, settings); err != nil {
		if errors.Is(err, ErrInvalidSettings) {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to save settings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	slog.Info("settings updated")
	middleware.JSONResponse(w, http.StatusOK, settings)
}

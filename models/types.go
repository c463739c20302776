package models

import (
	"encoding/json"
	"time"
)

// Member status constants
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusFree     = "free"
)

// Form type constants
const (
	FormRegistration = "registration"
	FormProfile      = "profile"
	FormProspect     = "prospect"
	FormSubscribe    = "subscribe"
	FormCustom       = "custom"
)

// Record status shared by forms, downloads and e-mail templates
const (
	RecordActive   = "active"
	RecordInactive = "inactive"
)

// Submission status constants
const (
	SubmissionPending   = "pending"
	SubmissionProcessed = "processed"
	SubmissionRejected  = "rejected"
)

// Statistic type constants
const (
	StatVisit      = "visit"
	StatClick      = "click"
	StatConversion = "conversion"
	StatReferral   = "referral"
)

// Notification type constants
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Download access levels
const (
	AccessAll     = "all"
	AccessActive  = "active"
	AccessPremium = "premium"
)

// Domain types

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	DisplayName  string    `json:"display_name"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Member struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	SponsorID        *string           `json:"sponsor_id,omitempty"`
	MemberCode       string            `json:"member_code"`
	Status           string            `json:"status"`
	RegistrationDate time.Time         `json:"registration_date"`
	ActivationDate   *time.Time        `json:"activation_date,omitempty"`
	ReplicaURL       string            `json:"replica_url"`
	TotalReferrals   int               `json:"total_referrals"`
	LevelPosition    int               `json:"level_position"`
	CustomFields     map[string]string `json:"custom_fields,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// MemberView is a member joined with its identity record and sponsor
type MemberView struct {
	Member
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	SponsorCode *string `json:"sponsor_code,omitempty"`
	SponsorName *string `json:"sponsor_name,omitempty"`
}

// FormField describes one input of a form definition
type FormField struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
}

type Form struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Fields    []FormField     `json:"fields"`
	Settings  json.RawMessage `json:"settings"`
	Status    string          `json:"status"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Submission struct {
	ID          string            `json:"id"`
	FormID      string            `json:"form_id"`
	UserID      *string           `json:"user_id,omitempty"`
	ReferrerID  *string           `json:"referrer_id,omitempty"`
	Data        map[string]string `json:"data"`
	IPAddress   string            `json:"-"`
	UserAgent   string            `json:"-"`
	Status      string            `json:"status"`
	SubmittedAt time.Time         `json:"submitted_at"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
}

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	IsRead    bool       `json:"is_read"`
	ActionURL *string    `json:"action_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

type Download struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	FileURL       string    `json:"file_url"`
	FileType      string    `json:"file_type"`
	FileSize      int64     `json:"file_size"`
	AccessLevel   string    `json:"access_level"`
	DownloadCount int       `json:"download_count"`
	Status        string    `json:"status"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type EmailTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Variables []string  `json:"variables"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BankDetail struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	Branch        string `json:"branch"`
}

// GeneralSettings is the site-wide settings document
type GeneralSettings struct {
	MemberAreaURL       string       `json:"member_area_url"`
	RegistrationURL     string       `json:"registration_url"`
	SuccessURL          string       `json:"success_url"`
	AdminEmail          string       `json:"admin_email"`
	AdminContact        string       `json:"admin_contact"`
	DefaultSponsor      string       `json:"default_sponsor"` // member ID or "random"
	ReplicaURLType      string       `json:"replica_url_type"`
	NetworkTreeLevels   int          `json:"network_tree_levels"`
	EnableNotifications bool         `json:"enable_notifications"`
	AutoApproveMembers  bool         `json:"auto_approve_members"`
	BankDetails         []BankDetail `json:"bank_details"`
}

// Replica URL types
const (
	ReplicaPath      = "username"
	ReplicaSubdomain = "subdomain"
)

// DefaultSponsorRandom means no fixed default sponsor
const DefaultSponsorRandom = "random"

// NetworkNode is one member in a network tree level
type NetworkNode struct {
	MemberID       string    `json:"member_id"`
	SponsorID      string    `json:"sponsor_id"`
	MemberCode     string    `json:"member_code"`
	DisplayName    string    `json:"display_name"`
	Email          string    `json:"email"`
	Status         string    `json:"status"`
	TotalReferrals int       `json:"total_referrals"`
	Registered     time.Time `json:"registration_date"`
}

type DailyValue struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

type MemberStatistics struct {
	DailyVisits      []DailyValue `json:"daily_visits"`
	TotalVisits      int          `json:"total_visits"`
	TotalClicks      int          `json:"total_clicks"`
	TotalConversions int          `json:"total_conversions"`
	ConversionRate   float64      `json:"conversion_rate"`
}

type DashboardCounts struct {
	TotalMembers        int `json:"total_members"`
	ActiveMembers       int `json:"active_members"`
	PendingMembers      int `json:"pending_members"`
	RecentRegistrations int `json:"recent_registrations"`
}

// Request types

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SubmitFormRequest struct {
	Fields       map[string]string `json:"fields"`
	ReferrerCode string            `json:"referrer_code,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type BulkActionRequest struct {
	Action    string   `json:"action"`
	MemberIDs []string `json:"member_ids"`
}

type SaveFormRequest struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Fields   []FormField     `json:"fields"`
	Settings json.RawMessage `json:"settings"`
	Status   string          `json:"status,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type CreateDownloadRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FileURL     string `json:"file_url"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	AccessLevel string `json:"access_level"`
}

type UpdateEmailTemplateRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
	Status  string `json:"status,omitempty"`
}

// Response types

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
}

type ActionTokenResponse struct {
	Action string `json:"action"`
	Token  string `json:"token"`
}

// ResultResponse mirrors the success/message payload of every action
type ResultResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	UserID   string `json:"user_id,omitempty"`
	MemberID string `json:"member_id,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type MemberListResponse struct {
	Members     []MemberView `json:"members"`
	Total       int          `json:"total"`
	CurrentPage int          `json:"current_page"`
	TotalPages  int          `json:"total_pages"`
}

type NetworkResponse struct {
	RootID string          `json:"root_id"`
	Depth  int             `json:"depth"`
	Levels [][]NetworkNode `json:"levels"`
}

type StatValueResponse struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

type MemberDashboardResponse struct {
	User       User             `json:"user"`
	Member     Member           `json:"member"`
	Statistics MemberStatistics `json:"statistics"`
	Unread     int              `json:"unread_notifications"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

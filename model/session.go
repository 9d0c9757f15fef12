package model

import (
	"errors"
	"time"
)

// Stage constants for the intake workflow
const (
	StageUpload   = "upload"
	StageReview   = "review"
	StageComplete = "complete"
)

// SubagentDirect is the reserved selection meaning the policy is direct
// company business with no subagent. Distinct from an empty selection.
const SubagentDirect = "direct"

// Action names used for per-session in-flight guards
const (
	ActionUpload = "upload"
	ActionSave   = "save"
	ActionNotify = "notify"
)

var (
	// ErrSelectionIncomplete is returned before any network call when the
	// operator has not picked all required lookups.
	ErrSelectionIncomplete = errors.New("Please select insurer, policy type, and client")

	// ErrFileMissing is returned when no document was attached.
	ErrFileMissing = errors.New("Please attach a policy document")

	// ErrInvalidStage is returned when an operation is invoked outside the
	// stage it belongs to.
	ErrInvalidStage = errors.New("operation not allowed in current stage")

	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("action already in progress")

	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
)

// Selection is the operator-chosen context required before extraction.
type Selection struct {
	InsurerID    string `json:"insurerId"`
	PolicyTypeID string `json:"policyTypeId"`
	ClientID     string `json:"clientId"`
	SubagentID   string `json:"subagentId,omitempty"`
}

// Complete reports whether all mandatory fields are set. The subagent is
// optional.
func (s Selection) Complete() bool {
	return s.InsurerID != "" && s.PolicyTypeID != "" && s.ClientID != ""
}

// Session is one intake attempt: a staged document, the operator's
// selection, and the extracted record being reconciled. Lives only in
// memory; discarded on reset.
type Session struct {
	ID     string `json:"id"`
	Agency string `json:"agency"`
	Stage  string `json:"stage"`

	Selection Selection `json:"selection"`

	FileName     string `json:"fileName,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	PageCount    int    `json:"pageCount,omitempty"`
	StagedObject string `json:"-"`
	DocumentURL  string `json:"documentUrl,omitempty"`

	// PolicyID is assigned by the core API once upload succeeds. Review is
	// unreachable without it.
	PolicyID string `json:"policyId,omitempty"`

	// Extracted is the read-only "as extracted" record; Working is the
	// operator's mutable copy. Both are seeded from the same upload
	// response but never share structure.
	Extracted map[string]any `json:"extracted,omitempty"`
	Working   map[string]any `json:"working,omitempty"`

	EditMode  bool   `json:"editMode"`
	LastError string `json:"lastError,omitempty"`

	// InFlight tracks per-action busy flags; managed by the session
	// store, never serialized.
	InFlight map[string]bool `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

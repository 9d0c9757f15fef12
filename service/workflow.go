package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jeevijay-developers/riskmarshal-office/model"
	"github.com/jeevijay-developers/riskmarshal-office/pkg/fieldpath"
	"github.com/jeevijay-developers/riskmarshal-office/pkg/logger"
)

// WorkflowService drives an intake session through its three stages:
// upload, review, complete. Every mutating action is single-flight per
// session; a failed call leaves the session in its prior stage with only
// the error message changed, so retrying is always possible.
type WorkflowService struct {
	core      *CoreClient
	documents *DocumentStore
	store     *SessionStore
}

// NewWorkflowService creates the workflow controller. documents may be
// nil when no staging storage is configured.
func NewWorkflowService(core *CoreClient, documents *DocumentStore, store *SessionStore) *WorkflowService {
	return &WorkflowService{
		core:      core,
		documents: documents,
		store:     store,
	}
}

// SubmitUpload validates the operator's selection, stages the scan, and
// submits it to the core API for extraction. On success the session
// enters review with the as-extracted copy and the working copy seeded
// independently; on any failure it stays in upload.
func (w *WorkflowService) SubmitUpload(ctx context.Context, sessionID string, sel model.Selection, filename string, data []byte, contentType string) (*model.Session, error) {
	sess := w.store.Get(sessionID)
	if sess == nil {
		return nil, model.ErrSessionNotFound
	}
	if sess.Stage != model.StageUpload {
		return nil, model.ErrInvalidStage
	}

	// Validation failures never reach the network
	if !sel.Complete() {
		sess.LastError = model.ErrSelectionIncomplete.Error()
		w.store.Save(sess)
		return nil, model.ErrSelectionIncomplete
	}
	if filename == "" || len(data) == 0 {
		sess.LastError = model.ErrFileMissing.Error()
		w.store.Save(sess)
		return nil, model.ErrFileMissing
	}

	if !w.store.TryBegin(sessionID, model.ActionUpload) {
		return nil, model.ErrBusy
	}
	defer w.store.End(sessionID, model.ActionUpload)

	sess.Selection = sel
	sess.FileName = filename
	sess.FileSize = int64(len(data))

	// Staging is a convenience for the review screen; the upload proceeds
	// even when object storage is down
	if w.documents != nil {
		staged, err := w.documents.Stage(ctx, sess.Agency, sess.ID, filename, data, contentType)
		if err != nil {
			logger.Warn(ctx, "failed to stage document", "session_id", sess.ID, "error", err)
		} else {
			sess.StagedObject = staged.ObjectName
			sess.DocumentURL = staged.URL
			sess.PageCount = staged.PageCount
		}
	}

	result, err := w.core.UploadPolicy(ctx, sel, filename, bytes.NewReader(data))
	if err != nil {
		sess.LastError = err.Error()
		w.store.Save(sess)
		return nil, err
	}

	sess.PolicyID = result.PolicyID
	if result.PDFURL != "" {
		sess.DocumentURL = result.PDFURL
	}
	sess.Extracted = fieldpath.Clone(result.Extracted)
	sess.Working = fieldpath.Clone(result.Extracted)
	sess.Stage = model.StageReview
	sess.EditMode = false
	sess.LastError = ""
	w.store.Save(sess)

	logger.Info(ctx, "upload extracted", "session_id", sess.ID, "policy_id", sess.PolicyID, "pages", sess.PageCount)
	return sess, nil
}

// SetField writes one field of the working copy at a dot-delimited path.
// The working copy is replaced, never mutated in place. kind "number"
// coerces unparseable input to 0; the UI deliberately does not block on
// malformed numeric entry.
func (w *WorkflowService) SetField(sessionID, path string, value any, kind string) (*model.Session, error) {
	sess := w.store.Get(sessionID)
	if sess == nil {
		return nil, model.ErrSessionNotFound
	}
	if sess.Stage != model.StageReview {
		return nil, model.ErrInvalidStage
	}

	if kind == "number" {
		value = coerceNumber(value)
	}
	sess.Working = fieldpath.Set(sess.Working, path, value)
	w.store.Save(sess)
	return sess, nil
}

// ToggleEditMode flips the presentation flag. Data is untouched.
func (w *WorkflowService) ToggleEditMode(sessionID string) (*model.Session, error) {
	sess := w.store.Get(sessionID)
	if sess == nil {
		return nil, model.ErrSessionNotFound
	}
	if sess.Stage != model.StageReview {
		return nil, model.ErrInvalidStage
	}

	sess.EditMode = !sess.EditMode
	w.store.Save(sess)
	return sess, nil
}

// Back returns from review to upload. Selection, staged file and any
// extracted data are retained; the next successful upload overwrites
// them.
func (w *WorkflowService) Back(sessionID string) (*model.Session, error) {
	sess := w.store.Get(sessionID)
	if sess == nil {
		return nil, model.ErrSessionNotFound
	}
	if sess.Stage != model.StageReview {
		return nil, model.ErrInvalidStage
	}

	sess.Stage = model.StageUpload
	w.store.Save(sess)
	return sess, nil
}

// SaveDraft persists the reconciled record: the full working copy goes to
// the OCR-data endpoint, the cleaned projection to the policy-update
// endpoint. Both must succeed for the session to complete; no validation
// is applied to the extracted fields themselves.
func (w *WorkflowService) SaveDraft(ctx context.Context, sessionID string) (*model.Session, error) {
	sess := w.store.Get(sessionID)
	if sess == nil {
		return nil, model.ErrSessionNotFound
	}
	if sess.Stage != model.StageReview || sess.PolicyID == "" {
		return nil, model.ErrInvalidStage
	}

	if !w.store.TryBegin(sessionID, model.ActionSave) {
		return nil, model.ErrBusy
	}
	defer w.store.End(sessionID, model.ActionSave)

	if err := w.core.UpdateOCRData(ctx, sess.PolicyID, sess.Working); err != nil {
		sess.LastError = err.Error()
		w.store.Save(sess)
		return nil, err
	}

	payload := policyUpdatePayload(sess.Selection, sess.Working)
	if err := w.core.UpdatePolicy(ctx, sess.PolicyID, payload); err != nil {
		sess.LastError = err.Error()
		w.store.Save(sess)
		return nil, err
	}

	sess.Stage = model.StageComplete
	sess.EditMode = false
	sess.LastError = ""
	w.store.Save(sess)

	logger.Info(ctx, "intake saved", "session_id", sess.ID, "policy_id", sess.PolicyID)
	return sess, nil
}

// NotifyClient asks the core API to message the policyholder. Only valid
// once the session is complete; single-flight so the button cannot fire
// twice. Failures are the caller's to surface (a toast, not the inline
// banner) and are not recorded on the session.
func (w *WorkflowService) NotifyClient(ctx context.Context, sessionID string) error {
	sess := w.store.Get(sessionID)
	if sess == nil {
		return model.ErrSessionNotFound
	}
	if sess.Stage != model.StageComplete || sess.PolicyID == "" {
		return model.ErrInvalidStage
	}

	if !w.store.TryBegin(sessionID, model.ActionNotify) {
		return model.ErrBusy
	}
	defer w.store.End(sessionID, model.ActionNotify)

	return w.core.NotifyWhatsApp(ctx, sess.PolicyID)
}

// Reset discards the whole attempt: file, selection, policy ID and
// extracted data all go, and the session returns to upload.
func (w *WorkflowService) Reset(ctx context.Context, sessionID string) (*model.Session, error) {
	sess := w.store.Get(sessionID)
	if sess == nil {
		return nil, model.ErrSessionNotFound
	}

	if sess.StagedObject != "" && w.documents != nil {
		if err := w.documents.Delete(ctx, sess.StagedObject); err != nil {
			logger.Warn(ctx, "failed to delete staged document", "object", sess.StagedObject, "error", err)
		}
	}

	sess.Stage = model.StageUpload
	sess.Selection = model.Selection{}
	sess.FileName = ""
	sess.FileSize = 0
	sess.PageCount = 0
	sess.StagedObject = ""
	sess.DocumentURL = ""
	sess.PolicyID = ""
	sess.Extracted = nil
	sess.Working = nil
	sess.EditMode = false
	sess.LastError = ""
	w.store.Save(sess)
	return sess, nil
}

// policyUpdatePayload projects the working copy into the core API's
// canonical update shape: selected client, optional subagent (omitted
// for direct business), and the three detail groups with empty leaves
// and emptied containers stripped.
func policyUpdatePayload(sel model.Selection, working map[string]any) map[string]any {
	payload := map[string]any{
		"client": sel.ClientID,
	}
	if sel.SubagentID != "" && sel.SubagentID != model.SubagentDirect {
		payload["subagent"] = sel.SubagentID
	}

	policyDetails := make(map[string]any)
	if branch, ok := working["policy"].(map[string]any); ok {
		for k, v := range branch {
			policyDetails[k] = v
		}
	}
	// Top-level document identifiers belong with the policy details
	if v, ok := working["policyNumber"]; ok {
		policyDetails["policyNumber"] = v
	}
	if v, ok := working["insurerName"]; ok {
		policyDetails["insurerName"] = v
	}

	groups := map[string]any{
		"policyDetails":  policyDetails,
		"vehicleDetails": working["vehicle"],
		"premiumDetails": working["premium"],
	}
	for key, group := range groups {
		branch, ok := group.(map[string]any)
		if !ok {
			continue
		}
		if cleaned := fieldpath.Clean(branch); cleaned != nil {
			payload[key] = cleaned
		}
	}

	return payload
}

// coerceNumber converts operator input to a number, mapping anything
// unparseable to 0.
func coerceNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

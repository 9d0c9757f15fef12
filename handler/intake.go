package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jeevijay-developers/riskmarshal-office/middleware"
	"github.com/jeevijay-developers/riskmarshal-office/model"
	"github.com/jeevijay-developers/riskmarshal-office/service"
)

// maxUploadBytes bounds the size of an uploaded policy scan.
const maxUploadBytes = 20 << 20 // 20 MB

// allowedExtensions restricts uploads to scanned policy documents.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// IntakeHandler exposes the policy intake workflow over HTTP. Sessions
// are scoped to the operator's agency.
type IntakeHandler struct {
	workflow *service.WorkflowService
	store    *service.SessionStore
}

func NewIntakeHandler(workflow *service.WorkflowService, store *service.SessionStore) *IntakeHandler {
	return &IntakeHandler{
		workflow: workflow,
		store:    store,
	}
}

// Create starts a new intake session in the upload stage
func (h *IntakeHandler) Create(c *gin.Context) {
	agency := middleware.GetAgency(c)
	session := h.store.Create(agency)

	c.JSON(http.StatusOK, session)
}

// List returns all intake sessions for the current agency
func (h *IntakeHandler) List(c *gin.Context) {
	agency := middleware.GetAgency(c)
	sessions := h.store.GetByAgency(agency)

	result := make([]gin.H, len(sessions))
	for i, sess := range sessions {
		result[i] = gin.H{
			"id":         sess.ID,
			"stage":      sess.Stage,
			"fileName":   sess.FileName,
			"policyId":   sess.PolicyID,
			"created_at": sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at": sess.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"sessions": result})
}

// Get returns a single session with its extracted data
func (h *IntakeHandler) Get(c *gin.Context) {
	sess := h.agencySession(c)
	if sess == nil {
		return
	}

	c.JSON(http.StatusOK, sess)
}

// Delete discards a session entirely
func (h *IntakeHandler) Delete(c *gin.Context) {
	sess := h.agencySession(c)
	if sess == nil {
		return
	}

	h.store.Delete(sess.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

// Upload stages the scanned document and submits it for extraction
func (h *IntakeHandler) Upload(c *gin.Context) {
	sess := h.agencySession(c)
	if sess == nil {
		return
	}

	sel := model.Selection{
		InsurerID:    c.PostForm("insurerId"),
		PolicyTypeID: c.PostForm("policyTypeId"),
		ClientID:     c.PostForm("clientId"),
		SubagentID:   c.PostForm("subagentId"),
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		// Selection validation runs first so the operator sees one message
		// for an empty form
		if !sel.Complete() {
			c.JSON(http.StatusBadRequest, gin.H{"error": model.ErrSelectionIncomplete.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": model.ErrFileMissing.Error()})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF and image files are allowed"})
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is too large"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is too large"})
		return
	}

	updated, err := h.workflow.SubmitUpload(c.Request.Context(), sess.ID, sel, header.Filename, data, contentType)
	if err != nil {
		h.workflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

type setFieldRequest struct {
	Path  string `json:"path" binding:"required"`
	Value any    `json:"value"`
	Kind  string `json:"kind"`
}

// SetField updates one field of the working copy
func (h *IntakeHandler) SetField(c *gin.Context) {
	sess := h.agencySession(c)
	if sess == nil {
		return
	}

	var req setFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updated, err := h.workflow.SetField(sess.ID, req.Path, req.Value, req.Kind)
	if err != nil {
		h.workflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ToggleEditMode flips between static and editable field rendering
func (h *IntakeHandler) ToggleEditMode(c *gin.Context) {
	sess := h.agencySession(c)
	if sess == nil {
		return
	}

	updated, err := h.workflow.ToggleEditMode(sess.ID)
	if err != nil {
		h.workflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Save persists the reconciled record and completes the session
func (h *IntakeHandler) Save(c *gin.Context) {
	sess := h.agencySession(c)
	if sess == nil {
		return
	}

	updated, err := h.workflow.SaveDraft(c.Request.Context(), sess.ID)
	if err != nil {
		h.workflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Back returns from review to the upload stage
func (h *IntakeHandler) Back(c *gin.Context) {
	sess := h.agencySession(c)
	if sess == nil {
		return
	}

	updated, err := h.workflow.Back(sess.ID)
	if err != nil {
		h.workflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Notify sends the policy document to the client over WhatsApp
func (h *IntakeHandler) Notify(c *gin.Context) {
	sess := h.agencySession(c)
	if sess == nil {
		return
	}

	if err := h.workflow.NotifyClient(c.Request.Context(), sess.ID); err != nil {
		h.workflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Client notified"})
}

// Reset discards the attempt and returns the session to upload
func (h *IntakeHandler) Reset(c *gin.Context) {
	sess := h.agencySession(c)
	if sess == nil {
		return
	}

	updated, err := h.workflow.Reset(c.Request.Context(), sess.ID)
	if err != nil {
		h.workflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// agencySession resolves the :id route parameter within the caller's
// agency, writing the 404 itself when the session is missing or foreign.
func (h *IntakeHandler) agencySession(c *gin.Context) *model.Session {
	agency := middleware.GetAgency(c)
	sess := h.store.Get(c.Param("id"))
	if sess == nil || sess.Agency != agency {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil
	}
	return sess
}

func (h *IntakeHandler) workflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrSelectionIncomplete), errors.Is(err, model.ErrFileMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidStage), errors.Is(err, model.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		// Core API and transport failures surface verbatim for the inline
		// banner
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

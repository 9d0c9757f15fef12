package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/jeevijay-developers/riskmarshal-office/config"
	"github.com/jeevijay-developers/riskmarshal-office/model"
)

// genericFailure is surfaced when the core API fails without a readable
// message in the body.
const genericFailure = "Request failed"

// CoreClient talks to the insurance core API: lookups, document
// upload+extraction, OCR corrections, policy updates and client
// messaging.
type CoreClient struct {
	config     *config.CoreConfig
	httpClient *http.Client
}

func NewCoreClient(cfg *config.CoreConfig) *CoreClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &CoreClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// coreEnvelope is the uniform response wrapper of the core API.
type coreEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *CoreClient) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	}
	// Multipart bodies carry their own boundary content type
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// do executes the request and unwraps the envelope. Non-2xx statuses and
// success=false bodies both surface the body's message verbatim, falling
// back to a generic failure string.
func (c *CoreClient) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env coreEnvelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (decodeErr == nil && !env.Success) {
		msg := genericFailure
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		return nil, errors.New(msg)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", decodeErr, string(body))
	}

	return env.Data, nil
}

func (c *CoreClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}

	data, err := c.do(req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// ListInsurers fetches the insurer lookup list
func (c *CoreClient) ListInsurers(ctx context.Context) ([]model.Insurer, error) {
	var insurers []model.Insurer
	if err := c.getJSON(ctx, "/policies/insurers", &insurers); err != nil {
		return nil, err
	}
	return insurers, nil
}

// ListPolicyTypes fetches the flat policy type list; grouping happens in
// the lookup cache.
func (c *CoreClient) ListPolicyTypes(ctx context.Context) ([]model.PolicyType, error) {
	var types []model.PolicyType
	if err := c.getJSON(ctx, "/policies/policy-types", &types); err != nil {
		return nil, err
	}
	return types, nil
}

// ListSubagents fetches the subagent lookup list
func (c *CoreClient) ListSubagents(ctx context.Context) ([]model.Subagent, error) {
	var subagents []model.Subagent
	if err := c.getJSON(ctx, "/subagents", &subagents); err != nil {
		return nil, err
	}
	return subagents, nil
}

// ListClients fetches clients, optionally filtered by a search query
func (c *CoreClient) ListClients(ctx context.Context, search string) ([]model.Client, error) {
	path := "/clients"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}

	var clients []model.Client
	if err := c.getJSON(ctx, path, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// UploadResult is the outcome of a successful upload+extract call.
type UploadResult struct {
	PolicyID  string
	PDFURL    string
	Extracted map[string]any
}

// UploadPolicy posts the scanned document with the operator's selection
// as a multipart form. The direct-business sentinel means the subagent
// field is omitted entirely.
func (c *CoreClient) UploadPolicy(ctx context.Context, sel model.Selection, filename string, file io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}

	writer.WriteField("insurerId", sel.InsurerID)
	writer.WriteField("policyTypeId", sel.PolicyTypeID)
	writer.WriteField("clientId", sel.ClientID)
	if sel.SubagentID != "" && sel.SubagentID != model.SubagentDirect {
		writer.WriteField("subagentId", sel.SubagentID)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/policies/upload", &buf, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		PolicyID      string         `json:"policyId"`
		PDFURL        string         `json:"pdfUrl"`
		ExtractedData map[string]any `json:"extractedData"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}

	return &UploadResult{
		PolicyID:  payload.PolicyID,
		PDFURL:    payload.PDFURL,
		Extracted: extractionSeed(payload.ExtractedData),
	}, nil
}

// extractionSeed reads the extraction payload from either of the two
// shapes the core API has shipped: a flat extractedFields object or the
// newer ai.parsed nesting. Absence of both yields an empty record, never
// an error.
func extractionSeed(raw map[string]any) map[string]any {
	if raw != nil {
		if fields, ok := raw["extractedFields"].(map[string]any); ok {
			return fields
		}
		if ai, ok := raw["ai"].(map[string]any); ok {
			if parsed, ok := ai["parsed"].(map[string]any); ok {
				return parsed
			}
		}
	}
	return map[string]any{}
}

func (c *CoreClient) putJSON(ctx context.Context, path string, body any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, path, bytes.NewBuffer(jsonData), "application/json")
	if err != nil {
		return err
	}

	_, err = c.do(req)
	return err
}

// UpdateOCRData sends the operator's corrected working copy back to the
// core API.
func (c *CoreClient) UpdateOCRData(ctx context.Context, policyID string, corrected map[string]any) error {
	body := map[string]any{"correctedData": corrected}
	return c.putJSON(ctx, "/policies/"+policyID+"/ocr-data", body)
}

// UpdatePolicy sends the deep-cleaned policy projection.
func (c *CoreClient) UpdatePolicy(ctx context.Context, policyID string, payload map[string]any) error {
	return c.putJSON(ctx, "/policies/"+policyID, payload)
}

// NotifyWhatsApp asks the core API to message the policyholder.
func (c *CoreClient) NotifyWhatsApp(ctx context.Context, policyID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/policies/"+policyID+"/notify-whatsapp", nil, "")
	if err != nil {
		return err
	}

	_, err = c.do(req)
	return err
}

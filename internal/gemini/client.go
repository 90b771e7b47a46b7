// Package gemini turns a prompt, an optional attached file and a mode into a
// single self-contained HTML document by calling the Gemini generateContent
// REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/internal/credential"
	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// Defaults for Config.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

// Temperature is the sampling temperature sent with every request.
const Temperature = 0.7

// Placeholder is returned when the model produces no usable text.
const Placeholder = "<!-- generation produced no content -->"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 32 << 20

// Config holds client settings. Zero values select the defaults.
type Config struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Client calls the generateContent endpoint. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client. logger may be nil.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// Request is one generation. FileData is base64 and travels with
// FileMimeType; both are set or both are empty.
type Request struct {
	Credential   string
	Prompt       string
	FileData     string
	FileMimeType string
	Mode         types.Mode
}

// Wire types for the generateContent REST API.
type (
	generateRequest struct {
		Contents          []content        `json:"contents"`
		SystemInstruction *content         `json:"systemInstruction,omitempty"`
		GenerationConfig  generationConfig `json:"generationConfig"`
	}

	content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}

	part struct {
		Text       string      `json:"text,omitempty"`
		InlineData *inlineData `json:"inlineData,omitempty"`
	}

	inlineData struct {
		Data     string `json:"data"`
		MimeType string `json:"mimeType"`
	}

	generationConfig struct {
		Temperature float64 `json:"temperature"`
	}

	generateResponse struct {
		Candidates []candidate `json:"candidates"`
		Error      *apiError   `json:"error,omitempty"`
	}

	candidate struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	}

	apiError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
)

// Generate returns the HTML document for req. Preconditions are checked
// before any network traffic. Failures carry a types sentinel so callers can
// classify them with types.KindOf.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	mode, err := checkRequest(req)
	if err != nil {
		return "", err
	}

	hasFile := req.FileData != ""
	parts := []part{{Text: instruction(mode, req.Prompt, hasFile)}}
	if hasFile {
		parts = append(parts, part{InlineData: &inlineData{
			Data:     req.FileData,
			MimeType: req.FileMimeType,
		}})
	}
	body := generateRequest{
		Contents:          []content{{Parts: parts}},
		SystemInstruction: &content{Parts: []part{{Text: Persona(mode)}}},
		GenerationConfig:  generationConfig{Temperature: Temperature},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?%s",
		c.baseURL, url.PathEscape(c.model), url.Values{"key": {req.Credential}}.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: building request", types.ErrGenerationFailed)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	c.logger.Debug("generation request",
		zap.String("model", c.model),
		zap.String("mode", mode.String()),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Bool("attachment", hasFile))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrNetworkFailure, transportCause(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", types.ErrNetworkFailure, transportCause(err))
	}

	if err := classifyStatus(resp.StatusCode, raw, req.Credential); err != nil {
		c.logger.Debug("generation rejected",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)))
		return "", err
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", types.ErrGenerationFailed, err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("%w: %s", types.ErrGenerationFailed,
			redact(decoded.Error.Message, req.Credential))
	}

	out := StripFences(firstCandidateText(decoded))
	if strings.TrimSpace(out) == "" {
		c.logger.Warn("model returned no content", zap.String("model", c.model))
		out = Placeholder
	}

	c.logger.Debug("generation complete",
		zap.Int("html_len", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// checkRequest validates req in order: credential, attachment pairing, mode,
// prompt. It returns the effective mode.
func checkRequest(req Request) (types.Mode, error) {
	if err := credential.Validate(req.Credential); err != nil {
		return "", err
	}
	if (req.FileData == "") != (req.FileMimeType == "") {
		return "", types.ErrMalformedAttachment
	}
	mode := req.Mode
	if mode == "" {
		mode = types.ModeApp
	}
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownMode, string(mode))
	}
	if req.FileData == "" && strings.TrimSpace(req.Prompt) == "" {
		return "", types.ErrEmptyPrompt
	}
	return mode, nil
}

// classifyStatus maps a non-2xx response to a sentinel error.
func classifyStatus(status int, body []byte, key string) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := apiMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", types.ErrInvalidCredential, status)
	case status == http.StatusBadRequest && invalidKeyBody(body):
		return fmt.Errorf("%w (status %d)", types.ErrInvalidCredential, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d)", types.ErrQuotaExceeded, status)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("%w: status %d: %s", types.ErrGenerationFailed, status, redact(msg, key))
}

// invalidKeyBody reports whether a 400 body says the API key was rejected.
func invalidKeyBody(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "api_key_invalid") ||
		strings.Contains(lower, "api key not valid") ||
		strings.Contains(lower, "api key expired")
}

// apiMessage extracts error.message from an error body, if present.
func apiMessage(body []byte) string {
	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.Error == nil {
		return ""
	}
	return decoded.Error.Message
}

func firstCandidateText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// transportCause drops the *url.Error wrapper, whose text carries the
// request URL and with it the key.
func transportCause(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func redact(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, key, credential.Mask(key))
}

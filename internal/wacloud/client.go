// Package wacloud wraps the WhatsApp Cloud API for SwiftSend.
//
// It provides outbound message delivery (text, buttons, lists, templates)
// and the webhook payload types for inbound events.
package wacloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Constants for Cloud API configuration.
const (
	// DefaultBaseURL is the Graph API endpoint prefix.
	DefaultBaseURL = "https://graph.facebook.com/v19.0"
	// MaxTextLength is the provider's single-message character limit.
	MaxTextLength = 4096
	// MaxButtons is the most reply buttons one interactive message may carry.
	MaxButtons = 3
	// chunkSearchWindow is how far back from the limit the chunker looks
	// for a newline to split at.
	chunkSearchWindow = 256
	// DefaultRequestTimeout bounds every Cloud API HTTP call.
	DefaultRequestTimeout = 15 * time.Second

	// ErrCodeReengagement is the Cloud API error code returned when the
	// 24-hour customer service window is closed.
	ErrCodeReengagement = 131047
)

// APIError is a structured error returned by the Cloud API.
type APIError struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("cloud api error %d (%s): %s", e.Code, e.Type, e.Message)
}

// WindowClosed reports whether the error means the messaging window is closed.
func (e *APIError) WindowClosed() bool {
	return e.Code == ErrCodeReengagement
}

// Opts holds configuration options for the Cloud API client.
type Opts struct {
	Token         string // Cloud API access token
	PhoneNumberID string // sending phone number id
	BaseURL       string // override for tests
	HTTPClient    *http.Client
}

// Option defines a configuration option for the Cloud API client.
type Option func(*Opts)

// WithToken sets the Cloud API access token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithPhoneNumberID sets the sending phone number id.
func WithPhoneNumberID(id string) Option {
	return func(o *Opts) { o.PhoneNumberID = id }
}

// WithBaseURL overrides the Graph API endpoint (used in tests).
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client wraps the Cloud API messages endpoint.
type Client struct {
	token         string
	phoneNumberID string
	baseURL       string
	http          *http.Client
}

// NewClient creates a new Cloud API client, applying any provided options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("wacloud NewClient options set", "token_set", cfg.Token != "", "phone_number_id_set", cfg.PhoneNumberID != "")

	if cfg.Token == "" {
		return nil, fmt.Errorf("cloud api token must be provided")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("cloud api phone number id must be provided")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	return &Client{
		token:         cfg.Token,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		http:          cfg.HTTPClient,
	}, nil
}

// ChunkText splits a body exceeding MaxTextLength into provider-sized
// pieces, splitting preferentially at a newline near the boundary. Cuts
// never land inside a multi-byte rune.
func ChunkText(body string) []string {
	if len(body) <= MaxTextLength {
		return []string{body}
	}

	var chunks []string
	rest := body
	for len(rest) > MaxTextLength {
		cut := MaxTextLength
		if idx := strings.LastIndexByte(rest[MaxTextLength-chunkSearchWindow:MaxTextLength], '\n'); idx >= 0 {
			cut = MaxTextLength - chunkSearchWindow + idx
		} else {
			for cut > 0 && !utf8.RuneStart(rest[cut]) {
				cut--
			}
			if cut == 0 {
				// Not valid UTF-8; hard split rather than loop.
				cut = MaxTextLength
			}
		}
		chunks = append(chunks, strings.TrimRight(rest[:cut], "\n"))
		rest = strings.TrimLeft(rest[cut:], "\n")
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// SendText sends a plain text message, transparently chunking long bodies.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	if body == "" {
		return fmt.Errorf("message body cannot be empty")
	}

	for _, chunk := range ChunkText(body) {
		payload := map[string]interface{}{
			"messaging_product": "whatsapp",
			"to":                to,
			"type":              "text",
			"text":              map[string]interface{}{"body": chunk},
		}
		if err := c.post(ctx, "messages", payload); err != nil {
			return err
		}
	}
	return nil
}

// SendButtons sends an interactive message with up to three reply buttons.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []ReplyButton, header, footer string) error {
	if len(buttons) == 0 || len(buttons) > MaxButtons {
		return fmt.Errorf("interactive message requires 1-%d buttons, got %d", MaxButtons, len(buttons))
	}

	var actionButtons []map[string]interface{}
	for _, b := range buttons {
		actionButtons = append(actionButtons, map[string]interface{}{
			"type":  "reply",
			"reply": map[string]string{"id": b.ID, "title": b.Title},
		})
	}

	interactive := map[string]interface{}{
		"type":   "button",
		"body":   map[string]string{"text": body},
		"action": map[string]interface{}{"buttons": actionButtons},
	}
	if header != "" {
		interactive["header"] = map[string]string{"type": "text", "text": header}
	}
	if footer != "" {
		interactive["footer"] = map[string]string{"text": footer}
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive":       interactive,
	}
	return c.post(ctx, "messages", payload)
}

// SendList sends an interactive list message.
func (c *Client) SendList(ctx context.Context, to, body, buttonLabel string, sections []Section) error {
	if len(sections) == 0 {
		return fmt.Errorf("list message requires at least one section")
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type": "list",
			"body": map[string]string{"text": body},
			"action": map[string]interface{}{
				"button":   buttonLabel,
				"sections": sections,
			},
		},
	}
	return c.post(ctx, "messages", payload)
}

// SendTemplate sends a pre-approved template message. Used as the fallback
// when the messaging window is closed.
func (c *Client) SendTemplate(ctx context.Context, to, templateName, lang string, params []string) error {
	var components []map[string]interface{}
	if len(params) > 0 {
		var parameters []map[string]string
		for _, p := range params {
			parameters = append(parameters, map[string]string{"type": "text", "text": p})
		}
		components = append(components, map[string]interface{}{
			"type":       "body",
			"parameters": parameters,
		})
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]interface{}{
			"name":       templateName,
			"language":   map[string]string{"code": lang},
			"components": components,
		},
	}
	return c.post(ctx, "messages", payload)
}

// MarkRead marks an inbound message as read.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	return c.post(ctx, "messages", payload)
}

// ReplyButton is one reply button in a button message.
type ReplyButton struct {
	ID    string
	Title string
}

// Section is one section of a list message, shaped for the wire.
type Section struct {
	Title string       `json:"title,omitempty"`
	Rows  []SectionRow `json:"rows"`
}

// SectionRow is one selectable row of a list section.
type SectionRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// post sends one API request and decodes error responses into APIError.
func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal cloud api payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.phoneNumberID, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build cloud api request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("wacloud request failed", "error", err, "endpoint", endpoint)
		return fmt.Errorf("cloud api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		slog.Debug("wacloud request succeeded", "endpoint", endpoint, "status", resp.StatusCode)
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	var wrapper struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(respBody, &wrapper); err == nil && wrapper.Error.Code != 0 {
		slog.Error("wacloud api error", "code", wrapper.Error.Code, "message", wrapper.Error.Message, "endpoint", endpoint)
		return &wrapper.Error
	}
	return fmt.Errorf("cloud api returned status %d: %s", resp.StatusCode, string(respBody))
}

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
	"github.com/SwiftSendNG/SwiftSend/internal/wacloud"
)

// CloudService implements Gateway using the WhatsApp Cloud API client.
// This is the default production transport.
type CloudService struct {
	client *wacloud.Client
}

// Compile-time check that CloudService implements Gateway.
var _ Gateway = (*CloudService)(nil)

// NewCloudService creates a new CloudService wrapping the given client.
func NewCloudService(client *wacloud.Client) *CloudService {
	return &CloudService{client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a phone number.
func (s *CloudService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if !util.IsValidMobile(recipient) {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidPhone, recipient)
	}
	return util.CanonicalizePhone(recipient), nil
}

// SendText sends a plain text message; chunking is handled by the client.
func (s *CloudService) SendText(ctx context.Context, to, body string) error {
	return s.mapError(s.client.SendText(ctx, to, body))
}

// SendButtons sends an interactive button message.
func (s *CloudService) SendButtons(ctx context.Context, to, body string, buttons []models.Button, header, footer string) error {
	var reply []wacloud.ReplyButton
	for _, b := range buttons {
		reply = append(reply, wacloud.ReplyButton{ID: b.ID, Title: b.Title})
	}
	return s.mapError(s.client.SendButtons(ctx, to, body, reply, header, footer))
}

// SendList sends an interactive list message.
func (s *CloudService) SendList(ctx context.Context, to, body, buttonLabel string, sections []models.ListSection) error {
	var out []wacloud.Section
	for _, sec := range sections {
		ws := wacloud.Section{Title: sec.Title}
		for _, row := range sec.Rows {
			ws.Rows = append(ws.Rows, wacloud.SectionRow{ID: row.ID, Title: row.Title, Description: row.Description})
		}
		out = append(out, ws)
	}
	return s.mapError(s.client.SendList(ctx, to, body, buttonLabel, out))
}

// SendTemplate sends a pre-approved template message.
func (s *CloudService) SendTemplate(ctx context.Context, to, templateName, lang string, params []string) error {
	return s.mapError(s.client.SendTemplate(ctx, to, templateName, lang, params))
}

// MarkRead marks an inbound message as read.
func (s *CloudService) MarkRead(ctx context.Context, messageID string) error {
	return s.client.MarkRead(ctx, messageID)
}

// mapError converts the provider's re-engagement error into ErrWindowClosed
// so callers stay decoupled from Cloud API error codes.
func (s *CloudService) mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *wacloud.APIError
	if errors.As(err, &apiErr) && apiErr.WindowClosed() {
		slog.Debug("CloudService messaging window closed", "code", apiErr.Code)
		return fmt.Errorf("%w: %s", ErrWindowClosed, apiErr.Message)
	}
	return err
}

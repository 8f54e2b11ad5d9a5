package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
	"github.com/SwiftSendNG/SwiftSend/internal/whatsapp"
)

// WhatsAppService implements Gateway over a self-hosted whatsmeow session.
// The transport has no interactive messages, templates, or read receipts,
// so buttons and lists degrade to numbered text menus and templates send as
// plain text. There is no messaging window on this transport.
type WhatsAppService struct {
	client whatsapp.Sender
}

// Compile-time check that WhatsAppService implements Gateway.
var _ Gateway = (*WhatsAppService)(nil)

// NewWhatsAppService creates a new WhatsAppService.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	return &WhatsAppService{client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a phone number.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if !util.IsValidMobile(recipient) {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidPhone, recipient)
	}
	return util.CanonicalizePhone(recipient), nil
}

// SendText sends a plain text message.
func (s *WhatsAppService) SendText(ctx context.Context, to, body string) error {
	return s.client.SendMessage(ctx, to, body)
}

// SendButtons degrades the button message to a numbered text menu.
func (s *WhatsAppService) SendButtons(ctx context.Context, to, body string, buttons []models.Button, header, footer string) error {
	slog.Debug("WhatsAppService degrading buttons to text", "to", to, "buttons", len(buttons))
	return s.client.SendMessage(ctx, to, renderButtonsAsText(body, buttons, header, footer))
}

// SendList degrades the list message to a numbered text menu.
func (s *WhatsAppService) SendList(ctx context.Context, to, body, buttonLabel string, sections []models.ListSection) error {
	slog.Debug("WhatsAppService degrading list to text", "to", to)
	return s.client.SendMessage(ctx, to, renderListAsText(body, sections))
}

// SendTemplate sends the template parameters as a plain text message.
func (s *WhatsAppService) SendTemplate(ctx context.Context, to, templateName, lang string, params []string) error {
	body := templateName
	for _, p := range params {
		body += "\n" + p
	}
	return s.client.SendMessage(ctx, to, body)
}

// MarkRead is a no-op on this transport.
func (s *WhatsAppService) MarkRead(ctx context.Context, messageID string) error {
	return nil
}

package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/twiliowhatsapp"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

// TwilioService implements Gateway over the Twilio WhatsApp API. The Go SDK
// does not expose interactive messages, so buttons and lists degrade to
// numbered text menus. Twilio expects recipients in "+<countrycode>" form.
type TwilioService struct {
	client twiliowhatsapp.Sender
}

// Compile-time check that TwilioService implements Gateway.
var _ Gateway = (*TwilioService)(nil)

// NewTwilioService creates a new TwilioService.
func NewTwilioService(client twiliowhatsapp.Sender) *TwilioService {
	return &TwilioService{client: client}
}

// ValidateAndCanonicalizeRecipient validates the phone and returns it in
// the "+"-prefixed international form Twilio requires.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if !util.IsValidMobile(recipient) {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidPhone, recipient)
	}
	return "+" + util.CanonicalizePhone(recipient), nil
}

// SendText sends a plain text message.
func (s *TwilioService) SendText(ctx context.Context, to, body string) error {
	return s.client.SendMessage(ctx, s.plusForm(to), body)
}

// SendButtons degrades the button message to a numbered text menu.
func (s *TwilioService) SendButtons(ctx context.Context, to, body string, buttons []models.Button, header, footer string) error {
	slog.Debug("TwilioService degrading buttons to text", "to", to, "buttons", len(buttons))
	return s.client.SendMessage(ctx, s.plusForm(to), renderButtonsAsText(body, buttons, header, footer))
}

// SendList degrades the list message to a numbered text menu.
func (s *TwilioService) SendList(ctx context.Context, to, body, buttonLabel string, sections []models.ListSection) error {
	slog.Debug("TwilioService degrading list to text", "to", to)
	return s.client.SendMessage(ctx, s.plusForm(to), renderListAsText(body, sections))
}

// SendTemplate sends the template parameters as a plain text message.
func (s *TwilioService) SendTemplate(ctx context.Context, to, templateName, lang string, params []string) error {
	body := templateName
	for _, p := range params {
		body += "\n" + p
	}
	return s.client.SendMessage(ctx, s.plusForm(to), body)
}

// MarkRead is a no-op on this transport.
func (s *TwilioService) MarkRead(ctx context.Context, messageID string) error {
	return nil
}

func (s *TwilioService) plusForm(to string) string {
	if len(to) > 0 && to[0] == '+' {
		return to
	}
	return "+" + to
}

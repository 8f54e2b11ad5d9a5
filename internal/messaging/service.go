// Package messaging provides the outbound messaging capability consumed by
// the session engine and routers, with Cloud API, whatsmeow, and Twilio
// implementations.
package messaging

import (
	"context"
	"errors"
	"strconv"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
)

// ErrWindowClosed is returned when the provider rejects a send because the
// recipient is outside the messaging window. The dispatcher retries such
// sends through a pre-approved template before giving up.
var ErrWindowClosed = errors.New("recipient is outside the messaging window")

// Gateway defines the pluggable message delivery abstraction.
// Implementations that cannot render interactive messages natively degrade
// them to numbered text menus.
type Gateway interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a
	// recipient identifier. Returns the canonicalized recipient and an
	// error if validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendText sends a plain text message, chunking bodies that exceed the
	// provider's single-message limit.
	SendText(ctx context.Context, to, body string) error

	// SendButtons sends a message with up to three reply buttons.
	SendButtons(ctx context.Context, to, body string, buttons []models.Button, header, footer string) error

	// SendList sends a message with a selection list.
	SendList(ctx context.Context, to, body, buttonLabel string, sections []models.ListSection) error

	// SendTemplate sends a pre-approved template message; the fallback for
	// recipients outside the messaging window.
	SendTemplate(ctx context.Context, to, templateName, lang string, params []string) error

	// MarkRead marks an inbound message as read.
	MarkRead(ctx context.Context, messageID string) error
}

// renderButtonsAsText degrades a button message to a numbered menu for
// transports without interactive message support.
func renderButtonsAsText(body string, buttons []models.Button, header, footer string) string {
	out := ""
	if header != "" {
		out += header + "\n\n"
	}
	out += body + "\n"
	for i, b := range buttons {
		out += "\n" + strconv.Itoa(i+1) + ". " + b.Title
	}
	if footer != "" {
		out += "\n\n" + footer
	}
	return out
}

// renderListAsText degrades a list message to a numbered menu.
func renderListAsText(body string, sections []models.ListSection) string {
	out := body + "\n"
	n := 0
	for _, sec := range sections {
		if sec.Title != "" {
			out += "\n" + sec.Title + ":"
		}
		for _, row := range sec.Rows {
			n++
			out += "\n" + strconv.Itoa(n) + ". " + row.Title
			if row.Description != "" {
				out += " - " + row.Description
			}
		}
	}
	return out
}

package messaging

import (
	"context"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

// MockGateway is a recording Gateway implementation for tests. Error fields
// can be set to simulate provider failures on specific calls.
type MockGateway struct {
	Texts     []SentText
	Buttons   []SentButtons
	Lists     []SentList
	Templates []SentTemplate
	ReadIDs   []string

	TextErr     error
	ButtonsErr  error
	ListErr     error
	TemplateErr error

	// WindowClosedFor lists recipients for whom SendText, SendButtons, and
	// SendList fail with ErrWindowClosed.
	WindowClosedFor []string
}

// SentText records one SendText call.
type SentText struct {
	To   string
	Body string
}

// SentButtons records one SendButtons call.
type SentButtons struct {
	To      string
	Body    string
	Buttons []models.Button
	Header  string
	Footer  string
}

// SentList records one SendList call.
type SentList struct {
	To       string
	Body     string
	Label    string
	Sections []models.ListSection
}

// SentTemplate records one SendTemplate call.
type SentTemplate struct {
	To     string
	Name   string
	Lang   string
	Params []string
}

// Compile-time check that MockGateway implements Gateway.
var _ Gateway = (*MockGateway)(nil)

// NewMockGateway creates an empty recording gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// ValidateAndCanonicalizeRecipient applies the real phone validation so tests
// exercise the same recipient handling as production.
func (m *MockGateway) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if !util.IsValidMobile(recipient) {
		return "", models.ErrInvalidPhone
	}
	return util.CanonicalizePhone(recipient), nil
}

// SendText records the message.
func (m *MockGateway) SendText(ctx context.Context, to, body string) error {
	if m.windowClosed(to) {
		return ErrWindowClosed
	}
	if m.TextErr != nil {
		return m.TextErr
	}
	m.Texts = append(m.Texts, SentText{To: to, Body: body})
	return nil
}

// SendButtons records the message.
func (m *MockGateway) SendButtons(ctx context.Context, to, body string, buttons []models.Button, header, footer string) error {
	if m.windowClosed(to) {
		return ErrWindowClosed
	}
	if m.ButtonsErr != nil {
		return m.ButtonsErr
	}
	m.Buttons = append(m.Buttons, SentButtons{To: to, Body: body, Buttons: buttons, Header: header, Footer: footer})
	return nil
}

// SendList records the message.
func (m *MockGateway) SendList(ctx context.Context, to, body, buttonLabel string, sections []models.ListSection) error {
	if m.windowClosed(to) {
		return ErrWindowClosed
	}
	if m.ListErr != nil {
		return m.ListErr
	}
	m.Lists = append(m.Lists, SentList{To: to, Body: body, Label: buttonLabel, Sections: sections})
	return nil
}

// SendTemplate records the message. Template sends succeed even for
// recipients listed in WindowClosedFor, matching provider behavior.
func (m *MockGateway) SendTemplate(ctx context.Context, to, templateName, lang string, params []string) error {
	if m.TemplateErr != nil {
		return m.TemplateErr
	}
	m.Templates = append(m.Templates, SentTemplate{To: to, Name: templateName, Lang: lang, Params: params})
	return nil
}

// MarkRead records the message ID.
func (m *MockGateway) MarkRead(ctx context.Context, messageID string) error {
	m.ReadIDs = append(m.ReadIDs, messageID)
	return nil
}

// AllBodies returns every recorded body in send order, for assertions that
// only care about content.
func (m *MockGateway) AllBodies() []string {
	var out []string
	for _, t := range m.Texts {
		out = append(out, t.Body)
	}
	for _, b := range m.Buttons {
		out = append(out, b.Body)
	}
	for _, l := range m.Lists {
		out = append(out, l.Body)
	}
	return out
}

func (m *MockGateway) windowClosed(to string) bool {
	for _, w := range m.WindowClosedFor {
		if w == to || util.CanonicalizePhone(w) == util.CanonicalizePhone(to) {
			return true
		}
	}
	return false
}

package intent

import (
	"regexp"
	"strings"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
)

// Static button id table for menu-level buttons that carry no resource id.
// Buttons that reference a session or rider use structured reply ids instead.
var buttonIntents = map[string]Intent{
	"btn_menu":         IntentMenu,
	"btn_new_delivery": IntentCreateDelivery,
	"btn_status":       IntentStatus,
	"btn_summary":      IntentSummary,
	"btn_riders":       IntentListRiders,
	"btn_export":       IntentExport,
	"btn_help":         IntentHelp,
}

// Free-text rules in priority order. The first matching rule wins even when
// a later one would also match.
var (
	menuRe = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|howdy|good\s+(morning|afternoon|evening)|menu|start)\s*[!.]*\s*$`)

	// "deliver to 12 Ikorodu Rd for Ada, 08011112222"
	richDeliveryRe = regexp.MustCompile(`(?i)\bdeliver(?:y)?\s+to\s+(.+?)\s+for\s+(.+?)(?:,\s*|\s+)(\+?234\d{10}|0\d{10})\s*$`)

	createRe  = regexp.MustCompile(`(?i)\b(new\s+(delivery|order)|create\s+(a\s+)?(delivery|order)|send\s+(a\s+)?(package|parcel)|dispatch)\b`)
	statusRe  = regexp.MustCompile(`(?i)\b(status|track|tracking|where)\b`)
	summaryRe = regexp.MustCompile(`(?i)\b(summary|report|daily)\b`)
	ridersRe  = regexp.MustCompile(`(?i)\b(riders?)\b`)
	cancelRe  = regexp.MustCompile(`(?i)\bcancel\b`)
	exportRe  = regexp.MustCompile(`(?i)\bexport\b`)
	helpRe    = regexp.MustCompile(`(?i)\bhelp\b`)

	refTokenRe = regexp.MustCompile(`^#?[A-Za-z0-9][A-Za-z0-9-]*$`)
)

// Filler words skipped when extracting a trailing reference token from a
// status query.
var statusStopWords = map[string]bool{
	"status": true, "track": true, "tracking": true, "where": true,
	"is": true, "of": true, "for": true, "my": true, "the": true,
	"order": true, "delivery": true, "package": true, "parcel": true,
	"it": true, "please": true,
}

// Parse maps a normalized inbound message to an intent with parameters.
func Parse(msg models.IncomingMessage) Result {
	if msg.Type == models.MessageTypeLocation {
		return Result{
			Intent: IntentLocationShared,
			Params: Params{Latitude: msg.Latitude, Longitude: msg.Longitude, Address: msg.Address},
		}
	}

	if msg.ButtonID != "" {
		if in, ok := buttonIntents[msg.ButtonID]; ok {
			return Result{Intent: in, Params: Params{Raw: msg.ButtonTitle}}
		}
		if res, ok := parseReplyID(msg.ButtonID); ok {
			return res
		}
		return ParseText(msg.ButtonTitle)
	}

	if msg.ListReplyID != "" {
		if res, ok := parseReplyID(msg.ListReplyID); ok {
			return res
		}
		return ParseText(msg.ButtonTitle)
	}

	return ParseText(msg.Text)
}

// ParseText applies the ordered free-text rules.
func ParseText(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Intent: IntentUnknown, Params: Params{Raw: text}}
	}

	if menuRe.MatchString(trimmed) {
		return Result{Intent: IntentMenu, Params: Params{Raw: trimmed}}
	}

	if m := richDeliveryRe.FindStringSubmatch(trimmed); m != nil {
		return Result{Intent: IntentCreateDelivery, Params: Params{
			Destination:   strings.TrimSpace(m[1]),
			CustomerName:  strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[2]), ",")),
			CustomerPhone: m[3],
			Raw:           trimmed,
		}}
	}

	if createRe.MatchString(trimmed) {
		return Result{Intent: IntentCreateDelivery, Params: Params{Raw: trimmed}}
	}

	if statusRe.MatchString(trimmed) {
		return Result{Intent: IntentStatus, Params: Params{RefCode: trailingRefToken(trimmed), Raw: trimmed}}
	}

	if summaryRe.MatchString(trimmed) {
		return Result{Intent: IntentSummary, Params: Params{Raw: trimmed}}
	}
	if ridersRe.MatchString(trimmed) {
		return Result{Intent: IntentListRiders, Params: Params{Raw: trimmed}}
	}
	if cancelRe.MatchString(trimmed) {
		return Result{Intent: IntentCancel, Params: Params{Raw: trimmed}}
	}
	if exportRe.MatchString(trimmed) {
		return Result{Intent: IntentExport, Params: Params{Raw: trimmed}}
	}
	if helpRe.MatchString(trimmed) {
		return Result{Intent: IntentHelp, Params: Params{Raw: trimmed}}
	}

	return Result{Intent: IntentUnknown, Params: Params{Raw: trimmed}}
}

// trailingRefToken extracts a reference id from the end of a status query,
// e.g. "status ORD-0042" or "where is my order ord-0042". Returns "" when
// the query carries no usable token.
func trailingRefToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	last := strings.TrimRight(fields[len(fields)-1], "?!.")
	if statusStopWords[strings.ToLower(last)] {
		return ""
	}
	if !refTokenRe.MatchString(last) {
		return ""
	}
	return strings.TrimPrefix(last, "#")
}

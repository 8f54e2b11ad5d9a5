package intent

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Reply id separator for structured button and list ids. The character is
// excluded from every generated id alphabet, so splitting on it is safe.
const IDSep = "|"

// Structured reply id kinds.
const (
	KindAssign  = "assign"  // assign|riderID|sessionID
	KindStatus  = "status"  // status|sessionID
	KindCancel  = "cancel"  // cancel|sessionID
	KindSession = "session" // session|sessionID (picklist row)
	KindAccept  = "accept"  // accept|sessionID
	KindDecline = "decline" // decline|sessionID
	KindConfirm = "confirm" // confirm|sessionID
	KindIssue   = "issue"   // issue|sessionID
	KindRate    = "rate"    // rate|sessionID|stars

	KindPickedUp  = "pickedup"  // pickedup|sessionID
	KindInTransit = "intransit" // intransit|sessionID
	KindArrived   = "arrived"   // arrived|sessionID
)

// AssignID builds the structured reply id for a rider-pick row.
func AssignID(riderID, sessionID string) string {
	return KindAssign + IDSep + riderID + IDSep + sessionID
}

// SessionID builds the structured reply id carrying just a session id.
func SessionID(kind, sessionID string) string {
	return kind + IDSep + sessionID
}

// RateID builds the structured reply id for a rating button.
func RateID(sessionID string, stars int) string {
	return KindRate + IDSep + sessionID + IDSep + strconv.Itoa(stars)
}

// parseReplyID decodes a structured or legacy reply id. ok is false when the
// id matches no known shape, in which case the caller falls back to parsing
// the visible title as text.
func parseReplyID(id string) (Result, bool) {
	if strings.Contains(id, IDSep) {
		return parseStructuredID(id)
	}
	return parseLegacyID(id)
}

func parseStructuredID(id string) (Result, bool) {
	parts := strings.Split(id, IDSep)
	switch parts[0] {
	case KindAssign:
		if len(parts) == 3 {
			return Result{Intent: IntentAssignRider, Params: Params{RiderID: parts[1], SessionID: parts[2]}}, true
		}
	case KindStatus:
		if len(parts) == 2 {
			return Result{Intent: IntentStatus, Params: Params{SessionID: parts[1]}}, true
		}
	case KindSession:
		if len(parts) == 2 {
			return Result{Intent: IntentStatus, Params: Params{SessionID: parts[1]}}, true
		}
	case KindCancel:
		if len(parts) == 2 {
			return Result{Intent: IntentCancel, Params: Params{SessionID: parts[1]}}, true
		}
	case KindAccept:
		if len(parts) == 2 {
			return Result{Intent: IntentAccept, Params: Params{SessionID: parts[1]}}, true
		}
	case KindDecline:
		if len(parts) == 2 {
			return Result{Intent: IntentDecline, Params: Params{SessionID: parts[1]}}, true
		}
	case KindConfirm:
		if len(parts) == 2 {
			return Result{Intent: IntentConfirm, Params: Params{SessionID: parts[1]}}, true
		}
	case KindIssue:
		if len(parts) == 2 {
			return Result{Intent: IntentReportIssue, Params: Params{SessionID: parts[1]}}, true
		}
	case KindPickedUp:
		if len(parts) == 2 {
			return Result{Intent: IntentPickedUp, Params: Params{SessionID: parts[1]}}, true
		}
	case KindInTransit:
		if len(parts) == 2 {
			return Result{Intent: IntentInTransit, Params: Params{SessionID: parts[1]}}, true
		}
	case KindArrived:
		if len(parts) == 2 {
			return Result{Intent: IntentArrived, Params: Params{SessionID: parts[1]}}, true
		}
	case KindRate:
		if len(parts) == 3 {
			stars, err := strconv.Atoi(parts[2])
			if err == nil {
				return Result{Intent: IntentRate, Params: Params{SessionID: parts[1], Rating: stars}}, true
			}
		}
	}
	return Result{}, false
}

// Legacy reply id prefixes kept for messages sent by earlier releases.
const (
	legacyAssignPrefix = "assign_rider_"
	legacyStatusPrefix = "status_"
	legacyCancelPrefix = "cancel_"
)

// parseLegacyID decodes underscore-separated compound ids. Rider ids may
// themselves contain underscores, so the session id is recovered from the
// rightmost separator whose suffix is a valid session UUID, not by a naive
// split.
func parseLegacyID(id string) (Result, bool) {
	if rest, ok := strings.CutPrefix(id, legacyAssignPrefix); ok {
		riderID, sessionID, found := splitRightmostUUID(rest)
		if found {
			return Result{Intent: IntentAssignRider, Params: Params{RiderID: riderID, SessionID: sessionID}}, true
		}
		return Result{}, false
	}
	if rest, ok := strings.CutPrefix(id, legacyStatusPrefix); ok && isSessionID(rest) {
		return Result{Intent: IntentStatus, Params: Params{SessionID: rest}}, true
	}
	if rest, ok := strings.CutPrefix(id, legacyCancelPrefix); ok && isSessionID(rest) {
		return Result{Intent: IntentCancel, Params: Params{SessionID: rest}}, true
	}
	return Result{}, false
}

// splitRightmostUUID walks separators right to left and returns the first
// split whose suffix parses as a UUID.
func splitRightmostUUID(s string) (before, suffix string, ok bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != '_' {
			continue
		}
		if isSessionID(s[i+1:]) {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func isSessionID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

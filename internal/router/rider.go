package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/SwiftSendNG/SwiftSend/internal/identity"
	"github.com/SwiftSendNG/SwiftSend/internal/intent"
	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

const riderHelpText = `SwiftSend rider commands:
- *menu* to see your deliveries
- *accept* / *decline* a new assignment
- *picked up*, *in transit*, *arrived* to update progress
- send the customer's 4-digit stop code after you arrive`

var stopCodeRe = regexp.MustCompile(`^\d{4}$`)

// Free-text progress phrases riders actually type, checked after the rule
// parser returns UNKNOWN.
var riderProgressPhrases = []struct {
	re *regexp.Regexp
	in intent.Intent
}{
	{regexp.MustCompile(`(?i)\b(picked\s*up|pickup|got\s+it)\b`), intent.IntentPickedUp},
	{regexp.MustCompile(`(?i)\b(in\s*transit|on\s+my\s+way|moving|otw)\b`), intent.IntentInTransit},
	{regexp.MustCompile(`(?i)\b(arrived|i'?m\s+here|at\s+the\s+location)\b`), intent.IntentArrived},
	{regexp.MustCompile(`(?i)\b(accept|yes)\b`), intent.IntentAccept},
	{regexp.MustCompile(`(?i)\b(decline|reject)\b`), intent.IntentDecline},
}

// handleRider processes a message from a registered rider's phone.
func (r *Router) handleRider(ctx context.Context, res *identity.Resolution, msg models.IncomingMessage, parsed intent.Result) []models.Notification {
	phone := res.Phone
	rider := res.Rider

	if parsed.Intent == intent.IntentUnknown {
		text := strings.TrimSpace(msg.Text)

		// A bare 4-digit message is a stop-code entry when a delivery is
		// waiting on one.
		if stopCodeRe.MatchString(text) {
			if sessionID := r.riderStopCodeTarget(phone, rider.ID); sessionID != "" {
				return r.riderSubmitStopCode(ctx, phone, rider.ID, sessionID, text)
			}
		}

		for _, p := range riderProgressPhrases {
			if p.re.MatchString(text) {
				parsed.Intent = p.in
				break
			}
		}
	}

	switch parsed.Intent {
	case intent.IntentAccept:
		return r.riderAccept(ctx, phone, rider.ID, parsed.Params.SessionID)
	case intent.IntentDecline:
		return r.riderDecline(ctx, phone, rider.ID, parsed.Params.SessionID)
	case intent.IntentPickedUp:
		return r.riderAdvance(ctx, phone, rider.ID, parsed.Params.SessionID, models.StatusPickedUp)
	case intent.IntentInTransit:
		return r.riderAdvance(ctx, phone, rider.ID, parsed.Params.SessionID, models.StatusInTransit)
	case intent.IntentArrived:
		return r.riderAdvance(ctx, phone, rider.ID, parsed.Params.SessionID, models.StatusArrived)
	case intent.IntentStatus:
		if parsed.Params.SessionID != "" {
			return r.riderSessionView(phone, rider.ID, parsed.Params.SessionID)
		}
		return r.riderMenu(phone, rider)
	case intent.IntentHelp:
		return []models.Notification{reply(phone, riderHelpText)}
	case intent.IntentMenu:
		return r.riderMenu(phone, rider)
	default:
		return r.riderMenu(phone, rider)
	}
}

// riderMenu shows the rider's non-terminal sessions: full detail when there
// is exactly one, a picklist when there are several.
func (r *Router) riderMenu(phone string, rider *models.Rider) []models.Notification {
	open := r.openRiderSessions(rider.ID)
	switch len(open) {
	case 0:
		return []models.Notification{reply(phone, fmt.Sprintf("Hi %s! You have no deliveries right now.", rider.Name))}
	case 1:
		body, buttons := riderSessionDetail(&open[0])
		if len(buttons) > 0 {
			return []models.Notification{replyButtons(phone, body, buttons)}
		}
		return []models.Notification{reply(phone, body)}
	default:
		return []models.Notification{replyList(phone,
			fmt.Sprintf("Hi %s! You have %d deliveries:", rider.Name, len(open)),
			"View", sessionListSections("Your deliveries", intent.KindSession, open))}
	}
}

func (r *Router) riderSessionView(phone, riderID, sessionID string) []models.Notification {
	s, err := r.store.GetSession(sessionID)
	if err != nil || s == nil || s.RiderID != riderID {
		return []models.Notification{notFoundReply(phone, models.ErrSessionNotFound)}
	}
	body, buttons := riderSessionDetail(s)
	if len(buttons) > 0 {
		return []models.Notification{replyButtons(phone, body, buttons)}
	}
	return []models.Notification{reply(phone, body)}
}

func (r *Router) riderAccept(ctx context.Context, phone, riderID, sessionID string) []models.Notification {
	sessionID = r.inferRiderSession(riderID, sessionID, models.StatusAssigned)
	if sessionID == "" {
		return []models.Notification{reply(phone, "No pending assignment to accept.")}
	}
	notifs, err := r.engine.AcceptAssignment(ctx, sessionID, riderID)
	if err != nil {
		return []models.Notification{r.riderOpError(phone, sessionID, err)}
	}
	s, _ := r.store.GetSession(sessionID)
	out := notifs
	out = append(out, replyButtons(phone,
		fmt.Sprintf("You're on delivery %s to %s. Tap when you've picked it up.", s.RefCode, s.Destination),
		[]models.Button{{ID: intent.SessionID(intent.KindPickedUp, s.ID), Title: "Picked up"}}))
	return out
}

func (r *Router) riderDecline(ctx context.Context, phone, riderID, sessionID string) []models.Notification {
	sessionID = r.inferRiderSession(riderID, sessionID, models.StatusAssigned)
	if sessionID == "" {
		return []models.Notification{reply(phone, "No pending assignment to decline.")}
	}
	notifs, err := r.engine.DeclineAssignment(ctx, sessionID, riderID)
	if err != nil {
		return []models.Notification{r.riderOpError(phone, sessionID, err)}
	}
	out := notifs
	out = append(out, reply(phone, "Okay, you've declined this delivery."))
	return out
}

// riderAdvance applies a progress update and replies with the next action.
func (r *Router) riderAdvance(ctx context.Context, phone, riderID, sessionID string, target models.SessionStatus) []models.Notification {
	want := map[models.SessionStatus]models.SessionStatus{
		models.StatusPickedUp:  models.StatusActive,
		models.StatusInTransit: models.StatusPickedUp,
		models.StatusArrived:   models.StatusInTransit,
	}[target]
	sessionID = r.inferRiderSession(riderID, sessionID, want)
	if sessionID == "" {
		return []models.Notification{reply(phone, "No delivery is waiting for that update. Send *menu* to see your deliveries.")}
	}

	notifs, err := r.engine.AdvanceStatus(ctx, sessionID, riderID, target)
	if err != nil {
		return []models.Notification{r.riderOpError(phone, sessionID, err)}
	}
	s, _ := r.store.GetSession(sessionID)

	out := notifs
	switch target {
	case models.StatusPickedUp:
		out = append(out, replyButtons(phone,
			fmt.Sprintf("Got it, %s picked up. Tap when you're on the move.", s.RefCode),
			[]models.Button{{ID: intent.SessionID(intent.KindInTransit, s.ID), Title: "In transit"}}))
	case models.StatusInTransit:
		out = append(out, replyButtons(phone,
			fmt.Sprintf("%s is in transit. Tap when you arrive.", s.RefCode),
			[]models.Button{{ID: intent.SessionID(intent.KindArrived, s.ID), Title: "Arrived"}}))
	case models.StatusArrived:
		if err := r.store.PutContext(models.ConversationContext{
			Phone: phone, Action: models.PendingStopCode, SessionID: s.ID, UpdatedAt: r.now(),
		}); err != nil {
			slog.Error("Router put context failed", "phone", util.MaskPhone(phone), "error", err)
		}
		out = append(out, reply(phone,
			fmt.Sprintf("You've arrived with %s. Ask the customer for their 4-digit stop code and send it here.", s.RefCode)))
	}
	return out
}

// riderStopCodeTarget finds the session a bare 4-digit message applies to:
// the pending stop-code context if set, otherwise the rider's single arrived
// session.
func (r *Router) riderStopCodeTarget(phone, riderID string) string {
	if c, err := r.store.GetContext(phone); err == nil && c != nil && c.Action == models.PendingStopCode {
		return c.SessionID
	}
	var arrived []models.DeliverySession
	for _, s := range r.openRiderSessions(riderID) {
		if s.Status == models.StatusArrived {
			arrived = append(arrived, s)
		}
	}
	if len(arrived) == 1 {
		return arrived[0].ID
	}
	return ""
}

func (r *Router) riderSubmitStopCode(ctx context.Context, phone, riderID, sessionID, code string) []models.Notification {
	notifs, err := r.engine.SubmitStopCode(ctx, sessionID, riderID, code)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrWrongStopCode):
			return []models.Notification{reply(phone, fmt.Sprintf("That code is not correct (%v). Double-check with the customer.", err))}
		case errors.Is(err, models.ErrStopCodeLocked):
			return []models.Notification{reply(phone, "Too many wrong codes. Stop-code entry is locked for 15 minutes; ask the customer to confirm on their side instead.")}
		default:
			return []models.Notification{r.riderOpError(phone, sessionID, err)}
		}
	}
	if err := r.store.ClearContext(phone); err != nil {
		slog.Error("Router clear context failed", "phone", util.MaskPhone(phone), "error", err)
	}
	s, _ := r.store.GetSession(sessionID)
	out := notifs
	out = append(out, reply(phone, fmt.Sprintf("Delivery %s completed. Nice work!", s.RefCode)))
	return out
}

// inferRiderSession resolves a missing session id to the rider's single open
// session in the wanted status. Returns "" when it cannot be inferred
// unambiguously.
func (r *Router) inferRiderSession(riderID, sessionID string, want models.SessionStatus) string {
	if sessionID != "" {
		return sessionID
	}
	var matches []models.DeliverySession
	for _, s := range r.openRiderSessions(riderID) {
		if s.Status == want {
			matches = append(matches, s)
		}
	}
	if len(matches) == 1 {
		return matches[0].ID
	}
	return ""
}

func (r *Router) openRiderSessions(riderID string) []models.DeliverySession {
	sessions, err := r.store.ListRiderSessions(riderID)
	if err != nil {
		slog.Error("Router list rider sessions failed", "rider_id", riderID, "error", err)
		return nil
	}
	var open []models.DeliverySession
	for _, s := range sessions {
		if !s.Status.IsTerminal() {
			open = append(open, s)
		}
	}
	return open
}

// riderOpError words an engine rejection for the rider.
func (r *Router) riderOpError(phone, sessionID string, err error) models.Notification {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		return notFoundReply(phone, err)
	case errors.Is(err, models.ErrNotAssignee):
		return reply(phone, "That delivery isn't assigned to you anymore.")
	case errors.Is(err, models.ErrSessionTerminal):
		return reply(phone, "That delivery is already closed.")
	case errors.Is(err, models.ErrWrongPriorStatus):
		if s, serr := r.store.GetSession(sessionID); serr == nil && s != nil {
			return reply(phone, fmt.Sprintf("Delivery %s is currently %s; that update doesn't apply.", s.RefCode, statusLabel(s.Status)))
		}
		return reply(phone, "That update doesn't apply to the delivery's current state.")
	default:
		slog.Error("Router rider operation failed", "session_id", sessionID, "error", err)
		return reply(phone, "Something went wrong. Please try again.")
	}
}

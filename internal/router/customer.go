package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/SwiftSendNG/SwiftSend/internal/identity"
	"github.com/SwiftSendNG/SwiftSend/internal/intent"
	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

var ratingDigitRe = regexp.MustCompile(`^[1-5]$`)

// handleCustomer processes a message from a phone tied to delivery sessions.
func (r *Router) handleCustomer(ctx context.Context, res *identity.Resolution, msg models.IncomingMessage, parsed intent.Result) []models.Notification {
	phone := res.Phone

	if parsed.Intent == intent.IntentUnknown {
		text := strings.TrimSpace(msg.Text)
		if ratingDigitRe.MatchString(text) {
			if c, err := r.store.GetContext(phone); err == nil && c != nil && c.Action == models.PendingRating {
				stars, _ := strconv.Atoi(text)
				return r.customerRate(ctx, phone, c.SessionID, stars)
			}
		}
	}

	switch parsed.Intent {
	case intent.IntentConfirm:
		return r.customerConfirm(ctx, phone, res, parsed.Params.SessionID)
	case intent.IntentReportIssue:
		return r.customerReportIssue(ctx, phone, res, parsed.Params.SessionID)
	case intent.IntentRate:
		return r.customerRate(ctx, phone, parsed.Params.SessionID, parsed.Params.Rating)
	case intent.IntentStatus, intent.IntentMenu:
		return r.customerStatusView(phone, res)
	case intent.IntentHelp:
		return []models.Notification{reply(phone,
			"Send *status* to see your delivery, *confirm* when you receive it, or tap the buttons in our messages.")}
	default:
		return r.customerStatusView(phone, res)
	}
}

// customerStatusView applies the three-way view rule: no active delivery
// shows the most recent closed one, a single active delivery shows full
// detail (with action buttons once arrived), several show a compact list.
func (r *Router) customerStatusView(phone string, res *identity.Resolution) []models.Notification {
	live := res.Sessions
	switch len(live) {
	case 0:
		last := r.latestTerminalSession(phone)
		if last == nil {
			return []models.Notification{reply(phone, "You have no deliveries being tracked right now.")}
		}
		return []models.Notification{reply(phone,
			fmt.Sprintf("Your last delivery %s was %s.", last.RefCode, strings.ToLower(statusLabel(last.Status))))}
	case 1:
		return []models.Notification{r.customerSessionDetail(phone, &live[0])}
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d deliveries on the way:", len(live))
		for i := range live {
			b.WriteString("\n- " + customerSessionLine(&live[i]))
		}
		return []models.Notification{reply(phone, b.String())}
	}
}

func (r *Router) customerSessionDetail(phone string, s *models.DeliverySession) models.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Delivery %s\nStatus: %s\nTo: %s", s.RefCode, statusLabel(s.Status), s.Destination)
	if s.HasRider() {
		fmt.Fprintf(&b, "\nRider: %s (%s)", s.RiderName, util.MaskPhone(s.RiderPhone))
	}
	if s.Status == models.StatusArrived {
		b.WriteString("\n\nYour rider is at the door. Give them your stop code, or tap below.")
		return replyButtons(phone, b.String(), []models.Button{
			{ID: intent.SessionID(intent.KindConfirm, s.ID), Title: "Confirm receipt"},
			{ID: intent.SessionID(intent.KindIssue, s.ID), Title: "Report issue"},
		})
	}
	return reply(phone, b.String())
}

func (r *Router) customerConfirm(ctx context.Context, phone string, res *identity.Resolution, sessionID string) []models.Notification {
	s := r.customerSession(phone, res, sessionID)
	if s == nil {
		return []models.Notification{reply(phone, "There's no delivery waiting for your confirmation.")}
	}

	notifs, err := r.engine.ConfirmReceipt(ctx, s.ID)
	if err != nil {
		if errors.Is(err, models.ErrSessionTerminal) {
			return []models.Notification{reply(phone, fmt.Sprintf("Delivery %s is already closed.", s.RefCode))}
		}
		slog.Error("Router customer confirm failed", "session_id", s.ID, "error", err)
		return []models.Notification{reply(phone, "Something went wrong. Please try again.")}
	}

	if err := r.store.PutContext(models.ConversationContext{
		Phone: phone, Action: models.PendingRating, SessionID: s.ID, UpdatedAt: r.now(),
	}); err != nil {
		slog.Error("Router put context failed", "phone", util.MaskPhone(phone), "error", err)
	}
	return notifs
}

func (r *Router) customerReportIssue(ctx context.Context, phone string, res *identity.Resolution, sessionID string) []models.Notification {
	s := r.customerSession(phone, res, sessionID)
	if s == nil {
		return []models.Notification{reply(phone, "There's no delivery to report an issue on.")}
	}

	notifs, err := r.engine.ReportIssue(ctx, s.ID)
	if err != nil {
		slog.Error("Router report issue failed", "session_id", s.ID, "error", err)
		return []models.Notification{reply(phone, "Something went wrong. Please try again.")}
	}
	out := notifs
	out = append(out, reply(phone, fmt.Sprintf("Sorry about that. The vendor has been alerted about delivery %s and will follow up.", s.RefCode)))
	return out
}

func (r *Router) customerRate(ctx context.Context, phone, sessionID string, stars int) []models.Notification {
	if sessionID == "" {
		return []models.Notification{reply(phone, "There's no delivery waiting for a rating.")}
	}
	if err := r.engine.SubmitRating(ctx, sessionID, stars); err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyRated):
			return []models.Notification{reply(phone, "You've already rated this delivery. Thanks again!")}
		case errors.Is(err, models.ErrInvalidRating):
			return []models.Notification{reply(phone, "Please rate from 1 to 5.")}
		case errors.Is(err, models.ErrSessionNotCompleted):
			return []models.Notification{reply(phone, "You can rate once the delivery is completed.")}
		case errors.Is(err, models.ErrSessionNotFound):
			return []models.Notification{notFoundReply(phone, err)}
		default:
			slog.Error("Router rating failed", "session_id", sessionID, "error", err)
			return []models.Notification{reply(phone, "Something went wrong. Please try again.")}
		}
	}
	if err := r.store.ClearContext(phone); err != nil {
		slog.Error("Router clear context failed", "phone", util.MaskPhone(phone), "error", err)
	}
	return []models.Notification{reply(phone, fmt.Sprintf("Thanks for the %d-star rating!", stars))}
}

// customerSession resolves the target session for a customer action: the
// referenced one when it belongs to this customer, otherwise the single live
// session.
func (r *Router) customerSession(phone string, res *identity.Resolution, sessionID string) *models.DeliverySession {
	if sessionID != "" {
		s, err := r.store.GetSession(sessionID)
		if err != nil || s == nil || util.CanonicalizePhone(s.CustomerPhone) != phone {
			return nil
		}
		return s
	}
	if len(res.Sessions) == 1 {
		return &res.Sessions[0]
	}
	return nil
}

// latestTerminalSession returns the customer's most recently created closed
// session, or nil.
func (r *Router) latestTerminalSession(phone string) *models.DeliverySession {
	sessions, err := r.store.FindSessionsByCustomerPhone(phone)
	if err != nil {
		slog.Error("Router find customer sessions failed", "phone", util.MaskPhone(phone), "error", err)
		return nil
	}
	var latest *models.DeliverySession
	for i := range sessions {
		s := &sessions[i]
		if !s.Status.IsTerminal() {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	return latest
}

package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/engine"
	"github.com/SwiftSendNG/SwiftSend/internal/identity"
	"github.com/SwiftSendNG/SwiftSend/internal/intent"
	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

const vendorHelpText = `SwiftSend commands:
- *new delivery* to create a delivery
- *deliver to ADDRESS for NAME, PHONE* to create one in a single message
- *status REF* to check a delivery
- *summary* for today's numbers
- *riders* to list your riders
- *cancel* to cancel a delivery
- *menu* to see this menu again`

// handleVendor processes a message from a vendor's linked phone.
func (r *Router) handleVendor(ctx context.Context, res *identity.Resolution, msg models.IncomingMessage, parsed intent.Result) []models.Notification {
	phone := res.Phone
	vendor := res.Vendor

	// A pending follow-up consumes free text before intent dispatch;
	// structured replies always win.
	if parsed.Intent == intent.IntentUnknown {
		if c, err := r.store.GetContext(phone); err == nil && c != nil {
			switch c.Action {
			case models.PendingCustomerPhone:
				return r.vendorCustomerPhoneFollowup(ctx, phone, c, msg.Text)
			case models.PendingRiderPick:
				return r.vendorRiderPickReprompt(phone, vendor, c)
			}
		}
	}

	parsed = r.classifyFallback(ctx, parsed)

	switch parsed.Intent {
	case intent.IntentMenu:
		return []models.Notification{r.vendorMenu(phone, vendor)}

	case intent.IntentCreateDelivery:
		return r.vendorCreateDelivery(ctx, phone, vendor, parsed.Params)

	case intent.IntentAssignRider:
		return r.vendorAssignRider(ctx, phone, vendor, parsed.Params)

	case intent.IntentStatus:
		return r.vendorStatus(phone, vendor, parsed.Params)

	case intent.IntentSummary:
		return []models.Notification{r.vendorSummary(phone, vendor)}

	case intent.IntentListRiders:
		return []models.Notification{r.vendorRiders(phone, vendor)}

	case intent.IntentCancel:
		return r.vendorCancel(ctx, phone, vendor, parsed.Params)

	case intent.IntentExport:
		return []models.Notification{r.vendorExport(phone, vendor)}

	case intent.IntentHelp:
		return []models.Notification{reply(phone, vendorHelpText)}

	default:
		return []models.Notification{reply(phone, "Sorry, I didn't get that.\n\n"+vendorHelpText)}
	}
}

func (r *Router) vendorMenu(phone string, vendor *models.Vendor) models.Notification {
	body := fmt.Sprintf("Hi %s! What would you like to do?", vendor.BusinessName)
	sections := []models.ListSection{{
		Rows: []models.ListRow{
			{ID: "btn_new_delivery", Title: "New delivery"},
			{ID: "btn_status", Title: "Delivery status"},
			{ID: "btn_summary", Title: "Today's summary"},
			{ID: "btn_riders", Title: "My riders"},
			{ID: "btn_help", Title: "Help"},
		},
	}}
	return replyList(phone, body, "Choose", sections)
}

// vendorCreateDelivery creates a session from the rich one-line form, or
// explains the form when fields are missing.
func (r *Router) vendorCreateDelivery(ctx context.Context, phone string, vendor *models.Vendor, p intent.Params) []models.Notification {
	if p.Destination == "" {
		return []models.Notification{reply(phone,
			"To create a delivery, send:\n*deliver to ADDRESS for NAME, PHONE*\n\nExample:\ndeliver to 12 Ikorodu Rd for Ada, 08011112222")}
	}

	s, err := r.engine.CreateDelivery(ctx, engine.CreateDeliveryInput{
		VendorID:      vendor.ID,
		Destination:   p.Destination,
		CustomerName:  p.CustomerName,
		CustomerPhone: p.CustomerPhone,
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidPhone) {
			return []models.Notification{reply(phone, "That phone number doesn't look right. Use a Nigerian mobile like 08011112222 or 2348011112222.")}
		}
		slog.Error("Router create delivery failed", "vendor_id", vendor.ID, "error", err)
		return []models.Notification{reply(phone, "Something went wrong creating that delivery. Please try again.")}
	}

	riders, err := r.store.ListVendorRiders(vendor.ID)
	if err != nil {
		slog.Error("Router list riders failed", "vendor_id", vendor.ID, "error", err)
	}
	created := fmt.Sprintf("Delivery %s created.\nTo: %s\nStop code: %s", s.RefCode, s.Destination, s.StopCode)
	if len(riders) == 0 {
		return []models.Notification{reply(phone, created+"\n\nYou have no riders yet. Add riders on your dashboard, then send *status "+s.RefCode+"* to assign one.")}
	}

	if err := r.store.PutContext(models.ConversationContext{
		Phone: phone, Action: models.PendingRiderPick, SessionID: s.ID, UpdatedAt: r.now(),
	}); err != nil {
		slog.Error("Router put context failed", "phone", util.MaskPhone(phone), "error", err)
	}
	return []models.Notification{
		reply(phone, created),
		replyList(phone, "Who should deliver it?", "Pick a rider", riderListSections(riders, s.ID)),
	}
}

func (r *Router) vendorAssignRider(ctx context.Context, phone string, vendor *models.Vendor, p intent.Params) []models.Notification {
	if p.SessionID == "" || p.RiderID == "" {
		return []models.Notification{reply(phone, "Pick a rider from the list to assign.")}
	}
	s, err := r.store.GetSession(p.SessionID)
	if err != nil || s == nil || s.VendorID != vendor.ID {
		return []models.Notification{notFoundReply(phone, models.ErrSessionNotFound)}
	}

	notifs, err := r.engine.AssignRider(ctx, p.SessionID, p.RiderID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRiderNotFound), errors.Is(err, models.ErrSessionNotFound):
			return []models.Notification{notFoundReply(phone, err)}
		case errors.Is(err, models.ErrSessionTerminal):
			return []models.Notification{reply(phone, fmt.Sprintf("Delivery %s is already %s and can't be assigned.", s.RefCode, statusLabel(s.Status)))}
		default:
			slog.Error("Router assign rider failed", "session_id", p.SessionID, "error", err)
			return []models.Notification{reply(phone, "Couldn't assign that rider. Please try again.")}
		}
	}
	if err := r.store.ClearContext(phone); err != nil {
		slog.Error("Router clear context failed", "phone", util.MaskPhone(phone), "error", err)
	}

	s, _ = r.store.GetSession(p.SessionID)
	out := notifs
	confirm := fmt.Sprintf("%s assigned to delivery %s. They've been notified.", s.RiderName, s.RefCode)
	if s.CustomerPhone == "" {
		if err := r.store.PutContext(models.ConversationContext{
			Phone: phone, Action: models.PendingCustomerPhone, SessionID: s.ID, UpdatedAt: r.now(),
		}); err != nil {
			slog.Error("Router put context failed", "phone", util.MaskPhone(phone), "error", err)
		}
		confirm += "\n\nSend the customer's phone number so we can keep them updated, or reply *skip*."
	}
	out = append(out, reply(phone, confirm))
	return out
}

// vendorCustomerPhoneFollowup consumes the free-text reply to the "send the
// customer's phone" prompt.
func (r *Router) vendorCustomerPhoneFollowup(ctx context.Context, phone string, c *models.ConversationContext, text string) []models.Notification {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "skip" || trimmed == "no" {
		if err := r.store.ClearContext(phone); err != nil {
			slog.Error("Router clear context failed", "phone", util.MaskPhone(phone), "error", err)
		}
		return []models.Notification{reply(phone, "Okay, the customer won't receive updates for this delivery.")}
	}

	if !util.IsValidMobile(strings.TrimSpace(text)) {
		return []models.Notification{reply(phone, "That doesn't look like a valid mobile number. Try again (e.g. 08011112222), or reply *skip*.")}
	}
	customerPhone := util.CanonicalizePhone(strings.TrimSpace(text))

	s, err := r.store.GetSession(c.SessionID)
	if err != nil || s == nil {
		_ = r.store.ClearContext(phone)
		return []models.Notification{notFoundReply(phone, models.ErrSessionNotFound)}
	}
	if s.Status.IsTerminal() {
		// The delivery ended while the follow-up was still armed.
		_ = r.store.ClearContext(phone)
		return []models.Notification{reply(phone, fmt.Sprintf("Delivery %s is already %s, so there's nothing to update.", s.RefCode, statusLabel(s.Status)))}
	}
	s.CustomerPhone = customerPhone
	if err := r.store.UpdateSession(*s); err != nil {
		slog.Error("Router update customer phone failed", "session_id", s.ID, "error", err)
		return []models.Notification{reply(phone, "Couldn't save that number. Please try again.")}
	}
	if err := r.store.ClearContext(phone); err != nil {
		slog.Error("Router clear context failed", "phone", util.MaskPhone(phone), "error", err)
	}

	return []models.Notification{
		reply(phone, fmt.Sprintf("Customer number saved for %s. They'll get updates from here on.", s.RefCode)),
		{
			To:   customerPhone,
			Kind: models.NotifyText,
			Body: fmt.Sprintf("Your delivery %s to %s is being tracked on SwiftSend.\nGive the rider this stop code on delivery: %s",
				s.RefCode, s.Destination, s.StopCode),
			Initiator: phone,
		},
	}
}

func (r *Router) vendorRiderPickReprompt(phone string, vendor *models.Vendor, c *models.ConversationContext) []models.Notification {
	riders, err := r.store.ListVendorRiders(vendor.ID)
	if err != nil || len(riders) == 0 {
		_ = r.store.ClearContext(phone)
		return []models.Notification{reply(phone, "You have no riders to assign yet. Add riders on your dashboard.")}
	}
	return []models.Notification{replyList(phone, "Pick a rider from the list to assign.", "Pick a rider", riderListSections(riders, c.SessionID))}
}

// vendorStatus looks a session up by explicit id, by fuzzy reference code
// against the vendor's own sessions, or lists open deliveries when neither
// is given.
func (r *Router) vendorStatus(phone string, vendor *models.Vendor, p intent.Params) []models.Notification {
	if p.SessionID != "" {
		s, err := r.store.GetSession(p.SessionID)
		if err != nil || s == nil || s.VendorID != vendor.ID {
			return []models.Notification{notFoundReply(phone, models.ErrSessionNotFound)}
		}
		return []models.Notification{reply(phone, sessionDetail(s))}
	}

	if p.RefCode != "" {
		s := r.findVendorSessionByRef(vendor.ID, p.RefCode)
		if s == nil {
			return []models.Notification{reply(phone, fmt.Sprintf("No delivery matching %q found.", p.RefCode))}
		}
		return []models.Notification{reply(phone, sessionDetail(s))}
	}

	open := r.openVendorSessions(vendor.ID)
	if len(open) == 0 {
		return []models.Notification{reply(phone, "No open deliveries right now. Send *new delivery* to create one.")}
	}
	return []models.Notification{replyList(phone, "Your open deliveries:", "View", sessionListSections("Open deliveries", intent.KindStatus, open))}
}

// findVendorSessionByRef matches a reference token against the vendor's own
// sessions, tolerating case and a missing ORD- prefix.
func (r *Router) findVendorSessionByRef(vendorID, ref string) *models.DeliverySession {
	sessions, err := r.store.ListVendorSessions(vendorID)
	if err != nil {
		slog.Error("Router list vendor sessions failed", "vendor_id", vendorID, "error", err)
		return nil
	}
	norm := strings.ToUpper(strings.TrimSpace(ref))
	bare := strings.TrimPrefix(norm, "ORD-")
	for i := range sessions {
		code := strings.ToUpper(sessions[i].RefCode)
		if code == norm || strings.TrimPrefix(code, "ORD-") == bare {
			return &sessions[i]
		}
	}
	return nil
}

func (r *Router) openVendorSessions(vendorID string) []models.DeliverySession {
	sessions, err := r.store.ListVendorSessions(vendorID)
	if err != nil {
		slog.Error("Router list vendor sessions failed", "vendor_id", vendorID, "error", err)
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

// vendorSummary aggregates today's sessions by status, in the vendor's local
// timezone, and names the top rider by completed volume.
func (r *Router) vendorSummary(phone string, vendor *models.Vendor) models.Notification {
	loc := time.Local
	if vendor.Timezone != "" {
		if l, err := time.LoadLocation(vendor.Timezone); err == nil {
			loc = l
		}
	}
	now := r.now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	sessions, err := r.store.ListVendorSessions(vendor.ID)
	if err != nil {
		slog.Error("Router list vendor sessions failed", "vendor_id", vendor.ID, "error", err)
		return reply(phone, "Couldn't load today's summary. Please try again.")
	}

	counts := map[models.SessionStatus]int{}
	byRider := map[string]int{}
	total := 0
	for _, s := range sessions {
		if s.CreatedAt.Before(midnight) {
			continue
		}
		total++
		counts[s.Status]++
		if s.Status == models.StatusCompleted && s.RiderName != "" {
			byRider[s.RiderName]++
		}
	}

	if total == 0 {
		return reply(phone, "No deliveries created today yet.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Today's summary (%s)\nDeliveries: %d", now.Format("Mon 2 Jan"), total)
	order := []models.SessionStatus{
		models.StatusPending, models.StatusAssigned, models.StatusActive,
		models.StatusPickedUp, models.StatusInTransit, models.StatusArrived,
		models.StatusCompleted, models.StatusCancelled,
	}
	for _, st := range order {
		if counts[st] > 0 {
			fmt.Fprintf(&b, "\n%s: %d", statusLabel(st), counts[st])
		}
	}
	if top, n := topRider(byRider); top != "" {
		fmt.Fprintf(&b, "\n\nTop rider: %s (%d completed)", top, n)
	}
	return reply(phone, b.String())
}

// topRider returns the rider with the highest count, ties broken by name so
// the result is stable.
func topRider(byRider map[string]int) (string, int) {
	names := make([]string, 0, len(byRider))
	for name := range byRider {
		names = append(names, name)
	}
	sort.Strings(names)
	best, bestN := "", 0
	for _, name := range names {
		if byRider[name] > bestN {
			best, bestN = name, byRider[name]
		}
	}
	return best, bestN
}

func (r *Router) vendorRiders(phone string, vendor *models.Vendor) models.Notification {
	riders, err := r.store.ListVendorRiders(vendor.ID)
	if err != nil {
		slog.Error("Router list riders failed", "vendor_id", vendor.ID, "error", err)
		return reply(phone, "Couldn't load your riders. Please try again.")
	}
	if len(riders) == 0 {
		return reply(phone, "You have no riders yet. Add riders on your dashboard.")
	}
	var b strings.Builder
	b.WriteString("Your riders:")
	for i := range riders {
		rd := &riders[i]
		fmt.Fprintf(&b, "\n- %s (%s): %d deliveries", rd.Name, util.MaskPhone(rd.Phone), rd.Deliveries)
		if rd.RatingCount > 0 {
			fmt.Fprintf(&b, ", %.1f★", rd.AverageRating())
		}
	}
	return reply(phone, b.String())
}

func (r *Router) vendorCancel(ctx context.Context, phone string, vendor *models.Vendor, p intent.Params) []models.Notification {
	if p.SessionID == "" {
		open := r.openVendorSessions(vendor.ID)
		if len(open) == 0 {
			return []models.Notification{reply(phone, "No open deliveries to cancel.")}
		}
		return []models.Notification{replyList(phone, "Which delivery should be cancelled?", "Cancel", sessionListSections("Open deliveries", intent.KindCancel, open))}
	}

	s, err := r.store.GetSession(p.SessionID)
	if err != nil || s == nil || s.VendorID != vendor.ID {
		return []models.Notification{notFoundReply(phone, models.ErrSessionNotFound)}
	}
	if err := r.engine.Cancel(ctx, p.SessionID); err != nil {
		if errors.Is(err, models.ErrSessionTerminal) {
			return []models.Notification{reply(phone, fmt.Sprintf("Delivery %s is already %s.", s.RefCode, statusLabel(s.Status)))}
		}
		slog.Error("Router cancel failed", "session_id", p.SessionID, "error", err)
		return []models.Notification{reply(phone, "Couldn't cancel that delivery. Please try again.")}
	}
	return []models.Notification{reply(phone, fmt.Sprintf("Delivery %s cancelled.", s.RefCode))}
}

// vendorExport renders today's sessions as CSV lines the vendor can copy
// into a spreadsheet.
func (r *Router) vendorExport(phone string, vendor *models.Vendor) models.Notification {
	sessions, err := r.store.ListVendorSessions(vendor.ID)
	if err != nil {
		slog.Error("Router list vendor sessions failed", "vendor_id", vendor.ID, "error", err)
		return reply(phone, "Couldn't export your deliveries. Please try again.")
	}
	if len(sessions) == 0 {
		return reply(phone, "No deliveries to export yet.")
	}
	var b strings.Builder
	b.WriteString("ref,status,destination,customer,rider,created")
	for i := range sessions {
		s := &sessions[i]
		fmt.Fprintf(&b, "\n%s,%s,%s,%s,%s,%s",
			s.RefCode, s.Status, strings.ReplaceAll(s.Destination, ",", " "),
			strings.ReplaceAll(s.CustomerName, ",", " "), s.RiderName,
			s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return reply(phone, b.String())
}

package router

import (
	"fmt"
	"strings"

	"github.com/SwiftSendNG/SwiftSend/internal/intent"
	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

// statusLabels are the user-facing names for session statuses.
var statusLabels = map[models.SessionStatus]string{
	models.StatusPending:   "Pending",
	models.StatusAssigned:  "Assigned",
	models.StatusActive:    "Accepted",
	models.StatusPickedUp:  "Picked up",
	models.StatusInTransit: "In transit",
	models.StatusArrived:   "Arrived",
	models.StatusCompleted: "Completed",
	models.StatusCancelled: "Cancelled",
}

func statusLabel(s models.SessionStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// sessionDetail renders a full session view for the vendor.
func sessionDetail(s *models.DeliverySession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Delivery %s\nStatus: %s\nTo: %s", s.RefCode, statusLabel(s.Status), s.Destination)
	if s.CustomerName != "" || s.CustomerPhone != "" {
		fmt.Fprintf(&b, "\nCustomer: %s", customerLine(s))
	}
	if s.HasRider() {
		fmt.Fprintf(&b, "\nRider: %s (%s)", s.RiderName, util.MaskPhone(s.RiderPhone))
	}
	if s.IssueReported {
		b.WriteString("\n⚠ Issue reported")
	}
	if s.Rating != 0 {
		fmt.Fprintf(&b, "\nRating: %d/5", s.Rating)
	}
	return b.String()
}

func customerLine(s *models.DeliverySession) string {
	switch {
	case s.CustomerName != "" && s.CustomerPhone != "":
		return fmt.Sprintf("%s (%s)", s.CustomerName, util.MaskPhone(s.CustomerPhone))
	case s.CustomerName != "":
		return s.CustomerName
	default:
		return util.MaskPhone(s.CustomerPhone)
	}
}

// riderSessionDetail renders a session view for its rider, with the next
// progress action as a button where one applies.
func riderSessionDetail(s *models.DeliverySession) (string, []models.Button) {
	var b strings.Builder
	fmt.Fprintf(&b, "Delivery %s\nStatus: %s\nTo: %s\nCustomer: %s",
		s.RefCode, statusLabel(s.Status), s.Destination, customerLine(s))

	var buttons []models.Button
	switch s.Status {
	case models.StatusAssigned:
		buttons = []models.Button{
			{ID: intent.SessionID(intent.KindAccept, s.ID), Title: "Accept"},
			{ID: intent.SessionID(intent.KindDecline, s.ID), Title: "Decline"},
		}
	case models.StatusActive:
		buttons = []models.Button{{ID: intent.SessionID(intent.KindPickedUp, s.ID), Title: "Picked up"}}
	case models.StatusPickedUp:
		buttons = []models.Button{{ID: intent.SessionID(intent.KindInTransit, s.ID), Title: "In transit"}}
	case models.StatusInTransit:
		buttons = []models.Button{{ID: intent.SessionID(intent.KindArrived, s.ID), Title: "Arrived"}}
	case models.StatusArrived:
		b.WriteString("\n\nAsk the customer for their 4-digit stop code and send it here.")
	}
	return b.String(), buttons
}

// customerSessionLine renders one compact row for a customer's multi-session
// view.
func customerSessionLine(s *models.DeliverySession) string {
	line := fmt.Sprintf("%s: %s", s.RefCode, statusLabel(s.Status))
	if s.HasRider() {
		line += " with " + s.RiderName
	}
	return line
}

// sessionListSections builds picklist sections of sessions with structured
// reply ids of the given kind.
func sessionListSections(title, kind string, sessions []models.DeliverySession) []models.ListSection {
	sec := models.ListSection{Title: title}
	for i := range sessions {
		s := &sessions[i]
		sec.Rows = append(sec.Rows, models.ListRow{
			ID:          intent.SessionID(kind, s.ID),
			Title:       s.RefCode,
			Description: statusLabel(s.Status) + " · " + s.Destination,
		})
	}
	return []models.ListSection{sec}
}

// riderListSections builds the rider-pick list for assigning a session.
func riderListSections(riders []models.Rider, sessionID string) []models.ListSection {
	sec := models.ListSection{Title: "Your riders"}
	for i := range riders {
		rd := &riders[i]
		desc := fmt.Sprintf("%d deliveries", rd.Deliveries)
		if rd.RatingCount > 0 {
			desc += fmt.Sprintf(" · %.1f★", rd.AverageRating())
		}
		sec.Rows = append(sec.Rows, models.ListRow{
			ID:          intent.AssignID(rd.ID, sessionID),
			Title:       rd.Name,
			Description: desc,
		})
	}
	return []models.ListSection{sec}
}

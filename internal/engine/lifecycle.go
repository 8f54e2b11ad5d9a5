package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SwiftSendNG/SwiftSend/internal/intent"
	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
	"github.com/google/uuid"
)

// CreateDeliveryInput carries the vendor-supplied fields for a new delivery.
type CreateDeliveryInput struct {
	VendorID      string
	Destination   string
	CustomerName  string
	CustomerPhone string
	Geo           *models.GeoPoint
}

// CreateDelivery creates a new pending session with generated id, reference
// code, and stop code. The customer phone, when given, must be a valid
// mobile number and is stored in canonical form.
func (e *Engine) CreateDelivery(ctx context.Context, in CreateDeliveryInput) (*models.DeliverySession, error) {
	if in.Destination == "" {
		return nil, models.ErrMissingDestination
	}
	customerPhone := ""
	if in.CustomerPhone != "" {
		if !util.IsValidMobile(in.CustomerPhone) {
			return nil, fmt.Errorf("%w: %q", models.ErrInvalidPhone, in.CustomerPhone)
		}
		customerPhone = util.CanonicalizePhone(in.CustomerPhone)
	}

	s := models.DeliverySession{
		ID:            uuid.NewString(),
		RefCode:       util.GenerateRefCode(),
		VendorID:      in.VendorID,
		CustomerName:  in.CustomerName,
		CustomerPhone: customerPhone,
		Destination:   in.Destination,
		Geo:           in.Geo,
		StopCode:      util.GenerateStopCode(),
		Status:        models.StatusPending,
		CreatedAt:     e.now(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.CreateSession(s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("Engine created delivery", "session_id", s.ID, "ref_code", s.RefCode, "vendor_id", s.VendorID)
	return &s, nil
}

// AssignRider assigns or reassigns a rider to a non-terminal session and
// notifies the rider (with accept/decline buttons) and the customer when a
// phone is on record.
func (e *Engine) AssignRider(ctx context.Context, sessionID, riderID string) ([]models.Notification, error) {
	s, err := e.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionTerminal, s.Status)
	}

	rider, err := e.store.GetRider(riderID)
	if err != nil {
		return nil, fmt.Errorf("load rider %s: %w", riderID, err)
	}
	if rider == nil {
		return nil, models.ErrRiderNotFound
	}

	now := e.now()
	s.RiderID = rider.ID
	s.RiderName = rider.Name
	s.RiderPhone = rider.Phone
	s.Status = models.StatusAssigned
	s.AssignedAt = &now
	s.AcceptedAt = nil

	if err := e.store.UpdateSession(*s); err != nil {
		return nil, fmt.Errorf("update session %s: %w", s.ID, err)
	}
	slog.Info("Engine assigned rider", "session_id", s.ID, "rider_id", rider.ID)

	vendorPhone := e.vendorPhone(s.VendorID)
	notifs := []models.Notification{{
		To:   rider.Phone,
		Kind: models.NotifyButtons,
		Body: fmt.Sprintf("New delivery %s\nTo: %s\nCustomer: %s\nReply to accept or decline.",
			s.RefCode, s.Destination, customerLabel(s)),
		Buttons: []models.Button{
			{ID: intent.SessionID(intent.KindAccept, s.ID), Title: "Accept"},
			{ID: intent.SessionID(intent.KindDecline, s.ID), Title: "Decline"},
		},
		Initiator: vendorPhone,
	}}
	if s.CustomerPhone != "" {
		notifs = append(notifs, models.Notification{
			To:   s.CustomerPhone,
			Kind: models.NotifyText,
			Body: fmt.Sprintf("Your delivery %s is on its way soon. Rider: %s (%s).\nGive the rider this stop code on delivery: %s",
				s.RefCode, s.RiderName, util.MaskPhone(s.RiderPhone), s.StopCode),
			Initiator: vendorPhone,
		})
	}
	return notifs, nil
}

// AcceptAssignment moves an assigned session to active. Only the assigned
// rider may accept.
func (e *Engine) AcceptAssignment(ctx context.Context, sessionID, riderID string) ([]models.Notification, error) {
	s, err := e.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionTerminal, s.Status)
	}
	if s.Status != models.StatusAssigned {
		return nil, fmt.Errorf("%w: have %s, want %s", models.ErrWrongPriorStatus, s.Status, models.StatusAssigned)
	}
	if err := requireAssignee(s, riderID); err != nil {
		return nil, err
	}

	now := e.now()
	s.Status = models.StatusActive
	s.AcceptedAt = &now
	if err := e.store.UpdateSession(*s); err != nil {
		return nil, fmt.Errorf("update session %s: %w", s.ID, err)
	}
	slog.Info("Engine rider accepted", "session_id", s.ID, "rider_id", riderID)

	var notifs []models.Notification
	if vp := e.vendorPhone(s.VendorID); vp != "" {
		notifs = append(notifs, models.Notification{
			To:        vp,
			Kind:      models.NotifyText,
			Body:      fmt.Sprintf("%s accepted delivery %s.", s.RiderName, s.RefCode),
			Initiator: s.RiderPhone,
		})
	}
	return notifs, nil
}

// DeclineAssignment returns an assigned session to pending, clearing every
// rider identity field, and tells the vendor to reassign.
func (e *Engine) DeclineAssignment(ctx context.Context, sessionID, riderID string) ([]models.Notification, error) {
	s, err := e.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionTerminal, s.Status)
	}
	if s.Status != models.StatusAssigned {
		return nil, fmt.Errorf("%w: have %s, want %s", models.ErrWrongPriorStatus, s.Status, models.StatusAssigned)
	}
	if err := requireAssignee(s, riderID); err != nil {
		return nil, err
	}

	declinedBy := s.RiderName
	declinedPhone := s.RiderPhone
	s.ClearRider()
	s.Status = models.StatusPending
	s.AssignedAt = nil
	s.AcceptedAt = nil
	if err := e.store.UpdateSession(*s); err != nil {
		return nil, fmt.Errorf("update session %s: %w", s.ID, err)
	}
	slog.Info("Engine rider declined", "session_id", s.ID, "rider_id", riderID)

	var notifs []models.Notification
	if vp := e.vendorPhone(s.VendorID); vp != "" {
		notifs = append(notifs, models.Notification{
			To:        vp,
			Kind:      models.NotifyText,
			Body:      fmt.Sprintf("%s declined delivery %s. Please assign another rider.", declinedBy, s.RefCode),
			Initiator: declinedPhone,
		})
	}
	return notifs, nil
}

// advanceTransitions maps each rider progress target to its required prior
// status and timestamp slot.
var advanceTransitions = map[models.SessionStatus]models.SessionStatus{
	models.StatusPickedUp:  models.StatusActive,
	models.StatusInTransit: models.StatusPickedUp,
	models.StatusArrived:   models.StatusInTransit,
}

// AdvanceStatus applies one sequential rider progress update (picked_up,
// in_transit, or arrived). The session must currently hold the expected
// predecessor status and be assigned to the calling rider.
func (e *Engine) AdvanceStatus(ctx context.Context, sessionID, riderID string, target models.SessionStatus) ([]models.Notification, error) {
	want, ok := advanceTransitions[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a rider progress status", models.ErrWrongPriorStatus, target)
	}

	s, err := e.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionTerminal, s.Status)
	}
	if s.Status != want {
		return nil, fmt.Errorf("%w: have %s, want %s", models.ErrWrongPriorStatus, s.Status, want)
	}
	if err := requireAssignee(s, riderID); err != nil {
		return nil, err
	}

	now := e.now()
	s.Status = target
	switch target {
	case models.StatusPickedUp:
		s.PickedUpAt = &now
	case models.StatusInTransit:
		s.InTransitAt = &now
	case models.StatusArrived:
		s.ArrivedAt = &now
	}
	if err := e.store.UpdateSession(*s); err != nil {
		return nil, fmt.Errorf("update session %s: %w", s.ID, err)
	}
	slog.Info("Engine advanced status", "session_id", s.ID, "status", target)

	return e.progressNotifications(s, target), nil
}

// progressNotifications builds the vendor and customer notifications for a
// rider progress transition. The arrived notification to the customer
// carries confirm/issue buttons.
func (e *Engine) progressNotifications(s *models.DeliverySession, target models.SessionStatus) []models.Notification {
	var vendorBody, customerBody string
	switch target {
	case models.StatusPickedUp:
		vendorBody = fmt.Sprintf("%s picked up delivery %s.", s.RiderName, s.RefCode)
		customerBody = fmt.Sprintf("Your delivery %s has been picked up by %s.", s.RefCode, s.RiderName)
	case models.StatusInTransit:
		vendorBody = fmt.Sprintf("Delivery %s is in transit.", s.RefCode)
		customerBody = fmt.Sprintf("Your delivery %s is in transit.", s.RefCode)
	case models.StatusArrived:
		vendorBody = fmt.Sprintf("%s has arrived for delivery %s.", s.RiderName, s.RefCode)
		customerBody = fmt.Sprintf("Your rider has arrived with delivery %s!\nGive them your stop code, or tap below.", s.RefCode)
	}

	var notifs []models.Notification
	if vp := e.vendorPhone(s.VendorID); vp != "" {
		notifs = append(notifs, models.Notification{
			To:        vp,
			Kind:      models.NotifyText,
			Body:      vendorBody,
			Initiator: s.RiderPhone,
		})
	}
	if s.CustomerPhone != "" {
		n := models.Notification{
			To:        s.CustomerPhone,
			Kind:      models.NotifyText,
			Body:      customerBody,
			Initiator: s.RiderPhone,
		}
		if target == models.StatusArrived {
			n.Kind = models.NotifyButtons
			n.Buttons = []models.Button{
				{ID: intent.SessionID(intent.KindConfirm, s.ID), Title: "Confirm receipt"},
				{ID: intent.SessionID(intent.KindIssue, s.ID), Title: "Report issue"},
			}
		}
		notifs = append(notifs, n)
	}
	return notifs
}

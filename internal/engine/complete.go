package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SwiftSendNG/SwiftSend/internal/intent"
	"github.com/SwiftSendNG/SwiftSend/internal/models"
)

// SubmitStopCode completes an arrived session when the rider enters the
// correct 4-digit stop code. Wrong codes count toward a per-session lockout:
// after MaxStopCodeAttempts failures the session rejects further codes for
// StopCodeLockDuration. This is the only completion path that increments the
// rider's delivery counter.
func (e *Engine) SubmitStopCode(ctx context.Context, sessionID, riderID, code string) ([]models.Notification, error) {
	s, err := e.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionTerminal, s.Status)
	}
	if s.Status != models.StatusArrived {
		return nil, fmt.Errorf("%w: have %s, want %s", models.ErrWrongPriorStatus, s.Status, models.StatusArrived)
	}
	if err := requireAssignee(s, riderID); err != nil {
		return nil, err
	}

	now := e.now()
	if lockedUntil := s.StopCodeLockedUntil(); !lockedUntil.IsZero() {
		if now.Before(lockedUntil) {
			return nil, fmt.Errorf("%w until %s", models.ErrStopCodeLocked, lockedUntil.Format("15:04"))
		}
		// Lock expired; start a fresh attempt window.
		s.StopCodeAttempts = 0
		s.StopCodeLockedAt = nil
	}

	if code != s.StopCode {
		s.StopCodeAttempts++
		if s.StopCodeAttempts >= models.MaxStopCodeAttempts {
			s.StopCodeLockedAt = &now
		}
		if err := e.store.UpdateSession(*s); err != nil {
			return nil, fmt.Errorf("update session %s: %w", s.ID, err)
		}
		if s.StopCodeLockedAt != nil {
			slog.Warn("Engine stop code locked", "session_id", s.ID, "attempts", s.StopCodeAttempts)
			return nil, fmt.Errorf("%w until %s", models.ErrStopCodeLocked, s.StopCodeLockedUntil().Format("15:04"))
		}
		remaining := models.MaxStopCodeAttempts - s.StopCodeAttempts
		return nil, fmt.Errorf("%w: %d attempts left", models.ErrWrongStopCode, remaining)
	}

	s.Status = models.StatusCompleted
	s.CompletedAt = &now
	s.StopCodeAttempts = 0
	s.StopCodeLockedAt = nil
	if err := e.store.UpdateSession(*s); err != nil {
		return nil, fmt.Errorf("update session %s: %w", s.ID, err)
	}
	slog.Info("Engine delivery completed via stop code", "session_id", s.ID, "rider_id", riderID)
	e.clearSessionContexts(s)

	// Stop-code completion credits the rider; customer self-confirm does not.
	if rider, rerr := e.store.GetRider(riderID); rerr == nil && rider != nil {
		rider.Deliveries++
		if uerr := e.store.UpdateRider(*rider); uerr != nil {
			slog.Error("Engine failed to increment rider counter", "rider_id", riderID, "error", uerr)
		}
	}

	var notifs []models.Notification
	if vp := e.vendorPhone(s.VendorID); vp != "" {
		notifs = append(notifs, models.Notification{
			To:        vp,
			Kind:      models.NotifyText,
			Body:      fmt.Sprintf("Delivery %s completed by %s.", s.RefCode, s.RiderName),
			Initiator: s.RiderPhone,
		})
	}
	if s.CustomerPhone != "" {
		notifs = append(notifs, models.Notification{
			To:        s.CustomerPhone,
			Kind:      models.NotifyText,
			Body:      fmt.Sprintf("Delivery %s completed. Thank you for using SwiftSend!", s.RefCode),
			Initiator: s.RiderPhone,
		})
	}
	return notifs, nil
}

// ConfirmReceipt completes a non-terminal session on the customer's word,
// notifies the vendor, and prompts the customer for a rating. The rider's
// delivery counter is not touched on this path.
func (e *Engine) ConfirmReceipt(ctx context.Context, sessionID string) ([]models.Notification, error) {
	s, err := e.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionTerminal, s.Status)
	}

	now := e.now()
	s.Status = models.StatusCompleted
	s.CompletedAt = &now
	if err := e.store.UpdateSession(*s); err != nil {
		return nil, fmt.Errorf("update session %s: %w", s.ID, err)
	}
	slog.Info("Engine delivery completed via customer confirm", "session_id", s.ID)
	e.clearSessionContexts(s)

	var notifs []models.Notification
	if vp := e.vendorPhone(s.VendorID); vp != "" {
		notifs = append(notifs, models.Notification{
			To:        vp,
			Kind:      models.NotifyText,
			Body:      fmt.Sprintf("Customer confirmed receipt of delivery %s.", s.RefCode),
			Initiator: s.CustomerPhone,
		})
	}
	if s.CustomerPhone != "" {
		notifs = append(notifs, models.Notification{
			To:   s.CustomerPhone,
			Kind: models.NotifyButtons,
			Body: fmt.Sprintf("Thanks for confirming delivery %s! How was your rider?", s.RefCode),
			Buttons: []models.Button{
				{ID: intent.RateID(s.ID, 5), Title: "Great (5)"},
				{ID: intent.RateID(s.ID, 3), Title: "Okay (3)"},
				{ID: intent.RateID(s.ID, 1), Title: "Poor (1)"},
			},
		})
	}
	return notifs, nil
}

// Cancel moves a non-terminal session to cancelled. Cancellation is
// informational only and produces no notifications.
func (e *Engine) Cancel(ctx context.Context, sessionID string) error {
	s, err := e.getSession(sessionID)
	if err != nil {
		return err
	}
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", models.ErrSessionTerminal, s.Status)
	}

	now := e.now()
	s.Status = models.StatusCancelled
	s.CancelledAt = &now
	if err := e.store.UpdateSession(*s); err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	slog.Info("Engine cancelled session", "session_id", s.ID)
	e.clearSessionContexts(s)
	return nil
}

// SubmitRating records the customer's rating on a completed session, once.
// A second submission is rejected with ErrAlreadyRated rather than
// overwriting the first. The assigned rider's running average is updated.
func (e *Engine) SubmitRating(ctx context.Context, sessionID string, stars int) error {
	if stars < models.MinRating || stars > models.MaxRating {
		return models.ErrInvalidRating
	}

	s, err := e.getSession(sessionID)
	if err != nil {
		return err
	}
	if s.Status != models.StatusCompleted {
		return models.ErrSessionNotCompleted
	}
	if s.Rating != 0 {
		return models.ErrAlreadyRated
	}

	s.Rating = stars
	if err := e.store.UpdateSession(*s); err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}

	if s.RiderID != "" {
		rider, rerr := e.store.GetRider(s.RiderID)
		if rerr == nil && rider != nil {
			rider.RatingSum += stars
			rider.RatingCount++
			if uerr := e.store.UpdateRider(*rider); uerr != nil {
				slog.Error("Engine failed to update rider rating", "rider_id", s.RiderID, "error", uerr)
			}
		}
	}
	slog.Info("Engine recorded rating", "session_id", s.ID, "stars", stars)
	return nil
}

// ReportIssue flags a session and notifies the vendor urgently. The session
// status is unchanged; an issue can be raised in any state.
func (e *Engine) ReportIssue(ctx context.Context, sessionID string) ([]models.Notification, error) {
	s, err := e.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	s.IssueReported = true
	s.IssueAt = &now
	if err := e.store.UpdateSession(*s); err != nil {
		return nil, fmt.Errorf("update session %s: %w", s.ID, err)
	}
	slog.Warn("Engine issue reported", "session_id", s.ID)

	var notifs []models.Notification
	if vp := e.vendorPhone(s.VendorID); vp != "" {
		notifs = append(notifs, models.Notification{
			To:        vp,
			Kind:      models.NotifyText,
			Body:      fmt.Sprintf("ISSUE reported on delivery %s by %s. Please follow up now.", s.RefCode, customerLabel(s)),
			Initiator: s.CustomerPhone,
			Urgent:    true,
		})
	}
	return notifs, nil
}

// ExpirePending cancels pending sessions older than the staleness window and
// returns how many were swept. Run periodically from the scheduler.
func (e *Engine) ExpirePending(ctx context.Context) (int, error) {
	now := e.now()
	cutoff := now.Add(-models.PendingStaleness)
	stale, err := e.store.ListPendingBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale pending sessions: %w", err)
	}

	swept := 0
	for i := range stale {
		s := stale[i]
		s.Status = models.StatusCancelled
		s.CancelledAt = &now
		if err := e.store.UpdateSession(s); err != nil {
			slog.Error("Engine failed to expire pending session", "session_id", s.ID, "error", err)
			continue
		}
		e.clearSessionContexts(&s)
		swept++
	}
	if swept > 0 {
		slog.Info("Engine expired stale pending sessions", "count", swept)
	}
	return swept, nil
}

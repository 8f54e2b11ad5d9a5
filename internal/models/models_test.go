package models

import (
	"errors"
	"testing"
	"time"
)

func TestSessionStatusIsTerminal(t *testing.T) {
	terminal := []SessionStatus{StatusCompleted, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	open := []SessionStatus{StatusPending, StatusAssigned, StatusActive, StatusPickedUp, StatusInTransit, StatusArrived}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}

func TestClearRiderRemovesAllIdentityFields(t *testing.T) {
	s := DeliverySession{RiderID: "rd_1", RiderName: "Tunde", RiderPhone: "2348011112222"}
	s.ClearRider()
	if s.RiderID != "" || s.RiderName != "" || s.RiderPhone != "" {
		t.Errorf("rider fields not fully cleared: %+v", s)
	}
	if s.HasRider() {
		t.Error("HasRider should be false after ClearRider")
	}
}

func TestStopCodeLockedUntil(t *testing.T) {
	var s DeliverySession
	if !s.StopCodeLockedUntil().IsZero() {
		t.Error("expected zero lock time when not locked")
	}
	lockedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.StopCodeLockedAt = &lockedAt
	want := lockedAt.Add(StopCodeLockDuration)
	if got := s.StopCodeLockedUntil(); !got.Equal(want) {
		t.Errorf("expected lock until %v, got %v", want, got)
	}
}

func TestActiveForCustomerFiltersStalePending(t *testing.T) {
	now := time.Now()
	fresh := DeliverySession{Status: StatusPending, CreatedAt: now.Add(-time.Hour)}
	if !fresh.ActiveForCustomer(now) {
		t.Error("fresh pending session should be active")
	}
	stale := DeliverySession{Status: StatusPending, CreatedAt: now.Add(-PendingStaleness - time.Hour)}
	if stale.ActiveForCustomer(now) {
		t.Error("stale pending session should not be active")
	}
	done := DeliverySession{Status: StatusCompleted, CreatedAt: now}
	if done.ActiveForCustomer(now) {
		t.Error("completed session should not be active")
	}
	inTransit := DeliverySession{Status: StatusInTransit, CreatedAt: now.Add(-72 * time.Hour)}
	if !inTransit.ActiveForCustomer(now) {
		t.Error("in-transit session should stay active regardless of age")
	}
}

func TestSessionValidate(t *testing.T) {
	valid := DeliverySession{Destination: "12 Ikorodu Rd", StopCode: "1234"}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid session, got %v", err)
	}

	noDest := DeliverySession{StopCode: "1234"}
	if err := noDest.Validate(); !errors.Is(err, ErrMissingDestination) {
		t.Errorf("expected ErrMissingDestination, got %v", err)
	}

	badCode := DeliverySession{Destination: "x", StopCode: "12a4"}
	if err := badCode.Validate(); err == nil {
		t.Error("expected error for non-numeric stop code")
	}

	shortCode := DeliverySession{Destination: "x", StopCode: "123"}
	if err := shortCode.Validate(); err == nil {
		t.Error("expected error for short stop code")
	}
}

func TestRiderAverageRating(t *testing.T) {
	r := Rider{}
	if got := r.AverageRating(); got != 0 {
		t.Errorf("expected 0 average for unrated rider, got %v", got)
	}
	r = Rider{RatingSum: 9, RatingCount: 2}
	if got := r.AverageRating(); got != 4.5 {
		t.Errorf("expected 4.5, got %v", got)
	}
}

func TestLinkCodeExpired(t *testing.T) {
	now := time.Now()
	live := PendingLinkCode{ExpiresAt: now.Add(time.Minute)}
	if live.Expired(now) {
		t.Error("unexpired code reported expired")
	}
	old := PendingLinkCode{ExpiresAt: now.Add(-time.Minute)}
	if !old.Expired(now) {
		t.Error("expired code reported live")
	}
}

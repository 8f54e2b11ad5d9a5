package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
)

// DetectDSNType determines which database driver a DSN belongs to.
// Returns "postgres" for PostgreSQL connection strings and "sqlite3" for
// anything else (file paths are treated as SQLite databases).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nilTime returns nil for a nil *time.Time, otherwise the time value.
func nilTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// sessionColumns is the column list shared by every session SELECT.
const sessionColumns = `id, ref_code, vendor_id, rider_id, rider_name, rider_phone,
	customer_name, customer_phone, destination, lat, lng, stop_code, unlock_pin,
	status, created_at, assigned_at, accepted_at, picked_up_at, in_transit_at,
	arrived_at, completed_at, cancelled_at, rating, issue_reported, issue_at,
	stop_attempts, stop_locked_at`

// sessionScanner abstracts *sql.Row and *sql.Rows.
type sessionScanner interface {
	Scan(dest ...interface{}) error
}

// scanSession scans one session row in sessionColumns order.
func scanSession(sc sessionScanner) (models.DeliverySession, error) {
	var s models.DeliverySession
	var riderID, riderName, riderPhone, customerName, customerPhone, unlockPIN sql.NullString
	var lat, lng sql.NullFloat64
	var assignedAt, acceptedAt, pickedUpAt, inTransitAt, arrivedAt, completedAt, cancelledAt, issueAt, stopLockedAt sql.NullTime

	err := sc.Scan(
		&s.ID, &s.RefCode, &s.VendorID, &riderID, &riderName, &riderPhone,
		&customerName, &customerPhone, &s.Destination, &lat, &lng, &s.StopCode, &unlockPIN,
		&s.Status, &s.CreatedAt, &assignedAt, &acceptedAt, &pickedUpAt, &inTransitAt,
		&arrivedAt, &completedAt, &cancelledAt, &s.Rating, &s.IssueReported, &issueAt,
		&s.StopCodeAttempts, &stopLockedAt,
	)
	if err != nil {
		return s, fmt.Errorf("scan session failed: %w", err)
	}

	s.RiderID = riderID.String
	s.RiderName = riderName.String
	s.RiderPhone = riderPhone.String
	s.CustomerName = customerName.String
	s.CustomerPhone = customerPhone.String
	s.UnlockPIN = unlockPIN.String
	if lat.Valid && lng.Valid {
		s.Geo = &models.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	setNullTime(&s.AssignedAt, assignedAt)
	setNullTime(&s.AcceptedAt, acceptedAt)
	setNullTime(&s.PickedUpAt, pickedUpAt)
	setNullTime(&s.InTransitAt, inTransitAt)
	setNullTime(&s.ArrivedAt, arrivedAt)
	setNullTime(&s.CompletedAt, completedAt)
	setNullTime(&s.CancelledAt, cancelledAt)
	setNullTime(&s.IssueAt, issueAt)
	setNullTime(&s.StopCodeLockedAt, stopLockedAt)
	return s, nil
}

func setNullTime(dst **time.Time, src sql.NullTime) {
	if src.Valid {
		t := src.Time
		*dst = &t
	}
}

// sessionArgs returns the insert/update argument list matching sessionColumns
// after the id column.
func sessionArgs(s models.DeliverySession) []interface{} {
	var lat, lng interface{}
	if s.Geo != nil {
		lat, lng = s.Geo.Lat, s.Geo.Lng
	}
	return []interface{}{
		s.RefCode, s.VendorID, nilIfEmpty(s.RiderID), nilIfEmpty(s.RiderName), nilIfEmpty(s.RiderPhone),
		nilIfEmpty(s.CustomerName), nilIfEmpty(s.CustomerPhone), s.Destination, lat, lng,
		s.StopCode, nilIfEmpty(s.UnlockPIN), string(s.Status), s.CreatedAt,
		nilTime(s.AssignedAt), nilTime(s.AcceptedAt), nilTime(s.PickedUpAt), nilTime(s.InTransitAt),
		nilTime(s.ArrivedAt), nilTime(s.CompletedAt), nilTime(s.CancelledAt),
		s.Rating, s.IssueReported, nilTime(s.IssueAt), s.StopCodeAttempts, nilTime(s.StopCodeLockedAt),
	}
}

// scanRider scans one rider row.
func scanRider(sc sessionScanner) (models.Rider, error) {
	var r models.Rider
	err := sc.Scan(&r.ID, &r.VendorID, &r.Name, &r.Phone, &r.Active, &r.Deliveries, &r.RatingSum, &r.RatingCount, &r.CreatedAt)
	if err != nil {
		return r, fmt.Errorf("scan rider failed: %w", err)
	}
	return r, nil
}

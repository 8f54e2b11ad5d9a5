// Package store provides storage backends for SwiftSend.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is the file-backed default storage backend.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given options. The DSN
// is a file path; the containing directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(strings.TrimPrefix(dsn, "file:"))
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Sessions ---

func (s *SQLiteStore) CreateSession(sess models.DeliverySession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	defer tx.Rollback()

	args := append([]interface{}{sess.ID}, sessionArgs(sess)...)
	_, err = tx.Exec(`INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		slog.Error("SQLiteStore CreateSession failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO vendor_sessions (vendor_id, session_id, ref_code, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		sess.VendorID, sess.ID, sess.RefCode, string(sess.Status), sess.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateSession vendor index failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("insert vendor session index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}
	slog.Debug("SQLiteStore CreateSession succeeded", "sessionID", sess.ID, "ref", sess.RefCode)
	return nil
}

func (s *SQLiteStore) GetSession(id string) (*models.DeliverySession, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

func (s *SQLiteStore) GetSessionByRef(vendorID, refCode string) (*models.DeliverySession, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE vendor_id = ? AND ref_code = ?`, vendorID, refCode)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

// UpdateSession rewrites the canonical session row and the vendor index row
// in one transaction so the two views never diverge.
func (s *SQLiteStore) UpdateSession(sess models.DeliverySession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update session: %w", err)
	}
	defer tx.Rollback()

	args := append(sessionArgs(sess), sess.ID)
	res, err := tx.Exec(`UPDATE sessions SET
		ref_code = ?, vendor_id = ?, rider_id = ?, rider_name = ?, rider_phone = ?,
		customer_name = ?, customer_phone = ?, destination = ?, lat = ?, lng = ?,
		stop_code = ?, unlock_pin = ?, status = ?, created_at = ?,
		assigned_at = ?, accepted_at = ?, picked_up_at = ?, in_transit_at = ?,
		arrived_at = ?, completed_at = ?, cancelled_at = ?,
		rating = ?, issue_reported = ?, issue_at = ?, stop_attempts = ?, stop_locked_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		slog.Error("SQLiteStore UpdateSession failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}

	_, err = tx.Exec(`UPDATE vendor_sessions SET ref_code = ?, status = ? WHERE vendor_id = ? AND session_id = ?`,
		sess.RefCode, string(sess.Status), sess.VendorID, sess.ID)
	if err != nil {
		slog.Error("SQLiteStore UpdateSession vendor index failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("update vendor session index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update session: %w", err)
	}
	slog.Debug("SQLiteStore UpdateSession succeeded", "sessionID", sess.ID, "status", sess.Status)
	return nil
}

func (s *SQLiteStore) querySessions(query string, args ...interface{}) ([]models.DeliverySession, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.DeliverySession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}

func (s *SQLiteStore) ListVendorSessions(vendorID string) ([]models.DeliverySession, error) {
	return s.querySessions(`SELECT `+sessionColumns+` FROM sessions
		WHERE id IN (SELECT session_id FROM vendor_sessions WHERE vendor_id = ?)
		ORDER BY created_at DESC`, vendorID)
}

func (s *SQLiteStore) ListRiderSessions(riderID string) ([]models.DeliverySession, error) {
	return s.querySessions(`SELECT `+sessionColumns+` FROM sessions WHERE rider_id = ? ORDER BY created_at DESC`, riderID)
}

func (s *SQLiteStore) FindSessionsByCustomerPhone(phone string) ([]models.DeliverySession, error) {
	return s.querySessions(`SELECT `+sessionColumns+` FROM sessions WHERE customer_phone = ? ORDER BY created_at DESC`, phone)
}

func (s *SQLiteStore) ListPendingBefore(cutoff time.Time) ([]models.DeliverySession, error) {
	return s.querySessions(`SELECT `+sessionColumns+` FROM sessions WHERE status = ? AND created_at < ?`,
		string(models.StatusPending), cutoff)
}

// --- Riders ---

func (s *SQLiteStore) CreateRider(r models.Rider) error {
	_, err := s.db.Exec(`INSERT INTO riders (id, vendor_id, name, phone, active, deliveries, rating_sum, rating_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.VendorID, r.Name, r.Phone, r.Active, r.Deliveries, r.RatingSum, r.RatingCount, r.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateRider failed", "error", err, "riderID", r.ID)
		return fmt.Errorf("insert rider: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRider(id string) (*models.Rider, error) {
	row := s.db.QueryRow(`SELECT id, vendor_id, name, phone, active, deliveries, rating_sum, rating_count, created_at FROM riders WHERE id = ?`, id)
	r, err := scanRider(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) UpdateRider(r models.Rider) error {
	res, err := s.db.Exec(`UPDATE riders SET name = ?, phone = ?, active = ?, deliveries = ?, rating_sum = ?, rating_count = ? WHERE id = ?`,
		r.Name, r.Phone, r.Active, r.Deliveries, r.RatingSum, r.RatingCount, r.ID)
	if err != nil {
		slog.Error("SQLiteStore UpdateRider failed", "error", err, "riderID", r.ID)
		return fmt.Errorf("update rider: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRiderNotFound
	}
	return nil
}

func (s *SQLiteStore) ListVendorRiders(vendorID string) ([]models.Rider, error) {
	rows, err := s.db.Query(`SELECT id, vendor_id, name, phone, active, deliveries, rating_sum, rating_count, created_at
		FROM riders WHERE vendor_id = ? ORDER BY name`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("query riders: %w", err)
	}
	defer rows.Close()

	var riders []models.Rider
	for rows.Next() {
		r, err := scanRider(rows)
		if err != nil {
			return nil, err
		}
		riders = append(riders, r)
	}
	return riders, rows.Err()
}

func (s *SQLiteStore) FindRiderByPhones(variants []string) (*models.Rider, error) {
	for _, phone := range variants {
		row := s.db.QueryRow(`SELECT id, vendor_id, name, phone, active, deliveries, rating_sum, rating_count, created_at FROM riders WHERE phone = ?`, phone)
		r, err := scanRider(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		return &r, nil
	}
	return nil, nil
}

// --- Vendors and links ---

func (s *SQLiteStore) CreateVendor(v models.Vendor) error {
	_, err := s.db.Exec(`INSERT INTO vendors (id, business_name, timezone, created_at) VALUES (?, ?, ?, ?)`,
		v.ID, v.BusinessName, nilIfEmpty(v.Timezone), v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetVendor(id string) (*models.Vendor, error) {
	var v models.Vendor
	var tz sql.NullString
	err := s.db.QueryRow(`SELECT id, business_name, timezone, created_at FROM vendors WHERE id = ?`, id).
		Scan(&v.ID, &v.BusinessName, &tz, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	v.Timezone = tz.String
	return &v, nil
}

func (s *SQLiteStore) ListVendors() ([]models.Vendor, error) {
	rows, err := s.db.Query(`SELECT id, business_name, timezone, created_at FROM vendors ORDER BY business_name`)
	if err != nil {
		return nil, fmt.Errorf("query vendors: %w", err)
	}
	defer rows.Close()

	var vendors []models.Vendor
	for rows.Next() {
		var v models.Vendor
		var tz sql.NullString
		if err := rows.Scan(&v.ID, &v.BusinessName, &tz, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Timezone = tz.String
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func (s *SQLiteStore) GetVendorLinkByPhone(phone string) (*models.VendorLink, error) {
	var link models.VendorLink
	err := s.db.QueryRow(`SELECT phone, vendor_id, linked_at FROM vendor_links WHERE phone = ?`, phone).
		Scan(&link.Phone, &link.VendorID, &link.LinkedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor link by phone: %w", err)
	}
	return &link, nil
}

func (s *SQLiteStore) GetVendorLinkByVendor(vendorID string) (*models.VendorLink, error) {
	var link models.VendorLink
	err := s.db.QueryRow(`SELECT phone, vendor_id, linked_at FROM vendor_links WHERE vendor_id = ?`, vendorID).
		Scan(&link.Phone, &link.VendorID, &link.LinkedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor link by vendor: %w", err)
	}
	return &link, nil
}

func (s *SQLiteStore) PutVendorLink(link models.VendorLink) error {
	existing, err := s.GetVendorLinkByPhone(link.Phone)
	if err != nil {
		return err
	}
	if existing != nil && existing.VendorID != link.VendorID {
		return models.ErrPhoneAlreadyLinked
	}
	byVendor, err := s.GetVendorLinkByVendor(link.VendorID)
	if err != nil {
		return err
	}
	if byVendor != nil && byVendor.Phone != link.Phone {
		return models.ErrVendorAlreadyLinked
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO vendor_links (phone, vendor_id, linked_at) VALUES (?, ?, ?)`,
		link.Phone, link.VendorID, link.LinkedAt)
	if err != nil {
		slog.Error("SQLiteStore PutVendorLink failed", "error", err, "vendorID", link.VendorID)
		return fmt.Errorf("put vendor link: %w", err)
	}
	return nil
}

// --- Link codes ---

func (s *SQLiteStore) PutLinkCode(code models.PendingLinkCode) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO link_codes (code, phone, expires_at) VALUES (?, ?, ?)`,
		code.Code, code.Phone, code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("put link code: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ConsumeLinkCode(code string, now time.Time) (*models.PendingLinkCode, error) {
	var pending models.PendingLinkCode
	err := s.db.QueryRow(`SELECT code, phone, expires_at FROM link_codes WHERE code = ?`, code).
		Scan(&pending.Code, &pending.Phone, &pending.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrLinkCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get link code: %w", err)
	}

	// Consumed once then deleted, even when expired.
	if _, err := s.db.Exec(`DELETE FROM link_codes WHERE code = ?`, code); err != nil {
		return nil, fmt.Errorf("delete link code: %w", err)
	}
	if pending.Expired(now) {
		return nil, models.ErrLinkCodeNotFound
	}
	return &pending, nil
}

func (s *SQLiteStore) DeleteExpiredLinkCodes(now time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM link_codes WHERE expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired link codes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// --- Conversation contexts ---

func (s *SQLiteStore) GetContext(phone string) (*models.ConversationContext, error) {
	var c models.ConversationContext
	err := s.db.QueryRow(`SELECT phone, action, session_id, updated_at FROM conversation_contexts WHERE phone = ?`, phone).
		Scan(&c.Phone, &c.Action, &c.SessionID, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) PutContext(c models.ConversationContext) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO conversation_contexts (phone, action, session_id, updated_at) VALUES (?, ?, ?, ?)`,
		c.Phone, string(c.Action), c.SessionID, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put context: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearContext(phone string) error {
	_, err := s.db.Exec(`DELETE FROM conversation_contexts WHERE phone = ?`, phone)
	if err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	return nil
}

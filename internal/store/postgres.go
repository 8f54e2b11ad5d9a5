// Package store provides storage backends for SwiftSend.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is the PostgreSQL storage backend.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- Sessions ---

func (s *PostgresStore) CreateSession(sess models.DeliverySession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	defer tx.Rollback()

	args := append([]interface{}{sess.ID}, sessionArgs(sess)...)
	_, err = tx.Exec(`INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`, args...)
	if err != nil {
		slog.Error("PostgresStore CreateSession failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO vendor_sessions (vendor_id, session_id, ref_code, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		sess.VendorID, sess.ID, sess.RefCode, string(sess.Status), sess.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateSession vendor index failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("insert vendor session index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}
	slog.Debug("PostgresStore CreateSession succeeded", "sessionID", sess.ID, "ref", sess.RefCode)
	return nil
}

func (s *PostgresStore) GetSession(id string) (*models.DeliverySession, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

func (s *PostgresStore) GetSessionByRef(vendorID, refCode string) (*models.DeliverySession, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE vendor_id = $1 AND ref_code = $2`, vendorID, refCode)
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
func (s *PostgresStore) UpdateSession(sess models.DeliverySession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update session: %w", err)
	}
	defer tx.Rollback()

	args := append(sessionArgs(sess), sess.ID)
	res, err := tx.Exec(`UPDATE sessions SET
		ref_code = $1, vendor_id = $2, rider_id = $3, rider_name = $4, rider_phone = $5,
		customer_name = $6, customer_phone = $7, destination = $8, lat = $9, lng = $10,
		stop_code = $11, unlock_pin = $12, status = $13, created_at = $14,
		assigned_at = $15, accepted_at = $16, picked_up_at = $17, in_transit_at = $18,
		arrived_at = $19, completed_at = $20, cancelled_at = $21,
		rating = $22, issue_reported = $23, issue_at = $24, stop_attempts = $25, stop_locked_at = $26
		WHERE id = $27`, args...)
	if err != nil {
		slog.Error("PostgresStore UpdateSession failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}

	_, err = tx.Exec(`UPDATE vendor_sessions SET ref_code = $1, status = $2 WHERE vendor_id = $3 AND session_id = $4`,
		sess.RefCode, string(sess.Status), sess.VendorID, sess.ID)
	if err != nil {
		slog.Error("PostgresStore UpdateSession vendor index failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("update vendor session index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update session: %w", err)
	}
	slog.Debug("PostgresStore UpdateSession succeeded", "sessionID", sess.ID, "status", sess.Status)
	return nil
}

func (s *PostgresStore) querySessions(query string, args ...interface{}) ([]models.DeliverySession, error) {
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

func (s *PostgresStore) ListVendorSessions(vendorID string) ([]models.DeliverySession, error) {
	return s.querySessions(`SELECT `+sessionColumns+` FROM sessions
		WHERE id IN (SELECT session_id FROM vendor_sessions WHERE vendor_id = $1)
		ORDER BY created_at DESC`, vendorID)
}

func (s *PostgresStore) ListRiderSessions(riderID string) ([]models.DeliverySession, error) {
	return s.querySessions(`SELECT `+sessionColumns+` FROM sessions WHERE rider_id = $1 ORDER BY created_at DESC`, riderID)
}

func (s *PostgresStore) FindSessionsByCustomerPhone(phone string) ([]models.DeliverySession, error) {
	return s.querySessions(`SELECT `+sessionColumns+` FROM sessions WHERE customer_phone = $1 ORDER BY created_at DESC`, phone)
}

func (s *PostgresStore) ListPendingBefore(cutoff time.Time) ([]models.DeliverySession, error) {
	return s.querySessions(`SELECT `+sessionColumns+` FROM sessions WHERE status = $1 AND created_at < $2`,
		string(models.StatusPending), cutoff)
}

// --- Riders ---

func (s *PostgresStore) CreateRider(r models.Rider) error {
	_, err := s.db.Exec(`INSERT INTO riders (id, vendor_id, name, phone, active, deliveries, rating_sum, rating_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.VendorID, r.Name, r.Phone, r.Active, r.Deliveries, r.RatingSum, r.RatingCount, r.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateRider failed", "error", err, "riderID", r.ID)
		return fmt.Errorf("insert rider: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRider(id string) (*models.Rider, error) {
	row := s.db.QueryRow(`SELECT id, vendor_id, name, phone, active, deliveries, rating_sum, rating_count, created_at FROM riders WHERE id = $1`, id)
	r, err := scanRider(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) UpdateRider(r models.Rider) error {
	res, err := s.db.Exec(`UPDATE riders SET name = $1, phone = $2, active = $3, deliveries = $4, rating_sum = $5, rating_count = $6 WHERE id = $7`,
		r.Name, r.Phone, r.Active, r.Deliveries, r.RatingSum, r.RatingCount, r.ID)
	if err != nil {
		slog.Error("PostgresStore UpdateRider failed", "error", err, "riderID", r.ID)
		return fmt.Errorf("update rider: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRiderNotFound
	}
	return nil
}

func (s *PostgresStore) ListVendorRiders(vendorID string) ([]models.Rider, error) {
	rows, err := s.db.Query(`SELECT id, vendor_id, name, phone, active, deliveries, rating_sum, rating_count, created_at
		FROM riders WHERE vendor_id = $1 ORDER BY name`, vendorID)
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

func (s *PostgresStore) FindRiderByPhones(variants []string) (*models.Rider, error) {
	for _, phone := range variants {
		row := s.db.QueryRow(`SELECT id, vendor_id, name, phone, active, deliveries, rating_sum, rating_count, created_at FROM riders WHERE phone = $1`, phone)
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

func (s *PostgresStore) CreateVendor(v models.Vendor) error {
	_, err := s.db.Exec(`INSERT INTO vendors (id, business_name, timezone, created_at) VALUES ($1, $2, $3, $4)`,
		v.ID, v.BusinessName, nilIfEmpty(v.Timezone), v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetVendor(id string) (*models.Vendor, error) {
	var v models.Vendor
	var tz sql.NullString
	err := s.db.QueryRow(`SELECT id, business_name, timezone, created_at FROM vendors WHERE id = $1`, id).
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

func (s *PostgresStore) ListVendors() ([]models.Vendor, error) {
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

func (s *PostgresStore) GetVendorLinkByPhone(phone string) (*models.VendorLink, error) {
	var link models.VendorLink
	err := s.db.QueryRow(`SELECT phone, vendor_id, linked_at FROM vendor_links WHERE phone = $1`, phone).
		Scan(&link.Phone, &link.VendorID, &link.LinkedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor link by phone: %w", err)
	}
	return &link, nil
}

func (s *PostgresStore) GetVendorLinkByVendor(vendorID string) (*models.VendorLink, error) {
	var link models.VendorLink
	err := s.db.QueryRow(`SELECT phone, vendor_id, linked_at FROM vendor_links WHERE vendor_id = $1`, vendorID).
		Scan(&link.Phone, &link.VendorID, &link.LinkedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor link by vendor: %w", err)
	}
	return &link, nil
}

func (s *PostgresStore) PutVendorLink(link models.VendorLink) error {
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

	_, err = s.db.Exec(`INSERT INTO vendor_links (phone, vendor_id, linked_at) VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET vendor_id = EXCLUDED.vendor_id, linked_at = EXCLUDED.linked_at`,
		link.Phone, link.VendorID, link.LinkedAt)
	if err != nil {
		slog.Error("PostgresStore PutVendorLink failed", "error", err, "vendorID", link.VendorID)
		return fmt.Errorf("put vendor link: %w", err)
	}
	return nil
}

// --- Link codes ---

func (s *PostgresStore) PutLinkCode(code models.PendingLinkCode) error {
	_, err := s.db.Exec(`INSERT INTO link_codes (code, phone, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET phone = EXCLUDED.phone, expires_at = EXCLUDED.expires_at`,
		code.Code, code.Phone, code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("put link code: %w", err)
	}
	return nil
}

func (s *PostgresStore) ConsumeLinkCode(code string, now time.Time) (*models.PendingLinkCode, error) {
	var pending models.PendingLinkCode
	// Single-shot consume: delete-returning makes concurrent exchanges of
	// the same code race-safe.
	err := s.db.QueryRow(`DELETE FROM link_codes WHERE code = $1 RETURNING code, phone, expires_at`, code).
		Scan(&pending.Code, &pending.Phone, &pending.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrLinkCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume link code: %w", err)
	}
	if pending.Expired(now) {
		return nil, models.ErrLinkCodeNotFound
	}
	return &pending, nil
}

func (s *PostgresStore) DeleteExpiredLinkCodes(now time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM link_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired link codes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// --- Conversation contexts ---

func (s *PostgresStore) GetContext(phone string) (*models.ConversationContext, error) {
	var c models.ConversationContext
	err := s.db.QueryRow(`SELECT phone, action, session_id, updated_at FROM conversation_contexts WHERE phone = $1`, phone).
		Scan(&c.Phone, &c.Action, &c.SessionID, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) PutContext(c models.ConversationContext) error {
	_, err := s.db.Exec(`INSERT INTO conversation_contexts (phone, action, session_id, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone) DO UPDATE SET action = EXCLUDED.action, session_id = EXCLUDED.session_id, updated_at = EXCLUDED.updated_at`,
		c.Phone, string(c.Action), c.SessionID, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put context: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearContext(phone string) error {
	_, err := s.db.Exec(`DELETE FROM conversation_contexts WHERE phone = $1`, phone)
	if err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	return nil
}

// Package store provides storage backends for SwiftSend.
//
// This file implements an in-memory store used by tests and local
// development. It mirrors the SQL backends' semantics, including the
// all-or-nothing session/vendor-index write.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
)

// InMemoryStore keeps everything in maps guarded by one mutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.DeliverySession
	byVendor map[string][]string // vendor id -> session ids, newest first
	riders   map[string]models.Rider
	vendors  map[string]models.Vendor
	links    map[string]models.VendorLink // keyed by phone
	codes    map[string]models.PendingLinkCode
	contexts map[string]models.ConversationContext
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]models.DeliverySession),
		byVendor: make(map[string][]string),
		riders:   make(map[string]models.Rider),
		vendors:  make(map[string]models.Vendor),
		links:    make(map[string]models.VendorLink),
		codes:    make(map[string]models.PendingLinkCode),
		contexts: make(map[string]models.ConversationContext),
	}
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

// --- Sessions ---

func (s *InMemoryStore) CreateSession(sess models.DeliverySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	s.byVendor[sess.VendorID] = append([]string{sess.ID}, s.byVendor[sess.VendorID]...)
	return nil
}

func (s *InMemoryStore) GetSession(id string) (*models.DeliverySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *InMemoryStore) GetSessionByRef(vendorID, refCode string) (*models.DeliverySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.byVendor[vendorID] {
		if sess, ok := s.sessions[id]; ok && sess.RefCode == refCode {
			return &sess, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) UpdateSession(sess models.DeliverySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return models.ErrSessionNotFound
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *InMemoryStore) sortedCopy(ids []string) []models.DeliverySession {
	var out []models.DeliverySession
	for _, id := range ids {
		if sess, ok := s.sessions[id]; ok {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *InMemoryStore) ListVendorSessions(vendorID string) ([]models.DeliverySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCopy(s.byVendor[vendorID]), nil
}

func (s *InMemoryStore) ListRiderSessions(riderID string) ([]models.DeliverySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DeliverySession
	for _, sess := range s.sessions {
		if sess.RiderID == riderID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) FindSessionsByCustomerPhone(phone string) ([]models.DeliverySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DeliverySession
	for _, sess := range s.sessions {
		if sess.CustomerPhone == phone {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListPendingBefore(cutoff time.Time) ([]models.DeliverySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DeliverySession
	for _, sess := range s.sessions {
		if sess.Status == models.StatusPending && sess.CreatedAt.Before(cutoff) {
			out = append(out, sess)
		}
	}
	return out, nil
}

// --- Riders ---

func (s *InMemoryStore) CreateRider(r models.Rider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riders[r.ID] = r
	return nil
}

func (s *InMemoryStore) GetRider(id string) (*models.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.riders[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *InMemoryStore) UpdateRider(r models.Rider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.riders[r.ID]; !ok {
		return models.ErrRiderNotFound
	}
	s.riders[r.ID] = r
	return nil
}

func (s *InMemoryStore) ListVendorRiders(vendorID string) ([]models.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Rider
	for _, r := range s.riders {
		if r.VendorID == vendorID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) FindRiderByPhones(variants []string) (*models.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, phone := range variants {
		for _, r := range s.riders {
			if r.Phone == phone {
				rider := r
				return &rider, nil
			}
		}
	}
	return nil, nil
}

// --- Vendors and links ---

func (s *InMemoryStore) CreateVendor(v models.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vendors[v.ID] = v
	return nil
}

func (s *InMemoryStore) GetVendor(id string) (*models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendors[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *InMemoryStore) ListVendors() ([]models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Vendor
	for _, v := range s.vendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessName < out[j].BusinessName })
	return out, nil
}

func (s *InMemoryStore) GetVendorLinkByPhone(phone string) (*models.VendorLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[phone]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (s *InMemoryStore) GetVendorLinkByVendor(vendorID string) (*models.VendorLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.VendorID == vendorID {
			l := link
			return &l, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) PutVendorLink(link models.VendorLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.links[link.Phone]; ok && existing.VendorID != link.VendorID {
		return models.ErrPhoneAlreadyLinked
	}
	for _, l := range s.links {
		if l.VendorID == link.VendorID && l.Phone != link.Phone {
			return models.ErrVendorAlreadyLinked
		}
	}
	s.links[link.Phone] = link
	return nil
}

// --- Link codes ---

func (s *InMemoryStore) PutLinkCode(code models.PendingLinkCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code] = code
	return nil
}

func (s *InMemoryStore) ConsumeLinkCode(code string, now time.Time) (*models.PendingLinkCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.codes[code]
	if !ok {
		return nil, models.ErrLinkCodeNotFound
	}
	delete(s.codes, code)
	if pending.Expired(now) {
		return nil, models.ErrLinkCodeNotFound
	}
	return &pending, nil
}

func (s *InMemoryStore) DeleteExpiredLinkCodes(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for code, pending := range s.codes {
		if pending.Expired(now) {
			delete(s.codes, code)
			n++
		}
	}
	return n, nil
}

// --- Conversation contexts ---

func (s *InMemoryStore) GetContext(phone string) (*models.ConversationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[phone]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *InMemoryStore) PutContext(c models.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[c.Phone] = c
	return nil
}

func (s *InMemoryStore) ClearContext(phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, phone)
	return nil
}

package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/store"
)

func TestResolveVendorTakesPrecedence(t *testing.T) {
	st := store.NewInMemoryStore()
	st.CreateVendor(models.Vendor{ID: "v1", BusinessName: "Mama Put Kitchen"})
	st.PutVendorLink(models.VendorLink{Phone: "2348011112222", VendorID: "v1"})
	// Same number also belongs to a rider; the vendor link wins.
	st.CreateRider(models.Rider{ID: "rd_1", VendorID: "v1", Phone: "08011112222"})

	res, err := NewResolver(st).Resolve("08011112222")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Role != models.RoleVendor {
		t.Fatalf("expected vendor role, got %s", res.Role)
	}
	if res.Vendor == nil || res.Vendor.ID != "v1" {
		t.Errorf("vendor record missing: %+v", res)
	}
	if res.Phone != "2348011112222" {
		t.Errorf("phone should be canonical, got %q", res.Phone)
	}
}

func TestResolveRiderByPhoneVariant(t *testing.T) {
	st := store.NewInMemoryStore()
	// Stored in local form, sender arrives in international form.
	st.CreateRider(models.Rider{ID: "rd_1", VendorID: "v1", Name: "Tunde", Phone: "08011112222"})

	res, err := NewResolver(st).Resolve("+2348011112222")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Role != models.RoleRider || res.Rider == nil || res.Rider.ID != "rd_1" {
		t.Errorf("expected rider rd_1, got %+v", res)
	}
}

func TestResolveDanglingVendorLinkFallsThrough(t *testing.T) {
	st := store.NewInMemoryStore()
	// Link points at a vendor record that no longer exists.
	st.PutVendorLink(models.VendorLink{Phone: "2348011112222", VendorID: "gone"})
	st.CreateRider(models.Rider{ID: "rd_1", VendorID: "v1", Phone: "08011112222"})

	res, err := NewResolver(st).Resolve("2348011112222")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Role != models.RoleRider {
		t.Errorf("dangling link should fall through to rider, got %s", res.Role)
	}
}

func TestResolveCustomerWithLiveSession(t *testing.T) {
	st := store.NewInMemoryStore()
	st.CreateSession(models.DeliverySession{
		ID: "s1", VendorID: "v1", CustomerPhone: "2348055556666",
		Status: models.StatusActive, CreatedAt: time.Now(),
	})

	res, err := NewResolver(st).Resolve("08055556666")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Role != models.RoleCustomer {
		t.Fatalf("expected customer role, got %s", res.Role)
	}
	if len(res.Sessions) != 1 || res.Sessions[0].ID != "s1" {
		t.Errorf("live session should ride along: %+v", res.Sessions)
	}
}

func TestResolveCustomerWithOnlyTerminalSessions(t *testing.T) {
	st := store.NewInMemoryStore()
	st.CreateSession(models.DeliverySession{
		ID: "s1", VendorID: "v1", CustomerPhone: "2348055556666",
		Status: models.StatusCompleted, CreatedAt: time.Now().Add(-time.Hour),
	})

	res, err := NewResolver(st).Resolve("2348055556666")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// Still a customer so post-completion rating and status queries work.
	if res.Role != models.RoleCustomer {
		t.Fatalf("expected customer role for terminal-only history, got %s", res.Role)
	}
	if len(res.Sessions) != 0 {
		t.Errorf("terminal sessions must not appear as live: %+v", res.Sessions)
	}
}

func TestResolveUnknownSender(t *testing.T) {
	st := store.NewInMemoryStore()

	res, err := NewResolver(st).Resolve("2348099990000")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Role != models.RoleUnknown {
		t.Errorf("expected unknown role, got %s", res.Role)
	}
}

func TestResolveRejectsEmptyPhone(t *testing.T) {
	st := store.NewInMemoryStore()
	if _, err := NewResolver(st).Resolve(""); !errors.Is(err, models.ErrInvalidPhone) {
		t.Errorf("expected ErrInvalidPhone, got %v", err)
	}
}

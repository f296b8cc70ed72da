package proposal

import (
	"errors"
	"testing"

	"github.com/freightline/comms/internal/models"
)

func TestRegistryGet_UnknownType(t *testing.T) {
	r := NewRegistry(openProposalTestDB(t))

	_, err := r.Get("NO_SUCH_TYPE")
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	if _, err := r.Get(""); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("empty type err = %v, want ErrUnknownType", err)
	}
}

func TestRegistryGet_CachesReads(t *testing.T) {
	db := openProposalTestDB(t)
	r := NewRegistry(db)
	seedType(t, db, models.ProposalTypeConfig{
		Type:               "TIP_OFFER",
		ResponseActionType: ActionAcceptDecline,
	})

	first, err := r.Get("TIP_OFFER")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// A direct DB write the registry doesn't know about stays invisible
	// until the cache entry is invalidated.
	db.Model(&models.ProposalTypeConfig{}).Where("type = ?", "TIP_OFFER").
		Update("default_timeout_minutes", 15)

	cached, err := r.Get("TIP_OFFER")
	if err != nil {
		t.Fatalf("cached Get: %v", err)
	}
	if cached.DefaultTimeoutMinutes != first.DefaultTimeoutMinutes {
		t.Error("expected cached read to ignore the out-of-band write")
	}

	r.Invalidate("TIP_OFFER")
	fresh, err := r.Get("TIP_OFFER")
	if err != nil {
		t.Fatalf("fresh Get: %v", err)
	}
	if fresh.DefaultTimeoutMinutes != 15 {
		t.Errorf("DefaultTimeoutMinutes = %d after invalidate, want 15", fresh.DefaultTimeoutMinutes)
	}
}

func TestRegistryPut_UpsertsAndInvalidates(t *testing.T) {
	db := openProposalTestDB(t)
	r := NewRegistry(db)

	err := r.Put(models.ProposalTypeConfig{
		Type:                  "DELIVERY_WINDOW",
		ResponseActionType:    ActionDatePick,
		DefaultTimeoutMinutes: 30,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	cfg, err := r.Get("DELIVERY_WINDOW")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.DefaultTimeoutMinutes != 30 {
		t.Errorf("DefaultTimeoutMinutes = %d, want 30", cfg.DefaultTimeoutMinutes)
	}

	// Admin update goes through Put and is visible immediately.
	err = r.Put(models.ProposalTypeConfig{
		Type:                  "DELIVERY_WINDOW",
		ResponseActionType:    ActionDatePick,
		DefaultTimeoutMinutes: 60,
	})
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	cfg, err = r.Get("DELIVERY_WINDOW")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if cfg.DefaultTimeoutMinutes != 60 {
		t.Errorf("DefaultTimeoutMinutes = %d, want 60", cfg.DefaultTimeoutMinutes)
	}

	var count int64
	db.Model(&models.ProposalTypeConfig{}).Where("type = ?", "DELIVERY_WINDOW").Count(&count)
	if count != 1 {
		t.Errorf("config rows = %d, want 1 (at most one config per type)", count)
	}
}

func TestRegistryPut_RequiresType(t *testing.T) {
	r := NewRegistry(openProposalTestDB(t))
	if err := r.Put(models.ProposalTypeConfig{}); err == nil {
		t.Fatal("expected error for empty type")
	}
}

func TestRegistryList(t *testing.T) {
	db := openProposalTestDB(t)
	r := NewRegistry(db)
	seedType(t, db, models.ProposalTypeConfig{Type: "B_TYPE", ResponseActionType: ActionTextInput})
	seedType(t, db, models.ProposalTypeConfig{Type: "A_TYPE", ResponseActionType: ActionTextInput})

	rows, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 || rows[0].Type != "A_TYPE" || rows[1].Type != "B_TYPE" {
		t.Errorf("List = %v, want A_TYPE then B_TYPE", rows)
	}
}

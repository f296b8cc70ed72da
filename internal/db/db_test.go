package db

import (
	"testing"

	"github.com/freightline/comms/internal/config"
	"github.com/freightline/comms/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DBConfig
		want string
	}{
		{
			name: "with password",
			cfg:  config.DBConfig{Host: "db.internal", Port: 3307, User: "comms", Password: "hunter2", Database: "comms_prod"},
			want: "comms:hunter2@tcp(db.internal:3307)/comms_prod?parseTime=true&charset=utf8mb4",
		},
		{
			name: "without password",
			cfg:  config.DBConfig{Host: "127.0.0.1", Port: 3306, User: "root", Database: "comms"},
			want: "root@tcp(127.0.0.1:3306)/comms?parseTime=true&charset=utf8mb4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAutoMigrate(t *testing.T) {
	db := openTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range AllModels() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("missing table for %T", m)
		}
	}
}

func TestSeedProposalTypes_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	seeds := []config.ProposalTypeSeed{
		{Type: "TIP_OFFER", ResponseActionType: "ACCEPT_DECLINE"},
		{Type: "DISPUTE_APPEAL", RequiredRole: "SHIPPER", ResponseActionType: "TEXT_INPUT", DefaultTimeoutMinutes: 2880},
	}
	if err := SeedProposalTypes(db, seeds); err != nil {
		t.Fatalf("SeedProposalTypes: %v", err)
	}

	// Re-seeding with a changed policy updates in place, no duplicate rows.
	seeds[0].DefaultTimeoutMinutes = 60
	if err := SeedProposalTypes(db, seeds); err != nil {
		t.Fatalf("SeedProposalTypes again: %v", err)
	}

	var count int64
	db.Model(&models.ProposalTypeConfig{}).Count(&count)
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}
	var got models.ProposalTypeConfig
	db.Where("type = ?", "TIP_OFFER").First(&got)
	if got.DefaultTimeoutMinutes != 60 {
		t.Errorf("DefaultTimeoutMinutes = %d, want 60 after upsert", got.DefaultTimeoutMinutes)
	}
}

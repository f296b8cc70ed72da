package db

import (
	"fmt"

	"github.com/freightline/comms/internal/config"
	"github.com/freightline/comms/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Conversation{},
		&models.Message{},
		&models.Proposal{},
		&models.ProposalTypeConfig{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedProposalTypes upserts ProposalTypeConfig rows from configuration.
func SeedProposalTypes(db *gorm.DB, seeds []config.ProposalTypeSeed) error {
	for _, s := range seeds {
		ptc := models.ProposalTypeConfig{
			Type:                  s.Type,
			RequiredRole:          s.RequiredRole,
			CreationActionType:    s.CreationActionType,
			ResponseActionType:    s.ResponseActionType,
			Description:           s.Description,
			DefaultTimeoutMinutes: s.DefaultTimeoutMinutes,
		}

		result := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"required_role", "creation_action_type", "response_action_type",
				"description", "default_timeout_minutes",
			}),
		}).Create(&ptc)
		if result.Error != nil {
			return fmt.Errorf("db: seed proposal type %q: %w", s.Type, result.Error)
		}
	}
	return nil
}

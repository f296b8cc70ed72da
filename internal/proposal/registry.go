package proposal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/freightline/comms/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry resolves proposal types to their policy. Reads are served from a
// process-local cache; admin writes go through Put, which upserts the row
// and drops the cache entry so the next read sees the new policy.
type Registry struct {
	db *gorm.DB

	mu    sync.RWMutex
	cache map[string]*models.ProposalTypeConfig
}

// NewRegistry creates a Registry backed by the given database.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{
		db:    db,
		cache: make(map[string]*models.ProposalTypeConfig),
	}
}

// Get returns the config for a proposal type. Returns ErrUnknownType when no
// config exists.
func (r *Registry) Get(proposalType string) (*models.ProposalTypeConfig, error) {
	if proposalType == "" {
		return nil, fmt.Errorf("%w: empty type", ErrUnknownType)
	}

	r.mu.RLock()
	cfg, ok := r.cache[proposalType]
	r.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	var row models.ProposalTypeConfig
	result := r.db.Where("type = ?", proposalType).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, proposalType)
		}
		return nil, fmt.Errorf("%w: load type %s: %v", ErrStoreUnavailable, proposalType, result.Error)
	}

	r.mu.Lock()
	r.cache[proposalType] = &row
	r.mu.Unlock()
	return &row, nil
}

// Put upserts a proposal type config and invalidates its cache entry.
func (r *Registry) Put(cfg models.ProposalTypeConfig) error {
	if cfg.Type == "" {
		return fmt.Errorf("proposal: registry put: type is required")
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"required_role", "creation_action_type", "response_action_type",
			"description", "default_timeout_minutes",
		}),
	}).Create(&cfg)
	if result.Error != nil {
		return fmt.Errorf("proposal: registry put %q: %w", cfg.Type, result.Error)
	}
	r.Invalidate(cfg.Type)
	return nil
}

// Invalidate drops the cache entry for a type.
func (r *Registry) Invalidate(proposalType string) {
	r.mu.Lock()
	delete(r.cache, proposalType)
	r.mu.Unlock()
}

// List returns all configured proposal types, bypassing the cache.
func (r *Registry) List() ([]models.ProposalTypeConfig, error) {
	var rows []models.ProposalTypeConfig
	if err := r.db.Order("type ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("proposal: registry list: %w", err)
	}
	return rows, nil
}

package models

// ProposalTypeConfig is the per-type policy for proposals: who may create
// one, what response shape it expects, and how long it stays open. Seeded
// from configuration and editable at runtime via the admin CLI; at most one
// row per type.
type ProposalTypeConfig struct {
	ID                    uint   `gorm:"primaryKey;autoIncrement"`
	Type                  string `gorm:"size:64;uniqueIndex;not null"`
	RequiredRole          string `gorm:"size:32"`
	CreationActionType    string `gorm:"size:32"`
	ResponseActionType    string `gorm:"size:32"` // ACCEPT_DECLINE, TEXT_INPUT, DATE_PICK
	Description           string `gorm:"type:text"`
	DefaultTimeoutMinutes int    `gorm:"default:0"` // 0 = never expires via the sweep
}

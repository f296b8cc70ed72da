package models

import "time"

// Proposal is a typed offer from one party to another that expects a
// structured response. Status leaves PENDING exactly once; resolved rows are
// immutable and retained as an audit trail, never deleted.
type Proposal struct {
	ID             string     `gorm:"primaryKey;size:36"`
	ConversationID string     `gorm:"size:36;not null;index"`
	ProposerID     string     `gorm:"size:64;not null"`
	RecipientID    string     `gorm:"size:64;not null;index"`
	Type           string     `gorm:"size:64;not null"`
	Data           string     `gorm:"type:text"` // opaque JSON payload, immutable after creation
	Status         string     `gorm:"size:16;default:PENDING;index"` // PENDING, ACCEPTED, DECLINED, EXPIRED, CANCELLED
	ActionType     string     `gorm:"size:32"`                       // ACCEPT_DECLINE, TEXT_INPUT, DATE_PICK
	ResultData     string     `gorm:"type:text"` // set once, on response
	CorrelationID  string     `gorm:"size:64;index"`
	ExpiresAt      *time.Time `gorm:"index"`
	CreatedAt      time.Time

	Conversation Conversation `gorm:"foreignKey:ConversationID"`
}

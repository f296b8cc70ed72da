package models

import "time"

// Message is a single entry in a conversation's history. A message either
// carries plain text or wraps a proposal, in which case ProposalID points at
// the wrapped record and the message is created in the same transaction as
// the proposal.
type Message struct {
	ID             string  `gorm:"primaryKey;size:36"`
	ConversationID string  `gorm:"size:36;not null;index"`
	SenderID       string  `gorm:"size:64;not null"`
	Content        string  `gorm:"type:text"`
	Type           string  `gorm:"size:16;default:TEXT"`      // TEXT, PROPOSAL
	Status         string  `gorm:"size:16;default:SENT;index"` // SENT, DELIVERED, READ (monotonic)
	ProposalID     *string `gorm:"size:36;index"`
	CreatedAt      time.Time

	Conversation Conversation `gorm:"foreignKey:ConversationID"`
}

package models

import "time"

// Conversation is the durable chat channel between two users. The pair is
// stored in canonical order (UserA < UserB lexicographically) so that lookups
// from either side resolve to the same row. Conversations are created lazily
// on first contact and never deleted.
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserA     string    `gorm:"size:64;not null;uniqueIndex:idx_conv_pair"`
	UserB     string    `gorm:"size:64;not null;uniqueIndex:idx_conv_pair"`
	CreatedAt time.Time

	Messages []Message `gorm:"foreignKey:ConversationID"`
}

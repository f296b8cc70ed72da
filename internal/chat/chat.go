// Package chat provides conversation and message primitives.
package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/freightline/comms/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message types.
const (
	TypeText     = "TEXT"
	TypeProposal = "PROPOSAL"
)

// Message delivery statuses, in advancing order.
const (
	StatusSent      = "SENT"
	StatusDelivered = "DELIVERED"
	StatusRead      = "READ"
)

// statusRank orders delivery statuses for the monotonic-advance guard.
var statusRank = map[string]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// CanonicalPair orders two user IDs so that the smaller one comes first.
// Returns an error when either ID is empty or the IDs are equal: a user
// cannot converse with themselves.
func CanonicalPair(a, b string) (string, string, error) {
	if a == "" || b == "" {
		return "", "", fmt.Errorf("chat: both user IDs are required")
	}
	if a == b {
		return "", "", fmt.Errorf("chat: conversation requires two distinct users, got %q twice", a)
	}
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}

// FindOrCreateConversation returns the conversation between two users,
// creating it on first contact. The pair is canonicalized first, so the
// argument order never matters.
func FindOrCreateConversation(db *gorm.DB, a, b string) (*models.Conversation, error) {
	userA, userB, err := CanonicalPair(a, b)
	if err != nil {
		return nil, err
	}

	var conv models.Conversation
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_a = ? AND user_b = ?", userA, userB).First(&conv)
		if result.Error == nil {
			return nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup: %w", result.Error)
		}

		conv = models.Conversation{
			ID:        uuid.NewString(),
			UserA:     userA,
			UserB:     userB,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(&conv).Error; err != nil {
			return fmt.Errorf("create: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chat: conversation %s/%s: %w", userA, userB, err)
	}
	return &conv, nil
}

// SendText persists a plain text message in a conversation.
func SendText(db *gorm.DB, conversationID, senderID, content string) (*models.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("chat: conversationID is required")
	}
	if senderID == "" {
		return nil, fmt.Errorf("chat: senderID is required")
	}

	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           TypeText,
		Status:         StatusSent,
		CreatedAt:      time.Now(),
	}
	if err := db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("chat: send: %w", err)
	}
	return &msg, nil
}

// History returns a conversation's messages, oldest first.
func History(db *gorm.DB, conversationID string) ([]models.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("chat: conversationID is required")
	}
	var msgs []models.Message
	if err := db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("chat: history %s: %w", conversationID, err)
	}
	return msgs, nil
}

// AdvanceStatus moves a message's delivery status forward. The status only
// advances: moving to a status at or behind the current one is a no-op, so
// a late DELIVERED receipt cannot regress a READ message.
func AdvanceStatus(db *gorm.DB, messageID, status string) error {
	rank, ok := statusRank[status]
	if !ok {
		return fmt.Errorf("chat: unknown message status %q", status)
	}

	var prior []string
	for s, r := range statusRank {
		if r < rank {
			prior = append(prior, s)
		}
	}
	if len(prior) == 0 {
		return nil // SENT is the floor; nothing to advance from
	}

	result := db.Model(&models.Message{}).
		Where("id = ? AND status IN ?", messageID, prior).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("chat: advance %s to %s: %w", messageID, status, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		db.Model(&models.Message{}).Where("id = ?", messageID).Count(&count)
		if count == 0 {
			return fmt.Errorf("chat: message not found: %s", messageID)
		}
		// Already at or beyond the requested status.
	}
	return nil
}

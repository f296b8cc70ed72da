// Package proposal implements the proposal lifecycle: creation with
// per-type permission checks, typed responses, bulk cancellation by
// correlation, and the periodic expiry sweep.
package proposal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/freightline/comms/internal/chat"
	"github.com/freightline/comms/internal/models"
	"github.com/freightline/comms/internal/notify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Proposal statuses. A proposal leaves PENDING exactly once.
const (
	StatusPending   = "PENDING"
	StatusAccepted  = "ACCEPTED"
	StatusDeclined  = "DECLINED"
	StatusExpired   = "EXPIRED"
	StatusCancelled = "CANCELLED"
)

// Response action types.
const (
	ActionAcceptDecline = "ACCEPT_DECLINE"
	ActionTextInput     = "TEXT_INPUT"
	ActionDatePick      = "DATE_PICK"
)

// ResultDeclined is the ACCEPT_DECLINE result value that resolves a proposal
// to DECLINED; every other value resolves it to ACCEPTED.
const ResultDeclined = "DECLINED"

// ResponseHook is a type-specific follow-up invoked after a response is
// persisted, e.g. notifying an external dispute service when a refusal is
// confirmed. Hooks are registered per proposal type at engine construction;
// hook errors are logged, never surfaced, and never roll back the response.
type ResponseHook func(ctx context.Context, p *models.Proposal) error

// Engine is the proposal state machine.
type Engine struct {
	db         *gorm.DB
	registry   *Registry
	dispatcher *notify.Dispatcher
	hooks      map[string]ResponseHook
}

// EngineOpts holds parameters for creating an Engine.
type EngineOpts struct {
	DB         *gorm.DB
	Registry   *Registry
	Dispatcher *notify.Dispatcher
	Hooks      map[string]ResponseHook
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("proposal: engine: db is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("proposal: engine: registry is required")
	}
	return &Engine{
		db:         opts.DB,
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		hooks:      opts.Hooks,
	}, nil
}

// CreateRequest holds parameters for creating a proposal.
type CreateRequest struct {
	Type           string
	ProposerID     string
	ProposerRoles  []string
	RecipientID    string
	ConversationID string // optional; resolved from the user pair when empty
	Payload        string // opaque JSON, stored verbatim
	FallbackText   string // display text for the wrapping chat message
}

// Create validates the request against the type's policy, persists the
// proposal together with its wrapping chat message in one transaction, and
// dispatches the new proposal to both parties.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*models.Proposal, error) {
	cfg, err := e.registry.Get(req.Type)
	if err != nil {
		return nil, err
	}
	if req.ProposerID == "" || req.RecipientID == "" {
		return nil, fmt.Errorf("proposal: create: proposer and recipient are required")
	}
	if cfg.RequiredRole != "" && !hasRole(req.ProposerRoles, cfg.RequiredRole) {
		return nil, fmt.Errorf("%w: type %s requires role %s", ErrPermissionDenied, req.Type, cfg.RequiredRole)
	}

	db := e.db.WithContext(ctx)

	conversationID := req.ConversationID
	if conversationID == "" {
		conv, err := chat.FindOrCreateConversation(db, req.ProposerID, req.RecipientID)
		if err != nil {
			return nil, err
		}
		conversationID = conv.ID
	}

	now := time.Now()
	var expiresAt *time.Time
	if cfg.DefaultTimeoutMinutes > 0 {
		t := now.Add(time.Duration(cfg.DefaultTimeoutMinutes) * time.Minute)
		expiresAt = &t
	}

	p := models.Proposal{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		ProposerID:     req.ProposerID,
		RecipientID:    req.RecipientID,
		Type:           req.Type,
		Data:           req.Payload,
		Status:         StatusPending,
		ActionType:     cfg.ResponseActionType,
		CorrelationID:  correlationFromPayload(req.Payload),
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
	}
	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       req.ProposerID,
		Content:        req.FallbackText,
		Type:           chat.TypeProposal,
		Status:         chat.StatusSent,
		ProposalID:     &p.ID,
		CreatedAt:      now,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create proposal: %w", err)
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if e.dispatcher != nil {
		event := notify.ProposalCreatedEvent{Proposal: &p, Message: &msg}
		e.dispatcher.SendToParties(p.ProposerID, p.RecipientID, notify.DestProposals, event, "")
	}
	return &p, nil
}

// Respond resolves a pending proposal. Only the recipient may respond, and
// only while the proposal is still PENDING; two concurrent responses race on
// a conditional update and exactly one wins.
func (e *Engine) Respond(ctx context.Context, proposalID, responderID, resultData string) (*models.Proposal, error) {
	db := e.db.WithContext(ctx)

	var p models.Proposal
	result := db.Where("id = ?", proposalID).First(&p)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, proposalID)
		}
		return nil, fmt.Errorf("%w: load %s: %v", ErrStoreUnavailable, proposalID, result.Error)
	}

	if responderID != p.RecipientID {
		return nil, fmt.Errorf("%w: only the recipient may respond to %s", ErrPermissionDenied, proposalID)
	}
	if p.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidState, proposalID, p.Status)
	}

	newStatus, err := resolveStatus(p.ActionType, resultData)
	if err != nil {
		return nil, err
	}

	ok, err := e.transition(ctx, &p, newStatus, resultData)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: someone else resolved it first, or the sweep
		// expired it between our read and the update.
		return nil, fmt.Errorf("%w: %s was resolved concurrently", ErrInvalidState, proposalID)
	}

	if hook, found := e.hooks[p.Type]; found {
		if hookErr := hook(ctx, &p); hookErr != nil {
			log.Printf("proposal: post-response hook for %s (type %s): %v", p.ID, p.Type, hookErr)
		}
	}
	return &p, nil
}

// CancelByCorrelation cancels every pending proposal carrying the given
// correlation tag and returns how many were cancelled. Used when the
// upstream condition that prompted the proposals is retracted. Idempotent:
// a second call finds nothing pending and cancels zero.
func (e *Engine) CancelByCorrelation(ctx context.Context, correlationID string) (int, error) {
	if correlationID == "" {
		return 0, fmt.Errorf("proposal: cancel: correlationID is required")
	}
	db := e.db.WithContext(ctx)

	var pending []models.Proposal
	if err := db.Where("correlation_id = ? AND status = ?", correlationID, StatusPending).
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("%w: query correlation %s: %v", ErrStoreUnavailable, correlationID, err)
	}

	cancelled := 0
	for i := range pending {
		ok, err := e.transition(ctx, &pending[i], StatusCancelled, "")
		if err != nil {
			log.Printf("proposal: cancel %s: %v", pending[i].ID, err)
			continue
		}
		if ok {
			cancelled++
		}
	}
	return cancelled, nil
}

// transition moves a proposal out of PENDING with a conditional update and
// dispatches the status change to both parties. Returns false when the row
// was no longer PENDING, which means a concurrent caller won the race.
func (e *Engine) transition(ctx context.Context, p *models.Proposal, newStatus, resultData string) (bool, error) {
	result := e.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("id = ? AND status = ?", p.ID, StatusPending).
		Updates(map[string]interface{}{
			"status":      newStatus,
			"result_data": resultData,
		})
	if result.Error != nil {
		return false, fmt.Errorf("%w: transition %s to %s: %v", ErrStoreUnavailable, p.ID, newStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	p.Status = newStatus
	p.ResultData = resultData

	if e.dispatcher != nil {
		event := notify.ProposalUpdateEvent{
			ProposalID:     p.ID,
			Status:         newStatus,
			ConversationID: p.ConversationID,
			ResultData:     resultData,
		}
		e.dispatcher.SendToParties(p.ProposerID, p.RecipientID, notify.DestProposals, event, "")
	}
	return true, nil
}

// resolveStatus applies the response resolution rule. ACCEPT_DECLINE is a
// binary choice: the literal DECLINED result declines, anything else
// accepts. For every other action type the response payload itself is the
// content, so any non-empty response accepts.
func resolveStatus(actionType, resultData string) (string, error) {
	if actionType == ActionAcceptDecline {
		if resultData == ResultDeclined {
			return StatusDeclined, nil
		}
		return StatusAccepted, nil
	}
	if resultData == "" {
		return "", fmt.Errorf("proposal: respond: resultData is required for %s", actionType)
	}
	return StatusAccepted, nil
}

// hasRole reports whether roles contains the required role.
func hasRole(roles []string, required string) bool {
	for _, r := range roles {
		if r == required {
			return true
		}
	}
	return false
}

// correlationFromPayload extracts the correlation tag from a proposal
// payload so bulk cancellation is a plain indexed query. Payloads without a
// tag, or that are not JSON objects, yield an empty correlation.
func correlationFromPayload(payload string) string {
	if payload == "" {
		return ""
	}
	var fields struct {
		CorrelationID string `json:"correlationId"`
	}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return ""
	}
	return fields.CorrelationID
}

// Package notify delivers real-time events to connected clients. Delivery is
// best-effort: the persisted Message/Proposal rows are the durable record,
// and the push is purely a latency optimization for clients that happen to
// be connected right now. Nothing is queued or retried for offline users.
package notify

import (
	"encoding/json"
	"log"

	"github.com/freightline/comms/internal/models"
	"github.com/freightline/comms/internal/session"
)

// Destination tags understood by the transport. The transport maps them to
// per-user addressable channels.
const (
	DestMessages  = "messages"
	DestProposals = "proposals"
)

// Pusher is the transport-agnostic push primitive. Implementations must not
// block on delivery confirmation; a returned error means the write failed,
// which the dispatcher logs and otherwise ignores.
type Pusher interface {
	Push(userID, destination string, payload []byte) error
}

// ProposalUpdateEvent is the wire payload for a proposal status change.
// Together with ProposalCreatedEvent it is the only contract stable across
// clients.
type ProposalUpdateEvent struct {
	ProposalID     string `json:"proposalId"`
	Status         string `json:"status"`
	ConversationID string `json:"conversationId"`
	ResultData     string `json:"resultData,omitempty"`
}

// ProposalCreatedEvent is the wire payload for a new proposal, carrying the
// full proposal and the chat message that wraps it.
type ProposalCreatedEvent struct {
	Proposal *models.Proposal `json:"proposal"`
	Message  *models.Message  `json:"message"`
}

// MessageEvent is the wire payload for a new plain chat message.
type MessageEvent struct {
	Message *models.Message `json:"message"`
}

// Dispatcher routes events to a user's live connections, consulting the
// session registry to decide whether a push is worth attempting.
type Dispatcher struct {
	registry *session.Registry
	pusher   Pusher
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(registry *session.Registry, pusher Pusher) *Dispatcher {
	return &Dispatcher{registry: registry, pusher: pusher}
}

// SendToUser pushes an event to one user. With the ALL wildcard the push
// goes to the user's default channel unconditionally; with a concrete device
// class the push happens only when the user has a live connection of that
// class, and is silently skipped otherwise. The push itself runs in its own
// goroutine so the caller never blocks, and a push failure never surfaces:
// by the time dispatch runs, the state change is already persisted.
func (d *Dispatcher) SendToUser(userID, destination string, event interface{}, targetDeviceClass string) {
	if userID == "" || d.pusher == nil {
		return
	}
	if targetDeviceClass == "" {
		targetDeviceClass = session.DeviceClassAll
	}

	if targetDeviceClass != session.DeviceClassAll &&
		!d.registry.HasDeviceClass(userID, targetDeviceClass) {
		log.Printf("notify: skip %s for %s, no live %s connection", destination, userID, targetDeviceClass)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal %s event for %s: %v", destination, userID, err)
		return
	}

	go func() {
		if err := d.pusher.Push(userID, destination, payload); err != nil {
			log.Printf("notify: push %s to %s: %v", destination, userID, err)
		}
	}()
}

// SendToParties pushes the same event to both sides of a conversation.
func (d *Dispatcher) SendToParties(proposerID, recipientID, destination string, event interface{}, targetDeviceClass string) {
	d.SendToUser(proposerID, destination, event, targetDeviceClass)
	d.SendToUser(recipientID, destination, event, targetDeviceClass)
}

// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"elecrm_backend/internal/leadevents"
	"elecrm_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// NewLead is published when an insert is observed on the combined leads table.
type NewLead struct {
	BaseEvent
	Lead leadevents.CombinedLead `json:"lead"`
}

func (e NewLead) EventName() string { return "leads.new" }

// RemoveLead is published when a delete is observed on the combined leads table.
type RemoveLead struct {
	BaseEvent
	Lead leadevents.CombinedLead `json:"lead"`
}

func (e RemoveLead) EventName() string { return "leads.removed" }

// UpdateLead is published when an update is observed on the combined leads table.
type UpdateLead struct {
	BaseEvent
	Lead leadevents.CombinedLead `json:"lead"`
}

func (e UpdateLead) EventName() string { return "leads.updated" }

// QueueUpdated is published when an insert is observed on the queue table.
type QueueUpdated struct {
	BaseEvent
	Update leadevents.QueueUpdate `json:"update"`
}

func (e QueueUpdated) EventName() string { return "queue.updated" }

// =============================================================================
// Call Lifecycle Events
// =============================================================================

// OutboundCallStatus is published on every non-suppressed call status change.
type OutboundCallStatus struct {
	BaseEvent
	CallSid        string `json:"callSid"`
	ConferenceSid  string `json:"conferenceSid"`
	ParticipantSid string `json:"participantSid"`
	Status         string `json:"status"`
	From           string `json:"from"`
	To             string `json:"to"`
	Username       string `json:"username"`
}

func (e OutboundCallStatus) EventName() string { return "calls.outbound_status" }

// CallEnded is published when a call reaches a terminal status.
type CallEnded struct {
	BaseEvent
	CallSid string `json:"callSid"`
	Status  string `json:"status"`
}

func (e CallEnded) EventName() string { return "calls.ended" }

// =============================================================================
// Presence Events
// =============================================================================

// UserStatusChanged is published when a user's derived master status changes.
type UserStatusChanged struct {
	BaseEvent
	UserID       string `json:"user_id"`
	MasterStatus string `json:"masterStatus"`
}

func (e UserStatusChanged) EventName() string { return "presence.user_status_changed" }

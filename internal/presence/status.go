// Package presence tracks per-user availability derived from connection
// state, telephony activity and manually chosen status.
package presence

import (
	"strings"
	"time"
)

// Master status values. A manually supplied status string may replace
// StatusAvailable but never StatusOffline or StatusBusy.
const (
	StatusOffline   = "offline"
	StatusBusy      = "busy"
	StatusAvailable = "available"
)

// UserStatus is the persisted presence row, one per user.
type UserStatus struct {
	UserID          string
	ElecrmClient    bool
	SignalwireConf  bool
	ActiveCall      bool
	UserStatusInput string
	MasterStatus    string
	LastUpdated     time.Time
}

// StatusUpdate is the client-supplied presence payload.
type StatusUpdate struct {
	UserID          string `json:"user_id" validate:"required"`
	Connected       bool   `json:"connected"`
	ActiveCall      bool   `json:"active_call"`
	SignalwireConf  bool   `json:"signalwire_conf"`
	UserStatusInput string `json:"user_status_input"`
}

// DeriveMasterStatus computes the single master status by fixed precedence:
// offline (client not connected) > busy (active call or conference) >
// explicit manual status > available.
func DeriveMasterStatus(connected, activeCall, inConference bool, manual string) string {
	if !connected {
		return StatusOffline
	}
	if activeCall || inConference {
		return StatusBusy
	}
	if trimmed := strings.TrimSpace(manual); trimmed != "" {
		return trimmed
	}
	return StatusAvailable
}

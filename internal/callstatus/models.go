// Package callstatus reconciles call-lifecycle callbacks from the telephony
// vendor into a single continuously-updated row per call SID.
package callstatus

import "time"

// Transfer types inferred from conference membership changes.
const (
	TransferInternal = "internal"
	TransferExternal = "external"
)

// DirectionOutboundAPI marks an API-originated outbound call leg.
const DirectionOutboundAPI = "outbound-api"

// terminalStatuses are the vendor statuses that end a call. The vendor is
// the source of truth for transition legality; this core only recognizes
// the end states it must broadcast.
var terminalStatuses = map[string]bool{
	"completed": true,
	"canceled":  true,
	"busy":      true,
	"failed":    true,
	"no-answer": true,
}

// IsTerminalStatus reports whether a vendor status ends the call.
func IsTerminalStatus(status string) bool {
	return terminalStatuses[status]
}

// CallLog is the persisted state row, exactly one per call SID, mutated in
// place as the call progresses. Never deleted by this core.
type CallLog struct {
	CallSid         string
	Status          string
	Direction       string
	From            string
	To              string
	Duration        int
	RecordingURL    string
	ParticipantSid  string
	ConferenceSid   string
	TransferType    string
	HangupDirection string
	HangupBy        string
	Username        string
	UpdatedAt       time.Time
}

// StatusEvent is a call status callback from the vendor.
type StatusEvent struct {
	CallSid         string
	ConferenceSid   string
	ParticipantSid  string
	Status          string
	Direction       string
	From            string
	To              string
	Duration        int
	RecordingURL    string
	HangupDirection string
	HangupBy        string
	Username        string
	// WarmTransfer is set by the caller during a warm-transfer handshake
	// to keep the intermediate leg invisible to agents.
	WarmTransfer bool
}

// RecordingEvent is a recording-status callback from the vendor.
type RecordingEvent struct {
	CallSid       string
	ConferenceSid string
	RecordingURL  string
	Duration      int
}

// ConferenceEvent is a conference participant or lifecycle callback.
type ConferenceEvent struct {
	Event           string
	ConferenceSid   string
	CallSid         string
	ParticipantSid  string
	HangupDirection string
	HangupBy        string
}

// Conference callback event names.
const (
	ConferenceEventJoin  = "participant-join"
	ConferenceEventLeave = "participant-leave"
	ConferenceEventEnd   = "conference-end"
)

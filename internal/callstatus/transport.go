package callstatus

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// SignalWire posts LaML-compatible callbacks as
// application/x-www-form-urlencoded. Only the fields this core consumes are
// parsed; everything else in the form is ignored.

// ParseStatusEvent extracts a call status callback from the request form.
func ParseStatusEvent(c *gin.Context) StatusEvent {
	return StatusEvent{
		CallSid:         c.PostForm("CallSid"),
		ConferenceSid:   c.PostForm("ConferenceSid"),
		ParticipantSid:  c.PostForm("ParticipantSid"),
		Status:          firstNonEmpty(c.PostForm("CallStatus"), c.PostForm("Status")),
		Direction:       c.PostForm("Direction"),
		From:            c.PostForm("From"),
		To:              c.PostForm("To"),
		Duration:        formInt(c.PostForm("CallDuration")),
		RecordingURL:    c.PostForm("RecordingUrl"),
		HangupDirection: c.PostForm("HangupDirection"),
		HangupBy:        c.PostForm("HangupBy"),
		Username:        c.PostForm("Username"),
		WarmTransfer:    formBool(c.PostForm("WarmTransfer")),
	}
}

// ParseRecordingEvent extracts a recording status callback.
func ParseRecordingEvent(c *gin.Context) RecordingEvent {
	return RecordingEvent{
		CallSid:       c.PostForm("CallSid"),
		ConferenceSid: c.PostForm("ConferenceSid"),
		RecordingURL:  c.PostForm("RecordingUrl"),
		Duration:      formInt(c.PostForm("RecordingDuration")),
	}
}

// ParseConferenceEvent extracts a conference participant/lifecycle callback.
func ParseConferenceEvent(c *gin.Context) ConferenceEvent {
	return ConferenceEvent{
		Event:           c.PostForm("StatusCallbackEvent"),
		ConferenceSid:   c.PostForm("ConferenceSid"),
		CallSid:         c.PostForm("CallSid"),
		ParticipantSid:  c.PostForm("ParticipantSid"),
		HangupDirection: c.PostForm("HangupDirection"),
		HangupBy:        c.PostForm("HangupBy"),
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func formInt(value string) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return parsed
}

func formBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

package callstatus

import (
	"github.com/gin-gonic/gin"

	"elecrm_backend/platform/httpkit"
)

// Handler exposes the vendor status callbacks over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates the webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CallStatus handles POST /signalwire/call-status.
func (h *Handler) CallStatus(c *gin.Context) {
	event := ParseStatusEvent(c)
	entry, err := h.service.ProcessStatusUpdate(c.Request.Context(), event)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, entry)
}

// RecordingStatus handles POST /signalwire/recording-status.
func (h *Handler) RecordingStatus(c *gin.Context) {
	event := ParseRecordingEvent(c)
	entry, err := h.service.ProcessRecordingUpdate(c.Request.Context(), event)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, entry)
}

// ConferenceStatus handles POST /signalwire/conference-status.
func (h *Handler) ConferenceStatus(c *gin.Context) {
	event := ParseConferenceEvent(c)
	entry, err := h.service.ProcessConferenceEvent(c.Request.Context(), event)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, entry)
}

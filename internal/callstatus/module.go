package callstatus

import (
	apphttp "elecrm_backend/internal/http"
)

// Module wires the call status context into the HTTP layer.
type Module struct {
	handler *Handler
}

// NewModule creates the call status module.
func NewModule(handler *Handler) *Module {
	return &Module{handler: handler}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "callstatus" }

// RegisterRoutes mounts the SignalWire callback endpoints. The vendor signs
// requests at the transport layer, so these stay outside the JWT group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/signalwire")
	group.POST("/call-status", m.handler.CallStatus)
	group.POST("/recording-status", m.handler.RecordingStatus)
	group.POST("/conference-status", m.handler.ConferenceStatus)
}

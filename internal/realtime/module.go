package realtime

import (
	apphttp "elecrm_backend/internal/http"
)

// Module wires the realtime hub into the HTTP layer.
type Module struct {
	hub *Hub
}

// NewModule creates the realtime module.
func NewModule(hub *Hub) *Module {
	return &Module{hub: hub}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "realtime" }

// RegisterRoutes mounts the WebSocket endpoint. Browsers cannot set an
// Authorization header on the upgrade request, so the auth middleware also
// accepts the token as a query parameter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/stream", m.hub.Handler())
}

package realtime

import (
	"context"

	"elecrm_backend/internal/events"
)

// RegisterSubscribers relays domain events from the bus to the hub's rooms.
// Relay happens synchronously inside bus dispatch so the broadcast of a new
// lead always precedes any background export work scheduled for it.
func RegisterSubscribers(bus events.Bus, hub *Hub) {
	bus.Subscribe(events.NewLead{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		event := e.(events.NewLead)
		hub.Broadcast(RoomSalesQueue, EventNewLead, event.Lead)
		return nil
	}))

	bus.Subscribe(events.RemoveLead{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		event := e.(events.RemoveLead)
		// Removal only needs enough to take the card off the board.
		hub.Broadcast(RoomSalesQueue, EventRemoveLead, map[string]interface{}{
			"id":        event.Lead.ID,
			"global_id": event.Lead.GlobalID,
			"lead_id":   event.Lead.LeadID,
		})
		return nil
	}))

	bus.Subscribe(events.UpdateLead{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		event := e.(events.UpdateLead)
		hub.Broadcast(RoomSalesQueue, EventUpdateLead, event.Lead)
		return nil
	}))

	bus.Subscribe(events.QueueUpdated{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		event := e.(events.QueueUpdated)
		hub.Broadcast(RoomSalesQueue, EventQueueUpdate, event.Update)
		return nil
	}))

	bus.Subscribe(events.UserStatusChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		event := e.(events.UserStatusChanged)
		hub.Broadcast(RoomPresence, EventUserStatusUpdated, map[string]string{
			"user_id":      event.UserID,
			"masterStatus": event.MasterStatus,
		})
		return nil
	}))

	bus.Subscribe(events.CallEnded{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		event := e.(events.CallEnded)
		hub.Broadcast(RoomGlobal, EventCallEnded, map[string]string{
			"callSid": event.CallSid,
			"status":  event.Status,
		})
		return nil
	}))

	bus.Subscribe(events.OutboundCallStatus{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		event := e.(events.OutboundCallStatus)
		hub.Broadcast(RoomGlobal, EventOutboundCallStatus, map[string]string{
			"callSid":        event.CallSid,
			"conferenceSid":  event.ConferenceSid,
			"participantSid": event.ParticipantSid,
			"status":         event.Status,
			"from":           event.From,
			"to":             event.To,
			"username":       event.Username,
		})
		return nil
	}))
}

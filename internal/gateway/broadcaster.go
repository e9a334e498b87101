package gateway

import (
	"encoding/json"
	"log/slog"

	"github.com/coderipple/coderipple-go/internal/model"
)

// Broadcaster turns room events into wire envelopes and fans them out
// through the per-room hubs. It is the event sink the room controller
// publishes to.
type Broadcaster struct {
	hubs   *HubManager
	logger *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubs *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubs:   hubs,
		logger: logger.With(slog.String("component", "broadcaster")),
	}
}

// Publish delivers an event to every connected member of the room
func (b *Broadcaster) Publish(id model.RoomID, event model.Event) {
	hub := b.hubs.GetHub(id)
	if hub == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("failed to marshal event",
			slog.String("room", string(id)),
			slog.String("event", event.EventName()),
			slog.Any("error", err))
		return
	}
	message, err := json.Marshal(Envelope{Type: event.EventName(), Data: data})
	if err != nil {
		b.logger.Error("failed to marshal envelope",
			slog.String("room", string(id)),
			slog.String("event", event.EventName()),
			slog.Any("error", err))
		return
	}

	hub.Broadcast(message)
}

// RoomClosed tears down the room's hub. Member connections stay open;
// their clients may go on to create or join another room.
func (b *Broadcaster) RoomClosed(id model.RoomID) {
	b.hubs.RemoveHub(id)
}

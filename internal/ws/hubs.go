package ws

import (
	"context"
	"encoding/json"

	"github.com/societyhub/society_backend/internal/logging"
)

// Hubs bundles the realtime channels and implements event publishing for
// the services.
type Hubs struct {
	Gate     *GateHub
	Resident *ResidentHub
	log      logging.Logger
}

func NewHubs(log logging.Logger) *Hubs {
	return &Hubs{
		Gate:     NewGateHub(),
		Resident: NewResidentHub(),
		log:      log,
	}
}

// Run starts both hubs and returns immediately; they stop with ctx.
func (h *Hubs) Run(ctx context.Context) {
	go h.Gate.Run(ctx)
	go h.Resident.Run(ctx)
}

// Publish sends ev to its society's gate feed and to its recipient.
func (h *Hubs) Publish(ctx context.Context, ev Event) {
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error(ctx, "ws: marshal event", "type", ev.Type, "err", err.Error())
		return
	}
	if ev.Residents {
		if !h.Resident.NotifySociety(ev.SocietyID, data) {
			h.log.Warn(ctx, "ws: resident queue full, event dropped", "type", ev.Type)
		}
		return
	}
	if !h.Gate.Broadcast(ev.SocietyID, data) {
		h.log.Warn(ctx, "ws: gate queue full, event dropped", "type", ev.Type)
	}
	if ev.RecipientID != "" && !h.Resident.Notify(ev.RecipientID, data) {
		h.log.Warn(ctx, "ws: resident queue full, event dropped", "type", ev.Type)
	}
}

package display

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/hub"
	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/queue"
	"github.com/andikajayaw/queue-system-backend/internal/store"
)

// Envelope is the wire frame pushed to observers. Every frame carries the
// snapshot so a client that misses a delta still converges on the next one.
type Envelope struct {
	Event        string         `json:"event"`
	Ticket       *models.Ticket `json:"ticket,omitempty"`
	Staff        *models.Staff  `json:"staff,omitempty"`
	Announcement string         `json:"announcement,omitempty"`
	Snapshot     Snapshot       `json:"snapshot"`
	EmittedAt    time.Time      `json:"emitted_at"`
}

// Broadcaster turns queue events into hub payloads. It satisfies
// queue.Notifier; failures are logged and swallowed so a broken observer
// path never fails the ticket operation that triggered it.
type Broadcaster struct {
	store store.TicketStore
	hub   *hub.Hub
	clock func() time.Time
}

func NewBroadcaster(ts store.TicketStore, h *hub.Hub) *Broadcaster {
	return &Broadcaster{
		store: ts,
		hub:   h,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (b *Broadcaster) Publish(ctx context.Context, event queue.Event) {
	now := b.clock()
	snapshot, err := BuildSnapshot(ctx, b.store, now)
	if err != nil {
		log.Printf("broadcast skip event=%s: snapshot: %v", event.Type, err)
		return
	}
	envelope := Envelope{
		Event:        event.Type,
		Staff:        event.Staff,
		Announcement: event.Announcement,
		Snapshot:     snapshot,
		EmittedAt:    now,
	}
	if event.Ticket.TicketID != "" {
		ticket := event.Ticket
		envelope.Ticket = &ticket
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("broadcast skip event=%s: marshal: %v", event.Type, err)
		return
	}
	b.hub.Broadcast(payload, "")
}

// SendSnapshot pushes a snapshotRefresh frame to one client, used right
// after it joins a room so it starts from the current queue state.
func (b *Broadcaster) SendSnapshot(ctx context.Context, client *hub.Client) {
	now := b.clock()
	snapshot, err := BuildSnapshot(ctx, b.store, now)
	if err != nil {
		log.Printf("snapshot push skip client=%s: %v", client.ID, err)
		return
	}
	payload, err := json.Marshal(Envelope{
		Event:     queue.EventSnapshotRefresh,
		Snapshot:  snapshot,
		EmittedAt: now,
	})
	if err != nil {
		log.Printf("snapshot push skip client=%s: marshal: %v", client.ID, err)
		return
	}
	b.hub.SendTo(client, payload)
}

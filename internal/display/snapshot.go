// Package display builds the read models pushed to display boards and staff
// stations, and bridges queue events onto the realtime hub.
package display

import (
	"context"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/store"
)

const (
	nextWaitingLimit     = 5
	recentCompletedLimit = 10
)

// Snapshot is the full view of today's queue as shown on a display board.
// It is recomputed from the store on every push so observers never see a
// stale cache.
type Snapshot struct {
	CurrentCalled   []models.CalledTicket `json:"current_called"`
	NextWaiting     []models.Ticket       `json:"next_waiting"`
	RecentCompleted []models.CalledTicket `json:"recent_completed"`
	Statistics      models.QueueStats     `json:"statistics"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

func BuildSnapshot(ctx context.Context, ts store.TicketStore, now time.Time) (Snapshot, error) {
	day := models.ServiceDay(now)
	called, err := ts.ListCalled(ctx, day)
	if err != nil {
		return Snapshot{}, err
	}
	waiting, err := ts.ListWaiting(ctx, day, nextWaitingLimit)
	if err != nil {
		return Snapshot{}, err
	}
	completed, err := ts.ListCompleted(ctx, day, recentCompletedLimit)
	if err != nil {
		return Snapshot{}, err
	}
	stats, err := ts.Stats(ctx, day)
	if err != nil {
		return Snapshot{}, err
	}
	if called == nil {
		called = []models.CalledTicket{}
	}
	if waiting == nil {
		waiting = []models.Ticket{}
	}
	if completed == nil {
		completed = []models.CalledTicket{}
	}
	return Snapshot{
		CurrentCalled:   called,
		NextWaiting:     waiting,
		RecentCompleted: completed,
		Statistics:      stats,
		GeneratedAt:     now,
	}, nil
}

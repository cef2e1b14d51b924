package queue

import (
	"context"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/store"
)

// Dispatcher picks which waiting ticket should be called next. The policy
// serves two reservations for every walk-in: within each rolling window of
// three dispatches, slots 0 and 1 go to reservations and slot 2 to
// walk-ins, falling back to the other type when the preferred backlog is
// empty.
type Dispatcher struct {
	store store.TicketStore
}

func NewDispatcher(ts store.TicketStore) *Dispatcher {
	return &Dispatcher{store: ts}
}

// SelectNext returns the candidate ticket for the day, or false when
// nothing is waiting. The caller still has to win the claim; selection
// takes no locks.
func (d *Dispatcher) SelectNext(ctx context.Context, day time.Time) (models.Ticket, bool, error) {
	waiting, err := d.store.ListWaiting(ctx, day, 0)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if len(waiting) == 0 {
		return models.Ticket{}, false, nil
	}

	var reservations, walkIns []models.Ticket
	for _, ticket := range waiting {
		switch ticket.Type {
		case models.TypeReservation:
			reservations = append(reservations, ticket)
		case models.TypeWalkIn:
			walkIns = append(walkIns, ticket)
		}
	}

	dispatched, err := d.store.CountDispatched(ctx, day)
	if err != nil {
		return models.Ticket{}, false, err
	}

	cycle := dispatched % 3
	if cycle < 2 && len(reservations) > 0 {
		return reservations[0], true, nil
	}
	if len(walkIns) > 0 {
		return walkIns[0], true, nil
	}
	if len(reservations) > 0 {
		return reservations[0], true, nil
	}
	return models.Ticket{}, false, nil
}

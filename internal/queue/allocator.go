package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/store"
)

const numberPad = 3

// Allocator hands out display numbers per (type, service day). It picks the
// smallest positive integer not currently used so that numbers freed by
// cancelled or deleted tickets are reissued.
type Allocator struct {
	store store.TicketStore
}

func NewAllocator(ts store.TicketStore) *Allocator {
	return &Allocator{store: ts}
}

func (a *Allocator) Allocate(ctx context.Context, ticketType string, day time.Time) (string, error) {
	used, err := a.store.UsedNumbers(ctx, ticketType, day)
	if err != nil {
		return "", err
	}
	return FormatNumber(ticketType, smallestFree(used)), nil
}

// smallestFree assumes used is sorted ascending, as the store contract
// returns it.
func smallestFree(used []int) int {
	next := 1
	for _, n := range used {
		if n > next {
			break
		}
		if n == next {
			next++
		}
	}
	return next
}

func FormatNumber(ticketType string, n int) string {
	return fmt.Sprintf("%s%0*d", models.NumberPrefix(ticketType), numberPad, n)
}

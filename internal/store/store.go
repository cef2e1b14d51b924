package store

import (
	"context"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/models"
)

// ClaimInput describes one conditional status update. The update succeeds
// only if the ticket's persisted status is still one of FromStatus at the
// moment of the write; otherwise the store reports ErrClaimConflict and
// leaves the ticket untouched.
type ClaimInput struct {
	TicketID   string
	FromStatus []string
	ToStatus   string
	// StaffID is recorded as the assigned staff when claiming to called.
	// For other transitions it is the acting staff, used only by OwnerGuard.
	StaffID string
	// OwnerGuard additionally requires the ticket's assigned staff, when
	// set, to equal StaffID (ErrNotAssigned otherwise).
	OwnerGuard bool
	OccurredAt time.Time
}

// TicketStore is the persistence contract for tickets. Claim is the only
// way any caller may change a ticket's status.
type TicketStore interface {
	InsertTicket(ctx context.Context, ticket models.Ticket) error
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	GetTicketByNumber(ctx context.Context, number string, day time.Time) (models.Ticket, error)
	ListWaiting(ctx context.Context, day time.Time, limit int) ([]models.Ticket, error)
	ListCalled(ctx context.Context, day time.Time) ([]models.CalledTicket, error)
	ListCompleted(ctx context.Context, day time.Time, limit int) ([]models.CalledTicket, error)
	UsedNumbers(ctx context.Context, ticketType string, day time.Time) ([]int, error)
	CountDispatched(ctx context.Context, day time.Time) (int, error)
	Stats(ctx context.Context, day time.Time) (models.QueueStats, error)
	Claim(ctx context.Context, input ClaimInput) (models.Ticket, error)
}

// StaffDirectory resolves already-authenticated staff identifiers for
// display and ownership checks. Staff lifecycle is owned elsewhere.
type StaffDirectory interface {
	GetStaff(ctx context.Context, staffID string) (models.Staff, error)
}

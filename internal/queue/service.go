package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/announce"
	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/store"

	"github.com/google/uuid"
)

const (
	EventTicketCreated   = "ticketCreated"
	EventTicketCalled    = "ticketCalled"
	EventTicketServing   = "ticketServing"
	EventTicketCompleted = "ticketCompleted"
	EventTicketCancelled = "ticketCancelled"
	EventSnapshotRefresh = "snapshotRefresh"
)

// Event is the delta handed to the broadcast side after a successful state
// change. Observers receive it together with freshly computed read models.
type Event struct {
	Type         string
	Ticket       models.Ticket
	Staff        *models.Staff
	Announcement string
}

// Notifier fans an event out to connected observers. Implementations are
// best-effort: failures are logged on their side and never reported back
// into the triggering operation.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

type CreateTicketInput struct {
	Type         string
	CustomerName string
	PhoneNumber  string
}

// CallResult is the outcome of the call family of operations. NoneWaiting
// marks an empty backlog, which is a regular result rather than an error.
type CallResult struct {
	Ticket       models.Ticket
	Staff        models.Staff
	Announcement string
	NoneWaiting  bool
}

// Service is the operation surface the request-handling edge consumes.
type Service interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error)
	CallNext(ctx context.Context, staffID string) (CallResult, error)
	CallTicket(ctx context.Context, ticketID, staffID string) (CallResult, error)
	CallByNumber(ctx context.Context, number, staffID string) (CallResult, error)
	Recall(ctx context.Context, ticketID string) (string, error)
	BeginService(ctx context.Context, ticketID, staffID string) (models.Ticket, error)
	CompleteService(ctx context.Context, ticketID string) (models.Ticket, error)
	Cancel(ctx context.Context, ticketID, staffID string) (models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	GetTicketByNumber(ctx context.Context, number string) (models.Ticket, error)
	ListWaiting(ctx context.Context, limit int) ([]models.Ticket, error)
	ListCalled(ctx context.Context) ([]models.CalledTicket, error)
	ListCompleted(ctx context.Context, limit int) ([]models.CalledTicket, error)
	Stats(ctx context.Context) (models.QueueStats, error)
}

// Coordinator orchestrates every caller-facing action as one
// select-or-target, validate, claim, notify unit. It is the only component
// that mutates tickets, and it does so exclusively through the store's
// claim primitive.
type Coordinator struct {
	store          store.TicketStore
	staff          store.StaffDirectory
	allocator      *Allocator
	dispatcher     *Dispatcher
	announcer      *announce.Announcer
	notifier       Notifier
	createAttempts int
	clock          func() time.Time
}

type Options struct {
	// CreateAttempts bounds the allocate+insert retry loop (default 3).
	CreateAttempts int
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

func NewCoordinator(ts store.TicketStore, staff store.StaffDirectory, announcer *announce.Announcer, notifier Notifier, options Options) *Coordinator {
	attempts := options.CreateAttempts
	if attempts <= 0 {
		attempts = 3
	}
	clock := options.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Coordinator{
		store:          ts,
		staff:          staff,
		allocator:      NewAllocator(ts),
		dispatcher:     NewDispatcher(ts),
		announcer:      announcer,
		notifier:       notifier,
		createAttempts: attempts,
		clock:          clock,
	}
}

func (c *Coordinator) CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error) {
	if input.Type != models.TypeReservation && input.Type != models.TypeWalkIn {
		return models.Ticket{}, fmt.Errorf("%w: type must be reservation or walk_in", store.ErrValidation)
	}
	if input.Type == models.TypeReservation && input.CustomerName == "" {
		return models.Ticket{}, fmt.Errorf("%w: customerName required", store.ErrValidation)
	}

	now := c.clock()
	day := models.ServiceDay(now)

	// Allocation and insert are not one atomic step, so a concurrent
	// create can take the same number first. Retry with a fresh allocation.
	var lastErr error
	for attempt := 0; attempt < c.createAttempts; attempt++ {
		number, err := c.allocator.Allocate(ctx, input.Type, day)
		if err != nil {
			return models.Ticket{}, err
		}
		ticket := models.Ticket{
			TicketID:     uuid.NewString(),
			Number:       number,
			Type:         input.Type,
			Status:       models.StatusWaiting,
			ServiceDay:   day,
			CustomerName: input.CustomerName,
			PhoneNumber:  input.PhoneNumber,
			CreatedAt:    c.clock(),
		}
		err = c.store.InsertTicket(ctx, ticket)
		if err == nil {
			c.notifier.Publish(ctx, Event{
				Type:         EventTicketCreated,
				Ticket:       ticket,
				Announcement: c.announcer.Created(ticket.Number),
			})
			return ticket, nil
		}
		if !errors.Is(err, store.ErrDuplicateNumber) {
			return models.Ticket{}, err
		}
		lastErr = err
	}
	return models.Ticket{}, lastErr
}

func (c *Coordinator) CallNext(ctx context.Context, staffID string) (CallResult, error) {
	staff, err := c.staff.GetStaff(ctx, staffID)
	if err != nil {
		return CallResult{}, err
	}

	day := models.ServiceDay(c.clock())
	candidate, found, err := c.dispatcher.SelectNext(ctx, day)
	if err != nil {
		return CallResult{}, err
	}
	if !found {
		return CallResult{NoneWaiting: true, Announcement: c.announcer.NoneWaiting()}, nil
	}

	ticket, err := c.store.Claim(ctx, store.ClaimInput{
		TicketID:   candidate.TicketID,
		FromStatus: store.AllowedFrom("claim"),
		ToStatus:   models.StatusCalled,
		StaffID:    staffID,
		OccurredAt: c.clock(),
	})
	if err != nil {
		// A candidate that vanished between selection and claim lost the
		// race exactly like a status flip did; the caller re-invokes and
		// selection reruns against fresh state.
		if errors.Is(err, store.ErrTicketNotFound) || errors.Is(err, store.ErrClaimConflict) {
			return CallResult{}, store.ErrClaimConflict
		}
		return CallResult{}, err
	}

	return c.announceCall(ctx, ticket, staff), nil
}

func (c *Coordinator) CallTicket(ctx context.Context, ticketID, staffID string) (CallResult, error) {
	staff, err := c.staff.GetStaff(ctx, staffID)
	if err != nil {
		return CallResult{}, err
	}

	ticket, err := c.store.Claim(ctx, store.ClaimInput{
		TicketID:   ticketID,
		FromStatus: store.AllowedFrom("claim"),
		ToStatus:   models.StatusCalled,
		StaffID:    staffID,
		OccurredAt: c.clock(),
	})
	if err != nil {
		return CallResult{}, err
	}

	return c.announceCall(ctx, ticket, staff), nil
}

func (c *Coordinator) CallByNumber(ctx context.Context, number, staffID string) (CallResult, error) {
	day := models.ServiceDay(c.clock())
	ticket, err := c.store.GetTicketByNumber(ctx, number, day)
	if err != nil {
		return CallResult{}, err
	}
	return c.CallTicket(ctx, ticket.TicketID, staffID)
}

func (c *Coordinator) announceCall(ctx context.Context, ticket models.Ticket, staff models.Staff) CallResult {
	text := c.announcer.Called(ticket.Number)
	c.notifier.Publish(ctx, Event{
		Type:         EventTicketCalled,
		Ticket:       ticket,
		Staff:        &staff,
		Announcement: text,
	})
	return CallResult{Ticket: ticket, Staff: staff, Announcement: text}
}

// Recall re-emits the call announcement for a ticket that is still called.
// It never changes state.
func (c *Coordinator) Recall(ctx context.Context, ticketID string) (string, error) {
	ticket, err := c.store.GetTicket(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if !store.ValidTransition("recall", ticket.Status) {
		return "", store.ErrInvalidState
	}

	text := c.announcer.Recalled(ticket.Number)
	c.notifier.Publish(ctx, Event{
		Type:         EventTicketCalled,
		Ticket:       ticket,
		Announcement: text,
	})
	return text, nil
}

func (c *Coordinator) BeginService(ctx context.Context, ticketID, staffID string) (models.Ticket, error) {
	if _, err := c.staff.GetStaff(ctx, staffID); err != nil {
		return models.Ticket{}, err
	}

	ticket, err := c.store.Claim(ctx, store.ClaimInput{
		TicketID:   ticketID,
		FromStatus: store.AllowedFrom("begin"),
		ToStatus:   models.StatusServing,
		StaffID:    staffID,
		OccurredAt: c.clock(),
	})
	if err != nil {
		return models.Ticket{}, err
	}

	c.notifier.Publish(ctx, Event{
		Type:         EventTicketServing,
		Ticket:       ticket,
		Announcement: c.announcer.Serving(ticket.Number),
	})
	return ticket, nil
}

func (c *Coordinator) CompleteService(ctx context.Context, ticketID string) (models.Ticket, error) {
	ticket, err := c.store.Claim(ctx, store.ClaimInput{
		TicketID:   ticketID,
		FromStatus: store.AllowedFrom("complete"),
		ToStatus:   models.StatusCompleted,
		OccurredAt: c.clock(),
	})
	if err != nil {
		return models.Ticket{}, err
	}

	c.notifier.Publish(ctx, Event{
		Type:         EventTicketCompleted,
		Ticket:       ticket,
		Announcement: c.announcer.Completed(ticket.Number),
	})
	return ticket, nil
}

func (c *Coordinator) Cancel(ctx context.Context, ticketID, staffID string) (models.Ticket, error) {
	ticket, err := c.store.Claim(ctx, store.ClaimInput{
		TicketID:   ticketID,
		FromStatus: store.AllowedFrom("cancel"),
		ToStatus:   models.StatusCancelled,
		StaffID:    staffID,
		OwnerGuard: true,
		OccurredAt: c.clock(),
	})
	if err != nil {
		return models.Ticket{}, err
	}

	c.notifier.Publish(ctx, Event{
		Type:         EventTicketCancelled,
		Ticket:       ticket,
		Announcement: c.announcer.Cancelled(ticket.Number),
	})
	return ticket, nil
}

func (c *Coordinator) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	return c.store.GetTicket(ctx, ticketID)
}

func (c *Coordinator) GetTicketByNumber(ctx context.Context, number string) (models.Ticket, error) {
	return c.store.GetTicketByNumber(ctx, number, models.ServiceDay(c.clock()))
}

func (c *Coordinator) ListWaiting(ctx context.Context, limit int) ([]models.Ticket, error) {
	return c.store.ListWaiting(ctx, models.ServiceDay(c.clock()), limit)
}

func (c *Coordinator) ListCalled(ctx context.Context) ([]models.CalledTicket, error) {
	return c.store.ListCalled(ctx, models.ServiceDay(c.clock()))
}

func (c *Coordinator) ListCompleted(ctx context.Context, limit int) ([]models.CalledTicket, error) {
	return c.store.ListCompleted(ctx, models.ServiceDay(c.clock()), limit)
}

func (c *Coordinator) Stats(ctx context.Context) (models.QueueStats, error) {
	return c.store.Stats(ctx, models.ServiceDay(c.clock()))
}

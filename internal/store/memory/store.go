// Package memory implements the ticket store contract on process-local
// state. The claim primitive is serialized by a single mutex, which gives
// the same exactly-one-winner guarantee the SQL implementation gets from
// conditional updates. Used by tests and the dev backend.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/store"
)

type Store struct {
	mu      sync.Mutex
	tickets map[string]models.Ticket
	staff   map[string]models.Staff
}

func NewStore() *Store {
	return &Store{
		tickets: make(map[string]models.Ticket),
		staff:   make(map[string]models.Staff),
	}
}

// AddStaff seeds a staff member into the directory.
func (s *Store) AddStaff(staff models.Staff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[staff.StaffID] = staff
}

func (s *Store) InsertTicket(ctx context.Context, ticket models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tickets {
		if existing.Status == models.StatusCancelled {
			continue
		}
		if existing.Type == ticket.Type && existing.Number == ticket.Number &&
			existing.ServiceDay.Equal(ticket.ServiceDay) {
			return store.ErrDuplicateNumber
		}
	}
	s.tickets[ticket.TicketID] = ticket
	return nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return ticket, nil
}

func (s *Store) GetTicketByNumber(ctx context.Context, number string, day time.Time) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A cancelled ticket's number may have been reissued; prefer the live one.
	var cancelled *models.Ticket
	for _, ticket := range s.tickets {
		if ticket.Number != number || !ticket.ServiceDay.Equal(day) {
			continue
		}
		if ticket.Status == models.StatusCancelled {
			t := ticket
			cancelled = &t
			continue
		}
		return ticket, nil
	}
	if cancelled != nil {
		return *cancelled, nil
	}
	return models.Ticket{}, store.ErrTicketNotFound
}

func (s *Store) ListWaiting(ctx context.Context, day time.Time, limit int) ([]models.Ticket, error) {
	tickets := s.snapshot(day, models.StatusWaiting)
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.Before(tickets[j].CreatedAt) })
	if limit > 0 && len(tickets) > limit {
		tickets = tickets[:limit]
	}
	return tickets, nil
}

func (s *Store) ListCalled(ctx context.Context, day time.Time) ([]models.CalledTicket, error) {
	tickets := s.snapshot(day, models.StatusCalled)
	sort.Slice(tickets, func(i, j int) bool {
		return laterTime(tickets[i].CalledAt).After(laterTime(tickets[j].CalledAt))
	})
	return s.withStaff(tickets), nil
}

func (s *Store) ListCompleted(ctx context.Context, day time.Time, limit int) ([]models.CalledTicket, error) {
	if limit <= 0 {
		limit = 10
	}
	tickets := s.snapshot(day, models.StatusCompleted)
	sort.Slice(tickets, func(i, j int) bool {
		return laterTime(tickets[i].CompletedAt).After(laterTime(tickets[j].CompletedAt))
	})
	if len(tickets) > limit {
		tickets = tickets[:limit]
	}
	return s.withStaff(tickets), nil
}

func (s *Store) UsedNumbers(ctx context.Context, ticketType string, day time.Time) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var numbers []int
	for _, ticket := range s.tickets {
		if ticket.Type != ticketType || !ticket.ServiceDay.Equal(day) {
			continue
		}
		if ticket.Status == models.StatusCancelled {
			continue
		}
		if len(ticket.Number) < 2 {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimLeft(ticket.Number[1:], "0"))
		if err != nil {
			continue
		}
		numbers = append(numbers, parsed)
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (s *Store) CountDispatched(ctx context.Context, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, ticket := range s.tickets {
		if ticket.ServiceDay.Equal(day) && ticket.CalledAt != nil {
			count++
		}
	}
	return count, nil
}

func (s *Store) Stats(ctx context.Context, day time.Time) (models.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats models.QueueStats
	for _, ticket := range s.tickets {
		if !ticket.ServiceDay.Equal(day) {
			continue
		}
		stats.TotalToday++
		switch ticket.Status {
		case models.StatusWaiting:
			stats.WaitingCount++
		case models.StatusCalled:
			stats.CalledCount++
		case models.StatusServing:
			stats.ServingCount++
		case models.StatusCompleted:
			stats.CompletedCount++
		case models.StatusCancelled:
			stats.CancelledCount++
		}
		switch ticket.Type {
		case models.TypeReservation:
			stats.ReservationCount++
		case models.TypeWalkIn:
			stats.WalkInCount++
		}
	}
	return stats, nil
}

func (s *Store) Claim(ctx context.Context, input store.ClaimInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[input.TicketID]
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}

	matched := false
	for _, from := range input.FromStatus {
		if ticket.Status == from {
			matched = true
			break
		}
	}
	if !matched {
		return models.Ticket{}, store.ErrClaimConflict
	}
	if input.OwnerGuard && ticket.AssignedStaffID != nil && *ticket.AssignedStaffID != input.StaffID {
		return models.Ticket{}, store.ErrNotAssigned
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	ticket.Status = input.ToStatus
	switch input.ToStatus {
	case models.StatusCalled:
		staffID := input.StaffID
		ticket.AssignedStaffID = &staffID
		at := occurredAt
		ticket.CalledAt = &at
	case models.StatusServing:
		at := occurredAt
		ticket.ServiceStartedAt = &at
	case models.StatusCompleted:
		at := occurredAt
		ticket.CompletedAt = &at
		duration := 0
		if ticket.ServiceStartedAt != nil {
			duration = int(occurredAt.Sub(*ticket.ServiceStartedAt) / time.Second)
			if duration < 0 {
				duration = 0
			}
		}
		ticket.ServiceDuration = &duration
	case models.StatusCancelled:
		// assignment retained
	}

	s.tickets[input.TicketID] = ticket
	return ticket, nil
}

func (s *Store) GetStaff(ctx context.Context, staffID string) (models.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staff, ok := s.staff[staffID]
	if !ok {
		return models.Staff{}, store.ErrStaffNotFound
	}
	return staff, nil
}

func (s *Store) snapshot(day time.Time, status string) []models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tickets []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.ServiceDay.Equal(day) && ticket.Status == status {
			tickets = append(tickets, ticket)
		}
	}
	return tickets
}

func (s *Store) withStaff(tickets []models.Ticket) []models.CalledTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CalledTicket, 0, len(tickets))
	for _, ticket := range tickets {
		item := models.CalledTicket{Ticket: ticket}
		if ticket.AssignedStaffID != nil {
			if staff, ok := s.staff[*ticket.AssignedStaffID]; ok {
				item.Staff = &staff
			}
		}
		out = append(out, item)
	}
	return out
}

func laterTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}

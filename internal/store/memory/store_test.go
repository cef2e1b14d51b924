package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/store"
)

func day() time.Time {
	return time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
}

func waitingTicket(id, number string) models.Ticket {
	return models.Ticket{
		TicketID:   id,
		Number:     number,
		Type:       models.TypeWalkIn,
		Status:     models.StatusWaiting,
		ServiceDay: day(),
		CreatedAt:  day().Add(8 * time.Hour),
	}
}

func TestClaimMovesWaitingToCalled(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.InsertTicket(ctx, waitingTicket("t1", "W001")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	calledAt := day().Add(9 * time.Hour)
	ticket, err := s.Claim(ctx, store.ClaimInput{
		TicketID:   "t1",
		FromStatus: []string{models.StatusWaiting},
		ToStatus:   models.StatusCalled,
		StaffID:    "staff-1",
		OccurredAt: calledAt,
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if ticket.Status != models.StatusCalled {
		t.Fatalf("expected called, got %s", ticket.Status)
	}
	if ticket.AssignedStaffID == nil || *ticket.AssignedStaffID != "staff-1" {
		t.Fatalf("expected assignment, got %+v", ticket.AssignedStaffID)
	}
	if ticket.CalledAt == nil || !ticket.CalledAt.Equal(calledAt) {
		t.Fatalf("expected calledAt %v, got %+v", calledAt, ticket.CalledAt)
	}
}

func TestClaimRejectsWrongStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.InsertTicket(ctx, waitingTicket("t1", "W001")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err := s.Claim(ctx, store.ClaimInput{
		TicketID:   "t1",
		FromStatus: []string{models.StatusServing},
		ToStatus:   models.StatusCompleted,
	})
	if !errors.Is(err, store.ErrClaimConflict) {
		t.Fatalf("expected claim conflict, got %v", err)
	}
}

func TestClaimUnknownTicket(t *testing.T) {
	s := NewStore()

	_, err := s.Claim(context.Background(), store.ClaimInput{
		TicketID:   "missing",
		FromStatus: []string{models.StatusWaiting},
		ToStatus:   models.StatusCalled,
	})
	if !errors.Is(err, store.ErrTicketNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClaimOwnerGuard(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.InsertTicket(ctx, waitingTicket("t1", "W001")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Claim(ctx, store.ClaimInput{
		TicketID:   "t1",
		FromStatus: []string{models.StatusWaiting},
		ToStatus:   models.StatusCalled,
		StaffID:    "staff-1",
		OccurredAt: day().Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("call: %v", err)
	}

	_, err := s.Claim(ctx, store.ClaimInput{
		TicketID:   "t1",
		FromStatus: []string{models.StatusWaiting, models.StatusCalled, models.StatusServing},
		ToStatus:   models.StatusCancelled,
		StaffID:    "staff-2",
		OwnerGuard: true,
	})
	if !errors.Is(err, store.ErrNotAssigned) {
		t.Fatalf("expected not assigned, got %v", err)
	}
}

func TestClaimCompletedComputesDuration(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.InsertTicket(ctx, waitingTicket("t1", "W001")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	start := day().Add(9 * time.Hour)
	steps := []store.ClaimInput{
		{TicketID: "t1", FromStatus: []string{models.StatusWaiting}, ToStatus: models.StatusCalled, StaffID: "staff-1", OccurredAt: start},
		{TicketID: "t1", FromStatus: []string{models.StatusCalled}, ToStatus: models.StatusServing, StaffID: "staff-1", OccurredAt: start.Add(time.Minute)},
		{TicketID: "t1", FromStatus: []string{models.StatusServing}, ToStatus: models.StatusCompleted, OccurredAt: start.Add(time.Minute + 42*time.Second)},
	}
	var ticket models.Ticket
	var err error
	for _, input := range steps {
		ticket, err = s.Claim(ctx, input)
		if err != nil {
			t.Fatalf("claim to %s: %v", input.ToStatus, err)
		}
	}

	if ticket.ServiceDuration == nil || *ticket.ServiceDuration != 42 {
		t.Fatalf("expected 42s duration, got %+v", ticket.ServiceDuration)
	}
	if ticket.CompletedAt == nil {
		t.Fatal("expected completedAt set")
	}
}

func TestClaimExactlyOneWinner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.InsertTicket(ctx, waitingTicket("t1", "W001")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const stations = 8
	var wg sync.WaitGroup
	errs := make(chan error, stations)
	for i := 0; i < stations; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.Claim(ctx, store.ClaimInput{
				TicketID:   "t1",
				FromStatus: []string{models.StatusWaiting},
				ToStatus:   models.StatusCalled,
				StaffID:    "staff-1",
				OccurredAt: day().Add(9 * time.Hour),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, store.ErrClaimConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != stations-1 {
		t.Fatalf("expected a single winner, got wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestUsedNumbersSkipsCancelled(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	cancelled := waitingTicket("t1", "W001")
	cancelled.Status = models.StatusCancelled
	if err := s.InsertTicket(ctx, cancelled); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertTicket(ctx, waitingTicket("t2", "W002")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	numbers, err := s.UsedNumbers(ctx, models.TypeWalkIn, day())
	if err != nil {
		t.Fatalf("used numbers: %v", err)
	}
	if len(numbers) != 1 || numbers[0] != 2 {
		t.Fatalf("expected only W002 counted, got %v", numbers)
	}
}

func TestInsertDuplicateNumber(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.InsertTicket(ctx, waitingTicket("t1", "W001")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := s.InsertTicket(ctx, waitingTicket("t2", "W001"))
	if !errors.Is(err, store.ErrDuplicateNumber) {
		t.Fatalf("expected duplicate number, got %v", err)
	}
}

func TestStatsCountsByStatusAndType(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.InsertTicket(ctx, waitingTicket("t1", "W001")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	reservation := waitingTicket("t2", "R001")
	reservation.Type = models.TypeReservation
	if err := s.InsertTicket(ctx, reservation); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Claim(ctx, store.ClaimInput{
		TicketID:   "t2",
		FromStatus: []string{models.StatusWaiting},
		ToStatus:   models.StatusCalled,
		StaffID:    "staff-1",
		OccurredAt: day().Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("call: %v", err)
	}

	stats, err := s.Stats(ctx, day())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalToday != 2 || stats.WaitingCount != 1 || stats.CalledCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ReservationCount != 1 || stats.WalkInCount != 1 {
		t.Fatalf("unexpected type counts: %+v", stats)
	}
}

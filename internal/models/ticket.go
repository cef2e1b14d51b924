package models

import "time"

type Ticket struct {
	TicketID         string     `json:"ticket_id"`
	Number           string     `json:"number"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	ServiceDay       time.Time  `json:"service_day"`
	CustomerName     string     `json:"customer_name,omitempty"`
	PhoneNumber      string     `json:"phone_number,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CalledAt         *time.Time `json:"called_at,omitempty"`
	ServiceStartedAt *time.Time `json:"service_started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ServiceDuration  *int       `json:"service_duration,omitempty"`
	AssignedStaffID  *string    `json:"assigned_staff_id,omitempty"`
}

const (
	StatusWaiting   = "waiting"
	StatusCalled    = "called"
	StatusServing   = "serving"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	TypeReservation = "reservation"
	TypeWalkIn      = "walk_in"
)

// NumberPrefix returns the display prefix for a ticket type: R for
// reservations, W for walk-ins.
func NumberPrefix(ticketType string) string {
	if ticketType == TypeReservation {
		return "R"
	}
	return "W"
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// ServiceDay truncates t to the calendar date tickets are numbered under.
func ServiceDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

package models

type Staff struct {
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
}

// QueueStats are the aggregate counters for a single service day.
type QueueStats struct {
	TotalToday       int `json:"total_today"`
	WaitingCount     int `json:"waiting_count"`
	CalledCount      int `json:"called_count"`
	ServingCount     int `json:"serving_count"`
	CompletedCount   int `json:"completed_count"`
	CancelledCount   int `json:"cancelled_count"`
	ReservationCount int `json:"reservation_count"`
	WalkInCount      int `json:"walk_in_count"`
}

// CalledTicket decorates a called ticket with the staff member who claimed
// it, the shape the display boards render.
type CalledTicket struct {
	Ticket
	Staff *Staff `json:"staff,omitempty"`
}

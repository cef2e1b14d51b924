package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const ticketColumns = `ticket_id, number, type, status, service_day, customer_name, phone_number,
	created_at, called_at, service_started_at, completed_at, service_duration, assigned_staff_id`

func (s *Store) InsertTicket(ctx context.Context, ticket models.Ticket) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tickets (
			ticket_id, number, type, status, service_day, customer_name, phone_number, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, ticket.TicketID, ticket.Number, ticket.Type, ticket.Status, ticket.ServiceDay,
		nullIfEmpty(ticket.CustomerName), nullIfEmpty(ticket.PhoneNumber), ticket.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrDuplicateNumber
		}
		return err
	}
	return nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE ticket_id = $1
	`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) GetTicketByNumber(ctx context.Context, number string, day time.Time) (models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE number = $1 AND service_day = $2
		ORDER BY (status = 'cancelled') ASC, created_at DESC
		LIMIT 1
	`, number, day)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListWaiting(ctx context.Context, day time.Time, limit int) ([]models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE service_day = $1 AND status = 'waiting'
		ORDER BY created_at ASC
	`
	args := []interface{}{day}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) ListCalled(ctx context.Context, day time.Time) ([]models.CalledTicket, error) {
	return s.listWithStaff(ctx, `
		SELECT t.ticket_id, t.number, t.type, t.status, t.service_day, t.customer_name, t.phone_number,
			t.created_at, t.called_at, t.service_started_at, t.completed_at, t.service_duration, t.assigned_staff_id,
			s.staff_id, s.name
		FROM tickets t
		LEFT JOIN staff s ON s.staff_id = t.assigned_staff_id
		WHERE t.service_day = $1 AND t.status = 'called'
		ORDER BY t.called_at DESC
	`, day)
}

func (s *Store) ListCompleted(ctx context.Context, day time.Time, limit int) ([]models.CalledTicket, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.listWithStaff(ctx, `
		SELECT t.ticket_id, t.number, t.type, t.status, t.service_day, t.customer_name, t.phone_number,
			t.created_at, t.called_at, t.service_started_at, t.completed_at, t.service_duration, t.assigned_staff_id,
			s.staff_id, s.name
		FROM tickets t
		LEFT JOIN staff s ON s.staff_id = t.assigned_staff_id
		WHERE t.service_day = $1 AND t.status = 'completed'
		ORDER BY t.completed_at DESC
		LIMIT $2
	`, day, limit)
}

func (s *Store) listWithStaff(ctx context.Context, query string, args ...interface{}) ([]models.CalledTicket, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.CalledTicket
	for rows.Next() {
		var item models.CalledTicket
		var calledAtNull, startedAtNull, completedAtNull sql.NullTime
		var customerNull, phoneNull, assignedNull, staffIDNull, staffNameNull sql.NullString
		var durationNull sql.NullInt32
		if err := rows.Scan(
			&item.TicketID, &item.Number, &item.Type, &item.Status, &item.ServiceDay,
			&customerNull, &phoneNull, &item.CreatedAt, &calledAtNull, &startedAtNull,
			&completedAtNull, &durationNull, &assignedNull, &staffIDNull, &staffNameNull,
		); err != nil {
			return nil, err
		}
		item.CustomerName = customerNull.String
		item.PhoneNumber = phoneNull.String
		item.CalledAt = nullTimePtr(calledAtNull)
		item.ServiceStartedAt = nullTimePtr(startedAtNull)
		item.CompletedAt = nullTimePtr(completedAtNull)
		item.ServiceDuration = nullIntPtr(durationNull)
		item.AssignedStaffID = nullStringPtr(assignedNull)
		if staffIDNull.Valid {
			item.Staff = &models.Staff{StaffID: staffIDNull.String, Name: staffNameNull.String}
		}
		tickets = append(tickets, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) UsedNumbers(ctx context.Context, ticketType string, day time.Time) ([]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT number
		FROM tickets
		WHERE type = $1 AND service_day = $2 AND status <> 'cancelled'
		ORDER BY number ASC
	`, ticketType, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, err
		}
		if len(number) < 2 {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimLeft(number[1:], "0"))
		if err != nil {
			continue
		}
		numbers = append(numbers, parsed)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return numbers, nil
}

func (s *Store) CountDispatched(ctx context.Context, day time.Time) (int, error) {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM tickets
		WHERE service_day = $1 AND called_at IS NOT NULL
	`, day)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) Stats(ctx context.Context, day time.Time) (models.QueueStats, error) {
	var stats models.QueueStats
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'waiting'),
			COUNT(*) FILTER (WHERE status = 'called'),
			COUNT(*) FILTER (WHERE status = 'serving'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE type = 'reservation'),
			COUNT(*) FILTER (WHERE type = 'walk_in')
		FROM tickets
		WHERE service_day = $1
	`, day)
	if err := row.Scan(
		&stats.TotalToday, &stats.WaitingCount, &stats.CalledCount, &stats.ServingCount,
		&stats.CompletedCount, &stats.CancelledCount, &stats.ReservationCount, &stats.WalkInCount,
	); err != nil {
		return models.QueueStats{}, err
	}
	return stats, nil
}

// Claim performs the conditional status update inside one transaction. When
// the guarded UPDATE matches no row, a follow-up read splits the outcome
// into not-found, ownership mismatch, or a lost race.
func (s *Store) Claim(ctx context.Context, input store.ClaimInput) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	set := "status = $2"
	args := []interface{}{input.TicketID, input.ToStatus}
	switch input.ToStatus {
	case models.StatusCalled:
		set += ", assigned_staff_id = $3, called_at = $4"
		args = append(args, input.StaffID, occurredAt)
	case models.StatusServing:
		set += ", service_started_at = $3"
		args = append(args, occurredAt)
	case models.StatusCompleted:
		set += ", completed_at = $3, service_duration = GREATEST(0, EXTRACT(EPOCH FROM ($3::timestamptz - service_started_at)))::int"
		args = append(args, occurredAt)
	case models.StatusCancelled:
		// assignment and timestamps retained for audit
	}

	args = append(args, input.FromStatus)
	query := `
		UPDATE tickets
		SET ` + set + `
		WHERE ticket_id = $1 AND status = ANY($` + strconv.Itoa(len(args)) + `)`
	if input.OwnerGuard {
		args = append(args, input.StaffID)
		query += ` AND (assigned_staff_id IS NULL OR assigned_staff_id = $` + strconv.Itoa(len(args)) + `)`
	}
	query += `
		RETURNING ` + ticketColumns

	row := tx.QueryRow(ctx, query, args...)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = s.explainClaimFailure(ctx, tx, input)
			return models.Ticket{}, err
		}
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) explainClaimFailure(ctx context.Context, tx pgx.Tx, input store.ClaimInput) error {
	var status string
	var assignedNull sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT status, assigned_staff_id
		FROM tickets
		WHERE ticket_id = $1
	`, input.TicketID)
	if err := row.Scan(&status, &assignedNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrTicketNotFound
		}
		return err
	}
	for _, from := range input.FromStatus {
		if status == from {
			if input.OwnerGuard && assignedNull.Valid && assignedNull.String != input.StaffID {
				return store.ErrNotAssigned
			}
			return store.ErrClaimConflict
		}
	}
	return store.ErrClaimConflict
}

func (s *Store) GetStaff(ctx context.Context, staffID string) (models.Staff, error) {
	var staff models.Staff
	row := s.pool.QueryRow(ctx, `
		SELECT staff_id, name
		FROM staff
		WHERE staff_id = $1
	`, staffID)
	if err := row.Scan(&staff.StaffID, &staff.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Staff{}, store.ErrStaffNotFound
		}
		return models.Staff{}, err
	}
	return staff, nil
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	var calledAtNull, startedAtNull, completedAtNull sql.NullTime
	var customerNull, phoneNull, assignedNull sql.NullString
	var durationNull sql.NullInt32
	if err := row.Scan(
		&ticket.TicketID, &ticket.Number, &ticket.Type, &ticket.Status, &ticket.ServiceDay,
		&customerNull, &phoneNull, &ticket.CreatedAt, &calledAtNull, &startedAtNull,
		&completedAtNull, &durationNull, &assignedNull,
	); err != nil {
		return models.Ticket{}, err
	}
	ticket.CustomerName = customerNull.String
	ticket.PhoneNumber = phoneNull.String
	ticket.CalledAt = nullTimePtr(calledAtNull)
	ticket.ServiceStartedAt = nullTimePtr(startedAtNull)
	ticket.CompletedAt = nullTimePtr(completedAtNull)
	ticket.ServiceDuration = nullIntPtr(durationNull)
	ticket.AssignedStaffID = nullStringPtr(assignedNull)
	return ticket, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func nullIntPtr(value sql.NullInt32) *int {
	if !value.Valid {
		return nil
	}
	n := int(value.Int32)
	return &n
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

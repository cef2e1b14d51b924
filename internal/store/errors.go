package store

import "errors"

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrStaffNotFound   = errors.New("staff not found")
	ErrClaimConflict   = errors.New("ticket state changed concurrently")
	ErrInvalidState    = errors.New("invalid ticket state")
	ErrNotAssigned     = errors.New("ticket assigned to different staff")
	ErrDuplicateNumber = errors.New("ticket number already taken")
	ErrValidation      = errors.New("invalid input")
)

package errors

import "errors"

var (
	ErrNotFound = errors.New("doctor not found")

	ErrInvalidID = errors.New("invalid doctor ID format")

	ErrUnavailable = errors.New("doctor is not accepting appointments")

	ErrSlotTaken = errors.New("slot is already booked")

	ErrEmailTaken = errors.New("doctor email is already registered")
)

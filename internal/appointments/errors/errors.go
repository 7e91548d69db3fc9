package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrInvalidID = errors.New("invalid appointment ID format")

	ErrAlreadyTerminal = errors.New("appointment is already completed or cancelled")

	ErrNotPending = errors.New("appointment is not awaiting confirmation")

	ErrNotConfirmed = errors.New("appointment has not been accepted yet")

	ErrNotCompleted = errors.New("appointment is not completed")

	ErrRemedyAlreadySent = errors.New("remedy was already sent for this appointment")

	ErrSlotLocked = errors.New("slot is currently being booked")
)

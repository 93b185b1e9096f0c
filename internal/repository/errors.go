// Package repository defines error types that are reused across the booking
// and local user stores.  These sentinel values let the service layer tell
// apart a missing row, a refused state transition and a plain database
// failure without inspecting driver errors.
package repository

import "errors"

// ErrBookingNotFound is returned when no booking has the requested id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrUserNotFound is returned when no local user matches the lookup key.
var ErrUserNotFound = errors.New("local user not found")

// ErrAlreadyCancelled is returned when a cancellation targets a booking
// that is already CANCELLED.  CANCELLED is terminal and cancelled_at is
// never rewritten.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// ErrInvalidTransition is returned for any status change other than
// ACTIVE to CANCELLED.
var ErrInvalidTransition = errors.New("invalid booking status transition")

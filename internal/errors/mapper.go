// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Domain sentinels. Callers branch on these with errors.Is; Map turns
// them into transport-level status errors at the boundary.
var (
	// ErrConflict rejects a submission to an already-filled side or an
	// already-completed pairing. The caller must re-fetch before any
	// retry decision.
	ErrConflict = errors.New("pairing state conflict")

	// ErrNotFound covers missing pairings and members.
	ErrNotFound = errors.New("record not found")

	// ErrNotParticipant rejects operations by a member outside the
	// pairing.
	ErrNotParticipant = errors.New("member is not part of this pairing")

	// ErrReminderThrottled rejects a reminder inside the per-pairing
	// window.
	ErrReminderThrottled = errors.New("reminder already sent in this window")

	// ErrPrecondition is a fatal invariant violation (duplicate
	// candidate ids, malformed record). Never auto-retried.
	ErrPrecondition = errors.New("precondition violated")
)

// Map converts repo/domain errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, ErrConflict):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, ErrNotParticipant):
		return status.Error(codes.PermissionDenied, err.Error())

	case errors.Is(err, ErrReminderThrottled):
		return status.Error(codes.ResourceExhausted, err.Error())

	case errors.Is(err, ErrPrecondition):
		return status.Error(codes.Internal, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

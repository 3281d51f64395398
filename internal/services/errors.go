package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"school-app-server/internal/models"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ConflictError reports that a requested interval overlaps an appointment
// that still occupies the practitioner's calendar.
type ConflictError struct {
	AppointmentID string    `json:"conflictingAppointmentId,omitempty"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

func (e *ConflictError) Error() string {
	if e.Start.IsZero() {
		return "the requested time overlaps an existing appointment"
	}
	return fmt.Sprintf("the requested time overlaps an existing appointment from %s to %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func conflictWith(a *models.Appointment) *ConflictError {
	return &ConflictError{AppointmentID: a.ID, Start: a.StartTime, End: a.EndTime}
}

// Postgres reports exclusion_violation when the appointments_no_overlap
// constraint rejects a row.
const pgExclusionViolation = "23P01"

func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

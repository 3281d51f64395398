package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"school-app-server/internal/models"
	"school-app-server/internal/scheduling"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   models.Role
}

// BookingRequest asks for a new appointment on a practitioner's calendar.
type BookingRequest struct {
	PractitionerID string
	StudentID      string
	Start          time.Time
	End            time.Time
	Reason         string
	Location       string
}

// ListFilter narrows an appointment listing.
type ListFilter struct {
	Status         models.AppointmentStatus
	PractitionerID string
	StudentID      string
	From           *time.Time
	To             *time.Time
}

// AppointmentService computes practitioner availability and books, moves and
// transitions appointments without ever letting two live appointments of the
// same practitioner overlap.
type AppointmentService struct {
	db       *gorm.DB
	template scheduling.Template
	clock    scheduling.Clock
	logger   *zap.Logger
}

// NewAppointmentService creates an AppointmentService.
func NewAppointmentService(db *gorm.DB, template scheduling.Template, clock scheduling.Clock, logger *zap.Logger) *AppointmentService {
	if clock == nil {
		clock = scheduling.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{db: db, template: template, clock: clock, logger: logger}
}

// Template returns the daily schedule the service books against.
func (s *AppointmentService) Template() scheduling.Template {
	return s.template
}

// Availability returns the template slots of the practitioner on the calendar
// day of date, each flagged by whether it overlaps a non-cancelled appointment.
func (s *AppointmentService) Availability(ctx context.Context, practitionerID string, date time.Time) ([]scheduling.Slot, error) {
	db := s.db.WithContext(ctx)
	if _, err := findPractitioner(db, practitionerID); err != nil {
		return nil, err
	}

	day := s.template.Day(date)
	if !s.template.Covers(day.Start) {
		return []scheduling.Slot{}, nil
	}

	var booked []models.Appointment
	err := occupying(db, practitionerID, day).
		Order("start_time asc").
		Find(&booked).Error
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	intervals := make([]scheduling.Interval, len(booked))
	for i := range booked {
		intervals[i] = booked[i].Interval()
	}
	return scheduling.Availability(s.template, date, intervals), nil
}

// Book creates a pending appointment. The overlap check and the insert run in
// one transaction holding a row lock on the practitioner, so of two
// concurrent requests for overlapping times exactly one succeeds and the
// other gets a *ConflictError.
func (s *AppointmentService) Book(ctx context.Context, actor Actor, req BookingRequest) (*models.Appointment, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleStudent:
		if req.StudentID != actor.UserID {
			return nil, fmt.Errorf("%w: students can only book appointments for themselves", ErrForbidden)
		}
	case models.RolePsychologist:
		if req.PractitionerID != actor.UserID {
			return nil, fmt.Errorf("%w: psychologists can only book on their own calendar", ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("%w: role %s cannot book appointments", ErrForbidden, actor.Role)
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, validationError("reason is required")
	}
	iv := scheduling.Interval{Start: req.Start, End: req.End}
	if err := scheduling.CheckBookable(s.template, s.clock.Now(), iv); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	db := s.db.WithContext(ctx)
	if _, err := findUser(db, req.StudentID, models.RoleStudent); err != nil {
		return nil, err
	}

	appt := models.Appointment{
		PractitionerID: req.PractitionerID,
		StudentID:      req.StudentID,
		StartTime:      req.Start,
		EndTime:        req.End,
		Status:         models.StatusPending,
		Reason:         req.Reason,
		Location:       strings.TrimSpace(req.Location),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockPractitioner(tx, req.PractitionerID); err != nil {
			return err
		}
		if err := checkConflict(tx, req.PractitionerID, iv, ""); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&appt).Error
	})
	if err != nil {
		return nil, s.bookingFailure(db, "book", req.PractitionerID, iv, "", err)
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("practitioner_id", appt.PractitionerID),
		zap.String("student_id", appt.StudentID),
		zap.Time("start", appt.StartTime),
		zap.Time("end", appt.EndTime),
	)
	return &appt, nil
}

// UpdateStatus moves an appointment along its lifecycle. Cancelled and
// completed appointments never change again. Notes are appended.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor Actor, id string, next models.AppointmentStatus, notes string) (*models.Appointment, error) {
	if !next.Valid() {
		return nil, validationError("unknown status %q", next)
	}

	var appt models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockAppointment(tx, id, &appt); err != nil {
			return err
		}
		if err := authorizeTransition(actor, &appt, next); err != nil {
			return err
		}
		if appt.Status.IsTerminal() {
			return fmt.Errorf("%w: appointment is already %s", ErrInvalidTransition, appt.Status)
		}
		if !appt.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: cannot go from %s to %s", ErrInvalidTransition, appt.Status, next)
		}

		previous := appt.Status
		appt.Status = next
		appendNotes(&appt, notes)
		if err := tx.Omit(clause.Associations).Save(&appt).Error; err != nil {
			return fmt.Errorf("save appointment: %w", err)
		}

		s.logger.Info("appointment status changed",
			zap.String("appointment_id", appt.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(next)),
			zap.String("actor_id", actor.UserID),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// Reschedule moves a live appointment to a new interval, re-running the
// overlap check against everything but the appointment itself. The
// appointment goes back to pending.
func (s *AppointmentService) Reschedule(ctx context.Context, actor Actor, id string, start, end time.Time, notes string) (*models.Appointment, error) {
	iv := scheduling.Interval{Start: start, End: end}
	db := s.db.WithContext(ctx)
	var appt models.Appointment
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockAppointment(tx, id, &appt); err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin && !appt.Involves(actor.UserID) {
			return fmt.Errorf("%w: you are not part of this appointment", ErrForbidden)
		}
		if appt.Status.IsTerminal() {
			return fmt.Errorf("%w: appointment is already %s", ErrInvalidTransition, appt.Status)
		}
		if err := scheduling.CheckBookable(s.template, s.clock.Now(), iv); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		if err := lockPractitioner(tx, appt.PractitionerID); err != nil {
			return err
		}
		if err := checkConflict(tx, appt.PractitionerID, iv, appt.ID); err != nil {
			return err
		}

		appt.StartTime = start
		appt.EndTime = end
		appt.Status = models.StatusPending
		appendNotes(&appt, notes)
		return tx.Omit(clause.Associations).Save(&appt).Error
	})
	if err != nil {
		return nil, s.bookingFailure(db, "reschedule", appt.PractitionerID, iv, id, err)
	}

	s.logger.Info("appointment rescheduled",
		zap.String("appointment_id", appt.ID),
		zap.Time("start", appt.StartTime),
		zap.Time("end", appt.EndTime),
	)
	return &appt, nil
}

// Get returns one appointment with its participants, visible to the people
// involved and to administrators.
func (s *AppointmentService) Get(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Practitioner").Preload("Student").
		First(&appt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if actor.Role != models.RoleAdmin && !appt.Involves(actor.UserID) {
		return nil, fmt.Errorf("%w: you are not part of this appointment", ErrForbidden)
	}
	return &appt, nil
}

// List returns appointments ordered by start time. Students only see their
// own, psychologists their calendar and administrators everything.
func (s *AppointmentService) List(ctx context.Context, actor Actor, f ListFilter) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).
		Preload("Practitioner").Preload("Student").
		Order("start_time asc")

	switch actor.Role {
	case models.RoleAdmin:
		if f.PractitionerID != "" {
			query = query.Where("practitioner_id = ?", f.PractitionerID)
		}
		if f.StudentID != "" {
			query = query.Where("student_id = ?", f.StudentID)
		}
	case models.RolePsychologist:
		query = query.Where("practitioner_id = ?", actor.UserID)
		if f.StudentID != "" {
			query = query.Where("student_id = ?", f.StudentID)
		}
	case models.RoleStudent:
		query = query.Where("student_id = ?", actor.UserID)
	default:
		return nil, fmt.Errorf("%w: role %s cannot list appointments", ErrForbidden, actor.Role)
	}

	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, validationError("unknown status %q", f.Status)
		}
		query = query.Where("status = ?", f.Status)
	}
	if f.From != nil {
		query = query.Where("end_time > ?", f.From.UTC())
	}
	if f.To != nil {
		query = query.Where("start_time < ?", f.To.UTC())
	}

	var appts []models.Appointment
	if err := query.Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// bookingFailure normalizes errors coming out of a booking transaction. A
// Postgres exclusion violation means the database constraint caught an
// overlap; the conflicting row is looked up again for the response.
func (s *AppointmentService) bookingFailure(db *gorm.DB, op, practitionerID string, iv scheduling.Interval, excludeID string, err error) error {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
	case isOverlapViolation(err):
		conflict = &ConflictError{}
		if found := checkConflict(db, practitionerID, iv, excludeID); found != nil {
			errors.As(found, &conflict)
		}
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrInvalidTransition):
		return err
	default:
		return fmt.Errorf("%s appointment: %w", op, err)
	}

	s.logger.Info("appointment request conflicts with existing booking",
		zap.String("op", op),
		zap.String("practitioner_id", practitionerID),
		zap.Time("start", iv.Start),
		zap.Time("end", iv.End),
		zap.String("conflicting_id", conflict.AppointmentID),
	)
	return conflict
}

// occupying selects the practitioner's non-cancelled appointments that
// overlap iv.
func occupying(db *gorm.DB, practitionerID string, iv scheduling.Interval) *gorm.DB {
	return db.Model(&models.Appointment{}).
		Where("practitioner_id = ? AND status <> ? AND start_time < ? AND end_time > ?",
			practitionerID, models.StatusCancelled, iv.End.UTC(), iv.Start.UTC())
}

func checkConflict(db *gorm.DB, practitionerID string, iv scheduling.Interval, excludeID string) error {
	query := occupying(db, practitionerID, iv)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var existing []models.Appointment
	if err := query.Order("start_time asc").Limit(1).Find(&existing).Error; err != nil {
		return fmt.Errorf("check overlapping appointments: %w", err)
	}
	if len(existing) > 0 {
		return conflictWith(&existing[0])
	}
	return nil
}

// lockPractitioner takes a row lock on the practitioner so bookings on the
// same calendar run one after another.
func lockPractitioner(tx *gorm.DB, id string) error {
	var u models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ? AND role = ?", id, models.RolePsychologist).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: practitioner %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("lock practitioner: %w", err)
	}
	return nil
}

func lockAppointment(tx *gorm.DB, id string, appt *models.Appointment) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(appt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: appointment %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}
	return nil
}

func findPractitioner(db *gorm.DB, id string) (*models.User, error) {
	u, err := findUser(db, id, models.RolePsychologist)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: practitioner %s", ErrNotFound, id)
	}
	return u, err
}

func findUser(db *gorm.DB, id string, role models.Role) (*models.User, error) {
	var u models.User
	err := db.Where("id = ? AND role = ?", id, role).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, role, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", role, err)
	}
	return &u, nil
}

func authorizeTransition(actor Actor, appt *models.Appointment, next models.AppointmentStatus) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RolePsychologist:
		if appt.PractitionerID == actor.UserID {
			return nil
		}
	case models.RoleStudent:
		if appt.StudentID == actor.UserID {
			if next == models.StatusCancelled {
				return nil
			}
			return fmt.Errorf("%w: students can only cancel appointments", ErrForbidden)
		}
	}
	return fmt.Errorf("%w: you cannot change this appointment", ErrForbidden)
}

func appendNotes(appt *models.Appointment, notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	if appt.Notes == "" {
		appt.Notes = notes
		return
	}
	appt.Notes += "\n" + notes
}

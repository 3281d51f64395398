package models

import (
	"time"

	"gorm.io/gorm"

	"school-app-server/internal/scheduling"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransitionTo reports whether an appointment in status s may move to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is a booked session between a practitioner (psychologist)
// and a student. Appointments that are not cancelled occupy the
// practitioner's calendar over [StartTime, EndTime).
type Appointment struct {
	BaseModel
	PractitionerID string            `gorm:"size:36;not null;index:idx_appointments_practitioner_start,priority:1" json:"practitionerId"`
	StudentID      string            `gorm:"size:36;not null;index" json:"studentId"`
	StartTime      time.Time         `gorm:"not null;index:idx_appointments_practitioner_start,priority:2" json:"startTime"`
	EndTime        time.Time         `gorm:"not null" json:"endTime"`
	Status         AppointmentStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Reason         string            `gorm:"size:255;not null" json:"reason"`
	Location       string            `gorm:"size:255" json:"location,omitempty"`
	Notes          string            `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	Practitioner *User `gorm:"foreignKey:PractitionerID" json:"practitioner,omitempty"`
	Student      *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// BeforeSave stores times in UTC so range comparisons behave the same on every driver.
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()
	return nil
}

// Interval returns the [StartTime, EndTime) range of the appointment.
func (a *Appointment) Interval() scheduling.Interval {
	return scheduling.Interval{Start: a.StartTime, End: a.EndTime}
}

// Involves reports whether the user is the practitioner or the student of the appointment.
func (a *Appointment) Involves(userID string) bool {
	return userID != "" && (a.PractitionerID == userID || a.StudentID == userID)
}

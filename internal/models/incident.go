package models

import (
	"time"
)

// IncidentSeverity grades how serious a reported incident is.
type IncidentSeverity string

const (
	SeverityLow    IncidentSeverity = "low"
	SeverityMedium IncidentSeverity = "medium"
	SeverityHigh   IncidentSeverity = "high"
)

// IncidentStatus tracks whether an incident still needs follow-up.
type IncidentStatus string

const (
	IncidentOpen     IncidentStatus = "open"
	IncidentResolved IncidentStatus = "resolved"
)

// Incident is a behavioural or safety report filed by staff about a student.
type Incident struct {
	BaseModel
	StudentID   string           `gorm:"size:36;not null;index" json:"studentId"`
	ReporterID  string           `gorm:"size:36;not null;index" json:"reporterId"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Severity    IncidentSeverity `gorm:"size:20;not null;default:'low'" json:"severity"`
	Status      IncidentStatus   `gorm:"size:20;not null;default:'open';index" json:"status"`
	OccurredAt  time.Time        `json:"occurredAt"`
	Resolution  string           `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedAt  *time.Time       `json:"resolvedAt,omitempty"`

	Student  *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Reporter *User `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
}

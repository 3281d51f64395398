package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"school-app-server/internal/middleware"
	"school-app-server/internal/models"
	"school-app-server/internal/utils"
)

// IncidentHandler handles incident report requests.
type IncidentHandler struct {
	DB *gorm.DB
}

// NewIncidentHandler creates a new IncidentHandler.
func NewIncidentHandler(db *gorm.DB) *IncidentHandler {
	return &IncidentHandler{DB: db}
}

// CreateIncidentRequest represents the request body for reporting an incident.
type CreateIncidentRequest struct {
	StudentID   string                  `json:"studentId" binding:"required,uuid"`
	Title       string                  `json:"title" binding:"required,max=255"`
	Description string                  `json:"description"`
	Severity    models.IncidentSeverity `json:"severity" binding:"omitempty,oneof=low medium high"`
	OccurredAt  *time.Time              `json:"occurredAt"`
}

// CreateIncident files a new open incident about a student. Staff only.
func (h *IncidentHandler) CreateIncident(c *gin.Context) {
	var req CreateIncidentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	reporterID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var student models.User
	if err := h.DB.Where("id = ? AND role = ?", req.StudentID, models.RoleStudent).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Student not found")
		} else {
			utils.InternalServerError(c, "Database error verifying student: "+err.Error())
		}
		return
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}
	severity := req.Severity
	if severity == "" {
		severity = models.SeverityLow
	}

	incident := models.Incident{
		StudentID:   student.ID,
		ReporterID:  reporterID,
		Title:       req.Title,
		Description: req.Description,
		Severity:    severity,
		Status:      models.IncidentOpen,
		OccurredAt:  occurredAt,
	}
	if err := h.DB.Create(&incident).Error; err != nil {
		utils.InternalServerError(c, "Failed to create incident: "+err.Error())
		return
	}

	utils.Created(c, "Incident reported successfully", incident)
}

// GetIncidents lists incidents. Students only see their own; staff may
// narrow by studentId and status.
func (h *IncidentHandler) GetIncidents(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	query := h.DB.Preload("Student").Preload("Reporter").Order("occurred_at desc")
	if actor.Role == models.RoleStudent {
		query = query.Where("student_id = ?", actor.UserID)
	} else if studentID := c.Query("studentId"); studentID != "" {
		if _, err := uuid.Parse(studentID); err != nil {
			utils.BadRequest(c, "Invalid studentId format")
			return
		}
		query = query.Where("student_id = ?", studentID)
	}
	if status := models.IncidentStatus(c.Query("status")); status != "" {
		if status != models.IncidentOpen && status != models.IncidentResolved {
			utils.BadRequest(c, "Invalid status filter")
			return
		}
		query = query.Where("status = ?", status)
	}

	var incidents []models.Incident
	if err := query.Find(&incidents).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch incidents: "+err.Error())
		return
	}

	utils.Success(c, "Incidents fetched successfully", incidents)
}

// GetIncidentByID fetches one incident. Students may only read their own.
func (h *IncidentHandler) GetIncidentByID(c *gin.Context) {
	incident, ok := h.loadIncident(c, h.DB.Preload("Student").Preload("Reporter"))
	if !ok {
		return
	}

	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	if actor.Role == models.RoleStudent && incident.StudentID != actor.UserID {
		utils.Forbidden(c, "You are not authorized to view this incident")
		return
	}

	utils.Success(c, "Incident fetched successfully", incident)
}

// ResolveIncidentRequest represents the request body for resolving an incident.
type ResolveIncidentRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// ResolveIncident closes an open incident. Resolved incidents are final.
func (h *IncidentHandler) ResolveIncident(c *gin.Context) {
	var req ResolveIncidentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var incident *models.Incident
	var conflict bool
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var ok bool
		incident, ok = h.loadIncident(c, tx.Clauses(clause.Locking{Strength: "UPDATE"}))
		if !ok {
			return errAborted
		}
		if incident.Status == models.IncidentResolved {
			conflict = true
			return errAborted
		}

		now := time.Now().UTC()
		incident.Status = models.IncidentResolved
		incident.Resolution = req.Resolution
		incident.ResolvedAt = &now
		return tx.Save(incident).Error
	})
	switch {
	case conflict:
		utils.UnprocessableEntity(c, "Incident is already resolved")
	case errors.Is(err, errAborted):
		// response already written
	case err != nil:
		utils.InternalServerError(c, "Failed to resolve incident: "+err.Error())
	default:
		utils.Success(c, "Incident resolved successfully", incident)
	}
}

// DeleteIncident removes an incident report. Admin only.
func (h *IncidentHandler) DeleteIncident(c *gin.Context) {
	incident, ok := h.loadIncident(c, h.DB)
	if !ok {
		return
	}

	if err := h.DB.Delete(&models.Incident{}, "id = ?", incident.ID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete incident: "+err.Error())
		return
	}

	utils.Success(c, "Incident deleted successfully", nil)
}

var errAborted = errors.New("request aborted")

func (h *IncidentHandler) loadIncident(c *gin.Context, db *gorm.DB) (*models.Incident, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.BadRequest(c, "Invalid Incident ID format")
		return nil, false
	}

	var incident models.Incident
	if err := db.First(&incident, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Incident not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &incident, true
}

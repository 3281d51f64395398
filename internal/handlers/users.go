package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"school-app-server/internal/models"
	"school-app-server/internal/utils"
)

// UserHandler handles user-related requests (typically admin operations).
type UserHandler struct {
	DB *gorm.DB
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	FirstName string      `json:"firstName" binding:"required,max=100"`
	LastName  string      `json:"lastName" binding:"required,max=100"`
	Email     string      `json:"email" binding:"required,email"`
	Password  string      `json:"password" binding:"required,min=8"`
	Role      models.Role `json:"role" binding:"required,oneof=1 2 3 4"`
	CourseID  string      `json:"courseId" binding:"omitempty,uuid"`
	Phone     string      `json:"phone" binding:"max=50"`
}

// CreateUser handles creating a new user of any role (admin).
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if taken, err := h.emailTaken(req.Email, ""); err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	} else if taken {
		utils.BadRequest(c, "User with this email already exists")
		return
	}

	user := models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
		CourseID:  req.CourseID,
		Phone:     req.Phone,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers handles fetching all users (admin). An optional role query
// parameter narrows the list.
func (h *UserHandler) GetUsers(c *gin.Context) {
	query := h.DB.Order("last_name, first_name")
	if raw := c.Query("role"); raw != "" {
		n, err := strconv.Atoi(raw)
		if role := models.Role(n); err != nil || !role.Valid() {
			utils.BadRequest(c, "Invalid role filter")
			return
		}
		query = query.Where("role = ?", n)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	utils.Success(c, "Users fetched successfully", models.SanitizeUsers(users))
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
// Password changes are not handled here.
type UpdateUserRequest struct {
	FirstName string       `json:"firstName" binding:"max=100"`
	LastName  string       `json:"lastName" binding:"max=100"`
	Email     string       `json:"email" binding:"omitempty,email"`
	Role      *models.Role `json:"role" binding:"omitempty,oneof=1 2 3 4"`
	CourseID  string       `json:"courseId" binding:"omitempty,uuid"`
	Phone     string       `json:"phone" binding:"max=50"`
}

// UpdateUser handles updating a user by ID (admin).
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Email != "" && req.Email != user.Email {
		if taken, err := h.emailTaken(req.Email, user.ID); err != nil {
			utils.InternalServerError(c, "Database error checking email: "+err.Error())
			return
		} else if taken {
			utils.BadRequest(c, "New email is already in use")
			return
		}
		user.Email = req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.CourseID != "" {
		user.CourseID = req.CourseID
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}

	if err := h.DB.Save(user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser handles deleting a user by ID (admin). Users that still have
// appointments or incidents on record cannot be deleted.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	for _, ref := range []struct {
		model interface{}
		where string
		label string
	}{
		{&models.Appointment{}, "practitioner_id = ? OR student_id = ?", "appointments"},
		{&models.Incident{}, "student_id = ? OR reporter_id = ?", "incidents"},
	} {
		var count int64
		if err := h.DB.Model(ref.model).Where(ref.where, user.ID, user.ID).Count(&count).Error; err != nil {
			utils.InternalServerError(c, "Database error: "+err.Error())
			return
		}
		if count > 0 {
			utils.BadRequest(c, "User has "+ref.label+" on record and cannot be deleted")
			return
		}
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", user.ID).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete user: "+err.Error())
		return
	}

	utils.Success(c, "User deleted successfully", nil)
}

// GetPractitioners lists the psychologists whose calendars can be booked.
func (h *UserHandler) GetPractitioners(c *gin.Context) {
	h.listByRole(c, models.RolePsychologist, "Practitioners")
}

// GetStudents lists all students. Restricted to staff by the router.
func (h *UserHandler) GetStudents(c *gin.Context) {
	h.listByRole(c, models.RoleStudent, "Students")
}

func (h *UserHandler) listByRole(c *gin.Context, role models.Role, label string) {
	query := h.DB.Where("role = ?", role).Order("last_name, first_name")
	if courseID := c.Query("courseId"); courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch "+label+": "+err.Error())
		return
	}

	utils.Success(c, label+" fetched successfully", models.SanitizeUsers(users))
}

func (h *UserHandler) loadUser(c *gin.Context) (*models.User, bool) {
	userID := c.Param("id")
	if _, err := uuid.Parse(userID); err != nil {
		utils.BadRequest(c, "Invalid User ID format")
		return nil, false
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &user, true
}

func (h *UserHandler) emailTaken(email, exceptID string) (bool, error) {
	var count int64
	query := h.DB.Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

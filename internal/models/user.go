package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is the integer role carried in access tokens.
type Role int

const (
	RoleAdmin Role = iota + 1
	RolePsychologist
	RoleTeacher
	RoleStudent
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RolePsychologist:
		return "psychologist"
	case RoleTeacher:
		return "teacher"
	case RoleStudent:
		return "student"
	}
	return "unknown"
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RoleStudent
}

// IsStaff reports whether the role belongs to school staff rather than a student.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RolePsychologist || r == RoleTeacher
}

// StaffRoles lists the roles that may act on other users' records.
var StaffRoles = []Role{RoleAdmin, RolePsychologist, RoleTeacher}

// User represents a user in the system
type User struct {
	BaseModel
	Email     string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName string `gorm:"size:100" json:"firstName"`
	LastName  string `gorm:"size:100" json:"lastName"`
	Role      Role   `gorm:"not null;default:4;index" json:"role"`
	CourseID  string `gorm:"size:36;index" json:"courseId,omitempty"`
	Phone     string `gorm:"size:50" json:"phone,omitempty"`

	// Relations (not always preloaded)
	RefreshTokens            []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	PractitionerAppointments []Appointment  `gorm:"foreignKey:PractitionerID" json:"-"`
	StudentAppointments      []Appointment  `gorm:"foreignKey:StudentID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
	RoleName  string    `json:"roleName"`
	CourseID  string    `json:"courseId,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		RoleName:  u.Role.String(),
		CourseID:  u.CourseID,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// SanitizeUsers sanitizes a list of users.
func SanitizeUsers(users []User) []UserSanitized {
	out := make([]UserSanitized, len(users))
	for i := range users {
		out[i] = users[i].Sanitize()
	}
	return out
}

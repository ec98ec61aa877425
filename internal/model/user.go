package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

func ParseRole(raw string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return role, true
	default:
		return "", false
	}
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusRejected Status = "rejected"
)

func ParseStatus(raw string) (Status, bool) {
	switch status := Status(strings.ToLower(strings.TrimSpace(raw))); status {
	case StatusPending, StatusActive, StatusInactive, StatusRejected:
		return status, true
	default:
		return "", false
	}
}

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	ProfileImage string     `json:"profile_image,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Admin   *AdminProfile   `json:"admin_profile,omitempty"`
	Faculty *FacultyProfile `json:"faculty_profile,omitempty"`
	Student *StudentProfile `json:"student_profile,omitempty"`
}

type AdminProfile struct {
	ID         int64  `json:"id"`
	Department string `json:"department,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// FacultyProfile.ID is the faculty id embedded in faculty export filenames.
type FacultyProfile struct {
	ID          int64  `json:"id"`
	EmployeeID  string `json:"employee_id"`
	Department  string `json:"department,omitempty"`
	Designation string `json:"designation,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// StudentProfile.ID is the student id embedded in student export filenames.
type StudentProfile struct {
	ID            int64  `json:"id"`
	StudentNumber string `json:"student_number"`
	Department    string `json:"department,omitempty"`
	YearLevel     int    `json:"year_level,omitempty"`
	Section       string `json:"section,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type AuthClaims struct {
	UserID   int64  `json:"sub"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"typ"`
	TokenID  string `json:"jti"`
}

type AuthUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Status   Status `json:"status"`
}

func NewAuthUser(u User) AuthUser {
	return AuthUser{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, Status: u.Status}
}

type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         AuthUser `json:"user"`
}

// Identity is the authenticated caller of a request as seen by handlers.
type Identity struct {
	UserID   int64
	Username string
	Role     string
	IP       string
}

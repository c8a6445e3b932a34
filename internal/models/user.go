package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
)

// ParseRole normalizes a role string; ok is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleClient, RoleFreelancer, RoleStudent, RoleAdmin:
		return r, true
	}
	return "", false
}

type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityBusy        Availability = "busy"
	AvailabilityUnavailable Availability = "unavailable"
)

// internal/models/user.go
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FirstName string    `gorm:"type:varchar(80);not null" json:"first_name"`
	LastName  string    `gorm:"type:varchar(80)" json:"last_name"`
	Role      Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	AvatarURL string    `gorm:"type:text" json:"avatar_url"`

	// profile
	Title        string                      `gorm:"type:varchar(120)" json:"title"`
	Bio          string                      `gorm:"type:text" json:"bio"`
	Skills       datatypes.JSONSlice[string] `json:"skills"`
	HourlyRate   int64                       `json:"hourly_rate"`
	Availability Availability                `gorm:"type:varchar(20)" json:"availability"`
	Location     string                      `gorm:"type:varchar(120)" json:"location"`

	// stats, recalculated when a project completes
	Rating            float64 `gorm:"not null;default:0" json:"rating"`
	CompletedProjects int     `gorm:"not null;default:0" json:"completed_projects"`
	TotalEarned       int64   `gorm:"not null;default:0" json:"total_earned"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserMini is the public summary embedded in other resources.
type UserMini struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Title     string  `json:"title,omitempty"`
	Rating    float64 `json:"rating"`
}

func (u *User) Mini() *UserMini {
	if u == nil {
		return nil
	}
	return &UserMini{
		ID:        u.ID.String(),
		Name:      u.FullName(),
		AvatarURL: u.AvatarURL,
		Title:     u.Title,
		Rating:    u.Rating,
	}
}

// PublicProfile is what anonymous visitors may see of a freelancer.
type PublicProfile struct {
	ID                string       `json:"id"`
	FirstName         string       `json:"first_name"`
	LastName          string       `json:"last_name"`
	AvatarURL         string       `json:"avatar_url"`
	Title             string       `json:"title"`
	Bio               string       `json:"bio"`
	Skills            []string     `json:"skills"`
	HourlyRate        int64        `json:"hourly_rate"`
	Availability      Availability `json:"availability"`
	Location          string       `json:"location"`
	Rating            float64      `json:"rating"`
	CompletedProjects int          `json:"completed_projects"`
}

func (u *User) Public() PublicProfile {
	skills := []string(u.Skills)
	if skills == nil {
		skills = []string{}
	}
	return PublicProfile{
		ID:                u.ID.String(),
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		AvatarURL:         u.AvatarURL,
		Title:             u.Title,
		Bio:               u.Bio,
		Skills:            skills,
		HourlyRate:        u.HourlyRate,
		Availability:      u.Availability,
		Location:          u.Location,
		Rating:            u.Rating,
		CompletedProjects: u.CompletedProjects,
	}
}

// Summary is returned by the auth endpoints.
func (u *User) Summary() map[string]any {
	return map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       u.Role,
		"avatar_url": u.AvatarURL,
	}
}

// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

// Password is the plain-text password of every fixture user.
const Password = "password123"

var (
	hashOnce sync.Once
	hash     string
)

func passwordHash() string {
	hashOnce.Do(func() {
		b, _ := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		hash = string(b)
	})
	return hash
}

// NewDB opens a migrated SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(zerolog.Nop()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func CreateUser(t *testing.T, gdb *gorm.DB, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Email:        fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		Password:     passwordHash(),
		FirstName:    "Test",
		LastName:     string(role),
		Role:         role,
		IsActive:     true,
		Availability: models.AvailabilityAvailable,
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func CreateProject(t *testing.T, gdb *gorm.DB, clientID uuid.UUID, status models.ProjectStatus) *models.Project {
	t.Helper()
	p := &models.Project{
		ClientID:     clientID,
		Title:        "Build a landing page",
		Slug:         "build-a-landing-page",
		Description:  "Responsive landing page for a product launch",
		Category:     "web-development",
		Skills:       datatypes.JSONSlice[string]{"go", "react"},
		Status:       status,
		BudgetType:   models.BudgetFixed,
		BudgetAmount: 500_000,
		Currency:     "IDR",
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// AssignFreelancer forces a project into an assigned state without going
// through proposal acceptance.
func AssignFreelancer(t *testing.T, gdb *gorm.DB, p *models.Project, freelancerID uuid.UUID, status models.ProjectStatus) {
	t.Helper()
	p.FreelancerID = &freelancerID
	p.Status = status
	if err := gdb.Model(p).Updates(map[string]any{"freelancer_id": freelancerID, "status": status}).Error; err != nil {
		t.Fatalf("assign freelancer: %v", err)
	}
}

func CreateProposal(t *testing.T, gdb *gorm.DB, projectID, freelancerID uuid.UUID, bid int64) *models.Proposal {
	t.Helper()
	p := &models.Proposal{
		ProjectID:     projectID,
		FreelancerID:  freelancerID,
		CoverLetter:   "I have shipped many landing pages.",
		BidAmount:     bid,
		EstimatedDays: 7,
		Status:        models.ProposalPending,
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	return p
}

func CreateCourse(t *testing.T, gdb *gorm.DB, instructorID uuid.UUID, published bool, capacity *int) *models.Course {
	t.Helper()
	c := &models.Course{
		InstructorID: instructorID,
		Title:        "Go for Backend Engineers",
		Slug:         "go-for-backend-engineers",
		Description:  "Services, persistence and testing in Go",
		Category:     "programming",
		Level:        models.LevelBeginner,
		Price:        150_000,
		Currency:     "IDR",
		IsPublished:  published,
		Lessons: datatypes.JSONSlice[models.Lesson]{
			{Title: "Intro", DurationMinutes: 30, Order: 1},
			{Title: "HTTP", DurationMinutes: 45, Order: 2},
		},
		DurationMinutes: 75,
		Capacity:        capacity,
	}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	return c
}

func Ptr[T any](v T) *T { return &v }

// Event is one publish captured by Recorder.
type Event struct {
	Key  string
	Data any
}

// Recorder is an events publisher that keeps everything in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, key string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Key: key, Data: data})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.events))
	for _, e := range r.events {
		keys = append(keys, e.Key)
	}
	return keys
}

// Has reports whether key was published at least once.
func (r *Recorder) Has(key string) bool {
	for _, k := range r.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

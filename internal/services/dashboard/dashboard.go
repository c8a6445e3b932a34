// Package dashboard aggregates the read-only overview each role lands on.
package dashboard

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

// Dashboard is a closed set of variants, one per role. Only this package
// can add variants, and Match forces callers to handle all of them.
type Dashboard interface {
	Role() models.Role
	sealed()
}

type ProjectSummary struct {
	ID             uuid.UUID            `json:"id"`
	Title          string               `json:"title"`
	Status         models.ProjectStatus `json:"status"`
	BudgetType     models.BudgetType    `json:"budget_type"`
	BudgetAmount   int64                `json:"budget_amount"`
	Currency       string               `json:"currency"`
	ApplicantCount int64                `json:"applicant_count"`
	Deadline       *time.Time           `json:"deadline"`
	CreatedAt      time.Time            `json:"created_at"`
	Freelancer     *models.UserMini     `json:"freelancer,omitempty"`
	ProposalCount  *int64               `json:"proposal_count,omitempty"`
}

func summarizeProject(p models.Project) ProjectSummary {
	return ProjectSummary{
		ID:             p.ID,
		Title:          p.Title,
		Status:         p.Status,
		BudgetType:     p.BudgetType,
		BudgetAmount:   p.BudgetAmount,
		Currency:       p.Currency,
		ApplicantCount: p.ApplicantCount,
		Deadline:       p.Deadline,
		CreatedAt:      p.CreatedAt,
		Freelancer:     p.Freelancer.Mini(),
	}
}

type CourseSummary struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Category        string             `json:"category"`
	Level           models.CourseLevel `json:"level"`
	Price           int64              `json:"price"`
	Currency        string             `json:"currency"`
	ThumbnailURL    string             `json:"thumbnail_url"`
	Rating          float64            `json:"rating"`
	DurationMinutes int                `json:"duration_minutes"`
	EnrollmentCount int                `json:"enrollment_count"`
	IsPublished     bool               `json:"is_published"`
	Instructor      *models.UserMini   `json:"instructor,omitempty"`
}

func summarizeCourse(c models.Course) CourseSummary {
	return CourseSummary{
		ID:              c.ID,
		Title:           c.Title,
		Category:        c.Category,
		Level:           c.Level,
		Price:           c.Price,
		Currency:        c.Currency,
		ThumbnailURL:    c.ThumbnailURL,
		Rating:          c.Rating,
		DurationMinutes: c.DurationMinutes,
		EnrollmentCount: c.EnrollmentCount,
		IsPublished:     c.IsPublished,
		Instructor:      c.Instructor.Mini(),
	}
}

type ClientDashboard struct {
	RecentProjects    []ProjectSummary `json:"recent_projects"`
	TotalProjects     int64            `json:"total_projects"`
	ActiveProjects    int64            `json:"active_projects"`
	CompletedProjects int64            `json:"completed_projects"`
	TotalSpent        int64            `json:"total_spent"`
}

type FreelancerDashboard struct {
	RecentProjects    []ProjectSummary `json:"recent_projects"`
	ActiveProjects    int64            `json:"active_projects"`
	CompletedProjects int64            `json:"completed_projects"`
	TotalEarned       int64            `json:"total_earned"`
	OpenProjects      []ProjectSummary `json:"open_projects"`
	Courses           []CourseSummary  `json:"courses"`
	ProposalsSent     int64            `json:"proposals_sent"`
}

type Certificate struct {
	CourseID    uuid.UUID `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	CompletedAt time.Time `json:"completed_at"`
}

type EnrolledCourse struct {
	EnrollmentID uuid.UUID     `json:"enrollment_id"`
	Progress     int           `json:"progress"`
	IsCompleted  bool          `json:"is_completed"`
	CompletedAt  *time.Time    `json:"completed_at"`
	EnrolledAt   time.Time     `json:"enrolled_at"`
	Course       CourseSummary `json:"course"`
}

type StudentDashboard struct {
	Enrollments      []EnrolledCourse `json:"enrollments"`
	CompletedCourses int64            `json:"completed_courses"`
	TotalMinutes     int64            `json:"total_minutes"`
	Recommended      []CourseSummary  `json:"recommended"`
	Certificates     []Certificate    `json:"certificates"`
}

type UserSummary struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

type StatusBucket struct {
	Status models.ProjectStatus `json:"status"`
	Count  int64                `json:"count"`
	Budget int64                `json:"budget"`
}

type CategoryBucket struct {
	Category    string `json:"category"`
	Count       int64  `json:"count"`
	Enrollments int64  `json:"enrollments"`
}

type AdminDashboard struct {
	TotalUsers        int64            `json:"total_users"`
	TotalProjects     int64            `json:"total_projects"`
	TotalCourses      int64            `json:"total_courses"`
	RecentUsers       []UserSummary    `json:"recent_users"`
	ProjectsByStatus  []StatusBucket   `json:"projects_by_status"`
	CoursesByCategory []CategoryBucket `json:"courses_by_category"`
}

func (*ClientDashboard) Role() models.Role     { return models.RoleClient }
func (*FreelancerDashboard) Role() models.Role { return models.RoleFreelancer }
func (*StudentDashboard) Role() models.Role    { return models.RoleStudent }
func (*AdminDashboard) Role() models.Role      { return models.RoleAdmin }

func (*ClientDashboard) sealed()     {}
func (*FreelancerDashboard) sealed() {}
func (*StudentDashboard) sealed()    {}
func (*AdminDashboard) sealed()      {}

// Match calls the function for d's variant. Every variant needs a function,
// so a new variant fails to compile until each caller handles it.
func Match[T any](
	d Dashboard,
	client func(*ClientDashboard) T,
	freelancer func(*FreelancerDashboard) T,
	student func(*StudentDashboard) T,
	admin func(*AdminDashboard) T,
) T {
	switch v := d.(type) {
	case *ClientDashboard:
		return client(v)
	case *FreelancerDashboard:
		return freelancer(v)
	case *StudentDashboard:
		return student(v)
	case *AdminDashboard:
		return admin(v)
	}
	panic(fmt.Sprintf("dashboard: unhandled variant %T", d))
}

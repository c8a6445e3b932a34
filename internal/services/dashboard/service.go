package dashboard

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/earnings"
)

const (
	recentProjectsLimit = 5
	openProjectsLimit   = 10
	authoredCourseLimit = 3
	recommendLimit      = 6
	recentUsersLimit    = 5
)

type Service struct {
	db       *gorm.DB
	earnings *earnings.EarningsService
}

func NewService(gdb *gorm.DB, earn *earnings.EarningsService) *Service {
	return &Service{db: gdb, earnings: earn}
}

// Build runs exactly one branch, chosen by the actor's verified role.
// Queries inside a branch run concurrently.
func (s *Service) Build(ctx context.Context, actor models.Actor) (Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	switch actor.Role {
	case models.RoleClient:
		d, err = s.client(ctx, actor.ID)
	case models.RoleFreelancer:
		d, err = s.freelancer(ctx, actor.ID)
	case models.RoleStudent:
		d, err = s.student(ctx, actor.ID)
	case models.RoleAdmin:
		d, err = s.admin(ctx)
	default:
		return nil, apperr.Forbidden("unknown role")
	}
	if err != nil {
		return nil, apperr.Internal("build dashboard", err)
	}
	return d, nil
}

func (s *Service) projects(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Project{})
}

func (s *Service) client(ctx context.Context, uid uuid.UUID) (*ClientDashboard, error) {
	out := &ClientDashboard{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var recent []models.Project
		err := s.db.WithContext(gctx).Preload("Freelancer").
			Where("client_id = ?", uid).
			Order("created_at DESC").Limit(recentProjectsLimit).
			Find(&recent).Error
		out.RecentProjects = summarizeProjects(recent)
		return err
	})
	g.Go(func() error {
		return s.projects(gctx).Where("client_id = ?", uid).Count(&out.TotalProjects).Error
	})
	g.Go(func() error {
		return s.projects(gctx).
			Where("client_id = ? AND status IN ?", uid, models.ActiveProjectStatuses).
			Count(&out.ActiveProjects).Error
	})
	g.Go(func() error {
		var row struct {
			Completed int64
			Spent     int64
		}
		err := s.projects(gctx).
			Select("COUNT(*) AS completed, COALESCE(SUM(total_paid), 0) AS spent").
			Where("client_id = ? AND status = ?", uid, models.ProjectCompleted).
			Scan(&row).Error
		out.CompletedProjects, out.TotalSpent = row.Completed, row.Spent
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) freelancer(ctx context.Context, uid uuid.UUID) (*FreelancerDashboard, error) {
	out := &FreelancerDashboard{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var recent []models.Project
		err := s.db.WithContext(gctx).Preload("Freelancer").
			Where("freelancer_id = ?", uid).
			Order("created_at DESC").Limit(recentProjectsLimit).
			Find(&recent).Error
		out.RecentProjects = summarizeProjects(recent)
		return err
	})
	g.Go(func() error {
		return s.projects(gctx).
			Where("freelancer_id = ? AND status IN ?", uid, models.ActiveProjectStatuses).
			Count(&out.ActiveProjects).Error
	})
	g.Go(func() error {
		var err error
		out.CompletedProjects, out.TotalEarned, err = s.earnings.Totals(s.db.WithContext(gctx), uid)
		return err
	})
	g.Go(func() error {
		open, err := s.openProjects(gctx)
		out.OpenProjects = open
		return err
	})
	g.Go(func() error {
		var courses []models.Course
		err := s.db.WithContext(gctx).
			Where("instructor_id = ?", uid).
			Order("created_at DESC").Limit(authoredCourseLimit).
			Find(&courses).Error
		out.Courses = summarizeCourses(courses)
		return err
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Proposal{}).
			Where("freelancer_id = ?", uid).
			Count(&out.ProposalsSent).Error
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// openProjects lists the newest unassigned OPEN projects with their live
// proposal counts.
func (s *Service) openProjects(ctx context.Context) ([]ProjectSummary, error) {
	var open []models.Project
	err := s.db.WithContext(ctx).
		Where("status = ? AND freelancer_id IS NULL", models.ProjectOpen).
		Order("created_at DESC").Limit(openProjectsLimit).
		Find(&open).Error
	if err != nil || len(open) == 0 {
		return []ProjectSummary{}, err
	}

	ids := make([]uuid.UUID, len(open))
	for i, p := range open {
		ids[i] = p.ID
	}
	var counts []struct {
		ProjectID uuid.UUID
		Total     int64
	}
	err = s.db.WithContext(ctx).Model(&models.Proposal{}).
		Select("project_id, COUNT(*) AS total").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byProject := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byProject[c.ProjectID] = c.Total
	}

	out := summarizeProjects(open)
	for i := range out {
		n := byProject[out[i].ID]
		out[i].ProposalCount = &n
	}
	return out, nil
}

func (s *Service) student(ctx context.Context, uid uuid.UUID) (*StudentDashboard, error) {
	out := &StudentDashboard{}
	var enrollments []models.Enrollment
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).
			Preload("Course").Preload("Course.Instructor").
			Where("user_id = ?", uid).
			Order("created_at DESC").
			Find(&enrollments).Error
	})
	g.Go(func() error {
		var recommended []models.Course
		enrolled := s.db.Model(&models.Enrollment{}).Select("course_id").Where("user_id = ?", uid)
		err := s.db.WithContext(gctx).Preload("Instructor").
			Where("is_published = ? AND instructor_id <> ?", true, uid).
			Where("id NOT IN (?)", enrolled).
			Order("rating DESC").Order("enrollment_count DESC").
			Limit(recommendLimit).
			Find(&recommended).Error
		out.Recommended = summarizeCourses(recommended)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Enrollments = make([]EnrolledCourse, 0, len(enrollments))
	out.Certificates = []Certificate{}
	for _, e := range enrollments {
		if e.Course == nil {
			continue
		}
		out.Enrollments = append(out.Enrollments, EnrolledCourse{
			EnrollmentID: e.ID,
			Progress:     e.Progress,
			IsCompleted:  e.IsCompleted,
			CompletedAt:  e.CompletedAt,
			EnrolledAt:   e.CreatedAt,
			Course:       summarizeCourse(*e.Course),
		})
		out.TotalMinutes += int64(e.Course.DurationMinutes)
		if !e.IsCompleted {
			continue
		}
		out.CompletedCourses++
		if e.Course.HasCertificate && e.CompletedAt != nil {
			out.Certificates = append(out.Certificates, Certificate{
				CourseID:    e.CourseID,
				CourseTitle: e.Course.Title,
				CompletedAt: *e.CompletedAt,
			})
		}
	}
	return out, nil
}

func (s *Service) admin(ctx context.Context) (*AdminDashboard, error) {
	out := &AdminDashboard{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.User{}).Count(&out.TotalUsers).Error
	})
	g.Go(func() error {
		return s.projects(gctx).Count(&out.TotalProjects).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Course{}).Count(&out.TotalCourses).Error
	})
	g.Go(func() error {
		var users []models.User
		err := s.db.WithContext(gctx).Order("created_at DESC").Limit(recentUsersLimit).Find(&users).Error
		out.RecentUsers = make([]UserSummary, 0, len(users))
		for _, u := range users {
			out.RecentUsers = append(out.RecentUsers, UserSummary{
				ID:        u.ID,
				Name:      u.FullName(),
				Email:     u.Email,
				Role:      u.Role,
				IsActive:  u.IsActive,
				CreatedAt: u.CreatedAt,
			})
		}
		return err
	})
	g.Go(func() error {
		out.ProjectsByStatus = []StatusBucket{}
		return s.projects(gctx).
			Select("status, COUNT(*) AS count, COALESCE(SUM(budget_amount), 0) AS budget").
			Group("status").Order("status").
			Scan(&out.ProjectsByStatus).Error
	})
	g.Go(func() error {
		out.CoursesByCategory = []CategoryBucket{}
		return s.db.WithContext(gctx).Model(&models.Course{}).
			Select("category, COUNT(*) AS count, COALESCE(SUM(enrollment_count), 0) AS enrollments").
			Group("category").Order("category").
			Scan(&out.CoursesByCategory).Error
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func summarizeProjects(in []models.Project) []ProjectSummary {
	out := make([]ProjectSummary, 0, len(in))
	for _, p := range in {
		out = append(out, summarizeProject(p))
	}
	return out
}

func summarizeCourses(in []models.Course) []CourseSummary {
	out := make([]CourseSummary, 0, len(in))
	for _, c := range in {
		out = append(out, summarizeCourse(c))
	}
	return out
}

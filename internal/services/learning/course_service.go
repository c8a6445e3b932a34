package learning

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
)

type Service struct {
	db *gorm.DB
}

func NewService(gdb *gorm.DB) *Service {
	return &Service{db: gdb}
}

type LessonInput struct {
	Title           string `json:"title" validate:"required,max=200"`
	Content         string `json:"content"`
	VideoURL        string `json:"video_url" validate:"omitempty,url"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0,lte=1440"`
	Order           int    `json:"order" validate:"gte=0"`
}

type CourseInput struct {
	Title          string        `json:"title" validate:"required,min=5,max=200"`
	Description    string        `json:"description" validate:"required,min=20"`
	Category       string        `json:"category" validate:"required,max=80"`
	Level          string        `json:"level" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Price          int64         `json:"price" validate:"gte=0"`
	Currency       string        `json:"currency" validate:"required,len=3"`
	ThumbnailURL   string        `json:"thumbnail_url" validate:"omitempty,url"`
	IsPublished    bool          `json:"is_published"`
	HasCertificate bool          `json:"has_certificate"`
	Capacity       *int          `json:"capacity" validate:"omitempty,gte=1"`
	Lessons        []LessonInput `json:"lessons" validate:"max=200,dive"`
}

// CoursePatch edits a course. Capacity 0 removes the limit.
type CoursePatch struct {
	Title          *string        `json:"title" validate:"omitempty,min=5,max=200"`
	Description    *string        `json:"description" validate:"omitempty,min=20"`
	Category       *string        `json:"category" validate:"omitempty,max=80"`
	Level          *string        `json:"level" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Price          *int64         `json:"price" validate:"omitempty,gte=0"`
	Currency       *string        `json:"currency" validate:"omitempty,len=3"`
	ThumbnailURL   *string        `json:"thumbnail_url" validate:"omitempty,url"`
	IsPublished    *bool          `json:"is_published"`
	HasCertificate *bool          `json:"has_certificate"`
	Capacity       *int           `json:"capacity" validate:"omitempty,gte=0"`
	Lessons        *[]LessonInput `json:"lessons" validate:"omitempty,max=200,dive"`
}

type CourseFilter struct {
	Query    string
	Category string
	Level    string
	Sort     string
	Paging   utils.Paging
}

func toLessons(in []LessonInput) datatypes.JSONSlice[models.Lesson] {
	out := make([]models.Lesson, 0, len(in))
	for _, l := range in {
		out = append(out, models.Lesson{
			Title:           strings.TrimSpace(l.Title),
			Content:         l.Content,
			VideoURL:        l.VideoURL,
			DurationMinutes: l.DurationMinutes,
			Order:           l.Order,
		})
	}
	return datatypes.JSONSlice[models.Lesson](out)
}

func (s *Service) CreateCourse(ctx context.Context, actor models.Actor, in CourseInput) (*models.Course, error) {
	if actor.Role != models.RoleFreelancer && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only freelancers can publish courses")
	}
	id := uuid.New()
	c := &models.Course{
		ID:             id,
		InstructorID:   actor.ID,
		Title:          strings.TrimSpace(in.Title),
		Slug:           slug.Make(in.Title) + "-" + id.String()[:8],
		Description:    strings.TrimSpace(in.Description),
		Category:       strings.ToLower(strings.TrimSpace(in.Category)),
		Level:          models.CourseLevel(in.Level),
		Price:          in.Price,
		Currency:       strings.ToUpper(in.Currency),
		ThumbnailURL:   in.ThumbnailURL,
		IsPublished:    in.IsPublished,
		HasCertificate: in.HasCertificate,
		Capacity:       in.Capacity,
		Lessons:        toLessons(in.Lessons),
	}
	c.NormalizeLessons()
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, db.Write(err, "create course", "course already exists")
	}
	return s.loadCourse(ctx, id)
}

func (s *Service) loadCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var c models.Course
	if err := s.db.WithContext(ctx).Preload("Instructor").First(&c, "id = ?", id).Error; err != nil {
		return nil, db.Lookup(err, "load course", "course not found")
	}
	return &c, nil
}

// GetPublishedCourse hides unpublished courses behind a not-found.
func (s *Service) GetPublishedCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var c models.Course
	err := s.db.WithContext(ctx).Preload("Instructor").
		First(&c, "id = ? AND is_published = ?", id, true).Error
	if err != nil {
		return nil, db.Lookup(err, "load course", "course not found")
	}
	return &c, nil
}

func (s *Service) ListPublishedCourses(ctx context.Context, f CourseFilter) ([]models.Course, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Course{}).Where("is_published = ?", true)
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", strings.ToLower(f.Category))
	}
	if f.Level != "" {
		q = q.Where("level = ?", strings.ToUpper(f.Level))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count courses", err)
	}

	switch f.Sort {
	case "latest":
		q = q.Order("created_at DESC")
	case "price":
		q = q.Order("price ASC")
	default:
		q = q.Order("rating DESC").Order("enrollment_count DESC")
	}

	var items []models.Course
	if err := q.Preload("Instructor").Offset(f.Paging.Offset()).Limit(f.Paging.Limit).Find(&items).Error; err != nil {
		return nil, 0, apperr.Internal("list courses", err)
	}
	return items, total, nil
}

// ListTeaching returns the actor's own courses, drafts included.
func (s *Service) ListTeaching(ctx context.Context, actor models.Actor) ([]models.Course, error) {
	var items []models.Course
	err := s.db.WithContext(ctx).Where("instructor_id = ?", actor.ID).Order("created_at DESC").Find(&items).Error
	if err != nil {
		return nil, apperr.Internal("list teaching courses", err)
	}
	return items, nil
}

func (s *Service) UpdateCourse(ctx context.Context, actor models.Actor, id uuid.UUID, in CoursePatch) (*models.Course, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Course
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return db.Lookup(err, "load course", "course not found")
		}
		if !actor.Owns(c.InstructorID) {
			return apperr.Forbidden("only the instructor can edit this course")
		}

		updates := map[string]any{}
		if in.Title != nil {
			updates["title"] = strings.TrimSpace(*in.Title)
			updates["slug"] = slug.Make(*in.Title) + "-" + c.ID.String()[:8]
		}
		if in.Description != nil {
			updates["description"] = strings.TrimSpace(*in.Description)
		}
		if in.Category != nil {
			updates["category"] = strings.ToLower(strings.TrimSpace(*in.Category))
		}
		if in.Level != nil {
			updates["level"] = *in.Level
		}
		if in.Price != nil {
			updates["price"] = *in.Price
		}
		if in.Currency != nil {
			updates["currency"] = strings.ToUpper(*in.Currency)
		}
		if in.ThumbnailURL != nil {
			updates["thumbnail_url"] = *in.ThumbnailURL
		}
		if in.IsPublished != nil {
			updates["is_published"] = *in.IsPublished
		}
		if in.HasCertificate != nil {
			updates["has_certificate"] = *in.HasCertificate
		}
		if in.Capacity != nil {
			switch {
			case *in.Capacity == 0:
				updates["capacity"] = nil
			case *in.Capacity < c.EnrollmentCount:
				return apperr.Conflict("capacity is below the current number of enrollments")
			default:
				updates["capacity"] = *in.Capacity
			}
		}
		if in.Lessons != nil {
			c.Lessons = toLessons(*in.Lessons)
			c.NormalizeLessons()
			updates["lessons"] = c.Lessons
			updates["duration_minutes"] = c.DurationMinutes
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Course{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
			return apperr.Internal("update course", err)
		}
		return nil
	})
	if err != nil {
		return nil, db.Wrap(err, "update course")
	}
	return s.loadCourse(ctx, id)
}

// DeleteCourse removes the course and every enrollment in it.
func (s *Service) DeleteCourse(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Course
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return db.Lookup(err, "load course", "course not found")
		}
		if !actor.Owns(c.InstructorID) {
			return apperr.Forbidden("only the instructor can delete this course")
		}
		if err := tx.Where("course_id = ?", c.ID).Delete(&models.Enrollment{}).Error; err != nil {
			return apperr.Internal("delete enrollments", err)
		}
		if err := tx.Delete(&models.Course{}, "id = ?", c.ID).Error; err != nil {
			return apperr.Internal("delete course", err)
		}
		return nil
	})
	return db.Wrap(err, "delete course")
}

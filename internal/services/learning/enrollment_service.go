package learning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

const alreadyEnrolled = "already enrolled in this course"

// Enroll takes a seat in a published course. The seat is reserved with a
// conditional counter update, so concurrent requests cannot overfill a
// capped course.
func (s *Service) Enroll(ctx context.Context, actor models.Actor, courseID uuid.UUID) (*models.Enrollment, error) {
	var created models.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Course
		if err := tx.First(&c, "id = ? AND is_published = ?", courseID, true).Error; err != nil {
			return db.Lookup(err, "load course", "course not found")
		}
		if c.InstructorID == actor.ID {
			return apperr.Forbidden("instructors cannot enroll in their own course")
		}

		var existing int64
		if err := tx.Model(&models.Enrollment{}).
			Where("user_id = ? AND course_id = ?", actor.ID, courseID).
			Count(&existing).Error; err != nil {
			return apperr.Internal("check enrollment", err)
		}
		if existing > 0 {
			return apperr.Conflict(alreadyEnrolled)
		}

		res := tx.Model(&models.Course{}).
			Where("id = ? AND (capacity IS NULL OR enrollment_count < capacity)", courseID).
			UpdateColumn("enrollment_count", gorm.Expr("enrollment_count + 1"))
		if res.Error != nil {
			return apperr.Internal("reserve seat", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("course is full")
		}

		created = models.Enrollment{UserID: actor.ID, CourseID: courseID}
		if err := tx.Create(&created).Error; err != nil {
			return db.Write(err, "create enrollment", alreadyEnrolled)
		}
		return nil
	})
	if err != nil {
		return nil, db.Wrap(err, "enroll")
	}
	return s.loadEnrollment(ctx, created.ID)
}

func (s *Service) loadEnrollment(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	var e models.Enrollment
	err := s.db.WithContext(ctx).Preload("Course").Preload("Course.Instructor").First(&e, "id = ?", id).Error
	if err != nil {
		return nil, db.Lookup(err, "load enrollment", "enrollment not found")
	}
	return &e, nil
}

// Unenroll deletes the enrollment and releases its seat.
func (s *Service) Unenroll(ctx context.Context, actor models.Actor, courseID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND course_id = ?", actor.ID, courseID).Delete(&models.Enrollment{})
		if res.Error != nil {
			return apperr.Internal("delete enrollment", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("not enrolled in this course")
		}
		err := tx.Model(&models.Course{}).Where("id = ?", courseID).
			UpdateColumn("enrollment_count", gorm.Expr("CASE WHEN enrollment_count > 0 THEN enrollment_count - 1 ELSE 0 END")).Error
		if err != nil {
			return apperr.Internal("release seat", err)
		}
		return nil
	})
	return db.Wrap(err, "unenroll")
}

// UpdateProgress stores lesson progress; reaching 100 completes the course.
// Completion is never revoked.
func (s *Service) UpdateProgress(ctx context.Context, actor models.Actor, courseID uuid.UUID, progress int) (*models.Enrollment, error) {
	if progress < 0 || progress > 100 {
		return nil, apperr.Field("progress", "must be between 0 and 100")
	}
	var id uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.Enrollment
		if err := tx.First(&e, "user_id = ? AND course_id = ?", actor.ID, courseID).Error; err != nil {
			return db.Lookup(err, "load enrollment", "not enrolled in this course")
		}
		id = e.ID
		updates := map[string]any{"progress": progress}
		if progress == 100 && !e.IsCompleted {
			updates["is_completed"] = true
			updates["completed_at"] = time.Now()
		}
		if err := tx.Model(&models.Enrollment{}).Where("id = ?", e.ID).Updates(updates).Error; err != nil {
			return apperr.Internal("update progress", err)
		}
		return nil
	})
	if err != nil {
		return nil, db.Wrap(err, "update progress")
	}
	return s.loadEnrollment(ctx, id)
}

func (s *Service) ListMyEnrollments(ctx context.Context, actor models.Actor) ([]models.Enrollment, error) {
	var items []models.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").Preload("Course.Instructor").
		Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, apperr.Internal("list enrollments", err)
	}
	return items, nil
}

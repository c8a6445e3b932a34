package marketplace

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
)

type Service struct {
	db       *gorm.DB
	earnings *earnings.EarningsService
}

func NewService(gdb *gorm.DB, earn *earnings.EarningsService) *Service {
	return &Service{db: gdb, earnings: earn}
}

type ProjectInput struct {
	Title        string     `json:"title" validate:"required,min=5,max=200"`
	Description  string     `json:"description" validate:"required,min=20"`
	Category     string     `json:"category" validate:"required,max=80"`
	Skills       []string   `json:"skills" validate:"max=20,dive,required,max=40"`
	BudgetType   string     `json:"budget_type" validate:"required,oneof=FIXED HOURLY"`
	BudgetAmount int64      `json:"budget_amount" validate:"gt=0"`
	Currency     string     `json:"currency" validate:"required,len=3"`
	Deadline     *time.Time `json:"deadline"`
	Status       string     `json:"status" validate:"omitempty,oneof=DRAFT OPEN"`
}

type ProjectPatch struct {
	Title        *string    `json:"title" validate:"omitempty,min=5,max=200"`
	Description  *string    `json:"description" validate:"omitempty,min=20"`
	Category     *string    `json:"category" validate:"omitempty,max=80"`
	Skills       *[]string  `json:"skills" validate:"omitempty,max=20,dive,required,max=40"`
	BudgetType   *string    `json:"budget_type" validate:"omitempty,oneof=FIXED HOURLY"`
	BudgetAmount *int64     `json:"budget_amount" validate:"omitempty,gt=0"`
	Currency     *string    `json:"currency" validate:"omitempty,len=3"`
	Deadline     *time.Time `json:"deadline"`
}

type ProjectFilter struct {
	Query    string
	Category string
	Min      int64
	Max      int64
	Sort     string
	Paging   utils.Paging
}

// editableStatuses are the states in which the brief itself may change.
var editableStatuses = map[models.ProjectStatus]bool{
	models.ProjectDraft:  true,
	models.ProjectOpen:   true,
	models.ProjectPaused: true,
}

// lockedStatuses are the states in which a project can no longer be deleted.
var lockedStatuses = map[models.ProjectStatus]bool{
	models.ProjectInProgress: true,
	models.ProjectInReview:   true,
	models.ProjectCompleted:  true,
}

func makeSlug(title string, id uuid.UUID) string {
	return slug.Make(title) + "-" + id.String()[:8]
}

func (s *Service) CreateProject(ctx context.Context, actor models.Actor, in ProjectInput) (*models.Project, error) {
	if actor.Role != models.RoleClient && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only clients can post projects")
	}
	status := models.ProjectDraft
	if in.Status != "" {
		status = models.ProjectStatus(in.Status)
	}
	id := uuid.New()
	p := &models.Project{
		ID:           id,
		ClientID:     actor.ID,
		Title:        strings.TrimSpace(in.Title),
		Slug:         makeSlug(in.Title, id),
		Description:  strings.TrimSpace(in.Description),
		Category:     strings.ToLower(strings.TrimSpace(in.Category)),
		Skills:       datatypes.JSONSlice[string](normalizeSkills(in.Skills)),
		Status:       status,
		BudgetType:   models.BudgetType(in.BudgetType),
		BudgetAmount: in.BudgetAmount,
		Currency:     strings.ToUpper(in.Currency),
		Deadline:     in.Deadline,
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, db.Write(err, "create project", "project already exists")
	}
	return s.loadProject(ctx, s.db, id)
}

func (s *Service) loadProject(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := tx.WithContext(ctx).Preload("Client").Preload("Freelancer").First(&p, "id = ?", id).Error
	if err != nil {
		return nil, db.Lookup(err, "load project", "project not found")
	}
	return &p, nil
}

// GetPublicProject returns any non-draft project and counts the view.
func (s *Service) GetPublicProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	res := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND status <> ?", id, models.ProjectDraft).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return nil, apperr.Internal("count project view", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("project not found")
	}
	return s.loadProject(ctx, s.db, id)
}

// ListOpenProjects is the public marketplace listing; only OPEN projects appear.
func (s *Service) ListOpenProjects(ctx context.Context, f ProjectFilter) ([]models.Project, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Project{}).Where("status = ?", models.ProjectOpen)
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", strings.ToLower(f.Category))
	}
	if f.Min > 0 {
		q = q.Where("budget_amount >= ?", f.Min)
	}
	if f.Max > 0 {
		q = q.Where("budget_amount <= ?", f.Max)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count projects", err)
	}

	switch f.Sort {
	case "budget_high":
		q = q.Order("budget_amount DESC")
	case "budget_low":
		q = q.Order("budget_amount ASC")
	default:
		q = q.Order("created_at DESC")
	}

	var items []models.Project
	if err := q.Preload("Client").Offset(f.Paging.Offset()).Limit(f.Paging.Limit).Find(&items).Error; err != nil {
		return nil, 0, apperr.Internal("list projects", err)
	}
	return items, total, nil
}

// ListMyProjects returns everything the actor owns or is assigned to, any status.
func (s *Service) ListMyProjects(ctx context.Context, actor models.Actor, status string) ([]models.Project, error) {
	q := s.db.WithContext(ctx).
		Where("client_id = ? OR freelancer_id = ?", actor.ID, actor.ID)
	if status != "" {
		q = q.Where("status = ?", strings.ToUpper(status))
	}
	var items []models.Project
	if err := q.Preload("Client").Preload("Freelancer").Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, apperr.Internal("list my projects", err)
	}
	return items, nil
}

func (s *Service) UpdateProject(ctx context.Context, actor models.Actor, id uuid.UUID, in ProjectPatch) (*models.Project, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return db.Lookup(err, "load project", "project not found")
		}
		if !actor.Owns(p.ClientID) {
			return apperr.Forbidden("only the project owner can edit it")
		}
		if !editableStatuses[p.Status] {
			return apperr.Conflict("project can no longer be edited")
		}

		updates := map[string]any{}
		if in.Title != nil {
			updates["title"] = strings.TrimSpace(*in.Title)
			updates["slug"] = makeSlug(*in.Title, p.ID)
		}
		if in.Description != nil {
			updates["description"] = strings.TrimSpace(*in.Description)
		}
		if in.Category != nil {
			updates["category"] = strings.ToLower(strings.TrimSpace(*in.Category))
		}
		if in.Skills != nil {
			updates["skills"] = datatypes.JSONSlice[string](normalizeSkills(*in.Skills))
		}
		if in.BudgetType != nil {
			updates["budget_type"] = *in.BudgetType
		}
		if in.BudgetAmount != nil {
			updates["budget_amount"] = *in.BudgetAmount
		}
		if in.Currency != nil {
			updates["currency"] = strings.ToUpper(*in.Currency)
		}
		if in.Deadline != nil {
			updates["deadline"] = *in.Deadline
		}
		if len(updates) == 0 {
			return nil
		}
		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", p.ID, p.Status).
			Updates(updates)
		if res.Error != nil {
			return apperr.Internal("update project", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("project changed, retry")
		}
		return nil
	})
	if err != nil {
		return nil, db.Wrap(err, "update project")
	}
	return s.loadProject(ctx, s.db, id)
}

// DeleteProject removes a project that no work has started on, together
// with its proposals.
func (s *Service) DeleteProject(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return db.Lookup(err, "load project", "project not found")
		}
		if !actor.Owns(p.ClientID) {
			return apperr.Forbidden("only the project owner can delete it")
		}
		if lockedStatuses[p.Status] {
			return apperr.Conflict("project with assigned work cannot be deleted")
		}
		if err := tx.Model(&models.Message{}).Where("project_id = ?", p.ID).
			UpdateColumn("project_id", nil).Error; err != nil {
			return apperr.Internal("detach messages", err)
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Proposal{}).Error; err != nil {
			return apperr.Internal("delete proposals", err)
		}
		res := tx.Where("id = ? AND status = ?", p.ID, p.Status).Delete(&models.Project{})
		if res.Error != nil {
			return apperr.Internal("delete project", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("project changed, retry")
		}
		return nil
	})
	return db.Wrap(err, "delete project")
}

func normalizeSkills(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

package marketplace

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

type ProposalInput struct {
	CoverLetter   string `json:"cover_letter" validate:"required,min=20,max=5000"`
	BidAmount     int64  `json:"bid_amount" validate:"gt=0"`
	EstimatedDays int    `json:"estimated_days" validate:"gte=1,lte=365"`
}

// SubmitProposal records a freelancer's bid on an OPEN project and bumps
// the project's applicant counter in the same transaction.
func (s *Service) SubmitProposal(ctx context.Context, actor models.Actor, projectID uuid.UUID, in ProposalInput) (*models.Proposal, error) {
	if actor.Role != models.RoleFreelancer {
		return nil, apperr.Forbidden("only freelancers can submit proposals")
	}
	var created models.Proposal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, "id = ?", projectID).Error; err != nil {
			return db.Lookup(err, "load project", "project not found")
		}
		if p.Status != models.ProjectOpen {
			return apperr.Conflict("project is not accepting proposals")
		}

		var existing int64
		if err := tx.Model(&models.Proposal{}).
			Where("project_id = ? AND freelancer_id = ?", projectID, actor.ID).
			Count(&existing).Error; err != nil {
			return apperr.Internal("check existing proposal", err)
		}
		if existing > 0 {
			return apperr.Conflict("you have already submitted a proposal for this project")
		}

		created = models.Proposal{
			ProjectID:     projectID,
			FreelancerID:  actor.ID,
			CoverLetter:   strings.TrimSpace(in.CoverLetter),
			BidAmount:     in.BidAmount,
			EstimatedDays: in.EstimatedDays,
			Status:        models.ProposalPending,
		}
		if err := tx.Create(&created).Error; err != nil {
			return db.Write(err, "create proposal", "you have already submitted a proposal for this project")
		}

		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", projectID, models.ProjectOpen).
			UpdateColumn("applicant_count", gorm.Expr("applicant_count + 1"))
		if res.Error != nil {
			return apperr.Internal("count applicant", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("project is not accepting proposals")
		}
		return nil
	})
	if err != nil {
		return nil, db.Wrap(err, "submit proposal")
	}
	return s.loadProposal(ctx, created.ID)
}

func (s *Service) loadProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var pr models.Proposal
	err := s.db.WithContext(ctx).Preload("Freelancer").Preload("Project").First(&pr, "id = ?", id).Error
	if err != nil {
		return nil, db.Lookup(err, "load proposal", "proposal not found")
	}
	return &pr, nil
}

// ListProposals shows the owner (or an admin) every bid on the project and
// a freelancer only their own.
func (s *Service) ListProposals(ctx context.Context, actor models.Actor, projectID uuid.UUID) ([]models.Proposal, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).First(&p, "id = ?", projectID).Error; err != nil {
		return nil, db.Lookup(err, "load project", "project not found")
	}
	q := s.db.WithContext(ctx).Preload("Freelancer").Where("project_id = ?", projectID)
	switch {
	case actor.Owns(p.ClientID):
	case actor.Role == models.RoleFreelancer:
		q = q.Where("freelancer_id = ?", actor.ID)
	default:
		return nil, apperr.Forbidden("only the project owner can view proposals")
	}
	var items []models.Proposal
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, apperr.Internal("list proposals", err)
	}
	return items, nil
}

func (s *Service) ListMyProposals(ctx context.Context, actor models.Actor) ([]models.Proposal, error) {
	var items []models.Proposal
	err := s.db.WithContext(ctx).
		Preload("Project").Preload("Project.Client").
		Where("freelancer_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, apperr.Internal("list my proposals", err)
	}
	return items, nil
}

// DecideProposal applies an owner's accept/reject or a freelancer's withdraw.
// Accepting assigns the freelancer, starts the project and rejects every
// other pending bid in one transaction.
func (s *Service) DecideProposal(ctx context.Context, actor models.Actor, projectID, proposalID uuid.UUID, to models.ProposalStatus) (*models.Proposal, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, "id = ?", projectID).Error; err != nil {
			return db.Lookup(err, "load project", "project not found")
		}
		var pr models.Proposal
		if err := tx.First(&pr, "id = ? AND project_id = ?", proposalID, projectID).Error; err != nil {
			return db.Lookup(err, "load proposal", "proposal not found")
		}

		switch to {
		case models.ProposalAccepted, models.ProposalRejected:
			if !actor.Owns(p.ClientID) {
				return apperr.Forbidden("only the project owner can decide on proposals")
			}
		case models.ProposalWithdrawn:
			if pr.FreelancerID != actor.ID {
				return apperr.Forbidden("only the proposing freelancer can withdraw")
			}
		default:
			return apperr.Field("status", "must be one of: ACCEPTED, REJECTED, WITHDRAWN")
		}
		if pr.Status != models.ProposalPending {
			return apperr.Conflict("proposal has already been decided")
		}

		res := tx.Model(&models.Proposal{}).
			Where("id = ? AND status = ?", pr.ID, models.ProposalPending).
			Update("status", to)
		if res.Error != nil {
			return apperr.Internal("update proposal", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("proposal has already been decided")
		}
		if to != models.ProposalAccepted {
			return nil
		}

		if p.Status != models.ProjectOpen || p.FreelancerID != nil {
			return apperr.Conflict("project is not open for hiring")
		}
		res = tx.Model(&models.Project{}).
			Where("id = ? AND status = ? AND freelancer_id IS NULL", p.ID, models.ProjectOpen).
			Updates(map[string]any{
				"freelancer_id": pr.FreelancerID,
				"status":        models.ProjectInProgress,
			})
		if res.Error != nil {
			return apperr.Internal("assign freelancer", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("project is not open for hiring")
		}
		if err := tx.Model(&models.Proposal{}).
			Where("project_id = ? AND id <> ? AND status = ?", p.ID, pr.ID, models.ProposalPending).
			Update("status", models.ProposalRejected).Error; err != nil {
			return apperr.Internal("reject other proposals", err)
		}
		return nil
	})
	if err != nil {
		return nil, db.Wrap(err, "decide proposal")
	}
	return s.loadProposal(ctx, proposalID)
}

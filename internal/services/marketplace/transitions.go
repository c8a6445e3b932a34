package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

type mover int

const (
	byOwner mover = iota
	byFreelancer
)

// transitions lists every allowed status change and who may make it.
// OPEN to IN_PROGRESS is missing on purpose: only accepting a proposal does that.
var transitions = map[models.ProjectStatus]map[models.ProjectStatus]mover{
	models.ProjectDraft: {
		models.ProjectOpen:      byOwner,
		models.ProjectCancelled: byOwner,
	},
	models.ProjectOpen: {
		models.ProjectPaused:    byOwner,
		models.ProjectCancelled: byOwner,
	},
	models.ProjectPaused: {
		models.ProjectOpen:      byOwner,
		models.ProjectCancelled: byOwner,
	},
	models.ProjectInProgress: {
		models.ProjectInReview:  byFreelancer,
		models.ProjectCancelled: byOwner,
	},
	models.ProjectInReview: {
		models.ProjectCompleted:  byOwner,
		models.ProjectInProgress: byOwner,
	},
}

// CanTransition reports whether from -> to appears in the transition table.
func CanTransition(from, to models.ProjectStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// TransitionResult tells the caller what happened besides the status change.
type TransitionResult struct {
	Project   *models.Project
	Completed bool
	Paid      int64
}

func (s *Service) TransitionProject(ctx context.Context, actor models.Actor, id uuid.UUID, to models.ProjectStatus) (*TransitionResult, error) {
	result := &TransitionResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return db.Lookup(err, "load project", "project not found")
		}
		assigned := p.FreelancerID != nil && *p.FreelancerID == actor.ID
		if !actor.Owns(p.ClientID) && !assigned {
			return apperr.Forbidden("not a participant of this project")
		}
		if !CanTransition(p.Status, to) {
			return apperr.Conflict(fmt.Sprintf("cannot move project from %s to %s", p.Status, to))
		}
		switch transitions[p.Status][to] {
		case byOwner:
			if !actor.Owns(p.ClientID) {
				return apperr.Forbidden("only the project owner can do that")
			}
		case byFreelancer:
			if !assigned && !actor.IsAdmin() {
				return apperr.Forbidden("only the assigned freelancer can submit work for review")
			}
		}

		updates := map[string]any{"status": to}
		if to == models.ProjectCompleted {
			paid, err := agreedAmount(tx, &p)
			if err != nil {
				return err
			}
			now := time.Now()
			updates["total_paid"] = paid
			updates["completed_at"] = now
			result.Completed = true
			result.Paid = paid
		}

		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", p.ID, p.Status).
			Updates(updates)
		if res.Error != nil {
			return apperr.Internal("update project status", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("project changed, retry")
		}

		if to == models.ProjectCancelled {
			if err := tx.Model(&models.Proposal{}).
				Where("project_id = ? AND status = ?", p.ID, models.ProposalPending).
				Update("status", models.ProposalRejected).Error; err != nil {
				return apperr.Internal("reject pending proposals", err)
			}
		}
		if result.Completed && p.FreelancerID != nil {
			if err := s.earnings.CreditFreelancer(tx, *p.FreelancerID, result.Paid); err != nil {
				return apperr.Internal("credit freelancer", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, db.Wrap(err, "transition project")
	}
	p, err := s.loadProject(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	result.Project = p
	return result, nil
}

// agreedAmount is the accepted bid of the assigned freelancer, falling back
// to the posted budget.
func agreedAmount(tx *gorm.DB, p *models.Project) (int64, error) {
	if p.FreelancerID == nil {
		return p.BudgetAmount, nil
	}
	var accepted models.Proposal
	err := tx.Where("project_id = ? AND freelancer_id = ? AND status = ?", p.ID, *p.FreelancerID, models.ProposalAccepted).
		First(&accepted).Error
	switch {
	case err == nil:
		return accepted.BidAmount, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return p.BudgetAmount, nil
	default:
		return 0, apperr.Internal("load accepted proposal", err)
	}
}

package earnings

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

type EarningsService struct{}

func NewEarningsService() *EarningsService {
	return &EarningsService{}
}

// CreditFreelancer records a completed, paid project on the freelancer's
// stats. It must run inside the transaction that completes the project.
func (s *EarningsService) CreditFreelancer(tx *gorm.DB, freelancerID uuid.UUID, amount int64) error {
	if amount < 0 {
		return errors.New("amount to credit must not be negative")
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", freelancerID).
		Updates(map[string]any{
			"completed_projects": gorm.Expr("completed_projects + 1"),
			"total_earned":       gorm.Expr("total_earned + ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("freelancer %s not found", freelancerID)
	}
	return nil
}

// Totals sums what a freelancer has been paid for completed projects,
// straight from the projects table.
func (s *EarningsService) Totals(db *gorm.DB, freelancerID uuid.UUID) (completed int64, earned int64, err error) {
	var row struct {
		Completed int64
		Earned    int64
	}
	err = db.Model(&models.Project{}).
		Select("COUNT(*) AS completed, COALESCE(SUM(total_paid), 0) AS earned").
		Where("freelancer_id = ? AND status = ?", freelancerID, models.ProjectCompleted).
		Scan(&row).Error
	return row.Completed, row.Earned, err
}

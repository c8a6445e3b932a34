package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

// Accounts answers account-state questions for the session layer.
type Accounts struct {
	DB *gorm.DB
}

func (a Accounts) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	var u models.User
	err := a.DB.WithContext(ctx).Select("id", "is_active").First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsActive, nil
}

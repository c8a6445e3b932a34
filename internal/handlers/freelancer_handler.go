package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

type FreelancerHandler struct {
	DB *gorm.DB
}

func NewFreelancerHandler(db *gorm.DB) *FreelancerHandler {
	return &FreelancerHandler{DB: db}
}

func (h *FreelancerHandler) freelancers(c *fiber.Ctx) *gorm.DB {
	return h.DB.WithContext(c.UserContext()).Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.RoleFreelancer, true)
}

// List is the public freelancer directory. Query: q, skill, availability,
// min_rating, page, limit. Best rated first.
func (h *FreelancerHandler) List(c *fiber.Ctx) error {
	paging := pagingFrom(c)
	q := h.freelancers(c)
	if term := strings.ToLower(strings.TrimSpace(c.Query("q"))); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(title) LIKE ?", like, like, like)
	}
	if skill := strings.ToLower(strings.TrimSpace(c.Query("skill"))); skill != "" {
		q = q.Where("LOWER(CAST(skills AS TEXT)) LIKE ?", `%"`+skill+`"%`)
	}
	if a := c.Query("availability"); a != "" {
		q = q.Where("availability = ?", strings.ToLower(a))
	}
	if r := c.QueryFloat("min_rating"); r > 0 {
		q = q.Where("rating >= ?", r)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return db.Wrap(err, "count freelancers")
	}
	var users []models.User
	if err := q.Order("rating DESC").Order("completed_projects DESC").
		Offset(paging.Offset()).Limit(paging.Limit).
		Find(&users).Error; err != nil {
		return db.Wrap(err, "list freelancers")
	}

	out := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return ok(c, paged(out, total, paging))
}

// Get returns a freelancer's public profile with the courses they teach.
func (h *FreelancerHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var u models.User
	if err := h.freelancers(c).First(&u, "id = ?", id).Error; err != nil {
		return db.Lookup(err, "load freelancer", "freelancer not found")
	}

	var courses []models.Course
	if err := h.DB.WithContext(c.UserContext()).
		Where("instructor_id = ? AND is_published = ?", u.ID, true).
		Order("rating DESC").
		Find(&courses).Error; err != nil {
		return db.Wrap(err, "list freelancer courses")
	}

	return ok(c, fiber.Map{
		"profile":   u.Public(),
		"courses":   viewCourses(courses),
		"joined_at": u.CreatedAt,
	})
}

type profilePatch struct {
	FirstName    *string   `json:"first_name" validate:"omitempty,min=1,max=80"`
	LastName     *string   `json:"last_name" validate:"omitempty,max=80"`
	AvatarURL    *string   `json:"avatar_url" validate:"omitempty,url"`
	Title        *string   `json:"title" validate:"omitempty,max=120"`
	Bio          *string   `json:"bio" validate:"omitempty,max=5000"`
	Skills       *[]string `json:"skills" validate:"omitempty,max=30,dive,required,max=40"`
	HourlyRate   *int64    `json:"hourly_rate" validate:"omitempty,gte=0"`
	Availability *string   `json:"availability" validate:"omitempty,oneof=available busy unavailable"`
	Location     *string   `json:"location" validate:"omitempty,max=120"`
}

// UpdateProfile patches the caller's own profile. Any role may edit the
// basic fields; marketplace fields are kept for freelancers only.
func (h *FreelancerHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var in profilePatch
	if err := bind(c, &in); err != nil {
		return err
	}

	updates := map[string]any{}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = *in.AvatarURL
	}
	if in.Title != nil {
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}
	if in.Location != nil {
		updates["location"] = strings.TrimSpace(*in.Location)
	}

	marketplaceFields := in.Skills != nil || in.HourlyRate != nil || in.Availability != nil
	if marketplaceFields && actor.Role != models.RoleFreelancer {
		return apperr.Forbidden("only freelancers have marketplace profiles")
	}
	if in.Skills != nil {
		updates["skills"] = datatypes.JSONSlice[string](normalizeTags(*in.Skills))
	}
	if in.HourlyRate != nil {
		updates["hourly_rate"] = *in.HourlyRate
	}
	if in.Availability != nil {
		updates["availability"] = models.Availability(*in.Availability)
	}

	tx := h.DB.WithContext(c.UserContext())
	if len(updates) > 0 {
		if err := tx.Model(&models.User{}).Where("id = ?", actor.ID).Updates(updates).Error; err != nil {
			return db.Wrap(err, "update profile")
		}
	}
	var u models.User
	if err := tx.First(&u, "id = ?", actor.ID).Error; err != nil {
		return db.Lookup(err, "load user", "user not found")
	}
	return ok(c, fiber.Map{"user": u.Summary(), "profile": u.Public()})
}

// normalizeTags lowercases, trims and de-duplicates while keeping order.
func normalizeTags(in []string) []string {
	seen := map[string]bool{}
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


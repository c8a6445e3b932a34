package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "BEGINNER"
	LevelIntermediate CourseLevel = "INTERMEDIATE"
	LevelAdvanced     CourseLevel = "ADVANCED"
)

// Lesson is stored inline on the course, ordered by Order.
type Lesson struct {
	Title           string `json:"title"`
	Content         string `json:"content,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Order           int    `json:"order"`
}

type Course struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InstructorID uuid.UUID `gorm:"type:uuid;index;not null" json:"instructor_id"`

	Title        string      `gorm:"type:varchar(200);not null" json:"title"`
	Slug         string      `gorm:"type:varchar(220);index" json:"slug"`
	Description  string      `gorm:"type:text" json:"description"`
	Category     string      `gorm:"type:varchar(80);index" json:"category"`
	Level        CourseLevel `gorm:"type:varchar(20);not null" json:"level"`
	Price        int64       `gorm:"not null" json:"price"`
	Currency     string      `gorm:"type:varchar(3);not null" json:"currency"`
	ThumbnailURL string      `gorm:"type:text" json:"thumbnail_url"`

	IsPublished    bool `gorm:"not null;index" json:"is_published"`
	HasCertificate bool `gorm:"not null" json:"has_certificate"`

	Lessons         datatypes.JSONSlice[Lesson] `json:"lessons"`
	DurationMinutes int                         `gorm:"not null;default:0" json:"duration_minutes"`

	// Capacity nil means unlimited.
	Capacity        *int    `json:"capacity"`
	EnrollmentCount int     `gorm:"not null;default:0" json:"enrollment_count"`
	Rating          float64 `gorm:"not null;default:0" json:"rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Instructor *User `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// NormalizeLessons sorts lessons by Order, renumbers them from 1 and
// recomputes the total duration.
func (c *Course) NormalizeLessons() {
	lessons := []Lesson(c.Lessons)
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	total := 0
	for i := range lessons {
		lessons[i].Order = i + 1
		total += lessons[i].DurationMinutes
	}
	c.Lessons = datatypes.JSONSlice[Lesson](lessons)
	c.DurationMinutes = total
}

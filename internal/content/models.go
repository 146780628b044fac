// Package content stores the marketing content (pranayama techniques, FAQ)
// in a local SQLite database, seeded from an embedded file at startup. Unlike
// user data, this content is owned by the application, not the hosted backend.
package content

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Technique is one pranayama breathing technique shown on the techniques page.
type Technique struct {
	BaseModel `yaml:"-"`

	Slug            string   `json:"slug" yaml:"slug" gorm:"uniqueIndex;not null"`
	Name            string   `json:"name" yaml:"name" gorm:"not null"`
	Sanskrit        string   `json:"sanskrit" yaml:"sanskrit"`
	Summary         string   `json:"summary" yaml:"summary" gorm:"type:text"`
	Description     string   `json:"description" yaml:"description" gorm:"type:text"`
	Difficulty      string   `json:"difficulty" yaml:"difficulty"` // beginner, intermediate, advanced
	DurationMinutes int      `json:"duration_minutes" yaml:"duration_minutes"`
	Steps           []string `json:"steps" yaml:"steps" gorm:"serializer:json"`
	Benefits        []string `json:"benefits" yaml:"benefits" gorm:"serializer:json"`
}

// FAQEntry is one question/answer pair on the FAQ page.
type FAQEntry struct {
	BaseModel `yaml:"-"`

	Question string `json:"question" yaml:"question" gorm:"type:text;not null"`
	Answer   string `json:"answer" yaml:"answer" gorm:"type:text;not null"`
	Category string `json:"category" yaml:"category"`
	Position int    `json:"position" yaml:"position" gorm:"not null;default:0"`
}

// AutoMigrate runs database migrations for all content models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Technique{},
		&FAQEntry{},
	)
}

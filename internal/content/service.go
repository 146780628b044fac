package content

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed.yaml
var seedData []byte

// Service serves the marketing content
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new content service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// ListTechniques returns all techniques ordered by difficulty then name.
func (s *Service) ListTechniques() ([]Technique, error) {
	var techniques []Technique
	if err := s.db.Order("difficulty ASC, name ASC").Find(&techniques).Error; err != nil {
		return nil, fmt.Errorf("failed to list techniques: %w", err)
	}
	return techniques, nil
}

// GetTechnique returns one technique by slug, or nil when it does not exist.
func (s *Service) GetTechnique(slug string) (*Technique, error) {
	var technique Technique
	if err := s.db.Where("slug = ?", slug).First(&technique).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load technique %s: %w", slug, err)
	}
	return &technique, nil
}

// ListFAQ returns all FAQ entries in display order.
func (s *Service) ListFAQ() ([]FAQEntry, error) {
	var entries []FAQEntry
	if err := s.db.Order("position ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list faq entries: %w", err)
	}
	return entries, nil
}

type seedFile struct {
	Techniques []Technique `yaml:"techniques"`
	FAQ        []FAQEntry  `yaml:"faq"`
}

// Seed loads the embedded content into an empty database. A database that
// already has techniques is left untouched.
func (s *Service) Seed() error {
	var count int64
	if err := s.db.Model(&Technique{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count techniques: %w", err)
	}
	if count > 0 {
		s.logger.Debug().Int64("techniques", count).Msg("Content already seeded")
		return nil
	}

	var seed seedFile
	if err := yaml.Unmarshal(seedData, &seed); err != nil {
		return fmt.Errorf("failed to parse content seed: %w", err)
	}

	for i := range seed.Techniques {
		if err := s.db.Create(&seed.Techniques[i]).Error; err != nil {
			return fmt.Errorf("failed to seed technique %s: %w", seed.Techniques[i].Slug, err)
		}
	}
	for i := range seed.FAQ {
		if err := s.db.Create(&seed.FAQ[i]).Error; err != nil {
			return fmt.Errorf("failed to seed faq entry: %w", err)
		}
	}

	s.logger.Info().
		Int("techniques", len(seed.Techniques)).
		Int("faq", len(seed.FAQ)).
		Msg("Content seeded")
	return nil
}

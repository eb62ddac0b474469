package model

import "time"

// Difficulty grades how hard a lure or lesson is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// IsValid checks if the difficulty is known.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

// PhishingTemplate is the message and landing page used by a campaign.
// Built-in templates have no creator.
type PhishingTemplate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	Body        string     `json:"body,omitempty"`
	SMSBody     string     `json:"sms_body,omitempty"`
	LandingURL  string     `json:"landing_url,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	Category    string     `json:"category,omitempty"`
	IsCustom    bool       `json:"is_custom"`
	CreatedBy   *string    `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// VisibleTo reports whether accountID may see and use the template.
func (t *PhishingTemplate) VisibleTo(accountID string) bool {
	if !t.IsCustom || t.CreatedBy == nil {
		return true
	}
	return *t.CreatedBy == accountID
}

// EducationalContent is a lesson in the awareness library.
type EducationalContent struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	Body        string     `json:"body"`
	Category    string     `json:"category,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	DurationMin int        `json:"duration_minutes"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ContentFilter narrows a content listing. Zero values match everything.
type ContentFilter struct {
	Difficulty Difficulty
	Category   string
}

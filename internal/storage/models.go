package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is one answered query.
type Interaction struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Query          string    `json:"query"`
	Classification string    `json:"classification"`
	Mode           string    `json:"mode"`
	ShortText      string    `json:"short_text"`
	FullText       string    `json:"full_text"`
	Sources        []string  `json:"sources"` // JSON array stored as text
	Truncated      bool      `json:"truncated"`
	FeedbackScore  int       `json:"feedback_score"`
	FeedbackNotes  string    `json:"feedback_notes"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Dataset is one imported experiment file.
type Dataset struct {
	ID           uuid.UUID `json:"id"`
	WorkspaceID  uuid.UUID `json:"workspace_id,omitempty"`
	Name         string    `json:"name"`
	Alternatives []string  `json:"alternatives"`
	SubjectCount int       `json:"subject_count"`
	ForcedChoice bool      `json:"forced_choice"`
	CreatedAt    time.Time `json:"created_at"`
}

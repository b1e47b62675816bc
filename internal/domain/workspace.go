package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workspace owns datasets and authenticates with a single API key.
type Workspace struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

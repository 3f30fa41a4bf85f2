package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is the credential record, distinct from the application-level profile.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

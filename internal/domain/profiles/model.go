package profiles

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleCentral Role = "central"
	RoleAdmin   Role = "admin"
)

// Rank orders roles for access checks. Unknown roles rank below staff.
func (r Role) Rank() int {
	switch r {
	case RoleStaff:
		return 1
	case RoleManager:
		return 2
	case RoleCentral:
		return 3
	case RoleAdmin:
		return 4
	default:
		return 0
	}
}

func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

func (r Role) Valid() bool {
	return r.Rank() > 0
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Profile struct {
	UserID         uuid.UUID
	FullName       string
	Phone          string
	Branch         string
	Role           Role
	Status         Status
	ApprovedBy     string
	ApprovedAt     *time.Time
	RejectedReason string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

package types

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bidmart-backend/pkg/enums"
)

// Actor is the authenticated caller passed explicitly into every core operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
	Name   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

func (a Actor) IsVendor() bool {
	return a.Role == enums.RoleVendor
}

// IsZero reports whether the actor carries no identity.
func (a Actor) IsZero() bool {
	return a.UserID == uuid.Nil
}

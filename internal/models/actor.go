package models

import "github.com/google/uuid"

// Actor is the verified caller a service operation runs on behalf of.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Owns reports whether the actor owns a resource or may act as if it did.
func (a Actor) Owns(ownerID uuid.UUID) bool {
	return a.IsAdmin() || a.ID == ownerID
}

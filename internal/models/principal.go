package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Role is the capability a principal acts with.
type Role string

const (
	RoleTenant     Role = "tenant"
	RoleLandlord   Role = "landlord"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
	RoleSystem     Role = "system"
)

// Valid reports whether r can be carried by an authenticated user.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleLandlord, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Principal is the authenticated actor behind a request.
type Principal struct {
	UserID    primitive.ObjectID
	Email     string
	Role      Role
	IPAddress string
	UserAgent string
}

// IsAdmin is true for admin and superadmin.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperAdmin
}

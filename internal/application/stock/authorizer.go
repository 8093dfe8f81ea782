package stock

import (
	"strings"
)

// Actor is the caller on whose behalf an operation runs. It is resolved by
// the transport layer and passed explicitly; services never read ambient
// session state.
type Actor struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the actor carries role
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Authorizer decides whether an actor may force lifecycle corrections
type Authorizer interface {
	CanForceCorrection(actor Actor) bool
}

// DefaultCorrectionRoles are allowed to force corrections when none are configured
var DefaultCorrectionRoles = []string{"admin", "inventory_manager"}

// RoleAuthorizer allows corrections for actors holding any configured role
type RoleAuthorizer struct {
	roles []string
}

// NewRoleAuthorizer creates a RoleAuthorizer
func NewRoleAuthorizer(roles []string) *RoleAuthorizer {
	if len(roles) == 0 {
		roles = DefaultCorrectionRoles
	}
	return &RoleAuthorizer{roles: roles}
}

// CanForceCorrection implements Authorizer
func (a *RoleAuthorizer) CanForceCorrection(actor Actor) bool {
	if strings.TrimSpace(actor.ID) == "" {
		return false
	}
	for _, r := range a.roles {
		if actor.HasRole(r) {
			return true
		}
	}
	return false
}

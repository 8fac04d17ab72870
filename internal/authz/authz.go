// Package authz holds the role checks shared by routes and services.
package authz

import (
	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/models"
)

// Authorize fails with an Authorization error unless caller holds one of roles.
func Authorize(caller *models.Person, roles ...models.Role) error {
	if caller == nil {
		return apperr.Authentication("not signed in")
	}
	if caller.Role.In(roles...) {
		return nil
	}
	return apperr.Authorization("forbidden for role " + string(caller.Role))
}

// SocietyScope returns the society the caller acts within. Super admins are
// unscoped and get "". Anyone else without a society is refused.
func SocietyScope(caller *models.Person) (string, error) {
	if caller == nil {
		return "", apperr.Authentication("not signed in")
	}
	if caller.Role == models.RoleSuperAdmin {
		return "", nil
	}
	if caller.Society() == "" {
		return "", apperr.Authorization("caller is not attached to a society")
	}
	return caller.Society(), nil
}

// InSociety reports whether the caller may act on a record of societyID.
func InSociety(caller *models.Person, societyID string) bool {
	if caller == nil {
		return false
	}
	if caller.Role == models.RoleSuperAdmin {
		return true
	}
	return caller.Society() != "" && caller.Society() == societyID
}

// CanAssignRole reports whether caller may grant role to someone.
// Society admins manage everything below themselves.
func CanAssignRole(caller *models.Person, role models.Role) bool {
	if caller == nil || !role.Valid() {
		return false
	}
	switch caller.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleSocietyAdmin:
		return !role.In(models.RoleSuperAdmin, models.RoleSocietyAdmin)
	}
	return false
}

package models

import "strings"

// Role is the single enumerated role carried by every Person.
type Role string

const (
	RoleSuperAdmin       Role = "SUPER_ADMIN"
	RoleSocietyAdmin     Role = "SOCIETY_ADMIN"
	RoleSocietySecretary Role = "SOCIETY_SECRETARY"
	RoleWatchman         Role = "WATCHMAN"
	RoleStaff            Role = "STAFF"
	RoleTechnician       Role = "TECHNICIAN"
	RoleHouseOwner       Role = "HOUSE_OWNER"
	RoleSocietyMember    Role = "SOCIETY_MEMBER"
	RoleTenant           Role = "TENANT"
	RoleResident         Role = "RESIDENT"
	RoleVisitor          Role = "VISITOR"
)

var allRoles = map[Role]struct{}{
	RoleSuperAdmin:       {},
	RoleSocietyAdmin:     {},
	RoleSocietySecretary: {},
	RoleWatchman:         {},
	RoleStaff:            {},
	RoleTechnician:       {},
	RoleHouseOwner:       {},
	RoleSocietyMember:    {},
	RoleTenant:           {},
	RoleResident:         {},
	RoleVisitor:          {},
}

// Role groups used by route gates and services.
var (
	AdminRoles     = []Role{RoleSuperAdmin, RoleSocietyAdmin}
	ManagerRoles   = []Role{RoleSuperAdmin, RoleSocietyAdmin, RoleSocietySecretary}
	GateRoles      = []Role{RoleWatchman, RoleSocietySecretary, RoleSocietyAdmin, RoleSuperAdmin}
	StaffRoles     = []Role{RoleStaff, RoleTechnician, RoleWatchman}
	ResidentRoles  = []Role{RoleHouseOwner, RoleSocietyMember, RoleTenant, RoleResident}
	SocietyMembers = []Role{
		RoleSocietyAdmin, RoleSocietySecretary, RoleWatchman, RoleStaff, RoleTechnician,
		RoleHouseOwner, RoleSocietyMember, RoleTenant, RoleResident,
	}
)

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := allRoles[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := allRoles[r]
	return ok
}

func (r Role) In(roles ...Role) bool {
	for _, x := range roles {
		if r == x {
			return true
		}
	}
	return false
}

func (r Role) IsStaff() bool    { return r.In(StaffRoles...) }
func (r Role) IsResident() bool { return r.In(ResidentRoles...) }

package authz

import "context"

// Role is one of the fixed actor roles. The set is defined by deployment,
// not editable through the application.
type Role string

// Platform roles.
const (
	RoleAdministrator  Role = "administrator"
	RoleProjectManager Role = "project_manager"
	RoleContractor     Role = "contractor"
	RoleFinanceOfficer Role = "finance_officer"
	RoleAuditor        Role = "auditor"
	RoleVendor         Role = "vendor"
)

// AllRoles lists the fixed role enumeration.
func AllRoles() []Role {
	return []Role{
		RoleAdministrator,
		RoleProjectManager,
		RoleContractor,
		RoleFinanceOfficer,
		RoleAuditor,
		RoleVendor,
	}
}

// ValidRole reports whether the value is part of the fixed enumeration.
func ValidRole(role Role) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// Identity describes the authenticated actor as seen by the resolver and
// the gate. Name and Email travel with it so audit entries can snapshot the
// actor at write time.
type Identity struct {
	ID    int64
	Name  string
	Email string
	Role  Role
}

// RolePolicyStore persists the default capability grant set per role.
// Get returns a map that is total over the registry: keys never granted are
// present with value false. Set is a full replace of the role's policy.
type RolePolicyStore interface {
	Get(ctx context.Context, role Role) (map[CapabilityKey]bool, error)
	Set(ctx context.Context, role Role, grants map[CapabilityKey]bool) error
}

// UserOverrideStore persists the sparse per-user exception map. A key absent
// from the map defers to the role policy; a present key wins outright.
// Set replaces the user's entire override map.
type UserOverrideStore interface {
	Get(ctx context.Context, userID int64) (map[CapabilityKey]bool, error)
	Set(ctx context.Context, userID int64, overrides map[CapabilityKey]bool) error
}

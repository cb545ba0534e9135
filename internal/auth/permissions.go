package auth

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermStatusRead    Permission = "status:read"
	PermSettingsWrite Permission = "settings:write"
	PermRoofSelect    Permission = "roof:select"
	PermOverrideWrite Permission = "override:write"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleObserver: {
		PermStatusRead,
	},
	RoleOperator: {
		PermStatusRead,
		PermSettingsWrite,
		PermRoofSelect,
		PermOverrideWrite,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

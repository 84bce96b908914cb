package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleResearcher = "researcher"
	RoleOperator   = "operator"
	RoleSuperAdmin = "super_admin"

	// RolePlatformOperator is a hidden internal role for platform staff
	// running telephony diagnostics. Never listed in tenant-facing role
	// enumerations.
	RolePlatformOperator = "platform_operator"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RolePlatformOperator }

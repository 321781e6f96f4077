package domain

// MembershipRole is the caller's role within an organization.
type MembershipRole string

const (
	RoleSuperAdmin MembershipRole = "SUPER_ADMIN"
	RoleOrgAdmin   MembershipRole = "ADMIN_AZIENDA"
	RoleUser       MembershipRole = "UTENTE"
)

// IsAdmin reports whether the role may triage tickets of its organization.
func (r MembershipRole) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleOrgAdmin
}

// Principal identifies the caller of an operation.
type Principal struct {
	UserID   string
	OrgID    string
	Role     MembershipRole
	FullName string
}

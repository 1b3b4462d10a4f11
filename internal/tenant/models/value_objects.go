package models

// Kind distinguishes shared tenants. A personal actor has no tenant row at all,
// so there is deliberately no "personal" kind.
type Kind string

const (
	KindHousehold    Kind = "household"
	KindOrganization Kind = "organization"
)

func (k Kind) IsValid() bool {
	return k == KindHousehold || k == KindOrganization
}

// Role is a member's authority within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// CanManage reports whether the role may mutate tenant-scoped configuration
// such as module installations and memberships.
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

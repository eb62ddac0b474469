package model

import "time"

// Role names seeded at bootstrap.
const (
	RoleAdmin  = "Admin"
	RoleMember = "Member"
	RoleUser   = "User"
)

// DefaultRole is assigned to every account at registration.
const DefaultRole = RoleUser

// Claim types carried on roles and in access tokens.
const (
	ClaimTypePermission = "permission"
	ClaimTypeRole       = "role"
)

// Role-derived permissions. They only ever exist as role claim values.
const (
	PermUserRead   = "user:read"
	PermUserUpdate = "user:update"
	PermUserDelete = "user:delete"
	PermUserCreate = "user:create"
)

// Tier-derived permissions. They come from the permission catalog, never from roles.
const (
	PermCampaignRead   = "campaign:read"
	PermCampaignCreate = "campaign:create"
	PermCampaignSMS    = "campaign:sms"
	PermContentRead    = "content:read"
	PermTemplateRead   = "template:read"
	PermTemplateCreate = "template:create"
	PermResultExport   = "result:export"
)

// Role is a named bundle of permission claims.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleDefinition is a role as declared in the seed table.
type RoleDefinition struct {
	Name        string
	Permissions []string
}

// SeedRoles lists the roles every deployment must have.
var SeedRoles = []RoleDefinition{
	{Name: RoleAdmin, Permissions: []string{PermUserRead, PermUserUpdate, PermUserDelete, PermUserCreate}},
	{Name: RoleMember, Permissions: []string{PermUserRead}},
	{Name: RoleUser, Permissions: nil},
}

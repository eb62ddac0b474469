package authz

import "sort"

// Principal is the authenticated caller as described by verified token claims.
// It is immutable once built.
type Principal struct {
	subject     string
	email       string
	roles       map[string]struct{}
	permissions map[string]struct{}
	claims      map[string][]string
}

// Identity carries the inputs for NewPrincipal. Extra holds any other claim
// types (issuer, audience, expiry) that should be reported back verbatim.
type Identity struct {
	Subject     string
	Email       string
	Roles       []string
	Permissions []string
	Extra       map[string][]string
}

// NewPrincipal builds a Principal from an Identity.
func NewPrincipal(id Identity) *Principal {
	p := &Principal{
		subject:     id.Subject,
		email:       id.Email,
		roles:       toSet(id.Roles),
		permissions: toSet(id.Permissions),
		claims:      make(map[string][]string, len(id.Extra)+4),
	}

	for k, v := range id.Extra {
		p.claims[k] = append([]string(nil), v...)
	}
	if id.Subject != "" {
		p.claims["sub"] = []string{id.Subject}
	}
	if id.Email != "" {
		p.claims["email"] = []string{id.Email}
	}
	if len(p.roles) > 0 {
		p.claims["role"] = sortedKeys(p.roles)
	}
	if len(p.permissions) > 0 {
		p.claims["permission"] = sortedKeys(p.permissions)
	}
	return p
}

// Subject returns the account id the token was issued to.
func (p *Principal) Subject() string {
	if p == nil {
		return ""
	}
	return p.subject
}

// Email returns the account email carried in the token.
func (p *Principal) Email() string {
	if p == nil {
		return ""
	}
	return p.email
}

// HasPermission reports whether the principal carries permission.
func (p *Principal) HasPermission(permission string) bool {
	if p == nil || permission == "" {
		return false
	}
	_, ok := p.permissions[permission]
	return ok
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role string) bool {
	if p == nil || role == "" {
		return false
	}
	_, ok := p.roles[role]
	return ok
}

// Roles returns the principal's roles, sorted.
func (p *Principal) Roles() []string {
	if p == nil {
		return []string{}
	}
	return sortedKeys(p.roles)
}

// Permissions returns the principal's permissions, sorted.
func (p *Principal) Permissions() []string {
	if p == nil {
		return []string{}
	}
	return sortedKeys(p.permissions)
}

// Claims returns a copy of all claims grouped by claim type.
func (p *Principal) Claims() map[string][]string {
	if p == nil {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(p.claims))
	for k, v := range p.claims {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package authz

import (
	"fmt"
	"strings"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Requirement is what an endpoint demands of a principal. The only
// implementations are PermissionSet and RoleRequirement.
type Requirement interface {
	fmt.Stringer
	requirement()
}

// PermissionSet is satisfied when the principal holds at least one of its permissions.
type PermissionSet struct {
	allowed []string
}

// AnyPermission builds a PermissionSet. An empty set is never satisfied.
func AnyPermission(permissions ...string) PermissionSet {
	return PermissionSet{allowed: append([]string(nil), permissions...)}
}

func (PermissionSet) requirement() {}

func (r PermissionSet) String() string {
	return "any-permission(" + strings.Join(r.allowed, ",") + ")"
}

// RoleRequirement is satisfied when the principal holds exactly the named role.
type RoleRequirement struct {
	name string
}

// RoleEquals builds a RoleRequirement.
func RoleEquals(name string) RoleRequirement {
	return RoleRequirement{name: name}
}

func (RoleRequirement) requirement() {}

func (r RoleRequirement) String() string {
	return "role(" + r.name + ")"
}

// Authorize evaluates req against p. There is no hierarchy: holding one
// permission or role never implies another. Anything unrecognized is denied.
func Authorize(p *Principal, req Requirement) Decision {
	if p == nil || req == nil {
		return Deny
	}

	switch r := req.(type) {
	case PermissionSet:
		for _, perm := range r.allowed {
			if p.HasPermission(perm) {
				return Allow
			}
		}
	case RoleRequirement:
		if p.HasRole(r.name) {
			return Allow
		}
	}
	return Deny
}

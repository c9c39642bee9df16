// Package authz derives what a caller may see and do from their role and home country.
package authz

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the caller's platform role as asserted by the identity provider.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

var (
	ErrUnknownRole    = errors.New("authz: unknown role")
	ErrMissingCountry = errors.New("authz: home country is required for this role")
	ErrForbidden      = errors.New("authz: forbidden")
)

// ParseRole normalises a role claim. Unrecognised values are rejected.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleManager, RoleMember:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// Filter is the storage-level row predicate. When All is set, callers must not add
// any country condition to their queries.
type Filter struct {
	All     bool
	Country string
}

// Matches evaluates the predicate against a row's country.
func (f Filter) Matches(country string) bool {
	return f.All || (f.Country != "" && f.Country == country)
}

// Scope is resolved once per request and handed down to the order core.
type Scope struct {
	Role        Role
	HomeCountry string
	CanRead     bool
	CanBuild    bool // create orders and mutate their lines
	CanSettle   bool // checkout and cancel
	Filter      Filter
}

// Resolve computes the scope for a role and home country. The role is
// normalised first; unrecognised roles are rejected.
func Resolve(role Role, homeCountry string) (Scope, error) {
	role, err := ParseRole(string(role))
	if err != nil {
		return Scope{}, err
	}
	country := strings.ToUpper(strings.TrimSpace(homeCountry))

	switch role {
	case RoleAdmin:
		return Scope{
			Role:        role,
			HomeCountry: country,
			CanRead:     true,
			CanBuild:    true,
			CanSettle:   true,
			Filter:      Filter{All: true},
		}, nil
	case RoleManager, RoleMember:
		if country == "" {
			return Scope{}, fmt.Errorf("%w (role %s)", ErrMissingCountry, role)
		}
		return Scope{
			Role:        role,
			HomeCountry: country,
			CanRead:     true,
			CanBuild:    true,
			CanSettle:   role == RoleManager,
			Filter:      Filter{Country: country},
		}, nil
	default:
		return Scope{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

// RequireBuild rejects callers that may not create or edit draft orders.
func (s Scope) RequireBuild() error {
	if !s.CanBuild {
		return fmt.Errorf("%w: role %s cannot modify orders", ErrForbidden, s.Role)
	}
	return nil
}

// RequireSettle rejects callers that may not check out or cancel orders.
func (s Scope) RequireSettle() error {
	if !s.CanSettle {
		return fmt.Errorf("%w: role %s cannot check out or cancel orders", ErrForbidden, s.Role)
	}
	return nil
}

package domain

import (
	"fmt"
	"strings"
)

// Scope is a capability tag attached to a Token and checked during authorization.
type Scope string

const (
	// ScopeRead grants read access to protected operations.
	ScopeRead Scope = "read"
	// ScopeWrite grants write access to protected operations.
	ScopeWrite Scope = "write"
	// ScopeAdmin grants access to token administration.
	ScopeAdmin Scope = "admin"
)

// allScopes is the closed set of known scopes in canonical order.
var allScopes = []Scope{ScopeRead, ScopeWrite, ScopeAdmin}

// ParseScope converts a case-insensitive scope name into a Scope.
// Unknown names fail with ErrInvalidScope instead of being ignored.
func ParseScope(s string) (Scope, error) {
	candidate := Scope(strings.ToLower(strings.TrimSpace(s)))
	for _, scope := range allScopes {
		if candidate == scope {
			return scope, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
}

// Scopes is a deduplicated set of Scope values kept in canonical order.
type Scopes []Scope

// DefaultScopes returns the scope set assigned when none is specified at creation.
func DefaultScopes() Scopes {
	return Scopes{ScopeRead, ScopeWrite}
}

// FullScopes returns the scope set granted to the legacy secret and migrated tokens.
func FullScopes() Scopes {
	return Scopes{ScopeRead, ScopeWrite}
}

// NewScopes builds a canonical set from the given values, collapsing duplicates.
// Returns ErrEmptyScopes when no scope is given and ErrInvalidScope for unknown values.
func NewScopes(values ...Scope) (Scopes, error) {
	if len(values) == 0 {
		return nil, ErrEmptyScopes
	}

	seen := make(map[Scope]struct{}, len(values))
	for _, v := range values {
		if _, err := ParseScope(string(v)); err != nil {
			return nil, err
		}
		seen[Scope(strings.ToLower(strings.TrimSpace(string(v))))] = struct{}{}
	}

	scopes := make(Scopes, 0, len(seen))
	for _, scope := range allScopes {
		if _, ok := seen[scope]; ok {
			scopes = append(scopes, scope)
		}
	}
	return scopes, nil
}

// ParseScopes parses scope names into a canonical set.
func ParseScopes(names []string) (Scopes, error) {
	values := make([]Scope, 0, len(names))
	for _, name := range names {
		scope, err := ParseScope(name)
		if err != nil {
			return nil, err
		}
		values = append(values, scope)
	}
	return NewScopes(values...)
}

// Contains reports whether the set holds the given scope.
func (s Scopes) Contains(scope Scope) bool {
	for _, v := range s {
		if v == scope {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every required scope is present in the set.
func (s Scopes) ContainsAll(required ...Scope) bool {
	for _, r := range required {
		if !s.Contains(r) {
			return false
		}
	}
	return true
}

// Strings returns the scope names in canonical order.
func (s Scopes) Strings() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, string(v))
	}
	return out
}

// String joins the scope names with commas.
func (s Scopes) String() string {
	return strings.Join(s.Strings(), ",")
}

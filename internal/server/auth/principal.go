package auth

import (
	"context"
	"slices"
	"strings"

	"github.com/dmitrijs2005/postboard/internal/common"
)

// Principal is the authenticated identity attached to a request. It is
// built from verified token claims and never persisted.
type Principal struct {
	SubjectID   int64
	Email       string
	DisplayName string
	Authorities []string
}

// NewPrincipal copies authorities so the caller's slice cannot alter it.
func NewPrincipal(subjectID int64, email, displayName string, authorities []string) Principal {
	return Principal{
		SubjectID:   subjectID,
		Email:       email,
		DisplayName: displayName,
		Authorities: slices.Clone(authorities),
	}
}

// HasAuthority reports whether the principal holds the given authority tag.
func (p Principal) HasAuthority(authority string) bool {
	return slices.Contains(p.Authorities, authority)
}

// AuthoritiesForRole maps a stored role onto its authority set.
// An empty role is treated as USER.
func AuthoritiesForRole(role string) []string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		role = "USER"
	}
	return []string{common.RolePrefix + role}
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal attached to ctx, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

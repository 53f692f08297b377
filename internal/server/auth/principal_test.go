package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPrincipal_CopiesAuthorities(t *testing.T) {
	auths := []string{"ROLE_USER"}
	p := NewPrincipal(1, "a@x.com", "alice", auths)
	auths[0] = "ROLE_ADMIN"

	assert.Equal(t, []string{"ROLE_USER"}, p.Authorities)
}

func TestAuthoritiesForRole(t *testing.T) {
	assert.Equal(t, []string{"ROLE_USER"}, AuthoritiesForRole("USER"))
	assert.Equal(t, []string{"ROLE_ADMIN"}, AuthoritiesForRole("admin"))
	assert.Equal(t, []string{"ROLE_USER"}, AuthoritiesForRole(" "))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	p := NewPrincipal(3, "c@x.com", "carol", []string{"ROLE_USER"})
	ctx := WithPrincipal(context.Background(), p)

	got, ok := PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, p, got)
}

package http

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// DefaultRules is the route table of the API, most specific first.
func DefaultRules() []auth.Rule {
	return []auth.Rule{
		{Method: http.MethodOptions, Pattern: "/**", Requirement: auth.Public},
		{Method: http.MethodGet, Pattern: "/healthz", Requirement: auth.Public},
		{Method: http.MethodPost, Pattern: "/api/users/signup", Requirement: auth.Public},
		{Method: http.MethodGet, Pattern: "/api/users/exists/email", Requirement: auth.Public},
		{Method: http.MethodGet, Pattern: "/api/users/count/nickname", Requirement: auth.Public},
		{Method: http.MethodPost, Pattern: "/api/auth/login", Requirement: auth.Public},
		{Method: http.MethodGet, Pattern: "/api/posts/**", Requirement: auth.Public},
		{Method: http.MethodPost, Pattern: "/api/posts/*/views", Requirement: auth.Public},
		{Method: auth.AnyMethod, Pattern: "/api/admin/**", Requirement: auth.Authority(common.RolePrefix + models.RoleAdmin)},
		{Method: auth.AnyMethod, Pattern: "/api/**", Requirement: auth.Authenticated},
	}
}

// FallbackFor maps a configured default policy onto the requirement for
// routes no rule matches.
func FallbackFor(policy string) (auth.Requirement, error) {
	switch policy {
	case config.PolicyPermit:
		return auth.Public, nil
	case config.PolicyDeny:
		return auth.Authenticated, nil
	default:
		return auth.Requirement{}, fmt.Errorf("unknown default policy %q", policy)
	}
}

// NewDefaultGate builds the gate for DefaultRules under policy.
func NewDefaultGate(policy string) (*auth.Gate, error) {
	fallback, err := FallbackFor(policy)
	if err != nil {
		return nil, err
	}
	return auth.NewGate(DefaultRules(), fallback)
}

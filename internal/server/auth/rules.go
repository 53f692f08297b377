package auth

import (
	"fmt"
	"path"
	"strings"
)

type requirementKind int

const (
	requirePublic requirementKind = iota
	requireAuthenticated
	requireAuthority
)

// Requirement is what a rule demands of the caller.
type Requirement struct {
	kind      requirementKind
	authority string
}

var (
	// Public lets anyone through, with or without a principal.
	Public = Requirement{kind: requirePublic}
	// Authenticated needs any principal.
	Authenticated = Requirement{kind: requireAuthenticated}
)

// Authority needs a principal holding the given authority tag.
func Authority(tag string) Requirement {
	return Requirement{kind: requireAuthority, authority: tag}
}

func (r Requirement) String() string {
	switch r.kind {
	case requirePublic:
		return "public"
	case requireAuthenticated:
		return "authenticated"
	default:
		return "authority:" + r.authority
	}
}

// Decision is the outcome of a gate check.
type Decision int

const (
	Permit Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Permit:
		return "permit"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// AnyMethod matches every HTTP method in a Rule.
const AnyMethod = "*"

// Rule binds a method and path pattern to a requirement.
//
// Patterns are slash-separated. A "*" segment matches exactly one path
// segment and a "**" segment matches zero or more segments.
type Rule struct {
	Method      string
	Pattern     string
	Requirement Requirement

	segments []string
}

// Gate evaluates an ordered rule table; the first matching rule decides.
// Requests matching no rule are judged by the fallback requirement.
// A Gate is immutable after NewGate.
type Gate struct {
	rules    []Rule
	fallback Requirement
}

// NewGate validates and compiles rules. fallback applies to unmatched
// requests; pass Public to permit them or Authenticated to deny anonymous
// access.
func NewGate(rules []Rule, fallback Requirement) (*Gate, error) {
	compiled := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if r.Method == "" {
			return nil, fmt.Errorf("rule %d: empty method", i)
		}
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("rule %d: pattern %q must start with /", i, r.Pattern)
		}
		if r.Requirement.kind == requireAuthority && r.Requirement.authority == "" {
			return nil, fmt.Errorf("rule %d: empty authority", i)
		}
		r.Method = strings.ToUpper(r.Method)
		r.segments = splitPath(r.Pattern)
		compiled = append(compiled, r)
	}
	return &Gate{rules: compiled, fallback: fallback}, nil
}

// Requirement returns the requirement governing method and urlPath.
func (g *Gate) Requirement(method, urlPath string) Requirement {
	method = strings.ToUpper(method)
	segments := splitPath(urlPath)
	for _, r := range g.rules {
		if r.Method != AnyMethod && r.Method != method {
			continue
		}
		if matchSegments(r.segments, segments) {
			return r.Requirement
		}
	}
	return g.fallback
}

// Decide checks principal (nil when anonymous) against the requirement for
// method and urlPath.
func (g *Gate) Decide(method, urlPath string, principal *Principal) Decision {
	req := g.Requirement(method, urlPath)
	switch req.kind {
	case requirePublic:
		return Permit
	case requireAuthenticated:
		if principal == nil {
			return DenyUnauthenticated
		}
		return Permit
	default:
		if principal == nil {
			return DenyUnauthenticated
		}
		if !principal.HasAuthority(req.authority) {
			return DenyForbidden
		}
		return Permit
	}
}

// Rules returns a copy of the compiled table.
func (g *Gate) Rules() []Rule {
	out := make([]Rule, len(g.rules))
	copy(out, g.rules)
	return out
}

func splitPath(p string) []string {
	p = path.Clean("/" + p)
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

func matchSegments(pattern, segments []string) bool {
	if len(pattern) == 0 {
		return len(segments) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(segments); i++ {
			if matchSegments(pattern[1:], segments[i:]) {
				return true
			}
		}
		return false
	}
	if len(segments) == 0 {
		return false
	}
	if pattern[0] != "*" && pattern[0] != segments[0] {
		return false
	}
	return matchSegments(pattern[1:], segments[1:])
}


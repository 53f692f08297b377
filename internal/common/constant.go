package common

const (
	// AuthorizationHeaderName is the HTTP header carrying the access token.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix is the scheme marker that must precede the token value.
	BearerPrefix = "Bearer "

	// RolePrefix is prepended to a stored role to form its authority tag.
	RolePrefix = "ROLE_"
)

package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// TokenDecoder verifies a bearer token. *auth.TokenCodec implements it.
type TokenDecoder interface {
	Decode(token string) (*auth.Claims, error)
}

// Identity resolves the request principal from the Authorization header.
//
// No header, or a header without the Bearer scheme, leaves the request
// anonymous. A bearer token that fails to decode for any reason, including
// a panic in the decoder, ends the request with 401 invalid_token.
// A valid token attaches its principal to the request context.
func Identity(decoder TokenDecoder, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			c.Next()
			return
		}

		claims, err := decodeSafely(decoder, strings.TrimSpace(header[len(common.BearerPrefix):]))
		if err != nil {
			logger.Warn(c.Request.Context(), "bearer token rejected",
				"kind", auth.TokenErrorKind(err), "error", err, "path", c.Request.URL.Path)
			abortWithCode(c, http.StatusUnauthorized, CodeInvalidToken)
			return
		}

		logger.Debug(c.Request.Context(), "bearer token accepted",
			"subject_id", claims.SubjectID, "expires_at", claims.ExpiresAt)

		ctx := auth.WithPrincipal(c.Request.Context(), claims.Principal())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func decodeSafely(decoder TokenDecoder, token string) (claims *auth.Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, fmt.Errorf("token decoder panicked: %v", r)
		}
	}()
	claims, err = decoder.Decode(token)
	if err == nil && claims == nil {
		err = fmt.Errorf("token decoder returned no claims")
	}
	return claims, err
}

// CORS answers browser preflight requests and sets the Access-Control
// headers for the given origins. "*" allows any origin and an empty list
// means the same. Preflights end here, before Identity sees them.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	}
	cfg.AddAllowHeaders(common.AuthorizationHeaderName)
	return cors.New(cfg)
}

// Authorize applies the gate to every request. It must run after Identity.
func Authorize(gate *auth.Gate, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var principal *auth.Principal
		if p, ok := auth.PrincipalFromContext(c.Request.Context()); ok {
			principal = &p
		}

		decision := gate.Decide(c.Request.Method, c.Request.URL.Path, principal)
		switch decision {
		case auth.Permit:
			c.Next()
		case auth.DenyUnauthenticated:
			logger.Debug(c.Request.Context(), "authentication required",
				"method", c.Request.Method, "path", c.Request.URL.Path)
			abortWithCode(c, http.StatusUnauthorized, CodeAuthRequired)
		default:
			logger.Info(c.Request.Context(), "access denied",
				"method", c.Request.Method, "path", c.Request.URL.Path, "subject_id", principal.SubjectID)
			abortWithCode(c, http.StatusForbidden, CodeAccessDenied)
		}
	}
}

// AccessLog logs one line per request once the handler chain returns.
func AccessLog(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(c.Request.Context(), "request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// currentPrincipal returns the request principal, answering 401 when the
// request is anonymous.
func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(c.Request.Context())
	if !ok {
		abortWithCode(c, http.StatusUnauthorized, CodeAuthRequired)
		return auth.Principal{}, false
	}
	return p, true
}

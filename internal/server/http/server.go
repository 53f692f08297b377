// Package http exposes the REST API over gin. Every request passes through
// the access log, the identity middleware and the authorization gate before
// reaching a handler.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether the backing store is usable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// ServerDeps are the collaborators of the HTTP server.
type ServerDeps struct {
	Users          UserService
	Posts          PostService
	Images         ImageService
	Health         HealthChecker
	Decoder        TokenDecoder
	Gate           *auth.Gate
	AllowedOrigins []string
	Logger         logging.Logger
}

type Server struct {
	address         string
	shutdownTimeout time.Duration
	r               *gin.Engine
	logger          logging.Logger
	health          HealthChecker
	users           *userHandler
	posts           *postHandler
}

func NewServer(address string, shutdownTimeout time.Duration, deps ServerDeps) *Server {
	logger := deps.Logger.With("module", "http_server")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(AccessLog(logger))
	r.Use(CORS(deps.AllowedOrigins))
	r.Use(Identity(deps.Decoder, logger))
	r.Use(Authorize(deps.Gate, logger))
	r.NoRoute(func(c *gin.Context) {
		respond(c, http.StatusNotFound, CodeNotFound, nil)
	})

	s := &Server{
		address:         address,
		shutdownTimeout: shutdownTimeout,
		r:               r,
		logger:          logger,
		health:          deps.Health,
		users:           &userHandler{users: deps.Users, logger: logger},
		posts:           &postHandler{posts: deps.Posts, images: deps.Images, logger: logger},
	}
	s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.healthz)

	api := s.r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", s.users.login)
		authGroup.POST("/logout", s.users.logout)
	}

	users := api.Group("/users")
	{
		users.POST("/signup", s.users.signup)
		users.GET("/me", s.users.me)
		users.PATCH("/me", s.users.updateMe)
		users.DELETE("/me", s.users.deleteMe)
		users.PATCH("/me/password", s.users.changePassword)
		users.GET("/search/nickname", s.users.searchByNickname)
		users.GET("/exists/email", s.users.existsByEmail)
		users.GET("/count/nickname", s.users.countByNickname)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", s.posts.list)
		posts.POST("", s.posts.create)
		posts.GET("/search/title", s.posts.searchByTitle)
		posts.GET("/search/author", s.posts.searchByAuthor)
		posts.POST("/images/presign", s.posts.presignImage)
		posts.GET("/:id", s.posts.get)
		posts.PATCH("/:id", s.posts.update)
		posts.DELETE("/:id", s.posts.delete)
		posts.POST("/:id/likes", s.posts.like)
		posts.DELETE("/:id/likes", s.posts.unlike)
		posts.POST("/:id/views", s.posts.views)
		posts.GET("/:id/comments", s.posts.listComments)
		posts.POST("/:id/comments", s.posts.createComment)
		posts.PATCH("/:id/comments/:commentId", s.posts.updateComment)
		posts.DELETE("/:id/comments/:commentId", s.posts.deleteComment)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/users/:id/deactivate", s.users.deactivate)
	}
}

// healthz answers 200 while the database responds to a ping and 503
// otherwise.
func (s *Server) healthz(c *gin.Context) {
	if err := s.health.Check(c.Request.Context()); err != nil {
		s.logger.Warn(c.Request.Context(), "health check failed", "error", err)
		respond(c, http.StatusServiceUnavailable, "db_unavailable", gin.H{"status": "down"})
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"status": "ok"})
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

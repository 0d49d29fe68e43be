package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/blog-platform/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/blog-platform/internal/middleware" // import middleware for JWT authentication and admin enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// This endpoint can be used by load balancers or monitoring systems to
	// verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected session operations live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session: they mint or
	// exchange tokens, or probe public state.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the token: the presented refresh token is consumed
	// whether or not the client stores the response.
	g.POST("/refresh", a.Refresh)
	// Username existence probe; no auth, never fails.
	g.GET("/username/:username", a.CheckUsername)

	// Session operations that require a valid access token.  The JWTAuth
	// middleware verifies the bearer token locally and stores the principal
	// in the context; no handler in this group touches the refresh token
	// store for authentication.
	auth := e.Group("/v1/auth")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.POST("/logout", a.Logout)
	auth.POST("/change-password", a.ChangePassword)
	auth.POST("/set-password", a.SetPassword)
	auth.POST("/join-admin", a.JoinAdmin)
	auth.PUT("/avatar", a.UpdateAvatar)

	// Account deletion targets a user id in the path: self-service, or any
	// account when the caller carries the admin claim.
	users := e.Group("/v1/users")
	users.Use(middleware.JWTAuth(jwtSecret))
	users.DELETE("/:id", a.DeleteUser)

	// Admin-only audit surface: lookups here see soft-deleted accounts.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret), middleware.RequireAdmin())
	admin.GET("/users/:id", a.AuditUser)
}

// RegisterBlog registers the blog content routes.  Public browse and
// search endpoints carry the optional response cache; writes require a
// valid access token.  cacheMW may be a pass-through when Redis is not
// configured.
func RegisterBlog(e *echo.Echo, p *handler.PostHandler, jwtSecret string, cacheMW echo.MiddlewareFunc) {
	// Public reads.
	e.GET("/v1/posts", p.ListPosts, cacheMW)
	e.GET("/v1/posts/:slug", p.GetPost, cacheMW)
	e.GET("/v1/posts/:id/comments", p.ListComments)
	e.GET("/v1/search/posts", p.SearchPosts, cacheMW)

	// Authenticated writes.
	w := e.Group("/v1")
	w.Use(middleware.JWTAuth(jwtSecret))
	w.POST("/posts", p.CreatePost)
	w.PUT("/posts/:id", p.UpdatePost)
	w.DELETE("/posts/:id", p.DeletePost)
	w.POST("/posts/:id/comments", p.CreateComment)
	w.DELETE("/comments/:id", p.DeleteComment)
	w.PUT("/posts/:id/like", p.LikePost)
	w.DELETE("/posts/:id/like", p.UnlikePost)
}

package main

import (
	"context"
	"net/http"
	"time"

	"library-backend/internal/shared/middleware"
	"library-backend/pkg/container"

	"github.com/gin-gonic/gin"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
		c.RateLimiter.Middleware(),
	)

	auth := middleware.AuthMiddleware(c.JWTManager)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupAuthRoutes(v1, c)
		setupBookRoutes(v1, c, auth)
		setupLoanRoutes(v1, c, auth)
		setupUserRoutes(v1, c)
		setupAdminRoutes(v1, c, auth)
	}

	return router
}

// ========================================
// AUTH ROUTES
// ========================================
func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", c.UserHandler.Register)
		authGroup.POST("/login", c.UserHandler.Login)
	}
}

// ========================================
// BOOK ROUTES
// ========================================
func setupBookRoutes(v1 *gin.RouterGroup, c *container.Container, auth gin.HandlerFunc) {
	books := v1.Group("/books")
	{
		books.GET("", c.BookHandler.ListBooks)
		books.GET("/fetch", c.BookHandler.SearchExternal)
		books.GET("/:id", c.BookHandler.GetBook)

		books.POST("/fetch", auth, c.BookHandler.FetchAndImport)
		books.POST("/save", auth, c.BookHandler.SaveBooks)
		books.POST("/borrow", auth, c.LendingHandler.Borrow)

		books.POST("/favorites", auth, c.FavoriteHandler.AddFavorite)
		books.DELETE("/favorites/:bookId", auth, c.FavoriteHandler.RemoveFavorite)
	}
}

// ========================================
// LOAN ROUTES
// ========================================
func setupLoanRoutes(v1 *gin.RouterGroup, c *container.Container, auth gin.HandlerFunc) {
	loans := v1.Group("/loans")
	loans.Use(auth)
	{
		loans.POST("/:loanId/return", c.LendingHandler.Return)
	}
}

// ========================================
// USER ROUTES
// ========================================
func setupUserRoutes(v1 *gin.RouterGroup, c *container.Container) {
	users := v1.Group("/users")
	{
		users.GET("/:id", c.UserHandler.GetProfile)
		users.GET("/:id/loans", c.LendingHandler.ListLoans)
	}
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminRoutes(v1 *gin.RouterGroup, c *container.Container, auth gin.HandlerFunc) {
	admin := v1.Group("/admin")
	admin.Use(auth, middleware.AdminMiddleware())
	{
		admin.POST("/reconcile", c.LendingHandler.Reconcile)
	}
}

func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		services := appCtx.HealthCheck(ctx)
		status := "ok"
		code := http.StatusOK
		if services["database"] != "up" {
			status = "unavailable"
			code = http.StatusServiceUnavailable
		} else if services["cache"] != "up" {
			status = "degraded"
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"services":  services,
		})
	}
}

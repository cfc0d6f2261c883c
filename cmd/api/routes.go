package main

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/handler"
	"github.com/GTDGit/gtd_backoffice/internal/metrics"
	"github.com/GTDGit/gtd_backoffice/internal/middleware"
)

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	ProductImage *handler.ProductImageHandler
	Employee     *handler.EmployeeHandler
	Sale         *handler.SaleHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, authMw *middleware.AdminAuthMiddleware) {
	router.GET("/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Storefront
	router.GET("/products/public", handlers.Product.ListPublic)

	// Session endpoints
	admin := router.Group("/admin")
	admin.POST("/login", handlers.Auth.Login)
	admin.POST("/logout", handlers.Auth.Logout)
	admin.GET("/check-auth", authMw.Optional(), handlers.Auth.CheckAuth)

	protected := admin.Group("")
	protected.Use(authMw.Required())
	{
		protected.GET("/me", handlers.Auth.Me)
		protected.PUT("/password", handlers.Auth.ChangePassword)
		protected.GET("/dashboard", handlers.Sale.Dashboard)

		// Products
		protected.GET("/products", handlers.Product.List)
		protected.POST("/products", handlers.Product.Create)
		protected.GET("/products/low-stock", handlers.Product.LowStock)
		protected.GET("/products/:id", handlers.Product.Get)
		protected.PUT("/products/:id", handlers.Product.Update)
		protected.DELETE("/products/:id", handlers.Product.Delete)
		protected.PATCH("/products/:id/stock", handlers.Product.UpdateStock)

		// Product images
		images := protected.Group("/products/:id/images")
		images.GET("", handlers.ProductImage.List)
		images.POST("", handlers.ProductImage.Store)
		images.PUT("/reorder", handlers.ProductImage.Reorder)
		images.DELETE("/multiple", handlers.ProductImage.DestroyMultiple)
		images.PUT("/:image/set-primary", handlers.ProductImage.SetPrimary)
		images.PUT("/:image/update", handlers.ProductImage.Replace)
		images.PUT("/:image/alt-text", handlers.ProductImage.UpdateAltText)
		images.DELETE("/:image", handlers.ProductImage.Destroy)

		// Employees
		protected.GET("/employees", handlers.Employee.List)
		protected.POST("/employees", handlers.Employee.Create)
		protected.GET("/employees/:id", handlers.Employee.Get)
		protected.PUT("/employees/:id", handlers.Employee.Update)
		protected.DELETE("/employees/:id", handlers.Employee.Delete)

		// Sales
		protected.GET("/sales", handlers.Sale.List)
		protected.POST("/sales", handlers.Sale.Create)
		protected.GET("/sales/:id", handlers.Sale.Get)
		protected.POST("/sales/:id/cancel", handlers.Sale.Cancel)
	}
}

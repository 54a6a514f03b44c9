package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/okulikov/shopapi/internal/handlers"
	authmw "github.com/okulikov/shopapi/internal/middleware/auth"
	"github.com/okulikov/shopapi/internal/models"
)

type Deps struct {
	DB             *gorm.DB
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	UserHandler    *handlers.UserHandler
	SearchHandler  *handlers.SearchHandler
	AuthMW         *authmw.Middleware
	RateLimit      echo.MiddlewareFunc
}

// Register declares every route with its fixed middleware chain. The chain
// per route is decided here, once, at startup; the first failing stage
// produces the response and the handler never runs.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register, d.RateLimit)
	v1.POST("/login", d.AuthHandler.Login, d.RateLimit)
	v1.POST("/logout", d.AuthHandler.LogOut)

	me := v1.Group("/me", d.AuthMW.RequireAuth)
	me.GET("", d.AuthHandler.Me)
	me.PATCH("/password", d.AuthHandler.UpdatePassword)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	v1.GET("/search", d.SearchHandler.Search)

	admin := v1.Group("/admin", d.AuthMW.RequireAuth, authmw.RequireRoles(models.RoleAdmin))
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.GET("/users", d.UserHandler.ListUsers)
	admin.PATCH("/users/:id/role", d.UserHandler.UpdateRole)
	admin.DELETE("/users/:id", d.UserHandler.DeactivateUser)
}

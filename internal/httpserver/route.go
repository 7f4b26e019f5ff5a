package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/db"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

type Deps struct {
	DB        *gorm.DB
	Catalog   *CatalogHTTP
	Products  *ProductHTTP
	Cart      *CartHTTP
	Orders    *OrderHTTP
	JWTSecret []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAuthMiddleware(d.JWTSecret)
	api := e.Group("/api/v1")

	catalog := api.Group("/catalog")
	catalog.GET("/categories", d.Catalog.ListCategories)
	catalog.GET("/categories/:id", d.Catalog.GetCategory)
	catalog.GET("/categories/:id/subcategories", d.Catalog.ListSubcategories)
	catalog.GET("/products/search", d.Products.SearchProducts)
	catalog.GET("/products", d.Products.GetProducts)
	catalog.GET("/products/:id", d.Products.GetProduct)

	admin := api.Group("/admin", authMW.RequireAdmin)
	admin.GET("/categories", d.Catalog.AdminListCategories)
	admin.POST("/categories", d.Catalog.CreateCategory)
	admin.PATCH("/categories/:id", d.Catalog.PatchCategory)
	admin.DELETE("/categories/:id", d.Catalog.DeleteCategory)
	admin.POST("/categories/:id/activate", d.Catalog.ActivateCategory)
	admin.POST("/categories/:id/deactivate", d.Catalog.DeactivateCategory)

	admin.POST("/subcategories", d.Catalog.CreateSubcategory)
	admin.PATCH("/subcategories/:id", d.Catalog.PatchSubcategory)
	admin.DELETE("/subcategories/:id", d.Catalog.DeleteSubcategory)
	admin.POST("/subcategories/:id/activate", d.Catalog.ActivateSubcategory)
	admin.POST("/subcategories/:id/deactivate", d.Catalog.DeactivateSubcategory)

	admin.GET("/products/:id", d.Products.AdminGetProduct)
	admin.POST("/products", d.Products.CreateProduct)
	admin.PATCH("/products/:id", d.Products.PatchProduct)
	admin.DELETE("/products/:id", d.Products.DeleteProduct)
	admin.POST("/products/:id/activate", d.Products.ActivateProduct)
	admin.POST("/products/:id/deactivate", d.Products.DeactivateProduct)
	admin.POST("/products/:id/stock", d.Products.AdjustStock)

	admin.GET("/orders", d.Orders.ListByStatus)
	admin.PATCH("/orders/:id/status", d.Orders.ChangeStatus)

	cart := api.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.Cart.GetCart)
	cart.POST("", d.Cart.AddLine)
	cart.DELETE("", d.Cart.Clear)
	cart.GET("/total", d.Cart.GetTotal)
	cart.PATCH("/items/:product_id", d.Cart.UpdateQuantity)
	cart.DELETE("/items/:product_id", d.Cart.RemoveLine)

	orders := api.Group("/orders", authMW.RequireAuth)
	orders.POST("/checkout", d.Orders.Checkout)
	orders.GET("", d.Orders.ListMine)
	orders.GET("/:id", d.Orders.Get)
	orders.GET("/:id/history", d.Orders.History)
	orders.POST("/:id/cancel", d.Orders.Cancel)
	orders.DELETE("/:id", d.Orders.Delete)
}

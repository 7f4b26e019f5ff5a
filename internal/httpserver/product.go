package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type ProductHTTP struct {
	Svc   *service.InventoryService
	Index search.Index
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := idParam(c, l, "get_product", "id")
	if err != nil {
		return err
	}
	prod, err := h.Svc.VisibleProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product", err)
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHTTP) AdminGetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.admin_get_product")

	id, err := idParam(c, l, "get_product", "id")
	if err != nil {
		return err
	}
	prod, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product", err)
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	filter := repo.ProductFilter{ActiveOnly: true}
	if v := c.QueryParam("category_id"); v != "" {
		id, ok := util.ParseUint(v)
		if !ok {
			return badRequest(l, "get_products", "category_id must be a positive integer", nil)
		}
		filter.CategoryID = id
	}
	if v := c.QueryParam("subcategory_id"); v != "" {
		id, ok := util.ParseUint(v)
		if !ok {
			return badRequest(l, "get_products", "subcategory_id must be a positive integer", nil)
		}
		filter.SubcategoryID = id
	}

	total, items, err := h.Svc.ListProducts(ctx, filter, offset, limit)
	if err != nil {
		return fail(l, "get_products", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, offset, limit, total),
	})
}

func (h *ProductHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return badRequest(l, "search_products", "q is required", nil)
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, docs, err := h.Index.Search(ctx, q, offset, limit)
	if err != nil {
		l.Error("search_products_error", "status", http.StatusBadGateway, "reason", "search backend", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "search is unavailable")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": docs,
		"meta": util.Meta(page, offset, limit, total),
	})
}

func (h *ProductHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_product", "invalid body", err)
	}

	prod, err := h.Svc.CreateProduct(ctx, service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Stock:         req.Stock,
		ImageRef:      req.ImageRef,
		SubcategoryID: req.SubcategoryID,
		CategoryID:    req.CategoryID,
	})
	if err != nil {
		return fail(l, "create_product", err)
	}

	l.Info("create_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch_product")

	id, err := idParam(c, l, "patch_product", "id")
	if err != nil {
		return err
	}
	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_product", "invalid body", err)
	}

	prod, err := h.Svc.UpdateProduct(ctx, id, service.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageRef:    req.ImageRef,
	})
	if err != nil {
		return fail(l, "patch_product", err)
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHTTP) ActivateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.activate_product")

	id, err := idParam(c, l, "activate_product", "id")
	if err != nil {
		return err
	}
	prod, err := h.Svc.ActivateProduct(ctx, id)
	if err != nil {
		return fail(l, "activate_product", err)
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHTTP) DeactivateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.deactivate_product")

	id, err := idParam(c, l, "deactivate_product", "id")
	if err != nil {
		return err
	}
	prod, err := h.Svc.DeactivateProduct(ctx, id)
	if err != nil {
		return fail(l, "deactivate_product", err)
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHTTP) AdjustStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.adjust_stock")

	id, err := idParam(c, l, "adjust_stock", "id")
	if err != nil {
		return err
	}
	var req transport.StockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "adjust_stock", "invalid body", err)
	}

	switch {
	case req.Delta > 0:
		err = h.Svc.IncreaseStock(ctx, id, req.Delta)
	case req.Delta < 0:
		err = h.Svc.DecreaseStock(ctx, id, -req.Delta)
	default:
		return badRequest(l, "adjust_stock", "delta must not be zero", nil)
	}
	if err != nil {
		return fail(l, "adjust_stock", err)
	}

	prod, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "adjust_stock", err)
	}
	l.Info("adjust_stock_success", "product_id", id, "delta", req.Delta, "stock", prod.Stock)
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, err := idParam(c, l, "delete_product", "id")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return fail(l, "delete_product", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

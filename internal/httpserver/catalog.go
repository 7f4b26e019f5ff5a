package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_categories")

	items, err := h.Svc.ListCategories(ctx, true)
	if err != nil {
		return fail(l, "list_categories", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *CatalogHTTP) AdminListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.admin_list_categories")

	items, err := h.Svc.ListCategories(ctx, false)
	if err != nil {
		return fail(l, "list_categories", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

// GetCategory answers 404 for inactive categories.
func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_category")

	id, err := idParam(c, l, "get_category", "id")
	if err != nil {
		return err
	}
	category, err := h.Svc.GetCategory(ctx, id)
	if err != nil {
		return fail(l, "get_category", err)
	}
	if !category.Active {
		l.Warn("get_category_error", "status", http.StatusNotFound, "reason", "inactive", "category_id", id)
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CatalogHTTP) ListSubcategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_subcategories")

	id, err := idParam(c, l, "list_subcategories", "id")
	if err != nil {
		return err
	}
	category, err := h.Svc.GetCategory(ctx, id)
	if err != nil {
		return fail(l, "list_subcategories", err)
	}
	if !category.Active {
		l.Warn("list_subcategories_error", "status", http.StatusNotFound, "reason", "inactive", "category_id", id)
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}

	items, err := h.Svc.ListSubcategories(ctx, id, true)
	if err != nil {
		return fail(l, "list_subcategories", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_category")

	var req transport.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_category", "invalid body", err)
	}

	category, err := h.Svc.CreateCategory(ctx, req.Name, req.Description)
	if err != nil {
		return fail(l, "create_category", err)
	}

	l.Info("create_category_success", "category_id", category.ID)
	return c.JSON(http.StatusCreated, category)
}

func (h *CatalogHTTP) PatchCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_category")

	id, err := idParam(c, l, "patch_category", "id")
	if err != nil {
		return err
	}
	var req transport.PatchCatalogRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_category", "invalid body", err)
	}

	category, err := h.Svc.UpdateCategory(ctx, id, service.CatalogPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		return fail(l, "patch_category", err)
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CatalogHTTP) ActivateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.activate_category")

	id, err := idParam(c, l, "activate_category", "id")
	if err != nil {
		return err
	}
	category, err := h.Svc.ActivateCategory(ctx, id)
	if err != nil {
		return fail(l, "activate_category", err)
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CatalogHTTP) DeactivateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.deactivate_category")

	id, err := idParam(c, l, "deactivate_category", "id")
	if err != nil {
		return err
	}
	res, err := h.Svc.DeactivateCategory(ctx, id)
	if err != nil {
		return fail(l, "deactivate_category", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_category")

	id, err := idParam(c, l, "delete_category", "id")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteCategory(ctx, id); err != nil {
		return fail(l, "delete_category", err)
	}

	l.Info("delete_category_success", "category_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) CreateSubcategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_subcategory")

	var req transport.CreateSubcategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_subcategory", "invalid body", err)
	}

	sub, err := h.Svc.CreateSubcategory(ctx, req.CategoryID, req.Name, req.Description)
	if err != nil {
		return fail(l, "create_subcategory", err)
	}

	l.Info("create_subcategory_success", "subcategory_id", sub.ID)
	return c.JSON(http.StatusCreated, sub)
}

func (h *CatalogHTTP) PatchSubcategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_subcategory")

	id, err := idParam(c, l, "patch_subcategory", "id")
	if err != nil {
		return err
	}
	var req transport.PatchCatalogRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_subcategory", "invalid body", err)
	}

	sub, err := h.Svc.UpdateSubcategory(ctx, id, service.CatalogPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		return fail(l, "patch_subcategory", err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *CatalogHTTP) ActivateSubcategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.activate_subcategory")

	id, err := idParam(c, l, "activate_subcategory", "id")
	if err != nil {
		return err
	}
	sub, err := h.Svc.ActivateSubcategory(ctx, id)
	if err != nil {
		return fail(l, "activate_subcategory", err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *CatalogHTTP) DeactivateSubcategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.deactivate_subcategory")

	id, err := idParam(c, l, "deactivate_subcategory", "id")
	if err != nil {
		return err
	}
	res, err := h.Svc.DeactivateSubcategory(ctx, id)
	if err != nil {
		return fail(l, "deactivate_subcategory", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CatalogHTTP) DeleteSubcategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_subcategory")

	id, err := idParam(c, l, "delete_subcategory", "id")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteSubcategory(ctx, id); err != nil {
		return fail(l, "delete_subcategory", err)
	}

	l.Info("delete_subcategory_success", "subcategory_id", id)
	return c.NoContent(http.StatusNoContent)
}

package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	userID, err := currentUser(c, l, "get_cart")
	if err != nil {
		return err
	}
	items, err := h.Svc.Lines(ctx, userID)
	if err != nil {
		return fail(l, "get_cart", err)
	}
	total, err := h.Svc.Total(ctx, userID)
	if err != nil {
		return fail(l, "get_cart", err)
	}
	return c.JSON(http.StatusOK, transport.CartResponse{Items: items, Total: total})
}

func (h *CartHTTP) GetTotal(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_total")

	userID, err := currentUser(c, l, "get_cart_total")
	if err != nil {
		return err
	}
	total, err := h.Svc.Total(ctx, userID)
	if err != nil {
		return fail(l, "get_cart_total", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"total": total})
}

func (h *CartHTTP) AddLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_line")

	userID, err := currentUser(c, l, "add_to_cart")
	if err != nil {
		return err
	}
	var req transport.AddCartLineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_to_cart", "invalid body", err)
	}
	if req.ProductID == 0 {
		return badRequest(l, "add_to_cart", "product_id is required", nil)
	}

	item, err := h.Svc.AddLine(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(l, "add_to_cart", err)
	}

	l.Info("add_to_cart_success", "user_id", userID, "product_id", req.ProductID)
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_quantity")

	userID, err := currentUser(c, l, "update_cart_line")
	if err != nil {
		return err
	}
	productID, err := idParam(c, l, "update_cart_line", "product_id")
	if err != nil {
		return err
	}
	var req transport.UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_cart_line", "invalid body", err)
	}

	item, err := h.Svc.UpdateQuantity(ctx, userID, productID, req.Quantity)
	if err != nil {
		return fail(l, "update_cart_line", err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_line")

	userID, err := currentUser(c, l, "remove_cart_line")
	if err != nil {
		return err
	}
	productID, err := idParam(c, l, "remove_cart_line", "product_id")
	if err != nil {
		return err
	}
	if err := h.Svc.RemoveLine(ctx, userID, productID); err != nil {
		return fail(l, "remove_cart_line", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	userID, err := currentUser(c, l, "clear_cart")
	if err != nil {
		return err
	}
	if err := h.Svc.Clear(ctx, userID); err != nil {
		return fail(l, "clear_cart", err)
	}
	return c.NoContent(http.StatusNoContent)
}

package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	userID, err := currentUser(c, l, "checkout")
	if err != nil {
		return err
	}
	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "checkout", "invalid body", err)
	}

	order, err := h.Svc.Checkout(ctx, userID, service.CheckoutInput{
		ShippingAddress: req.ShippingAddress,
		ContactPhone:    req.ContactPhone,
		Notes:           req.Notes,
	})
	if err != nil {
		return fail(l, "checkout", err)
	}

	l.Info("checkout_success", "order_id", order.ID, "user_id", userID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_mine")

	userID, err := currentUser(c, l, "list_orders")
	if err != nil {
		return err
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.HistoryForUser(ctx, userID, offset, limit)
	if err != nil {
		return fail(l, "list_orders", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": util.Meta(page, offset, limit, total),
	})
}

// ownedOrder loads the order for the caller. Orders of other users look
// missing unless the caller is an admin.
func (h *OrderHTTP) ownedOrder(c echo.Context, l *slog.Logger, op string) (*models.Order, error) {
	userID, err := currentUser(c, l, op)
	if err != nil {
		return nil, err
	}
	id, err := idParam(c, l, op, "id")
	if err != nil {
		return nil, err
	}

	order, err := h.Svc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return nil, fail(l, op, err)
	}
	if order.UserID != userID && !middleware.IsAdmin(c) {
		l.Warn(op+"_error", "status", http.StatusNotFound, "reason", "foreign order", "order_id", id, "user_id", userID)
		return nil, echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	return order, nil
}

func (h *OrderHTTP) Get(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "order.get")

	order, err := h.ownedOrder(c, l, "get_order")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) History(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.history")

	order, err := h.ownedOrder(c, l, "order_history")
	if err != nil {
		return err
	}
	changes, err := h.Svc.StatusHistory(ctx, order.ID)
	if err != nil {
		return fail(l, "order_history", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": changes})
}

func (h *OrderHTTP) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	order, err := h.ownedOrder(c, l, "cancel_order")
	if err != nil {
		return err
	}
	cancelled, err := h.Svc.Cancel(ctx, order.ID)
	if err != nil {
		return fail(l, "cancel_order", err)
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, cancelled)
}

func (h *OrderHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.delete")

	order, err := h.ownedOrder(c, l, "delete_order")
	if err != nil {
		return err
	}
	return fail(l, "delete_order", h.Svc.DeleteOrder(ctx, order.ID))
}

func (h *OrderHTTP) ListByStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_by_status")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.ByStatus(ctx, c.QueryParam("status"), offset, limit)
	if err != nil {
		return fail(l, "list_orders_by_status", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": util.Meta(page, offset, limit, total),
	})
}

func (h *OrderHTTP) ChangeStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.change_status")

	id, err := idParam(c, l, "change_order_status", "id")
	if err != nil {
		return err
	}
	var req transport.ChangeStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "change_order_status", "invalid body", err)
	}

	order, err := h.Svc.ChangeStatus(ctx, id, req.Status)
	if err != nil {
		return fail(l, "change_order_status", err)
	}

	l.Info("change_order_status_success", "order_id", id, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}

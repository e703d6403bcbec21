package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/http/response"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
	"github.com/yungbote/northwind-slim-backend/internal/services"
)

type OrderHandler struct {
	orders  services.OrderService
	metrics *observability.Metrics
}

func NewOrderHandler(orders services.OrderService, metrics *observability.Metrics) *OrderHandler {
	return &OrderHandler{orders: orders, metrics: metrics}
}

// GET /api/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	list, err := h.orders.ListOrders(c.Request.Context(), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, list)
}

// GET /api/customers/:id/orders
func (h *OrderHandler) ListCustomerOrders(c *gin.Context) {
	customerID, err := stringParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.orders.ListCustomerOrders(c.Request.Context(), nil, customerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, list)
}

// GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), nil, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, o)
}

// POST /api/orders
// body: order graph; the order and its details are inserted.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	o := &northwind.Order{}
	if !bindEntity(c, h.metrics, o) {
		return
	}
	saved, err := h.orders.CreateOrder(c.Request.Context(), o)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusCreated, saved)
}

// PUT /api/orders
// body: order graph whose details may be Added, Modified, Deleted or Unchanged.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	o := &northwind.Order{}
	if !bindEntity(c, h.metrics, o) {
		return
	}
	saved, err := h.orders.UpdateOrder(c.Request.Context(), o)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, saved)
}

// DELETE /api/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

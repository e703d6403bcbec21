package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/northwind-slim-backend/internal/http/response"
	"github.com/yungbote/northwind-slim-backend/internal/services"
)

type CustomerHandler struct {
	customers services.CustomerService
}

func NewCustomerHandler(customers services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// GET /api/customers
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	list, err := h.customers.ListCustomers(c.Request.Context(), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, list)
}

// GET /api/customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, err := stringParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	cust, err := h.customers.GetCustomer(c.Request.Context(), nil, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, cust)
}

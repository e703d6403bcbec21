package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/http/response"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
	"github.com/yungbote/northwind-slim-backend/internal/services"
)

type ProductHandler struct {
	products services.ProductService
	metrics  *observability.Metrics
}

func NewProductHandler(products services.ProductService, metrics *observability.Metrics) *ProductHandler {
	return &ProductHandler{products: products, metrics: metrics}
}

// GET /api/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	list, err := h.products.ListProducts(c.Request.Context(), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, list)
}

// GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.products.GetProduct(c.Request.Context(), nil, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, p)
}

// POST /api/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	p := &northwind.Product{}
	if !bindEntity(c, h.metrics, p) {
		return
	}
	saved, err := h.products.CreateProduct(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusCreated, saved)
}

// PUT /api/products
// body: product with productId and rowVersion; modifiedProperties limits the update.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	p := &northwind.Product{}
	if !bindEntity(c, h.metrics, p) {
		return
	}
	saved, err := h.products.UpdateProduct(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, saved)
}

// DELETE /api/products/:id?rowVersion=<base64>
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	rowVersion, err := rowVersionQuery(c, "rowVersion")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.products.DeleteProduct(c.Request.Context(), id, rowVersion); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/northwind-slim-backend/internal/http/response"
	"github.com/yungbote/northwind-slim-backend/internal/services"
)

type CategoryHandler struct {
	categories services.CategoryService
}

func NewCategoryHandler(categories services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// GET /api/categories
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	list, err := h.categories.ListCategories(c.Request.Context(), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, list)
}

// GET /api/categories/:id
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	cat, err := h.categories.GetCategory(c.Request.Context(), nil, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondGraph(c, http.StatusOK, cat)
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/http/response"
	"github.com/yungbote/northwind-slim-backend/internal/platform/apierr"
	"github.com/yungbote/northwind-slim-backend/internal/services"
)

type ChangeHandler struct {
	changes services.ChangeLogService
}

func NewChangeHandler(changes services.ChangeLogService) *ChangeHandler {
	return &ChangeHandler{changes: changes}
}

// GET /api/changes?entity=Product&key=1&limit=50
func (h *ChangeHandler) ListChanges(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid limit %q", raw)))
			return
		}
		limit = n
	}
	entries, err := h.changes.ListChanges(c.Request.Context(), nil, strings.TrimSpace(c.Query("entity")), strings.TrimSpace(c.Query("key")), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if entries == nil {
		entries = []*changes.LogEntry{}
	}
	response.RespondOK(c, gin.H{"changes": entries})
}

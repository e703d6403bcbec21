package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/http/response"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
	"github.com/yungbote/northwind-slim-backend/internal/platform/apierr"
)

func intParam(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid %s %q", name, raw))
	}
	return id, nil
}

func stringParam(c *gin.Context, name string) (string, error) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return "", apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("missing %s", name))
	}
	return raw, nil
}

// rowVersionQuery reads a base64 row version from the query string. Both
// the standard and URL-safe alphabets are accepted.
func rowVersionQuery(c *gin.Context, name string) ([]byte, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if v, err := enc.DecodeString(raw); err == nil {
			return v, nil
		}
	}
	return nil, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("%s is not valid base64", name))
}

// bindEntity decodes a graph body into dst and gives every decoded entity
// its defaults. Decode failures are counted per route.
func bindEntity(c *gin.Context, m *observability.Metrics, dst northwind.Entity) bool {
	if err := response.BindGraph(c, dst); err != nil {
		m.IncGraphDecodeError(c.FullPath())
		response.Error(c, err)
		return false
	}
	northwind.InitGraph(dst)
	return true
}

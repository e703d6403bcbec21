package response

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/northwind-slim-backend/internal/platform/apierr"
	"github.com/yungbote/northwind-slim-backend/internal/platform/graphjson"
)

const graphContentType = "application/json; charset=utf-8"

// maxGraphBody bounds request bodies handed to the graph decoder.
const maxGraphBody = 4 << 20

var ErrEmptyBody = errors.New("request body is empty")

// RespondGraph writes v with reference preservation so shared entities keep
// their identity on the client.
func RespondGraph(c *gin.Context, status int, v any) {
	body, err := graphjson.Marshal(v)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", fmt.Errorf("encode response: %w", err))
		return
	}
	c.Data(status, graphContentType, body)
}

// BindGraph decodes the request body into v, resolving $id/$ref pairs back
// into shared pointers. Failures come back as 400 *apierr.Error values.
func BindGraph(c *gin.Context, v any) error {
	if c.Request.Body == nil {
		return apierr.New(http.StatusBadRequest, "invalid_request", ErrEmptyBody)
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxGraphBody+1))
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("read body: %w", err))
	}
	if len(data) == 0 {
		return apierr.New(http.StatusBadRequest, "invalid_request", ErrEmptyBody)
	}
	if len(data) > maxGraphBody {
		return apierr.New(http.StatusRequestEntityTooLarge, "invalid_request", errors.New("request body too large"))
	}
	if err := graphjson.Unmarshal(data, v); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	}
	return nil
}

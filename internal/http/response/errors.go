package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/northwind-slim-backend/internal/platform/apierr"
)

// Error writes err in the error envelope. An *apierr.Error keeps its status
// and code; anything else is classified by its aggregate code.
func Error(c *gin.Context, err error) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierr.FromAggregate(err)
	}
	if apiErr == nil {
		apiErr = apierr.New(http.StatusInternalServerError, "internal", err)
	}
	RespondError(c, apiErr.Status, apiErr.Code, apiErr.Err)
}

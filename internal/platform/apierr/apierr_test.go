package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
)

func TestFromAggregateStatus(t *testing.T) {
	cases := []struct {
		code aggregates.ErrorCode
		want int
	}{
		{aggregates.CodeValidation, http.StatusBadRequest},
		{aggregates.CodeNotFound, http.StatusNotFound},
		{aggregates.CodeConflict, http.StatusConflict},
		{aggregates.CodePreconditionFailed, http.StatusPreconditionFailed},
		{aggregates.CodeInvariantViolation, http.StatusUnprocessableEntity},
		{aggregates.CodeRetryable, http.StatusServiceUnavailable},
		{aggregates.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err := fmt.Errorf("save: %w", aggregates.NewError(tc.code, "op", "msg", nil))
		got := FromAggregate(err)
		if got.Status != tc.want {
			t.Fatalf("%s: status got=%d want=%d", tc.code, got.Status, tc.want)
		}
	}
}

func TestFromAggregateUncoded(t *testing.T) {
	got := FromAggregate(errors.New("boom"))
	if got.Status != http.StatusInternalServerError || got.Code != "internal" {
		t.Fatalf("unexpected: %+v", got)
	}
	if FromAggregate(nil) != nil {
		t.Fatalf("nil error should map to nil")
	}
}

package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
)

// graphCommitter saves a graph and announces what it wrote.
type graphCommitter struct {
	graph    domainagg.GraphAggregate
	notifier ChangeNotifier
}

func (c graphCommitter) commit(ctx context.Context, op string, roots ...northwind.Entity) (domainagg.SaveResult, error) {
	if c.graph == nil {
		return domainagg.SaveResult{}, domainagg.NewError(domainagg.CodeInternal, op, "graph aggregate not configured", nil)
	}
	res, err := c.graph.SaveGraph(ctx, roots...)
	if err != nil {
		return res, err
	}
	if c.notifier != nil {
		c.notifier.ChangesCommitted(ctx, res)
	}
	return res, nil
}

// lookupError turns a missing row into a not_found aggregate error and
// wraps anything else.
func lookupError(op, entity, key string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainagg.NewEntityError(domainagg.CodeNotFound, op, entity, key, "not found")
	}
	return fmt.Errorf("load %s %s: %w", entity, key, err)
}

func invalid(op, msg string) error {
	return domainagg.NewError(domainagg.CodeValidation, op, msg, nil)
}

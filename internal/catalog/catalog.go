package catalog

import (
	"context"

	"marketplace_api/internal/models"
)

var items = []models.Item{
	{ID: 1, Name: "Item 1", Price: 12345},
	{ID: 2, Name: "Item 2", Price: 67890},
}

// Static is the fixed item catalog.
type Static struct{}

func New() Static {
	return Static{}
}

// Items returns a copy, callers may modify it.
func (Static) Items(_ context.Context) ([]models.Item, error) {
	out := make([]models.Item, len(items))
	copy(out, items)

	return out, nil
}

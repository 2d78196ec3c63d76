// Package memory persists past decision situations and answers top-k
// similarity queries biased by recency and learned importance.
package memory

import (
	"context"

	"github.com/shopspring/decimal"
)

// Subsystem is the narrow memory contract consumed by the pipeline. A failed
// retrieve is non-fatal to callers; they proceed without augmentation.
type Subsystem interface {
	Retrieve(ctx context.Context, query string, k int) ([]Record, error)
	Record(ctx context.Context, instrument, situation string, seedImportance float64) (string, error)
	Reflect(ctx context.Context, ids []string, outcome decimal.Decimal) error
}

var _ Subsystem = (*Store)(nil)

package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

// Snapshot is one discipline's view of an instrument at a date, rendered
// ready for prompt assembly plus the structured figures behind it.
type Snapshot struct {
	Kind       models.AnalystRole `json:"kind"`
	Instrument string             `json:"instrument"`
	AsOf       string             `json:"as_of"`
	Summary    string             `json:"summary"`
	Points     map[string]string  `json:"points,omitempty"`
	FetchedAt  time.Time          `json:"fetched_at"`
}

// SnapshotProvider is the data-vendor boundary. Failures surface as
// models.ErrDataUnavailable; callers degrade the corresponding report rather
// than abort.
type SnapshotProvider interface {
	Fetch(ctx context.Context, instrument, asOfDate string, kind models.AnalystRole) (*Snapshot, error)
}

// ProviderFunc adapts a function to SnapshotProvider.
type ProviderFunc func(ctx context.Context, instrument, asOfDate string, kind models.AnalystRole) (*Snapshot, error)

func (f ProviderFunc) Fetch(ctx context.Context, instrument, asOfDate string, kind models.AnalystRole) (*Snapshot, error) {
	return f(ctx, instrument, asOfDate, kind)
}

// Offline is the provider when online tools are disabled: every fetch reports
// data unavailable so analysts degrade instead of reaching the network.
func Offline() ProviderFunc {
	return func(ctx context.Context, instrument, asOfDate string, kind models.AnalystRole) (*Snapshot, error) {
		return nil, fmt.Errorf("%w: online tools are disabled", models.ErrDataUnavailable)
	}
}

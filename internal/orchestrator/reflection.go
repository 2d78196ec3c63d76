package orchestrator

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

// ReflectOutcome folds a realized outcome (signed return of the decided
// position) back into the memory records a decision seeded. Importance is
// recomputed from the stored seed and the outcome's magnitude, so replaying
// the same outcome is a no-op.
func (o *Orchestrator) ReflectOutcome(ctx context.Context, decisionID string, outcome decimal.Decimal) error {
	if o.mem == nil {
		return fmt.Errorf("%w: no memory subsystem configured", models.ErrMemoryUnavailable)
	}
	if o.store == nil {
		return fmt.Errorf("reflection requires persistence: no store configured")
	}

	ids, err := o.store.MemoryIDsForDecision(ctx, decisionID)
	if err != nil {
		return fmt.Errorf("reflect %s: %w", decisionID, err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("reflect %s: decision has no linked memory records", decisionID)
	}

	return o.mem.Reflect(ctx, ids, outcome)
}

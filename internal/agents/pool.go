package agents

import (
	"context"
	"log"
	"sync"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

// Pool fans out one task per configured analyst role and joins them at the
// merge barrier: Run returns only when every role has a report, degraded or
// not. Partial completion is never forwarded.
type Pool struct {
	deps Deps
}

func NewPool(deps Deps) *Pool {
	return &Pool{deps: deps}
}

// Run executes all configured analysts concurrently and returns their
// reports in completion order. The order is non-deterministic across runs;
// downstream stages read reports by role, never by position.
func (p *Pool) Run(ctx context.Context, session *models.Session) []*models.AgentReport {
	roles := session.Config.AnalystRoles
	results := make(chan *models.AgentReport, len(roles))

	var wg sync.WaitGroup
	for _, role := range roles {
		analyst, err := ForRole(role)
		if err != nil {
			// Roles are validated before the session starts; an unknown one
			// here still gets a placeholder so the barrier can close.
			log.Printf("pool: %v", err)
			results <- &models.AgentReport{
				Role:           role,
				Body:           "Insufficient data: no analyst available for this role.",
				Degraded:       true,
				DegradedReason: "unknown role",
			}
			continue
		}

		wg.Add(1)
		go func(a *Analyst) {
			defer wg.Done()
			results <- a.Produce(ctx, session, p.deps)
		}(analyst)
	}

	wg.Wait()
	close(results)

	reports := make([]*models.AgentReport, 0, len(roles))
	for report := range results {
		reports = append(reports, report)
	}
	return reports
}

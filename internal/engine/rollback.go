package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/aegis/internal/optimize"
	"github.com/roach88/aegis/internal/runtime"
	"github.com/roach88/aegis/internal/trust"
)

// RollbackSink receives rollback audit entries. Implemented by
// store.Store and store.Memory.
type RollbackSink interface {
	AppendRollback(ctx context.Context, ev trust.RollbackEvent) error
}

// Coordinator performs the mandatory rollback sequence after a
// violating run: cache invalidation, trust reset, audit emission, and
// context demotion, in that order.
//
// The effect is purely forward-looking. The in-progress run is not
// repaired or retried inline; only the next invocation for the identity
// is guaranteed to run interpreted, because its trust is now 0.0.
type Coordinator struct {
	ledger *trust.Ledger
	cache  *optimize.Cache
	audit  RollbackSink
}

// NewCoordinator creates a rollback coordinator. The audit sink may be
// nil, in which case rollback events are only logged.
func NewCoordinator(ledger *trust.Ledger, cache *optimize.Cache, audit RollbackSink) *Coordinator {
	return &Coordinator{ledger: ledger, cache: cache, audit: audit}
}

// Handle is invoked exactly once per violating run. It returns the
// emitted rollback event; the returned error reports audit or
// persistence infrastructure faults, never the violation itself.
func (co *Coordinator) Handle(ctx context.Context, identity string, v *runtime.Violation, rctx *runtime.Context) (trust.RollbackEvent, error) {
	co.cache.Invalidate(identity)

	priorScore, _, saveErr := co.ledger.RecordViolation(ctx, identity, v)

	ev := trust.RollbackEvent{
		Identity:      identity,
		ViolationKind: string(v.Kind),
		Message:       v.Message,
		PriorScore:    priorScore,
		At:            time.Now().UTC(),
	}

	slog.Warn("rollback",
		"identity", identity,
		"violation", v.Kind,
		"prior_score", priorScore,
	)

	var auditErr error
	if co.audit != nil {
		auditErr = co.audit.AppendRollback(ctx, ev)
	}

	rctx.MarkFailed()

	if saveErr != nil {
		return ev, saveErr
	}
	return ev, auditErr
}

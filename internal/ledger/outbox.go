package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/klaker79/lacaleta-api/internal/model"
	"go.uber.org/zap"
)

const outboxCapacity = 1024

// Outbox holds stock movements whose audit-log insert failed and
// retries them in the background. Audit logging must never block the
// primary stock mutation, but should eventually catch up; the outbox
// makes that intent explicit instead of dropping failed writes.
type Outbox struct {
	movements MovementRecorder
	period    time.Duration
	log       *zap.Logger

	// onEnqueue is invoked once per queued movement, outside the lock.
	// Used to feed the retry counter metric without importing it here.
	onEnqueue func()

	mu      sync.Mutex
	pending []*model.StockMovement
}

// NewOutbox creates an outbox flushing at the given period.
func NewOutbox(movements MovementRecorder, period time.Duration, log *zap.Logger) *Outbox {
	return &Outbox{movements: movements, period: period, log: log}
}

// OnEnqueue registers a callback fired once per queued movement.
func (o *Outbox) OnEnqueue(fn func()) {
	o.onEnqueue = fn
}

// Enqueue adds a movement for retry. When the outbox is full the oldest
// entry is dropped so the caller is never blocked.
func (o *Outbox) Enqueue(movement *model.StockMovement) {
	o.mu.Lock()
	if len(o.pending) >= outboxCapacity {
		o.log.Error("Movement outbox full, dropping oldest entry",
			zap.Uint("dropped_ingredient_id", o.pending[0].IngredientID))
		o.pending = o.pending[1:]
	}
	o.pending = append(o.pending, movement)
	o.mu.Unlock()

	if o.onEnqueue != nil {
		o.onEnqueue()
	}
}

// Pending returns the number of queued movements.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Flush retries every queued movement once. Entries that fail again stay
// queued in order.
func (o *Outbox) Flush() {
	o.mu.Lock()
	batch := o.pending
	o.pending = nil
	o.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var remaining []*model.StockMovement
	for _, movement := range batch {
		if err := o.movements.Record(movement); err != nil {
			remaining = append(remaining, movement)
			continue
		}
	}

	if len(remaining) > 0 {
		o.log.Warn("Movement outbox flush incomplete",
			zap.Int("retried", len(batch)),
			zap.Int("still_pending", len(remaining)))
		o.mu.Lock()
		o.pending = append(remaining, o.pending...)
		o.mu.Unlock()
	} else {
		o.log.Info("Movement outbox flushed", zap.Int("count", len(batch)))
	}
}

// Start runs the periodic flush loop until the context is cancelled.
func (o *Outbox) Start(ctx context.Context) {
	ticker := time.NewTicker(o.period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.Flush()
			}
		}
	}()
}

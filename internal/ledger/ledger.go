// Package ledger is the single code path for ingredient stock
// mutations. Every caller that changes stock (sales, purchases, manual
// adjustments, waste) goes through ApplyDelta so the row lock is always
// taken; no bare updates exist anywhere else.
package ledger

import (
	"database/sql"
	"errors"
	"math"

	"github.com/klaker79/lacaleta-api/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxRunner opens a transaction. Satisfied by *gorm.DB.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// IngredientStore is the row-level persistence surface of the ledger.
// Both methods operate inside the caller's transaction.
type IngredientStore interface {
	// LockIngredient acquires a pessimistic row lock on the ingredient
	// scoped to (id, tenant) and returns the current row. Returns
	// model.ErrNotFound when the row is absent or owned by another
	// tenant.
	LockIngredient(tx *gorm.DB, ingredientID, tenantID uint) (*model.Ingredient, error)
	// UpdateStock writes the new stock value for the locked row.
	UpdateStock(tx *gorm.DB, ingredientID, tenantID uint, newStock float64) error
}

// MovementRecorder appends one row to the stock movement audit log.
type MovementRecorder interface {
	Record(movement *model.StockMovement) error
}

// Reason describes why stock moved, for the audit trail.
type Reason struct {
	MovementType  string // sale, purchase, adjustment, waste
	ReferenceType string // e.g. "sale", "manual"
	ReferenceID   string
}

// DeltaResult is the outcome of one applied delta.
type DeltaResult struct {
	IngredientID uint    `json:"id"`
	NewStock     float64 `json:"new_stock"`
}

// BulkItem is one (ingredient, delta) pair of a bulk adjustment.
type BulkItem struct {
	IngredientID uint    `json:"ingredient_id"`
	Delta        float64 `json:"delta"`
}

// BulkError records a single failed item of a bulk adjustment.
type BulkError struct {
	IngredientID uint   `json:"ingredient_id"`
	Error        string `json:"error"`
}

// BulkResult splits a bulk adjustment into applied results and per-item
// failures. A failed item neither reverts already-applied items nor
// stops processing of the remaining ones.
type BulkResult struct {
	Results []DeltaResult `json:"results"`
	Errors  []BulkError   `json:"errors"`
}

// Ledger applies signed stock deltas under row-level locking and records
// movement history best-effort.
type Ledger struct {
	db          TxRunner
	ingredients IngredientStore
	movements   MovementRecorder
	outbox      *Outbox
	log         *zap.Logger
}

// New creates a stock ledger with its collaborators injected.
func New(db TxRunner, ingredients IngredientStore, movements MovementRecorder, outbox *Outbox, log *zap.Logger) *Ledger {
	return &Ledger{db: db, ingredients: ingredients, movements: movements, outbox: outbox, log: log}
}

// ApplyDeltaTx applies one signed delta inside the caller-supplied
// transaction: lock the row scoped to (id, tenant), then write
// stock = max(0, current + delta). A deduction larger than available
// stock truncates to zero instead of failing.
//
// The returned movement is not yet persisted. Audit writes must wait
// for the transaction to commit, otherwise a rollback would leave
// movement rows describing mutations that never happened; callers hand
// the collected movements to RecordMovements once the transaction has
// returned successfully.
func (l *Ledger) ApplyDeltaTx(tx *gorm.DB, ingredientID, tenantID uint, delta float64, reason Reason) (*DeltaResult, *model.StockMovement, error) {
	ingredient, err := l.ingredients.LockIngredient(tx, ingredientID, tenantID)
	if err != nil {
		return nil, nil, err
	}

	newStock := math.Max(0, ingredient.CurrentStock+delta)
	if err := l.ingredients.UpdateStock(tx, ingredientID, tenantID, newStock); err != nil {
		return nil, nil, err
	}

	movement := &model.StockMovement{
		TenantID:      tenantID,
		IngredientID:  ingredientID,
		Quantity:      delta,
		MovementType:  reason.MovementType,
		ReferenceType: reason.ReferenceType,
		ReferenceID:   reason.ReferenceID,
	}
	return &DeltaResult{IngredientID: ingredientID, NewStock: newStock}, movement, nil
}

// ApplyDelta applies one delta in its own transaction. Used by callers
// that have no surrounding business transaction (manual adjustments).
// The movement is recorded best-effort after the commit.
func (l *Ledger) ApplyDelta(ingredientID, tenantID uint, delta float64, reason Reason) (*DeltaResult, error) {
	var result *DeltaResult
	var movement *model.StockMovement
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, movement, txErr = l.ApplyDeltaTx(tx, ingredientID, tenantID, delta, reason)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	l.recordMovement(movement)
	return result, nil
}

// ApplyDeltaBulk processes the items sequentially inside one
// transaction, collecting per-item outcomes. Items that fail with a
// domain error (absent ingredient) are recorded and skipped; store-level
// failures abort and roll back the batch since the transaction is no
// longer usable.
func (l *Ledger) ApplyDeltaBulk(items []BulkItem, tenantID uint, reason Reason) (*BulkResult, error) {
	result := &BulkResult{
		Results: make([]DeltaResult, 0, len(items)),
		Errors:  make([]BulkError, 0),
	}

	movements := make([]*model.StockMovement, 0, len(items))
	err := l.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			applied, movement, err := l.ApplyDeltaTx(tx, item.IngredientID, tenantID, item.Delta, reason)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					result.Errors = append(result.Errors, BulkError{
						IngredientID: item.IngredientID,
						Error:        err.Error(),
					})
					continue
				}
				return err
			}
			result.Results = append(result.Results, *applied)
			movements = append(movements, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.RecordMovements(movements)
	return result, nil
}

// RecordMovements appends the movements to the audit log best-effort.
// Callers driving ApplyDeltaTx inside their own transaction invoke this
// after the commit; a failed insert is logged and handed to the outbox
// for retry, never surfaced.
func (l *Ledger) RecordMovements(movements []*model.StockMovement) {
	for _, movement := range movements {
		l.recordMovement(movement)
	}
}

func (l *Ledger) recordMovement(movement *model.StockMovement) {
	if err := l.movements.Record(movement); err != nil {
		l.log.Warn("Stock movement log write failed, queued for retry",
			zap.Uint("ingredient_id", movement.IngredientID),
			zap.Uint("tenant_id", movement.TenantID),
			zap.Float64("quantity", movement.Quantity),
			zap.String("movement_type", movement.MovementType),
			zap.Error(err))
		if l.outbox != nil {
			l.outbox.Enqueue(movement)
		}
	}
}

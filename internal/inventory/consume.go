package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Consume takes every line out of stock and appends one OUT movement per
// line. Sufficiency is re-checked here and enforced again by the conditional
// update, so a line never drives stock negative. The caller's transaction
// decides whether earlier lines survive a later failure.
func Consume(ctx context.Context, tx StockWriter, req ConsumeRequest) ([]Movement, error) {
	now := time.Now().UTC()
	movements := make([]Movement, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: ingredient %s", ErrInvalidQuantity, line.IngredientID)
		}
		ingredient, err := tx.GetIngredient(ctx, line.IngredientID)
		if err != nil {
			return nil, fmt.Errorf("consume %s: %w", line.IngredientID, err)
		}
		if ingredient.Stock < line.Quantity {
			return nil, &StockError{Ingredient: ingredient.Name, Available: ingredient.Stock, Required: line.Quantity}
		}
		updated, applied, err := tx.ApplyStockDelta(ctx, ingredient.ID, -line.Quantity, now)
		if err != nil {
			return nil, err
		}
		if !applied {
			current, err := tx.GetIngredient(ctx, ingredient.ID)
			if err != nil {
				return nil, err
			}
			return nil, &StockError{Ingredient: current.Name, Available: current.Stock, Required: line.Quantity}
		}
		movement := Movement{
			ID:             uuid.NewString(),
			IngredientID:   updated.ID,
			IngredientName: updated.Name,
			Type:           MovementOut,
			Quantity:       line.Quantity,
			BalanceAfter:   updated.Stock,
			Reason:         ReasonSaleConsumption,
			RelatedSaleID:  req.SaleID,
			UserID:         req.UserID,
			Date:           now,
			LowStock:       updated.LowStock(),
		}
		if err := tx.InsertMovement(ctx, movement); err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}
	return movements, nil
}

// Restock adds quantity to an ingredient and appends an IN movement.
func Restock(ctx context.Context, tx StockWriter, input RestockInput) (Movement, error) {
	if input.Quantity <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	ingredient, err := tx.GetIngredient(ctx, input.IngredientID)
	if err != nil {
		return Movement{}, err
	}
	now := time.Now().UTC()
	updated, _, err := tx.ApplyStockDelta(ctx, ingredient.ID, input.Quantity, now)
	if err != nil {
		return Movement{}, err
	}
	reason := input.Reason
	if reason == "" {
		reason = "restock"
	}
	movement := Movement{
		ID:               uuid.NewString(),
		IngredientID:     ingredient.ID,
		IngredientName:   ingredient.Name,
		Type:             MovementIn,
		Quantity:         input.Quantity,
		BalanceAfter:     updated.Stock,
		Reason:           reason,
		RelatedExpenseID: input.ExpenseID,
		UserID:           input.UserID,
		Date:             now,
		LowStock:         updated.LowStock(),
	}
	if err := tx.InsertMovement(ctx, movement); err != nil {
		return Movement{}, err
	}
	return movement, nil
}

// Adjust applies a signed correction and appends an ADJUSTMENT movement.
func Adjust(ctx context.Context, tx StockWriter, input AdjustInput) (Movement, error) {
	if input.Delta == 0 {
		return Movement{}, ErrInvalidQuantity
	}
	ingredient, err := tx.GetIngredient(ctx, input.IngredientID)
	if err != nil {
		return Movement{}, err
	}
	now := time.Now().UTC()
	updated, applied, err := tx.ApplyStockDelta(ctx, ingredient.ID, input.Delta, now)
	if err != nil {
		return Movement{}, err
	}
	if !applied {
		return Movement{}, fmt.Errorf("%w: %s has %.2f", ErrNegativeStock, ingredient.Name, ingredient.Stock)
	}
	movement := Movement{
		ID:             uuid.NewString(),
		IngredientID:   ingredient.ID,
		IngredientName: ingredient.Name,
		Type:           MovementAdjustment,
		Quantity:       input.Delta,
		BalanceAfter:   updated.Stock,
		Reason:         input.Reason,
		UserID:         input.UserID,
		Date:           now,
		LowStock:       updated.LowStock(),
	}
	if err := tx.InsertMovement(ctx, movement); err != nil {
		return Movement{}, err
	}
	return movement, nil
}

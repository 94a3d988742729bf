package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Reader
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListIngredients(ctx context.Context) ([]Ingredient, error)
	ListLowStock(ctx context.Context) ([]Ingredient, error)
	InsertIngredient(ctx context.Context, ing Ingredient) error
	UpdateIngredientMeta(ctx context.Context, ing Ingredient) error
	InsertRecipeLine(ctx context.Context, l RecipeLine) error
	DeleteRecipeLine(ctx context.Context, productID, ingredientID string) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations.
type Service struct {
	repo      RepositoryPort
	products  ProductSource
	audit     AuditPort
	notifier  LowStockNotifier
	logger    *slog.Logger
	evaluator *Evaluator
}

// NewService builds Service.
func NewService(repo RepositoryPort, products ProductSource, audit AuditPort, notifier LowStockNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		products:  products,
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
		evaluator: NewEvaluator(products, repo),
	}
}

// CreateIngredient registers a new ingredient with its opening stock.
func (s *Service) CreateIngredient(ctx context.Context, input CreateIngredientInput) (Ingredient, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Ingredient{}, fmt.Errorf("%w: name required", ErrInvalidIngredient)
	}
	if input.Stock < 0 || input.MinStock < 0 {
		return Ingredient{}, fmt.Errorf("%w: stock must not be negative", ErrInvalidIngredient)
	}
	if input.Cost < 0 {
		return Ingredient{}, fmt.Errorf("%w: cost must not be negative", ErrInvalidIngredient)
	}
	now := time.Now().UTC()
	ingredient := Ingredient{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Unit:        strings.TrimSpace(input.Unit),
		Stock:       input.Stock,
		MinStock:    input.MinStock,
		Cost:        input.Cost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertIngredient(ctx, ingredient); err != nil {
		return Ingredient{}, err
	}
	s.record(ctx, "inventory:ingredient:create", "ingredient", ingredient.ID, map[string]any{"name": name, "stock": input.Stock})
	return ingredient, nil
}

// UpdateIngredient changes ingredient metadata.
func (s *Service) UpdateIngredient(ctx context.Context, id string, input UpdateIngredientInput) (Ingredient, error) {
	ingredient, err := s.repo.GetIngredient(ctx, id)
	if err != nil {
		return Ingredient{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Ingredient{}, fmt.Errorf("%w: name required", ErrInvalidIngredient)
		}
		ingredient.Name = name
	}
	if input.Description != nil {
		ingredient.Description = strings.TrimSpace(*input.Description)
	}
	if input.Unit != nil {
		ingredient.Unit = strings.TrimSpace(*input.Unit)
	}
	if input.MinStock != nil {
		if *input.MinStock < 0 {
			return Ingredient{}, fmt.Errorf("%w: min stock must not be negative", ErrInvalidIngredient)
		}
		ingredient.MinStock = *input.MinStock
	}
	if input.Cost != nil {
		if *input.Cost < 0 {
			return Ingredient{}, fmt.Errorf("%w: cost must not be negative", ErrInvalidIngredient)
		}
		ingredient.Cost = *input.Cost
	}
	ingredient.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateIngredientMeta(ctx, ingredient); err != nil {
		return Ingredient{}, err
	}
	return ingredient, nil
}

// GetIngredient returns one ingredient.
func (s *Service) GetIngredient(ctx context.Context, id string) (Ingredient, error) {
	return s.repo.GetIngredient(ctx, id)
}

// ListIngredients returns every ingredient.
func (s *Service) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	return s.repo.ListIngredients(ctx)
}

// ListLowStock returns ingredients at or below min stock.
func (s *Service) ListLowStock(ctx context.Context) ([]Ingredient, error) {
	return s.repo.ListLowStock(ctx)
}

// LinkIngredient adds an ingredient to a product recipe, copying the
// ingredient name and unit onto the link.
func (s *Service) LinkIngredient(ctx context.Context, input LinkInput) (RecipeLine, error) {
	if input.Quantity <= 0 {
		return RecipeLine{}, ErrInvalidQuantity
	}
	if _, err := s.products.GetProduct(ctx, input.ProductID); err != nil {
		return RecipeLine{}, err
	}
	ingredient, err := s.repo.GetIngredient(ctx, input.IngredientID)
	if err != nil {
		return RecipeLine{}, err
	}
	now := time.Now().UTC()
	line := RecipeLine{
		ID:             uuid.NewString(),
		ProductID:      input.ProductID,
		IngredientID:   ingredient.ID,
		IngredientName: ingredient.Name,
		Unit:           ingredient.Unit,
		Quantity:       input.Quantity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertRecipeLine(ctx, line); err != nil {
		return RecipeLine{}, err
	}
	return line, nil
}

// UnlinkIngredient removes an ingredient from a product recipe.
func (s *Service) UnlinkIngredient(ctx context.Context, productID, ingredientID string) error {
	return s.repo.DeleteRecipeLine(ctx, productID, ingredientID)
}

// ListRecipe returns a product's recipe lines.
func (s *Service) ListRecipe(ctx context.Context, productID string) ([]RecipeLine, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListRecipe(ctx, productID)
}

// Restock posts an inbound movement.
func (s *Service) Restock(ctx context.Context, input RestockInput) (Movement, error) {
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		movement, err = Restock(ctx, tx, input)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.record(ctx, "inventory:IN", "ingredient", movement.IngredientID, map[string]any{"qty": movement.Quantity, "reason": movement.Reason})
	return movement, nil
}

// Adjust posts a signed correction that may not drive stock below zero.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (Movement, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return Movement{}, fmt.Errorf("%w: reason required", ErrInvalidIngredient)
	}
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		movement, err = Adjust(ctx, tx, input)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.record(ctx, "inventory:ADJUSTMENT", "ingredient", movement.IngredientID, map[string]any{"qty": movement.Quantity, "reason": movement.Reason})
	s.notify(ctx, []Movement{movement})
	return movement, nil
}

// ConsumeIngredients runs the consumption engine in its own transaction.
// Either every line is consumed or none is.
func (s *Service) ConsumeIngredients(ctx context.Context, req ConsumeRequest) ([]Movement, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: no lines to consume", ErrInvalidQuantity)
	}
	var movements []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		movements, err = Consume(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, movements)
	return movements, nil
}

// ListMovements returns ledger entries.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// Availability evaluates one product or, with an empty id, all products.
func (s *Service) Availability(ctx context.Context, productID string) ([]Availability, error) {
	return s.evaluator.Evaluate(ctx, productID)
}

// CanPrepare reports whether qty units of a product can be prepared.
func (s *Service) CanPrepare(ctx context.Context, productID string, qty int) (Verdict, error) {
	return s.evaluator.CanPrepare(ctx, productID, qty)
}

func (s *Service) notify(ctx context.Context, movements []Movement) {
	if s.notifier == nil {
		return
	}
	for _, evt := range LowStockEvents(movements) {
		if err := s.notifier.NotifyLowStock(ctx, evt); err != nil {
			s.logger.Warn("low stock notification failed",
				slog.String("ingredient_id", evt.IngredientID),
				slog.Any("error", err))
		}
	}
}

func (s *Service) record(ctx context.Context, action, entity, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Meta:     meta,
	}); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/catalog"
	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/promotions"
	"github.com/comanda-pos/comanda/internal/shared"
	"github.com/comanda-pos/comanda/internal/workers"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id string) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against replayed tickets.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort receives sale outcomes.
type MetricsPort interface {
	ObserveSale(outcome, paymentMethod string, total float64, elapsed time.Duration)
	ObserveConsumption(ingredient string, qty float64)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// MaxRetries bounds re-runs of a sale after a serialization failure.
	MaxRetries int
}

// Service records sales.
type Service struct {
	repo       RepositoryPort
	audit      AuditPort
	idem       IdempotencyPort
	notifier   inventory.LowStockNotifier
	metrics    MetricsPort
	logger     *slog.Logger
	pricer     *promotions.Pricer
	maxRetries int
	now        func() time.Time
}

// NewService builds Service. audit, idem, notifier and metrics may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, notifier inventory.LowStockNotifier,
	metrics MetricsPort, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	now := func() time.Time { return time.Now().UTC() }
	return &Service{
		repo:       repo,
		audit:      audit,
		idem:       idem,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
		pricer:     promotions.NewPricer(now),
		maxRetries: retries,
		now:        now,
	}
}

// CreateSale records a ticket. Validation failures return before anything is
// written; any later failure rolls the whole sale back.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (Sale, error) {
	if err := validate(req); err != nil {
		return Sale{}, err
	}
	if req.UserID == "" {
		req.UserID = shared.ActorFromContext(ctx)
	}
	started := time.Now()

	insertedKey := false
	if s.idem != nil && req.IdempotencyKey != "" {
		if err := s.idem.CheckAndInsert(ctx, req.IdempotencyKey, "sales"); err != nil {
			return Sale{}, err
		}
		insertedKey = true
	}

	var (
		sale      Sale
		movements []inventory.Movement
	)
	err := db.Retry(ctx, s.maxRetries+1, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var err error
			sale, movements, err = s.record(ctx, tx, req)
			return err
		})
	})
	if err != nil {
		if insertedKey {
			_ = s.idem.Delete(ctx, req.IdempotencyKey)
		}
		if s.metrics != nil {
			s.metrics.ObserveSale(outcome(err), string(req.PaymentMethod), 0, time.Since(started))
		}
		return Sale{}, err
	}

	s.afterCommit(ctx, sale, movements, time.Since(started))
	return sale, nil
}

func validate(req CreateSaleRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptySale
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %s", ErrInvalidQuantity, item.ProductID)
		}
	}
	if !req.PaymentMethod.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.PaymentMethod)
	}
	return nil
}

// record runs every step of a sale inside tx.
func (s *Service) record(ctx context.Context, tx TxRepository, req CreateSaleRequest) (Sale, []inventory.Movement, error) {
	register, err := tx.OpenRegisterForUpdate(ctx)
	if err != nil {
		return Sale{}, nil, err
	}

	products := make(map[string]catalog.Product, len(req.Items))
	promos := make(map[string]promotions.Promotion)
	lines := make([]promotions.LineRequest, 0, len(req.Items))
	for _, item := range req.Items {
		if _, ok := products[item.ProductID]; !ok {
			product, err := tx.GetProduct(ctx, item.ProductID)
			if err != nil {
				return Sale{}, nil, fmt.Errorf("product %s: %w", item.ProductID, err)
			}
			products[item.ProductID] = product
		}
		if item.PromotionID != "" {
			if _, ok := promos[item.PromotionID]; !ok {
				promo, err := tx.GetPromotion(ctx, item.PromotionID)
				switch {
				case err == nil:
					promos[item.PromotionID] = promo
				case !errors.Is(err, promotions.ErrPromotionNotFound):
					return Sale{}, nil, err
				}
			}
		}
		lines = append(lines, promotions.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity, PromotionID: item.PromotionID})
	}

	quote, err := s.pricer.Quote(lines, products, promos)
	if err != nil {
		return Sale{}, nil, err
	}

	evaluator := inventory.NewEvaluator(tx, tx)
	for _, need := range quote.Requirements {
		verdict, err := evaluator.CanPrepare(ctx, need.ProductID, need.Quantity)
		if err != nil {
			return Sale{}, nil, err
		}
		if !verdict.OK {
			return Sale{}, nil, &CannotPrepareError{ProductName: products[need.ProductID].Name, Reason: verdict.Reason}
		}
	}

	now := s.now()
	sale := Sale{
		ID:             uuid.NewString(),
		Date:           now,
		Total:          quote.Total,
		PaymentMethod:  req.PaymentMethod,
		CookID:         req.CookID,
		DeliveryID:     req.DeliveryID,
		UserID:         req.UserID,
		Notes:          req.Notes,
		CashRegisterID: register.ID,
	}
	for _, line := range quote.Lines {
		sale.Items = append(sale.Items, Item{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			Price:       line.Price,
			Subtotal:    line.Subtotal,
			PromotionID: line.PromotionID,
		})
	}
	if sale.CookName, err = workerName(ctx, tx, req.CookID); err != nil {
		return Sale{}, nil, err
	}
	if sale.DeliveryName, err = workerName(ctx, tx, req.DeliveryID); err != nil {
		return Sale{}, nil, err
	}
	if err := tx.InsertSale(ctx, sale); err != nil {
		return Sale{}, nil, err
	}

	if req.CookID != "" || req.DeliveryID != "" {
		if _, err := workers.Assign(ctx, tx, workers.AssignRequest{
			SaleID:     sale.ID,
			CookID:     req.CookID,
			DeliveryID: req.DeliveryID,
			Units:      sale.Units(),
			At:         now,
		}); err != nil {
			return Sale{}, nil, err
		}
	}

	var movements []inventory.Movement
	for _, item := range req.Items {
		recipe, err := tx.ListRecipe(ctx, item.ProductID)
		if err != nil {
			return Sale{}, nil, err
		}
		if len(recipe) == 0 {
			continue
		}
		consume := inventory.ConsumeRequest{SaleID: sale.ID, UserID: req.UserID}
		for _, line := range recipe {
			consume.Lines = append(consume.Lines, inventory.ConsumeLine{
				IngredientID: line.IngredientID,
				Quantity:     line.Quantity * float64(item.Quantity),
			})
		}
		moved, err := inventory.Consume(ctx, tx, consume)
		if err != nil {
			return Sale{}, nil, err
		}
		movements = append(movements, moved...)
	}

	if _, err := tx.AddSale(ctx, register.ID, sale.Total); err != nil {
		return Sale{}, nil, err
	}
	return sale, movements, nil
}

func workerName(ctx context.Context, tx TxRepository, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	w, err := tx.GetWorker(ctx, id)
	if err != nil {
		return "", err
	}
	return w.Name, nil
}

func (s *Service) afterCommit(ctx context.Context, sale Sale, movements []inventory.Movement, elapsed time.Duration) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  sale.UserID,
			Action:   "sales:create",
			Entity:   "sale",
			EntityID: sale.ID,
			Meta:     map[string]any{"total": sale.Total, "items": len(sale.Items), "register": sale.CashRegisterID},
		}); err != nil {
			s.logger.Warn("audit sale failed", slog.String("sale_id", sale.ID), slog.Any("error", err))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveSale("committed", string(sale.PaymentMethod), sale.Total, elapsed)
		for _, m := range movements {
			s.metrics.ObserveConsumption(m.IngredientName, m.Quantity)
		}
	}
	if s.notifier != nil {
		for _, evt := range inventory.LowStockEvents(movements) {
			if err := s.notifier.NotifyLowStock(ctx, evt); err != nil {
				s.logger.Warn("low stock notification failed",
					slog.String("sale_id", sale.ID),
					slog.String("ingredient_id", evt.IngredientID),
					slog.Any("error", err))
			}
		}
	}
	s.logger.Info("sale recorded",
		slog.String("sale_id", sale.ID),
		slog.String("total", shared.FormatMoney(sale.Total)),
		slog.Int("movements", len(movements)))
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrCannotPrepare), errors.Is(err, inventory.ErrInsufficientStock):
		return "unavailable"
	case db.IsRetryable(err):
		return "conflict"
	default:
		return "rejected"
	}
}

// GetSale returns a sale by id.
func (s *Service) GetSale(ctx context.Context, id string) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales returns sales within the filter.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

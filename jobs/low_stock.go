package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/comanda-pos/comanda/internal/inventory"
	jobmetrics "github.com/comanda-pos/comanda/internal/jobs"
	"github.com/comanda-pos/comanda/internal/shared"
)

// AlertEnqueuer submits low stock alert tasks.
type AlertEnqueuer interface {
	EnqueueLowStockAlert(ctx context.Context, evt inventory.LowStockEvent) error
}

// LowStockNotifier forwards committed low stock events to the queue, at most
// once per ingredient within the TTL window.
type LowStockNotifier struct {
	redis    *redis.Client
	enqueuer AlertEnqueuer
	ttl      time.Duration
}

// NewLowStockNotifier wires the notifier. A non-positive ttl defaults to one hour.
func NewLowStockNotifier(client *redis.Client, enqueuer AlertEnqueuer, ttl time.Duration) *LowStockNotifier {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LowStockNotifier{redis: client, enqueuer: enqueuer, ttl: ttl}
}

// NotifyLowStock implements inventory.LowStockNotifier.
func (n *LowStockNotifier) NotifyLowStock(ctx context.Context, evt inventory.LowStockEvent) error {
	if n == nil || n.enqueuer == nil {
		return nil
	}
	key := shared.LowStockAlertKey(evt.IngredientID)
	if n.redis != nil {
		ok, err := n.redis.SetNX(ctx, key, evt.At.UTC().Format(time.RFC3339), n.ttl).Result()
		if err != nil {
			return fmt.Errorf("low stock dedup: %w", err)
		}
		if !ok {
			return nil
		}
	}
	if err := n.enqueuer.EnqueueLowStockAlert(ctx, evt); err != nil {
		if n.redis != nil {
			_ = n.redis.Del(ctx, key).Err()
		}
		return fmt.Errorf("enqueue low stock alert: %w", err)
	}
	return nil
}

// LowStockAlertJob delivers low stock alerts once the worker picks them up.
type LowStockAlertJob struct {
	Inventory inventory.Reader
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockAlertJob wires dependencies for the alert handler.
func NewLowStockAlertJob(reader inventory.Reader, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockAlertJob {
	return &LowStockAlertJob{Inventory: reader, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLowStockAlert tasks.
func (j *LowStockAlertJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("low stock alert: handler not configured")
	}
	var payload LowStockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Event.IngredientID == "" {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskLowStockAlert)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("ingredient_id", payload.Event.IngredientID))
	ing, err := j.Inventory.GetIngredient(ctx, payload.Event.IngredientID)
	if err != nil {
		if errors.Is(err, inventory.ErrIngredientNotFound) {
			logger.Info("low stock alert dropped, ingredient removed")
			return nil
		}
		resultErr = err
		return err
	}
	if !ing.LowStock() {
		logger.Info("low stock alert dropped, ingredient restocked", slog.Float64("stock", ing.Stock))
		return nil
	}
	j.Metrics.AddLowStockAlert(ing.Name)
	logger.Warn("ingredient low on stock",
		slog.String("ingredient", ing.Name),
		slog.Float64("stock", ing.Stock),
		slog.Float64("min_stock", ing.MinStock),
		slog.String("unit", ing.Unit),
		slog.String("sale_id", payload.Event.SaleID),
	)
	return nil
}

func (j *LowStockAlertJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

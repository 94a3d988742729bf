package inventory

import "context"

// LowStockNotifier receives low stock events once the movement is committed.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, evt LowStockEvent) error
}

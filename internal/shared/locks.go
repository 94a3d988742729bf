package shared

import "fmt"

// LowStockAlertKey builds the redis key that de-duplicates low stock alerts.
func LowStockAlertKey(ingredientID string) string {
	return fmt.Sprintf("inventory:ingredient:%s:low-stock", ingredientID)
}

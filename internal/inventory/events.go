package inventory

import "time"

// LowStockEvent announces an ingredient at or below its reorder threshold.
type LowStockEvent struct {
	IngredientID   string    `json:"ingredient_id"`
	IngredientName string    `json:"ingredient_name"`
	Stock          float64   `json:"stock"`
	SaleID         string    `json:"sale_id,omitempty"`
	At             time.Time `json:"at"`
}

// LowStockEvents collects one event per ingredient left low by the movements.
// The last movement of each ingredient wins.
func LowStockEvents(movements []Movement) []LowStockEvent {
	index := make(map[string]int)
	var events []LowStockEvent
	for _, m := range movements {
		if !m.LowStock {
			continue
		}
		evt := LowStockEvent{
			IngredientID:   m.IngredientID,
			IngredientName: m.IngredientName,
			Stock:          m.BalanceAfter,
			SaleID:         m.RelatedSaleID,
			At:             m.Date,
		}
		if i, ok := index[m.IngredientID]; ok {
			events[i] = evt
			continue
		}
		index[m.IngredientID] = len(events)
		events = append(events, evt)
	}
	return events
}

// Package reports aggregates sales, costs and register activity for the
// dashboard.
package reports

import (
	"time"

	"github.com/comanda-pos/comanda/internal/cashregister"
)

// Profit is the income statement of a period.
type Profit struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	SalesCount        int       `json:"sales_count"`
	TotalSales        float64   `json:"total_sales"`
	ProductCosts      float64   `json:"product_costs"`
	IngredientCosts   float64   `json:"ingredient_costs"`
	WorkerPayments    float64   `json:"worker_payments"`
	OperatingExpenses float64   `json:"operating_expenses"`
	NetProfit         float64   `json:"net_profit"`
}

// Daily summarises one calendar day.
type Daily struct {
	Date       time.Time              `json:"date"`
	SalesCount int                    `json:"sales_count"`
	SalesTotal float64                `json:"sales_total"`
	Expenses   float64                `json:"expenses"`
	Register   *cashregister.Register `json:"register,omitempty"`
}

// GrowthPercentage compares today against earlier periods.
type GrowthPercentage struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
}

// Growth compares today's sales with yesterday and the trailing week and
// month averages.
type Growth struct {
	Today      float64          `json:"today"`
	Yesterday  float64          `json:"yesterday"`
	LastWeek   float64          `json:"last_week"`
	LastMonth  float64          `json:"last_month"`
	Percentage GrowthPercentage `json:"growth_percentage"`
}

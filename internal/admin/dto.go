package admin

import "github.com/shopspring/decimal"

// StatsDTO is the back-office dashboard summary.
type StatsDTO struct {
	TotalUsers     int64            `json:"totalUsers"`
	TotalProducts  int64            `json:"totalProducts"`
	TotalOrders    int64            `json:"totalOrders"`
	TotalRevenue   decimal.Decimal  `json:"totalRevenue"`
	OrdersByStatus map[string]int64 `json:"ordersByStatus"`
}

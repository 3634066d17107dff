package admin

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
)

// Service exposes back-office reporting.
type Service interface {
	Stats(ctx context.Context) (*StatsDTO, error)
}

type service struct {
	conn *gorm.DB
}

// NewService constructs an admin reporting service.
func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection required")
	}
	return &service{conn: conn}, nil
}

// Stats aggregates the dashboard counters. Revenue only counts orders
// whose payment has settled as paid.
func (s *service) Stats(ctx context.Context) (*StatsDTO, error) {
	stats := &StatsDTO{
		TotalRevenue:   decimal.Zero,
		OrdersByStatus: map[string]int64{},
	}

	if err := s.conn.WithContext(ctx).Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	if err := s.conn.WithContext(ctx).Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}
	if err := s.conn.WithContext(ctx).Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}

	var revenue struct {
		Total float64
	}
	if err := s.conn.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0) AS total").
		Where("payment_status = ?", enums.PaymentStatusPaid).
		Scan(&revenue).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
	}
	stats.TotalRevenue = decimal.NewFromFloat(revenue.Total).Round(2)

	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.conn.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders by status")
	}
	for _, row := range rows {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	return stats, nil
}

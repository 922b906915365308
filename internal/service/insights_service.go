package service

import (
	"context"
	"sort"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/store"

	"github.com/google/uuid"
)

// DashboardStats aggregates the numbers behind the merchant dashboard
// widgets.
type DashboardStats struct {
	TotalRevenue   float64        `json:"totalRevenue"`
	TotalOrders    int            `json:"totalOrders"`
	OrdersByStatus map[string]int `json:"ordersByStatus"`
	AbandonedCount int            `json:"abandonedCount"`
	AbandonedValue float64        `json:"abandonedValue"`
	RecoveredCount int            `json:"recoveredCount"`
	RecoveryRate   float64        `json:"recoveryRate"`
	TopProducts    []ProductSales `json:"topProducts"`
}

// ProductSales is per-product sales volume across all orders
type ProductSales struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Units     int       `json:"units"`
	Revenue   float64   `json:"revenue"`
}

// InsightsService computes dashboard aggregates from the commerce store
type InsightsService struct {
	store *store.Store
}

// NewInsightsService creates a new InsightsService
func NewInsightsService(st *store.Store) *InsightsService {
	return &InsightsService{store: st}
}

// Stats builds the full dashboard summary. Revenue counts every
// non-cancelled order; abandoned figures come from the merchant's
// persisted snapshot list.
func (s *InsightsService) Stats(ctx context.Context, merchantID uuid.UUID) (*DashboardStats, error) {
	stats := &DashboardStats{
		OrdersByStatus: make(map[string]int),
	}

	orders := s.store.Orders()
	salesByProduct := make(map[uuid.UUID]*ProductSales)

	for _, order := range orders {
		stats.TotalOrders++
		stats.OrdersByStatus[string(order.Status)]++

		if order.Status == domain.OrderStatusCancelled {
			continue
		}
		stats.TotalRevenue += order.Total

		for _, line := range order.Products {
			sales, ok := salesByProduct[line.ProductID]
			if !ok {
				sales = &ProductSales{ProductID: line.ProductID}
				if product, err := s.store.Product(line.ProductID); err == nil {
					sales.Name = product.Name
				}
				salesByProduct[line.ProductID] = sales
			}
			sales.Units += line.Quantity
			sales.Revenue += line.Subtotal()
		}
	}

	for _, sales := range salesByProduct {
		stats.TopProducts = append(stats.TopProducts, *sales)
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		return stats.TopProducts[i].Revenue > stats.TopProducts[j].Revenue
	})

	abandoned, err := s.store.AbandonedCarts(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	for _, cart := range abandoned {
		stats.AbandonedCount++
		stats.AbandonedValue += cart.Total
		if cart.IsRecovered {
			stats.RecoveredCount++
		}
	}
	if stats.AbandonedCount > 0 {
		stats.RecoveryRate = float64(stats.RecoveredCount) / float64(stats.AbandonedCount)
	}

	return stats, nil
}

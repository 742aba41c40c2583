package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/pkg/types"
)

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// PaymentOverview is the admin dashboard headline block.
type PaymentOverview struct {
	StatusCounts        map[types.TransactionStatus]int64 `json:"status_counts"`
	CompletedRevenue    int64                             `json:"completed_revenue"`
	ActiveSubscriptions int64                             `json:"active_subscriptions"`
}

type DailyRevenuePoint struct {
	Date    string `json:"date"`
	Count   int64  `json:"count"`
	Revenue int64  `json:"revenue"`
}

func (s *Service) GetPaymentOverview(ctx context.Context) (*PaymentOverview, error) {
	type statusRow struct {
		Status types.TransactionStatus
		Count  int64
	}
	var rows []statusRow
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count transactions by status: %w", err)
	}

	var revenue int64
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("status = ?", types.TransactionStatusCompleted).
		Select("coalesce(sum(amount), 0)").
		Scan(&revenue).Error; err != nil {
		return nil, fmt.Errorf("sum completed revenue: %w", err)
	}

	var active int64
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND expire_at > ?", types.SubscriptionStatusActive, time.Now()).
		Count(&active).Error; err != nil {
		return nil, fmt.Errorf("count active subscriptions: %w", err)
	}

	return &PaymentOverview{
		StatusCounts: lo.SliceToMap(rows, func(r statusRow) (types.TransactionStatus, int64) {
			return r.Status, r.Count
		}),
		CompletedRevenue:    revenue,
		ActiveSubscriptions: active,
	}, nil
}

// GetDailyRevenue returns per-day completed counts and revenue for the last
// `days` days, oldest first.
func (s *Service) GetDailyRevenue(ctx context.Context, days int) ([]*DailyRevenuePoint, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	var points []*DailyRevenuePoint
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("to_char(completed_at, 'YYYY-MM-DD') as date, count(*) as count, coalesce(sum(amount), 0) as revenue").
		Where("status = ? AND completed_at >= ?", types.TransactionStatusCompleted, since).
		Group("to_char(completed_at, 'YYYY-MM-DD')").
		Order("date asc").
		Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("daily revenue: %w", err)
	}
	return points, nil
}

// ScanTransactions implements the paginated/filterable admin listing.
type ScanTransactionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanTransactionsResponse struct {
	Items []*models.Transaction `json:"items"`
	Total int64                 `json:"total"`
}

func (s *Service) ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Transaction{})
	for _, f := range req.Filters {
		tx = tx.Where(f)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})

	var rows []*models.Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return &ScanTransactionsResponse{Items: rows, Total: total}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)

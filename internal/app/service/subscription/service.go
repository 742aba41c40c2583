package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/pkg/config"
	"github.com/teleshop/paygate/pkg/logctx"
	"github.com/teleshop/paygate/pkg/tool"
	"github.com/teleshop/paygate/pkg/types"
)

// Service maintains user subscriptions. A completed payment extends the
// current subscription (or starts one) by the plan's duration.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

// Activate extends or creates the subscription for (user, plan). The caller
// guarantees at-most-once invocation per transaction, so Activate itself
// does not deduplicate.
func (s *Service) Activate(ctx context.Context, userID int64, plan *types.Plan, txn *models.Transaction) error {
	if plan == nil {
		return fmt.Errorf("subscription: nil plan")
	}

	var before, after *models.Subscription
	reason := types.SubscriptionChangeReasonPurchase

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Subscription
		err := tx.Where("user_id = ?", userID).First(&current).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load subscription: %w", err)
		}

		now := time.Now()
		base := now
		if current.ID != "" {
			cp := current
			before = &cp
			if current.Valid() {
				// extension stacks onto the remaining time
				base = *current.ExpireAt
				reason = types.SubscriptionChangeReasonRenewal
			}
		}
		expire := base.Add(time.Duration(plan.DurationDays) * 24 * time.Hour)

		next := models.Subscription{
			ID:       current.ID,
			UserID:   userID,
			PlanID:   plan.ID,
			Status:   types.SubscriptionStatusActive,
			ExpireAt: &expire,
			Extra:    current.Extra,
		}
		if next.ID == "" {
			next.ID = tool.GenerateUUIDV7()
		} else {
			next.CreatedAt = current.CreatedAt
		}

		if err := tx.Save(&next).Error; err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
		after = &next
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscription: activate user %d plan %s: %w", userID, plan.ID, err)
	}

	s.writeLog(ctx, before, after, reason, txn)
	s.handleSubscriptionChange(ctx, after, reason, txn)

	logctx.FromCtx(ctx, s.log).Infow("subscription_activated",
		"user_id", userID, "plan_id", plan.ID, "expire_at", after.ExpireAt, "reason", reason)
	return nil
}

// Gift grants a plan without a payment, for admin use.
func (s *Service) Gift(ctx context.Context, userID int64, planID string) error {
	plan := s.cfg.GetPlanByID(planID)
	if plan == nil {
		return fmt.Errorf("subscription: plan not found: %s", planID)
	}
	return s.Activate(ctx, userID, plan, nil)
}

// GetUserSubscription returns the current subscription view for the bot.
// A missing row reads as inactive.
func (s *Service) GetUserSubscription(ctx context.Context, userID int64) (*types.UserSubscriptionInfo, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &types.UserSubscriptionInfo{Status: types.SubscriptionStatusInactive}, nil
	}
	if err != nil {
		return nil, err
	}

	info := &types.UserSubscriptionInfo{Status: types.SubscriptionStatusInactive, PlanID: sub.PlanID}
	if sub.Valid() {
		info.Status = types.SubscriptionStatusActive
		info.ExpireAt = *sub.ExpireAt
	}
	return info, nil
}

// writeLog appends a before/after snapshot; errors are logged, not returned.
func (s *Service) writeLog(ctx context.Context, before, after *models.Subscription, reason types.SubscriptionChangeReason, txn *models.Transaction) {
	go func() {
		row := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: after.UserID,
			PlanID: after.PlanID,
			Reason: reason,
			Before: datatypes.NewJSONType(before),
			After:  datatypes.NewJSONType(after),
		}
		if txn != nil {
			row.TransactionID = txn.ID
		}
		if err := s.db.Save(row).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}

// handleSubscriptionChange is the post-change hook. Payer notification is
// the Telegram bot's job; it polls the subscription via the API.
func (s *Service) handleSubscriptionChange(ctx context.Context, sub *models.Subscription, reason types.SubscriptionChangeReason, txn *models.Transaction) {
}

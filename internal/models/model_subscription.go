package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/teleshop/paygate/pkg/types"
)

// Subscription stores a user's current subscription. One row per user;
// completed payments extend ExpireAt. Use Valid() to check whether the
// subscription is currently active.
type Subscription struct {
	ID       string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID   int64                    `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	PlanID   string                   `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	Status   types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	ExpireAt *time.Time               `gorm:"column:expire_at;default:null" json:"expire_at"`
	// Extra stores additional JSON data (price paid, gateway payment id).
	Extra     datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

func (s *Subscription) Valid() bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.ExpireAt != nil &&
		s.ExpireAt.After(time.Now())
}

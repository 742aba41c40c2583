package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/teleshop/paygate/pkg/types"
)

// SubscriptionLog is an append-only before/after snapshot written on every
// subscription change.
type SubscriptionLog struct {
	ID            string                            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID        int64                             `gorm:"column:user_id;not null;index" json:"user_id"`
	PlanID        string                            `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	TransactionID string                            `gorm:"column:transaction_id;type:varchar(64)" json:"transaction_id"`
	Reason        types.SubscriptionChangeReason    `gorm:"column:reason;type:varchar(32);not null" json:"reason"`
	Before        datatypes.JSONType[*Subscription] `gorm:"column:before;type:jsonb" json:"before"`
	After         datatypes.JSONType[*Subscription] `gorm:"column:after;type:jsonb" json:"after"`
	CreatedAt     time.Time                         `json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}

package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/teleshop/paygate/pkg/types"
)

type TransactionExtra struct {
	// PlanSnapshot freezes the plan as priced at prepare time.
	PlanSnapshot *types.Plan `json:"plan_snapshot"`
}

// Transaction is one payment attempt driven by the gateway's
// prepare/complete callbacks (or the stored-token flow). Rows are never
// deleted; terminal statuses are absorbing.
type Transaction struct {
	ID string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	// ClickTransID is the gateway-assigned id, stable per attempt.
	ClickTransID int64 `gorm:"column:click_trans_id;not null;uniqueIndex" json:"click_trans_id"`
	// PrepareID is minted at prepare time and must be presented again at
	// complete; it is the idempotency handle between the two phases.
	PrepareID int64                   `gorm:"column:prepare_id;not null;index" json:"prepare_id"`
	UserID    int64                   `gorm:"column:user_id;not null;index" json:"user_id"`
	PlanID    string                  `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	Amount    int64                   `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Kind      types.PaymentKind       `gorm:"column:kind;type:varchar(32);not null" json:"kind"`
	Status    types.TransactionStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	// GatewayErrorCode/Note record the non-zero error the gateway reported, if any.
	GatewayErrorCode int                                   `gorm:"column:gateway_error_code;not null;default:0" json:"gateway_error_code"`
	GatewayErrorNote string                                `gorm:"column:gateway_error_note;type:varchar(255)" json:"gateway_error_note,omitempty"`
	CompletedAt      *time.Time                            `gorm:"column:completed_at;default:null" json:"completed_at"`
	Extra            datatypes.JSONType[*TransactionExtra] `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt        time.Time                             `json:"created_at"`
	UpdatedAt        time.Time                             `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transaction"
}

func (t *Transaction) GetPlanSnapshot() *types.Plan {
	if t == nil || t.Extra.Data() == nil {
		return nil
	}
	return t.Extra.Data().PlanSnapshot
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

type CallbackLogStatus string

const (
	CallbackLogStatusReceived     CallbackLogStatus = "received"
	CallbackLogStatusHandled      CallbackLogStatus = "handled"
	CallbackLogStatusHandleFailed CallbackLogStatus = "handle_failed"
)

// CallbackLog is the audit trail of every gateway callback: the raw payload
// as received and, on the follow-up row, the result returned to the gateway.
type CallbackLog struct {
	ID           string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ClickTransID int64             `gorm:"column:click_trans_id;not null;index" json:"click_trans_id"`
	TraceID      string            `gorm:"column:trace_id;type:varchar(64)" json:"trace_id"`
	Action       int               `gorm:"column:action;not null" json:"action"`
	Status       CallbackLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	Payload      datatypes.JSON    `gorm:"column:payload;type:jsonb" json:"payload"`
	Result       *datatypes.JSON   `gorm:"column:result;type:jsonb" json:"result"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (CallbackLog) TableName() string {
	return "callback_log"
}

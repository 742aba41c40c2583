package types

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonPurchase SubscriptionChangeReason = "purchase"
	SubscriptionChangeReasonRenewal  SubscriptionChangeReason = "renewal"
	SubscriptionChangeReasonGift     SubscriptionChangeReason = "gift"
)

type UserSubscriptionInfo struct {
	Status   SubscriptionStatus `json:"status"`
	PlanID   string             `json:"plan_id"`
	ExpireAt time.Time          `json:"expire_at"`
}

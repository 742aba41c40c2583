package types

// PaymentKind distinguishes the two payment flows sharing the callback shape.
type PaymentKind string

const (
	// PaymentKindOneOff is a single invoice/redirect payment.
	PaymentKindOneOff PaymentKind = "one_off"
	// PaymentKindRecurring is a charge against a stored card token.
	PaymentKindRecurring PaymentKind = "recurring"
)

// CallbackVariant selects which wire field carries the user id versus the
// plan id in gateway callbacks. One variant per deployment.
type CallbackVariant string

const (
	// CallbackVariantRedirect: merchant_trans_id = user id, param2 = plan id.
	CallbackVariantRedirect CallbackVariant = "redirect"
	// CallbackVariantToken: merchant_trans_id = plan id, param2 = user id.
	CallbackVariantToken CallbackVariant = "token"
)

// Plan is a purchasable subscription plan. Plans are configuration data, not
// database rows; prices are in tiyin (minor currency unit).
type Plan struct {
	ID           string `json:"id" mapstructure:"id"`
	Title        string `json:"title" mapstructure:"title"`
	Price        int64  `json:"price" mapstructure:"price"`
	DurationDays int64  `json:"duration_days" mapstructure:"duration_days"`
	Recurring    bool   `json:"recurring" mapstructure:"recurring"`
}

func (p *Plan) Kind() PaymentKind {
	if p != nil && p.Recurring {
		return PaymentKindRecurring
	}
	return PaymentKindOneOff
}

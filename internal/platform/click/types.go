package click

import "strconv"

// Callback actions. The gateway multiplexes both phases onto one endpoint
// and distinguishes them by this code.
const (
	ActionPrepare  = 0
	ActionComplete = 1
)

// ErrorCode is the numeric result contract returned to the gateway in the
// callback response body. The gateway protocol signals failure in-band; the
// HTTP status is always 200.
type ErrorCode int

const (
	CodeSuccess             ErrorCode = 0
	CodeSignCheckFailed     ErrorCode = -1
	CodeInvalidAmount       ErrorCode = -2
	CodeActionNotFound      ErrorCode = -3
	CodeAlreadyPaid         ErrorCode = -4
	CodeUserNotFound        ErrorCode = -5
	CodeTransactionNotFound ErrorCode = -6
	CodeUpdateFailed        ErrorCode = -7
	CodeTransactionCanceled ErrorCode = -9
)

var codeNotes = map[ErrorCode]string{
	CodeSuccess:             "Success",
	CodeSignCheckFailed:     "SIGN CHECK FAILED!",
	CodeInvalidAmount:       "Incorrect parameter amount",
	CodeActionNotFound:      "Action not found",
	CodeAlreadyPaid:         "Already paid",
	CodeUserNotFound:        "User does not exist",
	CodeTransactionNotFound: "Transaction does not exist",
	CodeUpdateFailed:        "Failed to update user",
	CodeTransactionCanceled: "Transaction cancelled",
}

func (c ErrorCode) Note() string {
	if n, ok := codeNotes[c]; ok {
		return n
	}
	return "Unknown error"
}

// CallbackRequest is the raw webhook body shared by prepare and complete.
// merchant_prepare_id and error are only meaningful on complete.
type CallbackRequest struct {
	ClickTransID      int64   `json:"click_trans_id" form:"click_trans_id"`
	ServiceID         int64   `json:"service_id" form:"service_id"`
	MerchantTransID   string  `json:"merchant_trans_id" form:"merchant_trans_id"`
	MerchantPrepareID string  `json:"merchant_prepare_id" form:"merchant_prepare_id"`
	Param2            string  `json:"param2" form:"param2"`
	Amount            float64 `json:"amount" form:"amount"`
	Action            int     `json:"action" form:"action"`
	Error             int     `json:"error" form:"error"`
	ErrorNote         string  `json:"error_note" form:"error_note"`
	SignTime          string  `json:"sign_time" form:"sign_time"`
	SignString        string  `json:"sign_string" form:"sign_string"`
}

// CallbackResponse echoes the transaction identifiers back to the gateway
// together with the numeric result.
type CallbackResponse struct {
	ClickTransID      int64     `json:"click_trans_id"`
	MerchantTransID   string    `json:"merchant_trans_id"`
	MerchantPrepareID int64     `json:"merchant_prepare_id,omitempty"`
	MerchantConfirmID int64     `json:"merchant_confirm_id,omitempty"`
	Error             ErrorCode `json:"error"`
	ErrorNote         string    `json:"error_note"`
}

// FormatAmount renders an amount the way it participates in the signature:
// shortest decimal form, no trailing zeros ("50000", "50000.5").
func FormatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}

// Invoice status values reported by the gateway.
const (
	InvoiceStatusPending   = 0
	InvoiceStatusPaid      = 1
	InvoiceStatusCancelled = -1
)

type CreateInvoiceRequest struct {
	ServiceID       int64   `json:"service_id"`
	Amount          float64 `json:"amount"`
	PhoneNumber     string  `json:"phone_number"`
	MerchantTransID string  `json:"merchant_trans_id"`
}

type CreateInvoiceResult struct {
	InvoiceID int64 `json:"invoice_id"`
}

type InvoiceStatusResult struct {
	Status     int    `json:"status"`
	StatusNote string `json:"status_note"`
}

type CreateCardTokenRequest struct {
	ServiceID  int64  `json:"service_id"`
	CardNumber string `json:"card_number"`
	ExpireDate string `json:"expire_date"`
	Temporary  int    `json:"temporary"`
}

type CreateCardTokenResult struct {
	CardToken   string `json:"card_token"`
	PhoneNumber string `json:"phone_number"`
	Temporary   int    `json:"temporary"`
}

type VerifyCardTokenRequest struct {
	ServiceID int64  `json:"service_id"`
	CardToken string `json:"card_token"`
	SmsCode   string `json:"sms_code"`
}

type VerifyCardTokenResult struct {
	CardNumber string `json:"card_number"`
}

type PayWithCardTokenRequest struct {
	ServiceID       int64   `json:"service_id"`
	CardToken       string  `json:"card_token"`
	Amount          float64 `json:"amount"`
	MerchantTransID string  `json:"merchant_trans_id"`
}

type PayWithCardTokenResult struct {
	PaymentID int64 `json:"payment_id"`
}

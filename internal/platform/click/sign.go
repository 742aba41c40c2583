package click

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// SignParams is the ordered tuple of callback fields covered by the
// signature. MerchantPrepareID participates only on the complete action and
// must stay empty on prepare.
type SignParams struct {
	ClickTransID      int64
	ServiceID         int64
	SecretKey         string
	MerchantTransID   string
	MerchantPrepareID string
	Amount            float64
	Action            int
	SignTime          string
}

// ComputeSignature hashes the concatenation
//
//	click_trans_id + service_id + secret_key + merchant_trans_id +
//	[merchant_prepare_id] + amount + action + sign_time
//
// with MD5 and returns lower-case hex. The field order is the wire contract
// shared with the gateway; transposing any two fields breaks every signature.
func ComputeSignature(p SignParams) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(p.ClickTransID, 10))
	b.WriteString(strconv.FormatInt(p.ServiceID, 10))
	b.WriteString(p.SecretKey)
	b.WriteString(p.MerchantTransID)
	if p.Action == ActionComplete {
		b.WriteString(p.MerchantPrepareID)
	}
	b.WriteString(FormatAmount(p.Amount))
	b.WriteString(strconv.Itoa(p.Action))
	b.WriteString(p.SignTime)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the supplied digest against the computed one.
// Any mismatch is a hard failure mapped to CodeSignCheckFailed by callers,
// never a retry.
func VerifySignature(p SignParams, supplied string) bool {
	if supplied == "" {
		return false
	}
	return ComputeSignature(p) == strings.ToLower(supplied)
}

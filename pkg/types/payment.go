package types

// TransactionStatus is the lifecycle state of a payment attempt.
// Transitions are monotonic: pending → processing → completed on the success
// path; failed and canceled absorb from pending/processing and are terminal.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCanceled   TransactionStatus = "canceled"
)

func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed || s == TransactionStatusCanceled
}

// Open reports whether the transaction may still be completed.
func (s TransactionStatus) Open() bool {
	return s == TransactionStatusPending || s == TransactionStatusProcessing
}

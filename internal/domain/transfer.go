package domain

import (
	"fmt"
	"time"
)

// Transfer is a settled movement of balance between two profiles. Ref is the
// idempotency key chosen by the caller; a ref is settled at most once.
type Transfer struct {
	Ref       string    `json:"ref"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    int64     `json:"amount"`
	SettledAt time.Time `json:"settled_at"`
}

// DisbursementRef keys the principal transfer of a loan.
func DisbursementRef(loanID string) string {
	return "disburse:" + loanID
}

// RepaymentRef keys a repayment by the cumulative amount repaid once it
// settles, which is unique per loan because AmountRepaid only grows.
func RepaymentRef(loanID string, repaidAfter int64) string {
	return fmt.Sprintf("repay:%s:%d", loanID, repaidAfter)
}

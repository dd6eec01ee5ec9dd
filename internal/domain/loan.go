package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/pkg/utils"
)

// Upper bounds on loan terms. MaxDuration (100 years in seconds) keeps due
// dates inside time.Duration range; MaxAmount leaves headroom for interest.
const (
	MaxAmount   int64 = 1_000_000_000_000_000
	MaxDuration int64 = 100 * 365 * 24 * 60 * 60
)

// LoanStatus is the closed set of loan lifecycle states.
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// IsTerminal reports whether no further transition may leave the status.
// Unknown statuses are terminal so nothing mutates a record it cannot read.
func (s LoanStatus) IsTerminal() bool {
	return s != LoanStatusActive
}

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusActive, LoanStatusCompleted, LoanStatusDefaulted:
		return true
	}
	return false
}

func (s *LoanStatus) UnmarshalText(text []byte) error {
	v := LoanStatus(text)
	if !v.Valid() {
		return fmt.Errorf("domain: unknown loan status %q", string(text))
	}
	*s = v
	return nil
}

// Loan represents a loan entity
type Loan struct {
	ID              string          `json:"id"`
	RequestID       string          `json:"request_id"`
	Amount          int64           `json:"amount"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	Duration        int64           `json:"duration"`
	Borrower        string          `json:"borrower"`
	Lender          string          `json:"lender,omitempty"`
	Status          LoanStatus      `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	DueDate         time.Time       `json:"due_date"`
	AmountRepaid    int64           `json:"amount_repaid"`
	AccruedInterest int64           `json:"accrued_interest"`
	LastAccrualAt   time.Time       `json:"last_accrual_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasLender reports whether the loan has been funded.
func (l Loan) HasLender() bool {
	return l.Lender != ""
}

// TotalDue is principal plus interest accrued so far, capped at math.MaxInt64.
func (l Loan) TotalDue() int64 {
	return utils.AddSaturating(l.Amount, l.AccruedInterest)
}

// Involves reports whether identity is the borrower or lender of the loan.
func (l Loan) Involves(identity string) bool {
	return l.Borrower == identity || (l.HasLender() && l.Lender == identity)
}

// LoanTerms carries the mutable terms of an active loan.
type LoanTerms struct {
	Amount       int64           `json:"amount" validate:"gt=0,lte=1000000000000000"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Duration     int64           `json:"duration" validate:"gt=0,lte=3153600000"`
}

// DTOs for requests and responses

type RepaymentRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

type ExtensionRequest struct {
	Duration int64 `json:"duration" validate:"gt=0,lte=3153600000"`
}

type LoanHistoryResponse struct {
	Identity string  `json:"identity"`
	Loans    []*Loan `json:"loans"`
}

type SweepResponse struct {
	LoanIDs []string `json:"loan_ids"`
	Errors  []string `json:"errors,omitempty"`
}

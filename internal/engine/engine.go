// Package engine holds the loan lifecycle rules. Every method is pure: it
// takes a loan by value and returns the complete next state, so a caller can
// persist the result as a single self-consistent write.
package engine

import (
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/utils"

	"github.com/shopspring/decimal"
)

// DefaultRateBasis expresses interest rates in percent.
const DefaultRateBasis = 100

type Engine struct {
	rateBasis decimal.Decimal
}

// New returns an engine whose rates are expressed per rateBasis units
// (100 for percent, 10000 for basis points). Non-positive values fall back to percent.
func New(rateBasis int64) *Engine {
	if rateBasis <= 0 {
		rateBasis = DefaultRateBasis
	}
	return &Engine{rateBasis: decimal.NewFromInt(rateBasis)}
}

// ValidateTerms checks the amount, rate and duration rules shared by requests and modifications.
func (e *Engine) ValidateTerms(amount int64, rate decimal.Decimal, duration int64) error {
	if amount <= 0 {
		return customError.WrapInvalidPayload("amount must be positive, got %d", amount)
	}
	if amount > domain.MaxAmount {
		return customError.WrapInvalidPayload("amount %d exceeds the maximum of %d", amount, domain.MaxAmount)
	}
	if err := validateDuration(duration); err != nil {
		return err
	}
	if rate.IsNegative() {
		return customError.WrapInvalidPayload("interest rate must not be negative, got %s", rate)
	}
	return nil
}

func (e *Engine) ValidateRequest(req domain.LoanRequest) error {
	return e.ValidateTerms(req.Amount, req.InterestRate, req.Duration)
}

// AcceptRequest creates an Active loan from req. lender may be empty.
func (e *Engine) AcceptRequest(req domain.LoanRequest, loanID, borrower, lender string, now time.Time) (domain.Loan, error) {
	if err := e.ValidateRequest(req); err != nil {
		return domain.Loan{}, err
	}
	if borrower == "" {
		return domain.Loan{}, customError.WrapInvalidPayload("borrower identity is required")
	}
	if lender == borrower {
		return domain.Loan{}, customError.WrapInvalidPayload("lender and borrower must differ")
	}

	return domain.Loan{
		ID:            loanID,
		RequestID:     req.ID,
		Amount:        req.Amount,
		InterestRate:  req.InterestRate,
		Duration:      req.Duration,
		Borrower:      borrower,
		Lender:        lender,
		Status:        domain.LoanStatusActive,
		CreatedAt:     now,
		DueDate:       utils.CalculateDueDate(now, req.Duration),
		LastAccrualAt: now,
		UpdatedAt:     now,
	}, nil
}

// AssignLender funds an Active loan that has no lender yet. A lender, once set, is never replaced.
func (e *Engine) AssignLender(loan domain.Loan, lender string, now time.Time) (domain.Loan, error) {
	if err := requireActive(loan); err != nil {
		return loan, err
	}
	if lender == "" {
		return loan, customError.WrapInvalidPayload("lender identity is required")
	}
	if loan.HasLender() {
		return loan, customError.WrapInvalidPayload("loan %s is already funded", loan.ID)
	}
	if lender == loan.Borrower {
		return loan, customError.WrapInvalidPayload("lender and borrower must differ")
	}

	loan.Lender = lender
	loan.UpdatedAt = now
	return loan, nil
}

// AccrueInterest adds simple interest for the time since LastAccrualAt.
// LastAccrualAt only advances when whole units accrue, so sub-unit interest
// carries into the next call instead of being dropped. Calling twice at the
// same instant is a no-op.
func (e *Engine) AccrueInterest(loan domain.Loan, now time.Time) domain.Loan {
	if loan.Status != domain.LoanStatusActive {
		return loan
	}

	elapsed := utils.ElapsedSeconds(loan.LastAccrualAt, now)
	delta := utils.CalculateSimpleInterest(loan.Amount, loan.InterestRate, elapsed, e.rateBasis)
	if delta <= 0 {
		return loan
	}

	loan.AccruedInterest = utils.AddSaturating(loan.AccruedInterest, delta)
	loan.LastAccrualAt = now
	loan.UpdatedAt = now
	return loan
}

// IsFullyRepaid reports whether repayments cover principal plus accrued interest.
func (e *Engine) IsFullyRepaid(loan domain.Loan) bool {
	return loan.AmountRepaid >= loan.TotalDue()
}

// IsDefaulted reports whether an Active loan is past due and not fully repaid.
func (e *Engine) IsDefaulted(loan domain.Loan, now time.Time) bool {
	return loan.Status == domain.LoanStatusActive &&
		utils.IsPastDue(now, loan.DueDate) &&
		!e.IsFullyRepaid(loan)
}

// Outstanding is what remains to settle the loan at now.
func (e *Engine) Outstanding(loan domain.Loan, now time.Time) int64 {
	accrued := e.AccrueInterest(loan, now)
	remaining := accrued.TotalDue() - accrued.AmountRepaid
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ApplyRepayment settles amount against the loan, completing it once fully repaid.
func (e *Engine) ApplyRepayment(loan domain.Loan, amount int64, now time.Time) (domain.Loan, error) {
	if amount <= 0 {
		return loan, customError.WrapInvalidPayload("repayment amount must be positive, got %d", amount)
	}
	if err := requireActive(loan); err != nil {
		return loan, err
	}

	next := e.AccrueInterest(loan, now)
	if remaining := next.TotalDue() - next.AmountRepaid; amount > remaining {
		return loan, customError.WrapInvalidPayload("repayment %d exceeds outstanding balance %d", amount, remaining)
	}

	next.AmountRepaid += amount
	if e.IsFullyRepaid(next) {
		next.Status = domain.LoanStatusCompleted
	}
	next.UpdatedAt = now
	return next, nil
}

// CheckDefault transitions an overdue Active loan to Defaulted. Terminal loans are returned unchanged.
func (e *Engine) CheckDefault(loan domain.Loan, now time.Time) (domain.Loan, bool) {
	if loan.Status.IsTerminal() || !e.IsDefaulted(loan, now) {
		return loan, false
	}
	loan.Status = domain.LoanStatusDefaulted
	loan.UpdatedAt = now
	return loan, true
}

// ModifyTerms replaces the terms of an Active loan. Interest owed under the
// old terms is accrued first; AmountRepaid is kept.
func (e *Engine) ModifyTerms(loan domain.Loan, terms domain.LoanTerms, now time.Time) (domain.Loan, error) {
	if err := requireActive(loan); err != nil {
		return loan, err
	}
	if err := e.ValidateTerms(terms.Amount, terms.InterestRate, terms.Duration); err != nil {
		return loan, err
	}

	next := e.AccrueInterest(loan, now)
	if next.AmountRepaid > utils.AddSaturating(terms.Amount, next.AccruedInterest) {
		return loan, customError.WrapInvalidPayload(
			"amount %d plus accrued interest %d is below the %d already repaid",
			terms.Amount, next.AccruedInterest, next.AmountRepaid)
	}

	next.Amount = terms.Amount
	next.InterestRate = terms.InterestRate
	next.Duration = terms.Duration
	next.DueDate = utils.CalculateDueDate(now, terms.Duration)
	next.LastAccrualAt = now
	if e.IsFullyRepaid(next) {
		next.Status = domain.LoanStatusCompleted
	}
	next.UpdatedAt = now
	return next, nil
}

// ExtendDuration lengthens an Active loan; the new duration must exceed the current one.
func (e *Engine) ExtendDuration(loan domain.Loan, duration int64, now time.Time) (domain.Loan, error) {
	if err := requireActive(loan); err != nil {
		return loan, err
	}
	if err := validateDuration(duration); err != nil {
		return loan, err
	}
	if duration <= loan.Duration {
		return loan, customError.WrapInvalidPayload(
			"new duration %d must exceed current duration %d", duration, loan.Duration)
	}

	loan.Duration = duration
	loan.DueDate = utils.CalculateDueDate(now, duration)
	loan.UpdatedAt = now
	return loan, nil
}

// ComputeRepaymentAmount approximates an installment as accrued interest plus floor(amount/duration).
func (e *Engine) ComputeRepaymentAmount(loan domain.Loan, now time.Time) (int64, error) {
	if loan.Duration == 0 {
		return 0, customError.WrapInvalidPayload("loan %s has zero duration", loan.ID)
	}
	accrued := e.AccrueInterest(loan, now)
	return utils.AddSaturating(accrued.AccruedInterest, utils.InstallmentPrincipal(loan.Amount, loan.Duration)), nil
}

func requireActive(loan domain.Loan) error {
	if loan.Status.IsTerminal() {
		return customError.WrapInvalidPayload("loan %s is %s", loan.ID, loan.Status)
	}
	return nil
}

func validateDuration(duration int64) error {
	if duration <= 0 {
		return customError.WrapInvalidPayload("duration must be positive, got %d", duration)
	}
	if duration > domain.MaxDuration {
		return customError.WrapInvalidPayload("duration %d exceeds the maximum of %d seconds", duration, domain.MaxDuration)
	}
	return nil
}

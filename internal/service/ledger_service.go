package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/engine"
	"github.com/segyhp/loan-ledger/internal/identity"
	"github.com/segyhp/loan-ledger/internal/logger"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// Clock returns the current time.
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// LedgerService validates caller intent, runs the engine rules and persists the result.
// Mutating operations are serialised; reads go straight to the store.
type LedgerService struct {
	Stores   repository.Stores
	Engine   *engine.Engine
	Rail     PaymentRail
	Identity identity.Provider
	Clock    Clock

	// StrictRegistration rejects re-registration of an existing identity.
	StrictRegistration bool

	newID func() string
	mu    sync.Mutex
}

func NewLedgerService(
	stores repository.Stores,
	eng *engine.Engine,
	rail PaymentRail,
	provider identity.Provider,
	clock Clock,
) *LedgerService {
	if rail == nil {
		rail = NoopRail{}
	}
	if clock == nil {
		clock = SystemClock
	}
	return &LedgerService{
		Stores:   stores,
		Engine:   eng,
		Rail:     rail,
		Identity: provider,
		Clock:    clock,
		newID:    uuid.NewString,
	}
}

func (s *LedgerService) caller(ctx context.Context) (string, error) {
	id, err := s.Identity.CallerIdentity(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", customError.WrapMissingIdentity()
	}
	return id, nil
}

// RegisterUser creates the caller's profile with a zero balance. Registering
// again replaces the name and keeps the balance unless StrictRegistration is set.
func (s *LedgerService) RegisterUser(ctx context.Context, name string) (*domain.UserProfile, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, customError.WrapInvalidPayload("name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Clock()
	profile := domain.UserProfile{Identity: caller, Name: name, CreatedAt: now, UpdatedAt: now}

	existing, err := s.Stores.Profiles.Get(ctx, caller)
	switch {
	case err == nil:
		if s.StrictRegistration {
			return nil, customError.WrapInvalidPayload("identity %s is already registered", caller)
		}
		profile.Balance = existing.Balance
		profile.CreatedAt = existing.CreatedAt
	case !customError.IsNotFound(err):
		return nil, err
	}

	if err := s.Stores.Profiles.Put(ctx, caller, profile); err != nil {
		return nil, err
	}

	logger.Info().Str("identity", caller).Msg("user registered")
	return &profile, nil
}

// SaveFunds adds amount to the caller's balance.
func (s *LedgerService) SaveFunds(ctx context.Context, amount int64) (*domain.UserProfile, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, customError.WrapInvalidPayload("amount must be positive, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.Stores.Profiles.Get(ctx, caller)
	if err != nil {
		return nil, err
	}
	if profile.Balance > math.MaxInt64-amount {
		return nil, customError.WrapInvalidPayload("balance would overflow")
	}

	profile.Balance += amount
	profile.UpdatedAt = s.Clock()
	if err := s.Stores.Profiles.Put(ctx, caller, profile); err != nil {
		return nil, err
	}

	logger.Info().Str("identity", caller).Int64("amount", amount).Msg("funds saved")
	return &profile, nil
}

func (s *LedgerService) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	profile, err := s.Stores.Profiles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateLoanRequest publishes a request owned by the caller and returns its id.
func (s *LedgerService) CreateLoanRequest(ctx context.Context, input domain.CreateLoanRequestInput) (string, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return "", err
	}
	if err := s.Engine.ValidateTerms(input.Amount, input.InterestRate, input.Duration); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req := domain.LoanRequest{
		ID:           s.newID(),
		Owner:        caller,
		Amount:       input.Amount,
		InterestRate: input.InterestRate,
		Duration:     input.Duration,
		Status:       domain.RequestStatusOpen,
		CreatedAt:    s.Clock(),
	}
	if err := s.Stores.Requests.Put(ctx, req.ID, req); err != nil {
		return "", err
	}

	logger.Info().Str("request_id", req.ID).Str("owner", caller).Int64("amount", req.Amount).Msg("loan request created")
	return req.ID, nil
}

// ListOpenRequests returns requests that can still be accepted, in creation order.
func (s *LedgerService) ListOpenRequests(ctx context.Context) ([]*domain.LoanRequest, error) {
	seq, err := s.Stores.Requests.Values(ctx)
	if err != nil {
		return nil, err
	}

	open := make([]*domain.LoanRequest, 0)
	for req := range seq {
		if req.Status == domain.RequestStatusOpen {
			open = append(open, &req)
		}
	}
	return open, nil
}

// AcceptLoanRequest turns an open request into an Active loan. The request
// owner is the borrower; any other caller becomes the lender and disburses
// the principal. A request is consumed by its first accept.
func (s *LedgerService) AcceptLoanRequest(ctx context.Context, requestID string) (*domain.Loan, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.Stores.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	now := s.Clock()

	if req.Status != domain.RequestStatusOpen {
		return s.resumeAccept(ctx, req, now)
	}

	lender := caller
	if caller == req.Owner {
		lender = ""
	}
	loan, err := s.Engine.AcceptRequest(req, s.newID(), req.Owner, lender, now)
	if err != nil {
		return nil, err
	}

	if loan.HasLender() {
		// The marker must land before money moves so a retry resumes this accept.
		settling := req
		settling.Status = domain.RequestStatusSettling
		settling.LoanID = loan.ID
		settling.Lender = loan.Lender
		if err := s.Stores.Requests.Put(ctx, req.ID, settling); err != nil {
			return nil, err
		}
		if err := s.disburse(ctx, req, loan); err != nil {
			return nil, err
		}
	}

	return s.completeAccept(ctx, req, loan)
}

// resumeAccept finishes an accept that stopped after its request was marked.
// A settling request repeats the disbursement under the same ref, which the
// rail settles at most once; an accepted request already paid out.
func (s *LedgerService) resumeAccept(ctx context.Context, req domain.LoanRequest, now time.Time) (*domain.Loan, error) {
	_, err := s.Stores.Loans.Get(ctx, req.LoanID)
	if err == nil {
		return nil, customError.WrapInvalidPayload("loan request %s was already accepted", req.ID)
	}
	if !customError.IsNotFound(err) {
		return nil, err
	}

	loan, err := s.Engine.AcceptRequest(req, req.LoanID, req.Owner, req.Lender, now)
	if err != nil {
		return nil, err
	}

	if req.Status == domain.RequestStatusSettling && loan.HasLender() {
		open := req
		open.Status = domain.RequestStatusOpen
		open.LoanID = ""
		open.Lender = ""
		if err := s.disburse(ctx, open, loan); err != nil {
			return nil, err
		}
	}

	logger.Warn().Str("request_id", req.ID).Str("loan_id", loan.ID).Str("status", string(req.Status)).
		Msg("completing interrupted accept")
	return s.completeAccept(ctx, req, loan)
}

// disburse pays the principal from lender to borrower. On failure the request
// is written back as restore so it can be accepted again.
func (s *LedgerService) disburse(ctx context.Context, restore domain.LoanRequest, loan domain.Loan) error {
	err := s.Rail.Transfer(ctx, domain.DisbursementRef(loan.ID), loan.Lender, loan.Borrower, loan.Amount)
	if err == nil {
		return nil
	}
	if restoreErr := s.Stores.Requests.Put(ctx, restore.ID, restore); restoreErr != nil {
		logger.Error().Err(restoreErr).Str("request_id", restore.ID).Msg("failed to reopen request after disbursement failure")
	}
	return customError.WrapPaymentFailed(err)
}

func (s *LedgerService) completeAccept(ctx context.Context, req domain.LoanRequest, loan domain.Loan) (*domain.Loan, error) {
	req.Status = domain.RequestStatusAccepted
	req.LoanID = loan.ID
	req.Lender = loan.Lender
	if err := s.Stores.Requests.Put(ctx, req.ID, req); err != nil {
		return nil, err
	}
	if err := s.Stores.Loans.Put(ctx, loan.ID, loan); err != nil {
		return nil, err
	}

	logger.Info().
		Str("request_id", req.ID).
		Str("loan_id", loan.ID).
		Str("borrower", loan.Borrower).
		Str("lender", loan.Lender).
		Msg("loan request accepted")
	return &loan, nil
}

// FundLoan makes the caller the lender of an unfunded loan.
func (s *LedgerService) FundLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, err := s.Stores.Loans.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	next, err := s.Engine.AssignLender(loan, caller, s.Clock())
	if err != nil {
		return nil, err
	}

	if err := s.Rail.Transfer(ctx, domain.DisbursementRef(next.ID), next.Lender, next.Borrower, next.Amount); err != nil {
		return nil, customError.WrapPaymentFailed(err)
	}
	if err := s.Stores.Loans.Put(ctx, next.ID, next); err != nil {
		return nil, err
	}

	logger.Info().Str("loan_id", next.ID).Str("lender", next.Lender).Msg("loan funded")
	return &next, nil
}

// MakeRepayment settles amount against the caller's loan. Only the borrower
// may repay. Funded loans pay the lender through the rail before the loan is updated.
func (s *LedgerService) MakeRepayment(ctx context.Context, loanID string, amount int64) (*domain.Loan, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, err := s.Stores.Loans.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if caller != loan.Borrower {
		return nil, customError.WrapNotPermitted("%s is not the borrower of loan %s", caller, loanID)
	}

	next, err := s.repay(ctx, loan, amount, s.Clock(), caller)
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// repay must be called with s.mu held on a freshly read loan.
func (s *LedgerService) repay(ctx context.Context, loan domain.Loan, amount int64, now time.Time, by string) (domain.Loan, error) {
	next, err := s.Engine.ApplyRepayment(loan, amount, now)
	if err != nil {
		return domain.Loan{}, err
	}

	if next.HasLender() {
		ref := domain.RepaymentRef(next.ID, next.AmountRepaid)
		if err := s.Rail.Transfer(ctx, ref, next.Borrower, next.Lender, amount); err != nil {
			return domain.Loan{}, customError.WrapPaymentFailed(err)
		}
	}
	if err := s.Stores.Loans.Put(ctx, next.ID, next); err != nil {
		return domain.Loan{}, err
	}

	logger.Info().
		Str("loan_id", next.ID).
		Int64("amount", amount).
		Int64("amount_repaid", next.AmountRepaid).
		Str("status", string(next.Status)).
		Str("by", by).
		Msg("repayment applied")
	return next, nil
}

func (s *LedgerService) GetLoanStatus(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.Stores.Loans.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// CheckForDefault moves every overdue, unpaid Active loan to Defaulted and
// returns the ids that changed on this call.
func (s *LedgerService) CheckForDefault(ctx context.Context) ([]string, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.Stores.Loans.Values(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	defaulted := make([]string, 0)
	var errs []error
	for loan := range seq {
		next, changed := s.Engine.CheckDefault(loan, now)
		if !changed {
			continue
		}
		if err := s.Stores.Loans.Put(ctx, next.ID, next); err != nil {
			errs = append(errs, err)
			continue
		}
		defaulted = append(defaulted, next.ID)
	}

	if len(defaulted) > 0 {
		logger.Info().Strs("loan_ids", defaulted).Str("by", caller).Msg("loans defaulted")
	}
	return defaulted, errors.Join(errs...)
}

// ModifyLoanTerms replaces the terms of an Active loan. Only its borrower or lender may do so.
func (s *LedgerService) ModifyLoanTerms(ctx context.Context, loanID string, terms domain.LoanTerms) (*domain.Loan, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, err := s.partyLoan(ctx, loanID, caller)
	if err != nil {
		return nil, err
	}
	next, err := s.Engine.ModifyTerms(loan, terms, s.Clock())
	if err != nil {
		return nil, err
	}
	if err := s.Stores.Loans.Put(ctx, next.ID, next); err != nil {
		return nil, err
	}

	logger.Info().Str("loan_id", next.ID).Str("by", caller).Int64("amount", next.Amount).Int64("duration", next.Duration).Msg("loan terms modified")
	return &next, nil
}

func (s *LedgerService) RequestLoanExtension(ctx context.Context, loanID string, duration int64) (*domain.Loan, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, err := s.partyLoan(ctx, loanID, caller)
	if err != nil {
		return nil, err
	}
	next, err := s.Engine.ExtendDuration(loan, duration, s.Clock())
	if err != nil {
		return nil, err
	}
	if err := s.Stores.Loans.Put(ctx, next.ID, next); err != nil {
		return nil, err
	}

	logger.Info().Str("loan_id", next.ID).Str("by", caller).Time("due_date", next.DueDate).Msg("loan extended")
	return &next, nil
}

// partyLoan loads a loan the caller is borrower or lender of.
func (s *LedgerService) partyLoan(ctx context.Context, loanID, caller string) (domain.Loan, error) {
	loan, err := s.Stores.Loans.Get(ctx, loanID)
	if err != nil {
		return domain.Loan{}, err
	}
	if !loan.Involves(caller) {
		return domain.Loan{}, customError.WrapNotPermitted("%s is not a party to loan %s", caller, loanID)
	}
	return loan, nil
}

// GetUserLoanHistory lists loans where id is borrower or lender, in creation order.
func (s *LedgerService) GetUserLoanHistory(ctx context.Context, id string) ([]*domain.Loan, error) {
	if id == "" {
		return nil, customError.WrapInvalidPayload("identity must not be empty")
	}

	seq, err := s.Stores.Loans.Values(ctx)
	if err != nil {
		return nil, err
	}

	history := make([]*domain.Loan, 0)
	for loan := range seq {
		if loan.Involves(id) {
			history = append(history, &loan)
		}
	}
	return history, nil
}

// AccumulateInterest accrues interest on every Active loan and returns the
// ids whose accrued interest changed.
func (s *LedgerService) AccumulateInterest(ctx context.Context) ([]string, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.Stores.Loans.Values(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	accrued := make([]string, 0)
	var errs []error
	for loan := range seq {
		next := s.Engine.AccrueInterest(loan, now)
		if next.AccruedInterest == loan.AccruedInterest {
			continue
		}
		if err := s.Stores.Loans.Put(ctx, next.ID, next); err != nil {
			errs = append(errs, err)
			continue
		}
		accrued = append(accrued, next.ID)
	}

	logger.Debug().Int("count", len(accrued)).Str("by", caller).Msg("interest accumulated")
	return accrued, errors.Join(errs...)
}

// AutomateLoanRepayment collects one installment from every Active loan,
// capped at what is outstanding. A failing loan does not stop the sweep.
func (s *LedgerService) AutomateLoanRepayment(ctx context.Context) ([]string, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.Stores.Loans.Values(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	repaid := make([]string, 0)
	var errs []error
	for loan := range seq {
		if loan.Status != domain.LoanStatusActive {
			continue
		}

		amount, err := s.Engine.ComputeRepaymentAmount(loan, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		amount = min(amount, s.Engine.Outstanding(loan, now))
		if amount <= 0 {
			continue
		}

		if _, err := s.repay(ctx, loan, amount, now, caller); err != nil {
			logger.Warn().Err(err).Str("loan_id", loan.ID).Msg("automated repayment failed")
			errs = append(errs, err)
			continue
		}
		repaid = append(repaid, loan.ID)
	}

	return repaid, errors.Join(errs...)
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-ledger/internal/domain"
)

type MockLedgerService struct {
	mock.Mock
}

// NewMockLedgerService creates a new mock ledger service instance
func NewMockLedgerService() *MockLedgerService {
	return &MockLedgerService{}
}

func (m *MockLedgerService) RegisterUser(ctx context.Context, name string) (*domain.UserProfile, error) {
	args := m.Called(ctx, name)
	return profileOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) SaveFunds(ctx context.Context, amount int64) (*domain.UserProfile, error) {
	args := m.Called(ctx, amount)
	return profileOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) GetProfile(ctx context.Context, identity string) (*domain.UserProfile, error) {
	args := m.Called(ctx, identity)
	return profileOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) CreateLoanRequest(ctx context.Context, input domain.CreateLoanRequestInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockLedgerService) ListOpenRequests(ctx context.Context) ([]*domain.LoanRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanRequest), args.Error(1)
}

func (m *MockLedgerService) AcceptLoanRequest(ctx context.Context, requestID string) (*domain.Loan, error) {
	args := m.Called(ctx, requestID)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) FundLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) MakeRepayment(ctx context.Context, loanID string, amount int64) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, amount)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) GetLoanStatus(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) CheckForDefault(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return idsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) ModifyLoanTerms(ctx context.Context, loanID string, terms domain.LoanTerms) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, terms)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) RequestLoanExtension(ctx context.Context, loanID string, duration int64) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, duration)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) GetUserLoanHistory(ctx context.Context, identity string) ([]*domain.Loan, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLedgerService) AccumulateInterest(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return idsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLedgerService) AutomateLoanRepayment(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return idsOrNil(args.Get(0)), args.Error(1)
}

func profileOrNil(v any) *domain.UserProfile {
	if v == nil {
		return nil
	}
	return v.(*domain.UserProfile)
}

func loanOrNil(v any) *domain.Loan {
	if v == nil {
		return nil
	}
	return v.(*domain.Loan)
}

func idsOrNil(v any) []string {
	if v == nil {
		return nil
	}
	return v.([]string)
}

package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	RequestStatusOpen RequestStatus = "open"
	// RequestStatusSettling marks an accept whose disbursement may have started
	// but whose loan is not written yet.
	RequestStatusSettling RequestStatus = "settling"
	RequestStatusAccepted RequestStatus = "accepted"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusOpen, RequestStatusSettling, RequestStatusAccepted:
		return true
	}
	return false
}

func (s *RequestStatus) UnmarshalText(text []byte) error {
	v := RequestStatus(text)
	if !v.Valid() {
		return fmt.Errorf("domain: unknown request status %q", string(text))
	}
	*s = v
	return nil
}

// LoanRequest is a borrower's published ask, consumed when accepted.
type LoanRequest struct {
	ID           string          `json:"id"`
	Owner        string          `json:"owner"`
	Amount       int64           `json:"amount"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Duration     int64           `json:"duration"`
	Status       RequestStatus   `json:"status"`
	LoanID       string          `json:"loan_id,omitempty"`
	// Lender is the accepting identity, empty when the owner accepted their own request.
	Lender    string    `json:"lender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateLoanRequestInput struct {
	Amount       int64           `json:"amount" validate:"gt=0,lte=1000000000000000"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Duration     int64           `json:"duration" validate:"gt=0,lte=3153600000"`
}

type CreateLoanRequestResponse struct {
	RequestID string `json:"request_id"`
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/pkg/response"
)

// LedgerService is the set of ledger operations exposed over HTTP.
type LedgerService interface {
	RegisterUser(ctx context.Context, name string) (*domain.UserProfile, error)
	SaveFunds(ctx context.Context, amount int64) (*domain.UserProfile, error)
	GetProfile(ctx context.Context, identity string) (*domain.UserProfile, error)
	CreateLoanRequest(ctx context.Context, input domain.CreateLoanRequestInput) (string, error)
	ListOpenRequests(ctx context.Context) ([]*domain.LoanRequest, error)
	AcceptLoanRequest(ctx context.Context, requestID string) (*domain.Loan, error)
	FundLoan(ctx context.Context, loanID string) (*domain.Loan, error)
	MakeRepayment(ctx context.Context, loanID string, amount int64) (*domain.Loan, error)
	GetLoanStatus(ctx context.Context, loanID string) (*domain.Loan, error)
	CheckForDefault(ctx context.Context) ([]string, error)
	ModifyLoanTerms(ctx context.Context, loanID string, terms domain.LoanTerms) (*domain.Loan, error)
	RequestLoanExtension(ctx context.Context, loanID string, duration int64) (*domain.Loan, error)
	GetUserLoanHistory(ctx context.Context, identity string) ([]*domain.Loan, error)
	AccumulateInterest(ctx context.Context) ([]string, error)
	AutomateLoanRepayment(ctx context.Context) ([]string, error)
}

type LedgerHandler struct {
	service   LedgerService
	validator *validator.Validate
}

func NewLedgerHandler(service LedgerService) *LedgerHandler {
	return &LedgerHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Register mounts the ledger routes on r.
func (h *LedgerHandler) Register(r *mux.Router) {
	r.HandleFunc("/users", h.RegisterUser).Methods(http.MethodPost)
	r.HandleFunc("/users/me/funds", h.SaveFunds).Methods(http.MethodPost)
	r.HandleFunc("/users/{identity}", h.GetProfile).Methods(http.MethodGet)
	r.HandleFunc("/users/{identity}/loans", h.GetUserLoanHistory).Methods(http.MethodGet)

	r.HandleFunc("/loan-requests", h.CreateLoanRequest).Methods(http.MethodPost)
	r.HandleFunc("/loan-requests", h.ListOpenRequests).Methods(http.MethodGet)
	r.HandleFunc("/loan-requests/{requestId}/accept", h.AcceptLoanRequest).Methods(http.MethodPost)

	r.HandleFunc("/loans/{loanId}", h.GetLoanStatus).Methods(http.MethodGet)
	r.HandleFunc("/loans/{loanId}/fund", h.FundLoan).Methods(http.MethodPost)
	r.HandleFunc("/loans/{loanId}/repayments", h.MakeRepayment).Methods(http.MethodPost)
	r.HandleFunc("/loans/{loanId}/terms", h.ModifyLoanTerms).Methods(http.MethodPut)
	r.HandleFunc("/loans/{loanId}/extension", h.RequestLoanExtension).Methods(http.MethodPost)

	r.HandleFunc("/sweeps/defaults", h.sweep(h.service.CheckForDefault)).Methods(http.MethodPost)
	r.HandleFunc("/sweeps/interest", h.sweep(h.service.AccumulateInterest)).Methods(http.MethodPost)
	r.HandleFunc("/sweeps/repayments", h.sweep(h.service.AutomateLoanRepayment)).Methods(http.MethodPost)
}

// decode reads a JSON body into dst and validates it. It writes the 400 itself.
func (h *LedgerHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func (h *LedgerHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.service.RegisterUser(r.Context(), req.Name)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, profile)
}

func (h *LedgerHandler) SaveFunds(w http.ResponseWriter, r *http.Request) {
	var req domain.SaveFundsRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.service.SaveFunds(r.Context(), req.Amount)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, profile)
}

func (h *LedgerHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetProfile(r.Context(), mux.Vars(r)["identity"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, profile)
}

func (h *LedgerHandler) GetUserLoanHistory(w http.ResponseWriter, r *http.Request) {
	identity := mux.Vars(r)["identity"]
	loans, err := h.service.GetUserLoanHistory(r.Context(), identity)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, domain.LoanHistoryResponse{Identity: identity, Loans: loans})
}

func (h *LedgerHandler) CreateLoanRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequestInput
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.service.CreateLoanRequest(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, domain.CreateLoanRequestResponse{RequestID: id})
}

func (h *LedgerHandler) ListOpenRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListOpenRequests(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, requests)
}

func (h *LedgerHandler) AcceptLoanRequest(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.AcceptLoanRequest(r.Context(), mux.Vars(r)["requestId"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, loan)
}

func (h *LedgerHandler) GetLoanStatus(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.GetLoanStatus(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *LedgerHandler) FundLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.FundLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *LedgerHandler) MakeRepayment(w http.ResponseWriter, r *http.Request) {
	var req domain.RepaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.MakeRepayment(r.Context(), mux.Vars(r)["loanId"], req.Amount)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *LedgerHandler) ModifyLoanTerms(w http.ResponseWriter, r *http.Request) {
	var req domain.LoanTerms
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.ModifyLoanTerms(r.Context(), mux.Vars(r)["loanId"], req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *LedgerHandler) RequestLoanExtension(w http.ResponseWriter, r *http.Request) {
	var req domain.ExtensionRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.RequestLoanExtension(r.Context(), mux.Vars(r)["loanId"], req.Duration)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

// sweep adapts a batch operation. Per-loan failures are reported next to the
// ids that did succeed; only a failed scan fails the request.
func (h *LedgerHandler) sweep(run func(context.Context) ([]string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := run(r.Context())
		if err != nil && ids == nil {
			response.FromError(w, err)
			return
		}

		resp := domain.SweepResponse{LoanIDs: ids}
		if err != nil {
			resp.Errors = sweepErrors(err)
		}
		response.Success(w, resp)
	}
}

func sweepErrors(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		out = append(out, e.Error())
	}
	return out
}

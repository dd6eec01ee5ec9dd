package repository

import (
	"context"
	"iter"

	"github.com/segyhp/loan-ledger/internal/domain"
)

// Collection is the persistence contract for one entity kind.
type Collection[T any] interface {
	// Put upserts record under id atomically
	Put(ctx context.Context, id string, record T) error

	// Get returns the record or an error matching errors.ErrNotFound
	Get(ctx context.Context, id string) (T, error)

	// Values snapshots every record at call time in first-insertion order.
	// The returned sequence may be ranged over more than once.
	Values(ctx context.Context) (iter.Seq[T], error)
}

type LoanRepository = Collection[domain.Loan]

type LoanRequestRepository = Collection[domain.LoanRequest]

type UserProfileRepository = Collection[domain.UserProfile]

// TransferRepository is the settlement journal keyed by transfer ref.
type TransferRepository = Collection[domain.Transfer]

// Stores bundles one collection per entity kind.
type Stores struct {
	Loans     LoanRepository
	Requests  LoanRequestRepository
	Profiles  UserProfileRepository
	Transfers TransferRepository
}

// Entity kinds, used as table names and key prefixes by the backends.
const (
	KindLoans        = "loans"
	KindLoanRequests = "loan_requests"
	KindUserProfiles = "user_profiles"
	KindTransfers    = "transfers"
)

// Kinds lists every entity kind a backend must hold.
var Kinds = []string{KindLoans, KindLoanRequests, KindUserProfiles, KindTransfers}

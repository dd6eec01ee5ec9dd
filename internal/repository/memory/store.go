package memory

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// Collection keeps records in a map plus the order ids were first written.
type Collection[T any] struct {
	mu      sync.RWMutex
	kind    string
	records map[string]T
	order   []string
}

func NewCollection[T any](kind string) *Collection[T] {
	return &Collection[T]{
		kind:    kind,
		records: make(map[string]T),
	}
}

func (c *Collection[T]) Put(_ context.Context, id string, record T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[id]; !exists {
		c.order = append(c.order, id)
	}
	c.records[id] = record
	return nil
}

func (c *Collection[T]) Get(_ context.Context, id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if record, ok := c.records[id]; ok {
		return record, nil
	}
	var zero T
	return zero, customError.WrapNotFound(c.kind, id)
}

func (c *Collection[T]) Values(_ context.Context) (iter.Seq[T], error) {
	c.mu.RLock()
	snapshot := make([]T, 0, len(c.order))
	for _, id := range c.order {
		snapshot = append(snapshot, c.records[id])
	}
	c.mu.RUnlock()

	return slices.Values(snapshot), nil
}

// Len returns the number of stored records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// NewStores returns an empty in-memory store set.
func NewStores() repository.Stores {
	return repository.Stores{
		Loans:     NewCollection[domain.Loan](repository.KindLoans),
		Requests:  NewCollection[domain.LoanRequest](repository.KindLoanRequests),
		Profiles:  NewCollection[domain.UserProfile](repository.KindUserProfiles),
		Transfers: NewCollection[domain.Transfer](repository.KindTransfers),
	}
}

package sqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// openTestDB creates an in-memory sqlite DB with the ledger schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestCollection_PutAndGet(t *testing.T) {
	db := openTestDB(t)
	c := NewCollection[domain.Loan](db, repository.KindLoans)
	ctx := context.Background()

	loan := domain.Loan{
		ID:           "LOAN-001",
		Amount:       1000,
		InterestRate: decimal.NewFromInt(5),
		Duration:     3600,
		Borrower:     "alice",
		Status:       domain.LoanStatusActive,
	}
	require.NoError(t, c.Put(ctx, loan.ID, loan))

	got, err := c.Get(ctx, "LOAN-001")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Borrower)
	assert.True(t, got.InterestRate.Equal(decimal.NewFromInt(5)))

	loan.AmountRepaid = 400
	require.NoError(t, c.Put(ctx, loan.ID, loan))

	got, err = c.Get(ctx, "LOAN-001")
	require.NoError(t, err)
	assert.Equal(t, int64(400), got.AmountRepaid)

	var count int64
	require.NoError(t, db.Model(&record{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCollection_GetNotFound(t *testing.T) {
	db := openTestDB(t)
	c := NewCollection[domain.Loan](db, repository.KindLoans)

	_, err := c.Get(context.Background(), "eeeeeeee")
	assert.True(t, customError.IsNotFound(err))
}

func TestCollection_KindsAreIsolated(t *testing.T) {
	db := openTestDB(t)
	stores := NewStores(db)
	ctx := context.Background()

	require.NoError(t, stores.Profiles.Put(ctx, "same", domain.UserProfile{Identity: "same"}))

	_, err := stores.Loans.Get(ctx, "same")
	assert.True(t, customError.IsNotFound(err))
}

func TestCollection_ValuesKeepInsertionOrder(t *testing.T) {
	db := openTestDB(t)
	c := NewCollection[domain.LoanRequest](db, repository.KindLoanRequests)
	ctx := context.Background()

	for _, id := range []string{"R3", "R1", "R2"} {
		require.NoError(t, c.Put(ctx, id, domain.LoanRequest{ID: id, Status: domain.RequestStatusOpen}))
	}
	require.NoError(t, c.Put(ctx, "R3", domain.LoanRequest{ID: "R3", Status: domain.RequestStatusAccepted}))

	seq, err := c.Values(ctx)
	require.NoError(t, err)

	var ids []string
	for req := range seq {
		ids = append(ids, req.ID)
	}
	assert.Equal(t, []string{"R3", "R1", "R2"}, ids)
}

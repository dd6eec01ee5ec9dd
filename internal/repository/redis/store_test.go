package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, s
}

func TestCollection_PutGet(t *testing.T) {
	client, s := setupRedis(t)
	ctx := context.Background()
	c := NewCollection[domain.UserProfile](client, "ledger", "user_profiles")

	require.NoError(t, c.Put(ctx, "alice", domain.UserProfile{Identity: "alice", Name: "Alice", Balance: 10}))

	got, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, int64(10), got.Balance)

	assert.True(t, s.Exists("ledger:user_profiles"))
	order, err := s.List("ledger:user_profiles:order")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, order)
}

func TestCollection_GetNotFound(t *testing.T) {
	client, _ := setupRedis(t)
	c := NewCollection[domain.Loan](client, "ledger", "loans")

	_, err := c.Get(context.Background(), "missing")
	assert.True(t, customError.IsNotFound(err))
}

func TestCollection_ValuesKeepInsertionOrder(t *testing.T) {
	client, s := setupRedis(t)
	ctx := context.Background()
	c := NewCollection[domain.Loan](client, "ledger", "loans")

	for _, id := range []string{"L3", "L1", "L2"} {
		require.NoError(t, c.Put(ctx, id, domain.Loan{ID: id, Status: domain.LoanStatusActive}))
	}
	require.NoError(t, c.Put(ctx, "L3", domain.Loan{ID: "L3", Status: domain.LoanStatusCompleted}))

	order, err := s.List("ledger:loans:order")
	require.NoError(t, err)
	assert.Equal(t, []string{"L3", "L1", "L2"}, order)

	seq, err := c.Values(ctx)
	require.NoError(t, err)

	var ids []string
	var statuses []domain.LoanStatus
	for loan := range seq {
		ids = append(ids, loan.ID)
		statuses = append(statuses, loan.Status)
	}
	assert.Equal(t, []string{"L3", "L1", "L2"}, ids)
	assert.Equal(t, domain.LoanStatusCompleted, statuses[0])
}

func TestCollection_ConcurrentFirstWritesRecordOrderOnce(t *testing.T) {
	client, s := setupRedis(t)
	ctx := context.Background()
	c := NewCollection[domain.UserProfile](client, "ledger", "user_profiles")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Put(ctx, "alice", domain.UserProfile{Identity: "alice", Name: fmt.Sprintf("Alice %d", i)}))
		}()
	}
	wg.Wait()

	order, err := s.List("ledger:user_profiles:order")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, order)

	seq, err := c.Values(ctx)
	require.NoError(t, err)
	var count int
	for range seq {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestCollection_ValuesEmpty(t *testing.T) {
	client, _ := setupRedis(t)
	c := NewCollection[domain.Loan](client, "ledger", "loans")

	seq, err := c.Values(context.Background())
	require.NoError(t, err)
	for range seq {
		t.Fatal("expected no records")
	}
}

func TestCollection_StoreUnavailable(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := NewCollection[domain.Loan](client, "ledger", "loans")
	s.Close()

	err = c.Put(context.Background(), "L1", domain.Loan{ID: "L1", Status: domain.LoanStatusActive})
	assert.ErrorIs(t, err, customError.ErrStore)
}

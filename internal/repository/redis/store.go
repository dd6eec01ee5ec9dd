package redis

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/logger"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// putScript writes the document and appends the id to the order list only
// when HSET created the field, in one atomic step.
var putScript = redis.NewScript(`
if redis.call('HSET', KEYS[1], ARGV[1], ARGV[2]) == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[1])
end
return 1
`)

// Collection keeps JSON documents in the hash <prefix>:<kind> and the order
// of first insertion in the list <prefix>:<kind>:order.
type Collection[T any] struct {
	client   *redis.Client
	kind     string
	hashKey  string
	orderKey string
}

func NewCollection[T any](client *redis.Client, prefix, kind string) *Collection[T] {
	hashKey := fmt.Sprintf("%s:%s", prefix, kind)
	return &Collection[T]{
		client:   client,
		kind:     kind,
		hashKey:  hashKey,
		orderKey: hashKey + ":order",
	}
}

func (c *Collection[T]) Put(ctx context.Context, id string, record T) error {
	data, err := repository.Encode(record)
	if err != nil {
		return customError.WrapStoreError(err)
	}

	if err := putScript.Run(ctx, c.client, []string{c.hashKey, c.orderKey}, id, data).Err(); err != nil {
		return customError.WrapStoreError(err)
	}
	return nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T

	data, err := c.client.HGet(ctx, c.hashKey, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, customError.WrapNotFound(c.kind, id)
		}
		return zero, customError.WrapStoreError(err)
	}

	record, err := repository.Decode[T](data)
	if err != nil {
		return zero, customError.WrapStoreError(err)
	}
	return record, nil
}

func (c *Collection[T]) Values(ctx context.Context) (iter.Seq[T], error) {
	ids, err := c.client.LRange(ctx, c.orderKey, 0, -1).Result()
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	docs := make([][]byte, 0, len(ids))
	if len(ids) > 0 {
		values, err := c.client.HMGet(ctx, c.hashKey, ids...).Result()
		if err != nil {
			return nil, customError.WrapStoreError(err)
		}
		for _, v := range values {
			if s, ok := v.(string); ok {
				docs = append(docs, []byte(s))
			}
		}
	}

	return repository.DecodeSeq[T](docs, func(err error) {
		logger.Error().Err(err).Str("kind", c.kind).Msg("skipping undecodable record")
	}), nil
}

func NewStores(client *redis.Client, prefix string) repository.Stores {
	return repository.Stores{
		Loans:     NewCollection[domain.Loan](client, prefix, repository.KindLoans),
		Requests:  NewCollection[domain.LoanRequest](client, prefix, repository.KindLoanRequests),
		Profiles:  NewCollection[domain.UserProfile](client, prefix, repository.KindUserProfiles),
		Transfers: NewCollection[domain.Transfer](client, prefix, repository.KindTransfers),
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/logger"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"

	"github.com/jmoiron/sqlx"
)

// Collection stores JSON documents in a table of (id, seq, data, updated_at).
// seq is a BIGSERIAL assigned on first insert and gives scan order.
type Collection[T any] struct {
	db   *sqlx.DB
	kind string
}

func NewCollection[T any](db *sqlx.DB, kind string) *Collection[T] {
	return &Collection[T]{db: db, kind: kind}
}

func (c *Collection[T]) Put(ctx context.Context, id string, record T) error {
	data, err := repository.Encode(record)
	if err != nil {
		return customError.WrapStoreError(err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, c.kind)

	if _, err := c.db.ExecContext(ctx, query, id, data, time.Now().UTC()); err != nil {
		return customError.WrapStoreError(err)
	}
	return nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, c.kind)

	var data []byte
	if err := c.db.GetContext(ctx, &data, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	query := fmt.Sprintf(`SELECT data FROM %s ORDER BY seq`, c.kind)

	var docs [][]byte
	if err := c.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	return repository.DecodeSeq[T](docs, func(err error) {
		logger.Error().Err(err).Str("kind", c.kind).Msg("skipping undecodable record")
	}), nil
}

// Migrate creates the document tables when missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, kind := range repository.Kinds {
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         TEXT PRIMARY KEY,
				seq        BIGSERIAL NOT NULL,
				data       JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)
		`, kind)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migrate %s: %w", kind, err)
		}
	}
	return nil
}

func NewStores(db *sqlx.DB) repository.Stores {
	return repository.Stores{
		Loans:     NewCollection[domain.Loan](db, repository.KindLoans),
		Requests:  NewCollection[domain.LoanRequest](db, repository.KindLoanRequests),
		Profiles:  NewCollection[domain.UserProfile](db, repository.KindUserProfiles),
		Transfers: NewCollection[domain.Transfer](db, repository.KindTransfers),
	}
}

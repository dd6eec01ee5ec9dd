package sqlite

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/logger"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// record is one document of any kind; Seq orders scans by first insertion.
type record struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement;column:seq"`
	Kind      string    `gorm:"size:32;not null;uniqueIndex:ux_ledger_records_kind_id;column:kind"`
	RecordID  string    `gorm:"size:64;not null;uniqueIndex:ux_ledger_records_kind_id;column:record_id"`
	Data      []byte    `gorm:"not null;column:data"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (record) TableName() string { return "ledger_records" }

// Open opens (or creates) the database file at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; one connection also keeps ":memory:" databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return db, nil
}

type Collection[T any] struct {
	db   *gorm.DB
	kind string
}

func NewCollection[T any](db *gorm.DB, kind string) *Collection[T] {
	return &Collection[T]{db: db, kind: kind}
}

func (c *Collection[T]) Put(ctx context.Context, id string, value T) error {
	data, err := repository.Encode(value)
	if err != nil {
		return customError.WrapStoreError(err)
	}

	rec := record{Kind: c.kind, RecordID: id, Data: data, UpdatedAt: time.Now().UTC()}
	err = c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return customError.WrapStoreError(err)
	}
	return nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	var rec record
	err := c.db.WithContext(ctx).
		Where("kind = ? AND record_id = ?", c.kind, id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, customError.WrapNotFound(c.kind, id)
		}
		return zero, customError.WrapStoreError(err)
	}

	out, err := repository.Decode[T](rec.Data)
	if err != nil {
		return zero, customError.WrapStoreError(err)
	}
	return out, nil
}

func (c *Collection[T]) Values(ctx context.Context) (iter.Seq[T], error) {
	var docs [][]byte
	err := c.db.WithContext(ctx).
		Model(&record{}).
		Where("kind = ?", c.kind).
		Order("seq").
		Pluck("data", &docs).Error
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	return repository.DecodeSeq[T](docs, func(err error) {
		logger.Error().Err(err).Str("kind", c.kind).Msg("skipping undecodable record")
	}), nil
}

func NewStores(db *gorm.DB) repository.Stores {
	return repository.Stores{
		Loans:     NewCollection[domain.Loan](db, repository.KindLoans),
		Requests:  NewCollection[domain.LoanRequest](db, repository.KindLoanRequests),
		Profiles:  NewCollection[domain.UserProfile](db, repository.KindUserProfiles),
		Transfers: NewCollection[domain.Transfer](db, repository.KindTransfers),
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/logger"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRefReused         = errors.New("transfer ref already used for a different transfer")
)

// PaymentRail moves value between two principals outside the loan records.
// ref is an idempotency key: repeating a settled ref moves nothing and
// succeeds. A returned error means nothing was moved.
type PaymentRail interface {
	Transfer(ctx context.Context, ref, from, to string, amount int64) error
}

// NoopRail accepts every transfer without moving anything.
type NoopRail struct{}

func (NoopRail) Transfer(context.Context, string, string, string, int64) error { return nil }

// ProfileRail settles transfers against UserProfile balances and journals
// each settled ref.
type ProfileRail struct {
	profiles  repository.UserProfileRepository
	transfers repository.TransferRepository
	clock     Clock
}

func NewProfileRail(profiles repository.UserProfileRepository, transfers repository.TransferRepository, clock Clock) *ProfileRail {
	if clock == nil {
		clock = SystemClock
	}
	return &ProfileRail{profiles: profiles, transfers: transfers, clock: clock}
}

func (r *ProfileRail) Transfer(ctx context.Context, ref, from, to string, amount int64) error {
	if ref == "" {
		return errors.New("transfer ref is required")
	}
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	if from == to {
		return fmt.Errorf("cannot transfer from %s to itself", from)
	}

	settled, err := r.transfers.Get(ctx, ref)
	switch {
	case err == nil:
		if settled.From != from || settled.To != to || settled.Amount != amount {
			return fmt.Errorf("%s: %w", ref, ErrRefReused)
		}
		logger.Debug().Str("ref", ref).Msg("transfer already settled")
		return nil
	case !customError.IsNotFound(err):
		return fmt.Errorf("load transfer %s: %w", ref, err)
	}

	payer, err := r.profiles.Get(ctx, from)
	if err != nil {
		return fmt.Errorf("load payer %s: %w", from, err)
	}
	payee, err := r.profiles.Get(ctx, to)
	if err != nil {
		return fmt.Errorf("load payee %s: %w", to, err)
	}
	if payer.Balance < amount {
		return fmt.Errorf("%s has %d, needs %d: %w", from, payer.Balance, amount, ErrInsufficientFunds)
	}
	if payee.Balance > math.MaxInt64-amount {
		return fmt.Errorf("balance of %s would overflow", to)
	}

	now := r.clock()
	debited := payer
	debited.Balance -= amount
	debited.UpdatedAt = now
	if err := r.profiles.Put(ctx, from, debited); err != nil {
		return fmt.Errorf("debit %s: %w", from, err)
	}

	credited := payee
	credited.Balance += amount
	credited.UpdatedAt = now
	if err := r.profiles.Put(ctx, to, credited); err != nil {
		if restoreErr := r.profiles.Put(ctx, from, payer); restoreErr != nil {
			logger.Error().Err(restoreErr).Str("identity", from).Int64("amount", amount).
				Msg("failed to restore payer balance after credit failure")
		}
		return fmt.Errorf("credit %s: %w", to, err)
	}

	// Balances have moved, so the transfer has succeeded even if the journal write fails.
	journal := domain.Transfer{Ref: ref, From: from, To: to, Amount: amount, SettledAt: now}
	if err := r.transfers.Put(ctx, ref, journal); err != nil {
		logger.Error().Err(err).Str("ref", ref).Msg("failed to journal settled transfer")
	}

	logger.Debug().Str("ref", ref).Str("from", from).Str("to", to).Int64("amount", amount).Msg("transfer settled")
	return nil
}

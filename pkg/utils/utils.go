package utils

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// SecondsPerYear is the day-count basis for simple interest (365 days).
const SecondsPerYear int64 = 365 * 24 * 60 * 60

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// CalculateSimpleInterest returns floor(principal * rate * elapsed / (rateBasis * SecondsPerYear)),
// capped at math.MaxInt64. Non-positive inputs yield zero.
func CalculateSimpleInterest(principal int64, rate decimal.Decimal, elapsedSeconds int64, rateBasis decimal.Decimal) int64 {
	if principal <= 0 || elapsedSeconds <= 0 || !rate.IsPositive() || !rateBasis.IsPositive() {
		return 0
	}

	numerator := decimal.NewFromInt(principal).
		Mul(rate).
		Mul(decimal.NewFromInt(elapsedSeconds))
	denominator := rateBasis.Mul(decimal.NewFromInt(SecondsPerYear))

	// QuoRem at precision 0 truncates exactly, unlike Div which rounds at DivisionPrecision.
	quotient, _ := numerator.QuoRem(denominator, 0)
	if quotient.GreaterThan(maxInt64) {
		return math.MaxInt64
	}
	return quotient.IntPart()
}

// CalculateDueDate returns start + durationSeconds.
func CalculateDueDate(start time.Time, durationSeconds int64) time.Time {
	return start.Add(time.Duration(durationSeconds) * time.Second)
}

// ElapsedSeconds returns whole seconds from `from` to `to`, zero if `to` is not after `from`.
func ElapsedSeconds(from, to time.Time) int64 {
	if !to.After(from) {
		return 0
	}
	return int64(to.Sub(from) / time.Second)
}

// InstallmentPrincipal is the per-second principal slice floor(amount / duration).
func InstallmentPrincipal(amount, durationSeconds int64) int64 {
	if durationSeconds <= 0 || amount <= 0 {
		return 0
	}
	return amount / durationSeconds
}

// IsPastDue reports whether now is strictly after dueDate.
func IsPastDue(now, dueDate time.Time) bool {
	return now.After(dueDate)
}

// AddSaturating returns a+b for non-negative operands, or math.MaxInt64 when the sum overflows.
func AddSaturating(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

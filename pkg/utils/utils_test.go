package utils

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateSimpleInterest(t *testing.T) {
	percent := decimal.NewFromInt(100)
	bps := decimal.NewFromInt(10000)

	tests := []struct {
		name      string
		principal int64
		rate      decimal.Decimal
		elapsed   int64
		basis     decimal.Decimal
		expected  int64
	}{
		{
			name:      "one full year at 5 percent",
			principal: 1000,
			rate:      decimal.NewFromInt(5),
			elapsed:   SecondsPerYear,
			basis:     percent,
			expected:  50,
		},
		{
			name:      "one hour rounds down to zero",
			principal: 1000,
			rate:      decimal.NewFromInt(5),
			elapsed:   3600,
			basis:     percent,
			expected:  0, // 18,000,000 / 3,153,600,000
		},
		{
			name:      "half year in basis points",
			principal: 5_000_000,
			rate:      decimal.NewFromInt(1000),
			elapsed:   SecondsPerYear / 2,
			basis:     bps,
			expected:  250_000,
		},
		{
			name:      "fractional rate",
			principal: 10_000,
			rate:      decimal.RequireFromString("2.5"),
			elapsed:   SecondsPerYear,
			basis:     percent,
			expected:  250,
		},
		{
			name:      "just below an integer boundary floors",
			principal: 1000,
			rate:      decimal.NewFromInt(5),
			elapsed:   SecondsPerYear - 1,
			basis:     percent,
			expected:  49,
		},
		{
			name:      "zero rate",
			principal: 1000,
			rate:      decimal.Zero,
			elapsed:   SecondsPerYear,
			basis:     percent,
			expected:  0,
		},
		{
			name:      "negative elapsed",
			principal: 1000,
			rate:      decimal.NewFromInt(5),
			elapsed:   -10,
			basis:     percent,
			expected:  0,
		},
		{
			name:      "result beyond int64 is capped",
			principal: math.MaxInt64,
			rate:      decimal.NewFromInt(1_000_000),
			elapsed:   SecondsPerYear,
			basis:     percent,
			expected:  math.MaxInt64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateSimpleInterest(tt.principal, tt.rate, tt.elapsed, tt.basis)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCalculateDueDate(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration int64
		expected time.Time
	}{
		{name: "one hour", duration: 3600, expected: baseDate.Add(time.Hour)},
		{name: "one week", duration: 7 * 24 * 3600, expected: baseDate.AddDate(0, 0, 7)},
		{name: "zero", duration: 0, expected: baseDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateDueDate(baseDate, tt.duration))
		})
	}
}

func TestElapsedSeconds(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(0), ElapsedSeconds(start, start))
	assert.Equal(t, int64(0), ElapsedSeconds(start, start.Add(-time.Minute)))
	assert.Equal(t, int64(90), ElapsedSeconds(start, start.Add(90*time.Second+500*time.Millisecond)))
}

func TestInstallmentPrincipal(t *testing.T) {
	assert.Equal(t, int64(0), InstallmentPrincipal(1000, 3600))
	assert.Equal(t, int64(10), InstallmentPrincipal(1000, 100))
	assert.Equal(t, int64(3), InstallmentPrincipal(10, 3))
	assert.Equal(t, int64(0), InstallmentPrincipal(1000, 0))
}

func TestIsPastDue(t *testing.T) {
	due := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)

	assert.False(t, IsPastDue(due, due))
	assert.False(t, IsPastDue(due.Add(-time.Second), due))
	assert.True(t, IsPastDue(due.Add(time.Second), due))
}

func TestAddSaturating(t *testing.T) {
	assert.Equal(t, int64(5), AddSaturating(2, 3))
	assert.Equal(t, int64(7), AddSaturating(7, 0))
	assert.Equal(t, int64(math.MaxInt64), AddSaturating(math.MaxInt64-10, 11))
	assert.Equal(t, int64(math.MaxInt64), AddSaturating(math.MaxInt64, math.MaxInt64))
}

package loan

import (
	"time"

	domain "p2plend-backend/internal/domain/loan"

	"github.com/shopspring/decimal"
)

const dayNanos = int64(24 * time.Hour)

// Collectable computes the interest accrued and not yet collected at now.
//
//	totalCost        = floor(capital * (1 + rate/100))
//	progress         = elapsedNanos / durationNanos   (not clamped past 1.0)
//	collectableSoFar = floor(progress * totalCost)
//	collectable      = collectableSoFar - collected
//
// The progress ratio intentionally keeps growing after the term elapses.
func Collectable(l *domain.Loan, now time.Time) (decimal.Decimal, error) {
	if l.Status != domain.StatusActive {
		return decimal.Zero, domain.ErrNotActive
	}

	totalCost := l.TotalCost()
	if l.Collected.GreaterThanOrEqual(totalCost) {
		return decimal.Zero, domain.ErrInterestFullyRepaid
	}

	elapsed := now.UnixNano() - l.CreatedAtNs
	duration := l.Duration * dayNanos
	progress := decimal.NewFromInt(elapsed).Div(decimal.NewFromInt(duration))
	collectableSoFar := progress.Mul(totalCost).Floor()

	return collectableSoFar.Sub(l.Collected), nil
}

// Package stats computes the read-only per-token dashboard aggregates over
// all loans at query time.
package stats

import (
	"context"

	loanDomain "p2plend-backend/internal/domain/loan"
	tokenDomain "p2plend-backend/internal/domain/token"

	"github.com/shopspring/decimal"
)

type TokenStats struct {
	Volume    string `json:"volume"`
	Borrowers int    `json:"borrowers"`
	Lenders   int    `json:"lenders"`
	Interests string `json:"interests"`
	Frequency int64  `json:"frequency"`
}

type Usecase struct {
	loans  loanDomain.Repository
	tokens tokenDomain.Repository
}

func NewUsecase(loans loanDomain.Repository, tokens tokenDomain.Repository) *Usecase {
	return &Usecase{loans: loans, tokens: tokens}
}

func (u *Usecase) Compute(ctx context.Context) (map[string]TokenStats, error) {
	loans, err := u.loans.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	tokens, err := u.tokens.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]TokenStats, len(tokens))
	for _, t := range tokens {
		volume := decimal.Zero
		interests := decimal.Zero
		borrowers := map[string]bool{}
		lenders := map[string]bool{}

		for _, l := range loans {
			if l.Currency != t.Symbol {
				continue
			}
			volume = volume.Add(l.Capital)
			interests = interests.Add(l.Collected)
			if l.Borrower != "" {
				borrowers[l.Borrower] = true
			}
			if l.Lender != "" {
				lenders[l.Lender] = true
			}
		}

		out[t.Symbol] = TokenStats{
			Volume:    volume.String(),
			Borrowers: len(borrowers),
			Lenders:   len(lenders),
			Interests: interests.String(),
			Frequency: 86400,
		}
	}
	return out, nil
}

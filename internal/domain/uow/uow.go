package uow

import (
	"context"

	"p2plend-backend/internal/domain/loan"
	"p2plend-backend/internal/domain/setting"
	"p2plend-backend/internal/domain/token"
	"p2plend-backend/internal/domain/transfer"
)

type Repos struct {
	Loans     loan.Repository
	Tokens    token.Repository
	Settings  setting.Repository
	Transfers transfer.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the loan row first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}

package loanmock

import (
	"context"

	domain "p2plend-backend/internal/domain/loan"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Only fill in the methods a test needs; the rest return zero values.
type Repo struct {
	CreateFn               func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn          func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn func(ctx context.Context, loanID string) (*domain.Loan, error)
	SaveFn                 func(ctx context.Context, l *domain.Loan) error
	DeleteFn               func(ctx context.Context, loanID string) error
	ListAllFn              func(ctx context.Context) ([]domain.Loan, error)
	AppendIndexFn          func(ctx context.Context, role domain.Role, account, loanID string) error
	RemoveIndexFn          func(ctx context.Context, role domain.Role, account, loanID string) error
	IndexForFn             func(ctx context.Context, role domain.Role, account string) ([]string, error)
	FullIndexFn            func(ctx context.Context, role domain.Role) (map[string][]string, error)
	AccountsFn             func(ctx context.Context, role domain.Role) ([]string, error)
	QueryByRoleFn          func(ctx context.Context, borrower, lender string) ([]domain.Loan, error)
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) Delete(ctx context.Context, loanID string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, loanID)
	}
	return nil
}

func (m *Repo) ListAll(ctx context.Context) ([]domain.Loan, error) {
	if m.ListAllFn != nil {
		return m.ListAllFn(ctx)
	}
	return nil, nil
}

func (m *Repo) AppendIndex(ctx context.Context, role domain.Role, account, loanID string) error {
	if m.AppendIndexFn != nil {
		return m.AppendIndexFn(ctx, role, account, loanID)
	}
	return nil
}

func (m *Repo) RemoveIndex(ctx context.Context, role domain.Role, account, loanID string) error {
	if m.RemoveIndexFn != nil {
		return m.RemoveIndexFn(ctx, role, account, loanID)
	}
	return nil
}

func (m *Repo) IndexFor(ctx context.Context, role domain.Role, account string) ([]string, error) {
	if m.IndexForFn != nil {
		return m.IndexForFn(ctx, role, account)
	}
	return nil, nil
}

func (m *Repo) FullIndex(ctx context.Context, role domain.Role) (map[string][]string, error) {
	if m.FullIndexFn != nil {
		return m.FullIndexFn(ctx, role)
	}
	return nil, nil
}

func (m *Repo) Accounts(ctx context.Context, role domain.Role) ([]string, error) {
	if m.AccountsFn != nil {
		return m.AccountsFn(ctx, role)
	}
	return nil, nil
}

func (m *Repo) QueryByRole(ctx context.Context, borrower, lender string) ([]domain.Loan, error) {
	if m.QueryByRoleFn != nil {
		return m.QueryByRoleFn(ctx, borrower, lender)
	}
	return nil, nil
}

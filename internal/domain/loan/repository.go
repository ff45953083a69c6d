package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	Delete(ctx context.Context, loanID string) error
	ListAll(ctx context.Context) ([]Loan, error)

	// Role index: account -> ordered loan ids, one index per role.
	AppendIndex(ctx context.Context, role Role, account, loanID string) error
	RemoveIndex(ctx context.Context, role Role, account, loanID string) error
	IndexFor(ctx context.Context, role Role, account string) ([]string, error)
	FullIndex(ctx context.Context, role Role) (map[string][]string, error)
	Accounts(ctx context.Context, role Role) ([]string, error)

	// QueryByRole requires exactly one of borrower/lender; both or neither
	// is ErrInvalidArgument. Index entries whose loan no longer exists are
	// skipped rather than failing the query.
	QueryByRole(ctx context.Context, borrower, lender string) ([]Loan, error)
}

package loan

import (
	"context"
	"errors"
	"time"

	domain "p2plend-backend/internal/domain/loan"

	"gorm.io/gorm"
)

type Usecase struct {
	repo domain.Repository
	now  func() time.Time
}

func NewUsecase(r domain.Repository) *Usecase {
	return &Usecase{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// WithNow overrides the clock, for tests.
func (u *Usecase) WithNow(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*domain.Loan, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// List returns loans filtered by exactly one of borrower/lender, all loans
// when neither is given, and ErrInvalidArgument when both are.
func (u *Usecase) List(ctx context.Context, borrower, lender string) ([]domain.Loan, error) {
	if borrower != "" && lender != "" {
		return nil, domain.ErrInvalidArgument
	}
	if borrower == "" && lender == "" {
		return u.repo.ListAll(ctx)
	}
	return u.repo.QueryByRole(ctx, borrower, lender)
}

type InterestDTO struct {
	Collectable string `json:"collectable"`
	Currency    string `json:"currency"`
}

func (u *Usecase) Interest(ctx context.Context, loanID string) (*InterestDTO, error) {
	l, err := u.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	collectable, err := Collectable(l, u.now())
	if err != nil {
		return nil, err
	}
	return &InterestDTO{Collectable: collectable.String(), Currency: l.Currency}, nil
}

func (u *Usecase) Borrowers(ctx context.Context) ([]string, error) {
	return u.repo.Accounts(ctx, domain.RoleBorrower)
}

func (u *Usecase) Lenders(ctx context.Context) ([]string, error) {
	return u.repo.Accounts(ctx, domain.RoleLender)
}

func (u *Usecase) BorrowerIndex(ctx context.Context) (map[string][]string, error) {
	return u.repo.FullIndex(ctx, domain.RoleBorrower)
}

func (u *Usecase) LenderIndex(ctx context.Context) (map[string][]string, error) {
	return u.repo.FullIndex(ctx, domain.RoleLender)
}

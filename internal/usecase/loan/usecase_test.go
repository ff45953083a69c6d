package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "p2plend-backend/internal/domain/loan"
	"p2plend-backend/internal/testutil/loanmock"

	"gorm.io/gorm"
)

func TestGet_MapsRecordNotFound(t *testing.T) {
	repo := &loanmock.Repo{
		GetByLoanIDFn: func(ctx context.Context, loanID string) (*domain.Loan, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	uc := NewUsecase(repo)

	_, err := uc.Get(context.Background(), "404-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestList_Semantics(t *testing.T) {
	var gotBorrower, gotLender string
	listed := false
	repo := &loanmock.Repo{
		ListAllFn: func(ctx context.Context) ([]domain.Loan, error) {
			listed = true
			return []domain.Loan{{LoanID: "1-1"}, {LoanID: "2-1"}}, nil
		},
		QueryByRoleFn: func(ctx context.Context, borrower, lender string) ([]domain.Loan, error) {
			gotBorrower, gotLender = borrower, lender
			return []domain.Loan{{LoanID: "1-1"}}, nil
		},
	}
	uc := NewUsecase(repo)
	ctx := context.Background()

	// both filters at once is rejected
	if _, err := uc.List(ctx, "alice.near", "bob.near"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("both filters: err = %v, want ErrInvalidArgument", err)
	}

	// no filter lists everything
	loans, err := uc.List(ctx, "", "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if !listed || len(loans) != 2 {
		t.Fatalf("loans = %+v, want the full list", loans)
	}

	// a single filter is forwarded as-is
	if _, err := uc.List(ctx, "alice.near", ""); err != nil {
		t.Fatalf("List borrower: %v", err)
	}
	if gotBorrower != "alice.near" || gotLender != "" {
		t.Fatalf("forwarded (%q, %q), want (alice.near, )", gotBorrower, gotLender)
	}
	if _, err := uc.List(ctx, "", "bob.near"); err != nil {
		t.Fatalf("List lender: %v", err)
	}
	if gotLender != "bob.near" {
		t.Fatalf("forwarded lender %q, want bob.near", gotLender)
	}
}

func TestInterest(t *testing.T) {
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	repo := &loanmock.Repo{
		GetByLoanIDFn: func(ctx context.Context, loanID string) (*domain.Loan, error) {
			l := activeLoan(1000, 10, 10, start)
			l.Currency = "USDT"
			return l, nil
		},
	}
	uc := NewUsecase(repo).WithNow(func() time.Time { return start.Add(5 * 24 * time.Hour) })

	got, err := uc.Interest(context.Background(), "1-1")
	if err != nil {
		t.Fatalf("Interest: %v", err)
	}
	if got.Collectable != "550" || got.Currency != "USDT" {
		t.Fatalf("dto = %+v, want 550 USDT", got)
	}
}

func TestInterest_NotActive(t *testing.T) {
	repo := &loanmock.Repo{
		GetByLoanIDFn: func(ctx context.Context, loanID string) (*domain.Loan, error) {
			l := activeLoan(1000, 10, 10, time.Now())
			l.Status = domain.StatusPending
			return l, nil
		},
	}
	uc := NewUsecase(repo)

	if _, err := uc.Interest(context.Background(), "1-1"); !errors.Is(err, domain.ErrNotActive) {
		t.Fatalf("err = %v, want ErrNotActive", err)
	}
}

func TestAccountsAndIndexes_ForwardRole(t *testing.T) {
	var accountsRole, indexRole domain.Role
	repo := &loanmock.Repo{
		AccountsFn: func(ctx context.Context, role domain.Role) ([]string, error) {
			accountsRole = role
			return []string{"alice.near"}, nil
		},
		FullIndexFn: func(ctx context.Context, role domain.Role) (map[string][]string, error) {
			indexRole = role
			return map[string][]string{"alice.near": {"1-1"}}, nil
		},
	}
	uc := NewUsecase(repo)
	ctx := context.Background()

	if _, err := uc.Borrowers(ctx); err != nil || accountsRole != domain.RoleBorrower {
		t.Fatalf("Borrowers forwarded role %q (err %v)", accountsRole, err)
	}
	if _, err := uc.Lenders(ctx); err != nil || accountsRole != domain.RoleLender {
		t.Fatalf("Lenders forwarded role %q (err %v)", accountsRole, err)
	}
	if _, err := uc.BorrowerIndex(ctx); err != nil || indexRole != domain.RoleBorrower {
		t.Fatalf("BorrowerIndex forwarded role %q (err %v)", indexRole, err)
	}
	if _, err := uc.LenderIndex(ctx); err != nil || indexRole != domain.RoleLender {
		t.Fatalf("LenderIndex forwarded role %q (err %v)", indexRole, err)
	}
}

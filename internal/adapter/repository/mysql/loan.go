package mysql

import (
	"context"
	"errors"

	loanDomain "p2plend-backend/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	tx := r.db.WithContext(ctx)
	// sqlite (tests) has no FOR UPDATE; the whole-db write lock covers it
	if tx.Dialector.Name() == "mysql" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out loanDomain.Loan
	res := tx.Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) Delete(ctx context.Context, loanID string) error {
	return r.db.WithContext(ctx).Where("loan_id = ?", loanID).Delete(&loanDomain.Loan{}).Error
}

func (r *LoanRepository) ListAll(ctx context.Context) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).Order("id ASC").Find(&out)
	return out, res.Error
}

func (r *LoanRepository) AppendIndex(ctx context.Context, role loanDomain.Role, account, loanID string) error {
	return r.db.WithContext(ctx).Create(&loanDomain.IndexEntry{
		Role:    role,
		Account: account,
		LoanID:  loanID,
	}).Error
}

func (r *LoanRepository) RemoveIndex(ctx context.Context, role loanDomain.Role, account, loanID string) error {
	return r.db.WithContext(ctx).
		Where("role = ? AND account = ? AND loan_id = ?", role, account, loanID).
		Delete(&loanDomain.IndexEntry{}).Error
}

func (r *LoanRepository) IndexFor(ctx context.Context, role loanDomain.Role, account string) ([]string, error) {
	var entries []loanDomain.IndexEntry
	res := r.db.WithContext(ctx).
		Where("role = ? AND account = ?", role, account).
		Order("id ASC").
		Find(&entries)
	if res.Error != nil {
		return nil, res.Error
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.LoanID)
	}
	return ids, nil
}

func (r *LoanRepository) FullIndex(ctx context.Context, role loanDomain.Role) (map[string][]string, error) {
	var entries []loanDomain.IndexEntry
	res := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("id ASC").
		Find(&entries)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make(map[string][]string)
	for _, e := range entries {
		out[e.Account] = append(out[e.Account], e.LoanID)
	}
	return out, nil
}

func (r *LoanRepository) Accounts(ctx context.Context, role loanDomain.Role) ([]string, error) {
	var accounts []string
	res := r.db.WithContext(ctx).
		Model(&loanDomain.IndexEntry{}).
		Where("role = ?", role).
		Distinct().
		Order("account ASC").
		Pluck("account", &accounts)
	return accounts, res.Error
}

func (r *LoanRepository) QueryByRole(ctx context.Context, borrower, lender string) ([]loanDomain.Loan, error) {
	if (borrower == "") == (lender == "") {
		return nil, loanDomain.ErrInvalidArgument
	}

	role, account := loanDomain.RoleBorrower, borrower
	if lender != "" {
		role, account = loanDomain.RoleLender, lender
	}

	ids, err := r.IndexFor(ctx, role, account)
	if err != nil {
		return nil, err
	}

	// tolerate index/ledger drift: skip ids with no loan behind them
	out := make([]loanDomain.Loan, 0, len(ids))
	for _, id := range ids {
		l, err := r.GetByLoanID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *l)
	}
	return out, nil
}

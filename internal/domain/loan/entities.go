package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeBorrow Mode = "BORROW"
	ModeLend   Mode = "LEND"
)

// TypeAmortized is the only schedule variant the contract issues.
const TypeAmortized = "AMORTIZED"

type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
)

// LockState is the per-loan saga state. A loan is locked while any state
// other than unlocked is persisted; the owning protocol instance advances
// it and always returns it to unlocked in its terminal stage.
type LockState string

const (
	LockUnlocked         LockState = "unlocked"
	LockAwaitingTransfer LockState = "awaiting_transfer"
	LockAwaitingMutation LockState = "awaiting_mutation"
)

type Role string

const (
	RoleBorrower Role = "borrower"
	RoleLender   Role = "lender"
)

var (
	ErrNotFound                = errors.New("loan not exists")
	ErrInvalidArgument         = errors.New("only one of 'borrower' or 'lender' arguments can be specified")
	ErrLocked                  = errors.New("loan is locked, please retry later")
	ErrNotPending              = errors.New("only pending loans can be accepted or canceled")
	ErrNotActive               = errors.New("no interests to collect, loan is not active")
	ErrAmountMismatch          = errors.New("amount must be equal to loan capital")
	ErrDepositExceedsRemaining = errors.New("deposit can't exceed the total remaining interest")
	ErrInterestFullyRepaid     = errors.New("no interest to collect, loan fully repaid")
	ErrNothingToCollect        = errors.New("no interest to collect")
	ErrNotCounterparty         = errors.New("only the loan borrower or lender can cancel a loan")
	ErrNotLender               = errors.New("only the loan lender can collect loan interests")
)

// Loan amounts (capital, collected, deposit) are integer-valued decimals in
// the smallest token unit; never floats.
type Loan struct {
	ID           uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID       string          `gorm:"size:64;uniqueIndex:ux_loans_loan_id" json:"id"`
	Mode         Mode            `gorm:"size:8" json:"mode"`
	Type         string          `gorm:"size:16" json:"type"`
	Currency     string          `gorm:"size:16;index:idx_loans_currency" json:"currency"`
	Capital      decimal.Decimal `gorm:"type:decimal(38,0)" json:"capital"`
	Rate         int64           `json:"rate"`
	Duration     int64           `json:"duration"`  // whole days
	Frequency    int64           `json:"frequency"` // seconds, informational
	CreatedAtNs  int64           `gorm:"column:created_at_ns" json:"createdAt,string"`
	AcceptedAtNs int64           `gorm:"column:accepted_at_ns" json:"acceptedAt,string"`
	ExpiredAtNs  int64           `gorm:"column:expired_at_ns" json:"expiredAt,string"`
	Status       Status          `gorm:"size:8;index:idx_loans_status" json:"status"`
	Title        string          `gorm:"type:text" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Link         string          `gorm:"type:text" json:"link"`
	Borrower     string          `gorm:"size:64;index:idx_loans_borrower" json:"borrower"`
	Lender       string          `gorm:"size:64;index:idx_loans_lender" json:"lender"`
	Guarantor    string          `gorm:"size:64" json:"guarantor"`
	Collected    decimal.Decimal `gorm:"type:decimal(38,0)" json:"collected"`
	Deposit      decimal.Decimal `gorm:"type:decimal(38,0)" json:"deposit"`
	LockState    LockState       `gorm:"size:24;default:'unlocked'" json:"lockState"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"-"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"-"`
}

func (Loan) TableName() string { return "loans" }

func (l *Loan) Locked() bool {
	return l.LockState != "" && l.LockState != LockUnlocked
}

// TotalCost is the floor-truncated total owed: capital * (1 + rate/100).
func (l *Loan) TotalCost() decimal.Decimal {
	return l.Capital.
		Mul(decimal.NewFromInt(100 + l.Rate)).
		Div(decimal.NewFromInt(100)).
		Floor()
}

// IndexEntry is one row of the per-account role index: account -> ordered
// loan ids. Insertion order is the ordering; (role, account, loan_id) is
// unique so an id enters each role index at most once.
type IndexEntry struct {
	ID      uint64 `gorm:"primaryKey;column:id"`
	Role    Role   `gorm:"size:16;uniqueIndex:ux_loan_index_entry"`
	Account string `gorm:"size:64;uniqueIndex:ux_loan_index_entry"`
	LoanID  string `gorm:"size:64;uniqueIndex:ux_loan_index_entry"`
}

func (IndexEntry) TableName() string { return "loan_index" }

package transfer

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Operation string

const (
	OpCreateLoan          Operation = "create_loan"
	OpAcceptLoan          Operation = "accept_loan"
	OpIncreaseLoanDeposit Operation = "increase_loan_deposit"
	OpCancelLoan          Operation = "cancel_loan"
	OpCollectLoanInterest Operation = "collect_loan_interest"
)

// State of one protocol instance. Every instance ends in StateDone; the
// transfer outcome is carried by Success/Unconsumed, never by a missing
// terminal transition.
type State string

const (
	StateAwaitingTransfer State = "awaiting_transfer"
	StateAwaitingMutation State = "awaiting_mutation"
	StateDone             State = "done"
)

var (
	ErrNotFound         = errors.New("transfer not exists")
	ErrUnknownOperation = errors.New("unknown transfer operation")
	ErrBadAmount        = errors.New("amount must be a positive integer")
)

// Record is the persisted saga record for one run of the
// transfer -> mutation -> unlock sequence on a single loan.
type Record struct {
	ID         uint64          `gorm:"primaryKey;column:id" json:"-"`
	TransferID string          `gorm:"size:36;uniqueIndex:ux_transfers_transfer_id" json:"transfer_id"`
	LoanID     string          `gorm:"size:64;index:idx_transfers_loan_id" json:"loan_id"`
	Operation  Operation       `gorm:"size:32" json:"operation"`
	Sender     string          `gorm:"size:64" json:"sender"`
	Amount     decimal.Decimal `gorm:"type:decimal(38,0)" json:"amount"`
	State      State           `gorm:"size:24" json:"state"`
	Success    bool            `json:"success"`
	Unconsumed decimal.Decimal `gorm:"type:decimal(38,0)" json:"unconsumed"`
	Error      string          `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"-"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"-"`
}

func (Record) TableName() string { return "transfers" }

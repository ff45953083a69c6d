package gatewaymock

import (
	"context"

	"p2plend-backend/internal/domain/transfer"

	"github.com/shopspring/decimal"
)

var (
	_ transfer.EscrowRelay = (*Escrow)(nil)
	_ transfer.TokenLedger = (*Ledger)(nil)
)

// Escrow is a function-backed mock of the escrow relay port. Calls are
// recorded so tests can assert on routing.
type Escrow struct {
	RequestTransferFn func(ctx context.Context, tokenAccount, recipient string, amount decimal.Decimal) (bool, error)
	Calls             []EscrowCall
}

type EscrowCall struct {
	TokenAccount string
	Recipient    string
	Amount       decimal.Decimal
}

func (m *Escrow) RequestTransfer(ctx context.Context, tokenAccount, recipient string, amount decimal.Decimal) (bool, error) {
	m.Calls = append(m.Calls, EscrowCall{TokenAccount: tokenAccount, Recipient: recipient, Amount: amount})
	if m.RequestTransferFn != nil {
		return m.RequestTransferFn(ctx, tokenAccount, recipient, amount)
	}
	return true, nil
}

// Ledger is a function-backed mock of the token ledger port.
type Ledger struct {
	TransferFn func(ctx context.Context, tokenAccount, receiver string, amount decimal.Decimal, memo string) error
	Calls      []LedgerCall
}

type LedgerCall struct {
	TokenAccount string
	Receiver     string
	Amount       decimal.Decimal
	Memo         string
}

func (m *Ledger) Transfer(ctx context.Context, tokenAccount, receiver string, amount decimal.Decimal, memo string) error {
	m.Calls = append(m.Calls, LedgerCall{TokenAccount: tokenAccount, Receiver: receiver, Amount: amount, Memo: memo})
	if m.TransferFn != nil {
		return m.TransferFn(ctx, tokenAccount, receiver, amount, memo)
	}
	return nil
}

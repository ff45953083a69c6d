package transfer

import (
	"context"

	"github.com/shopspring/decimal"
)

// EscrowRelay holds and forwards funds on behalf of the contract. Only the
// contract's designated owner identity may request a transfer from it; the
// gateway adapter carries that identity on every call. The returned bool is
// the relay's success report (unconsumed "0" convention on the wire).
type EscrowRelay interface {
	RequestTransfer(ctx context.Context, tokenAccount, recipient string, amount decimal.Decimal) (bool, error)
}

// TokenLedger performs the actual balance movement on the asset ledger
// identified by tokenAccount.
type TokenLedger interface {
	Transfer(ctx context.Context, tokenAccount, receiver string, amount decimal.Decimal, memo string) error
}

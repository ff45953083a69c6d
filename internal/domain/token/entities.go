package token

import (
	"errors"
	"time"
)

var ErrUnsupported = errors.New("token is not supported")

// Token maps a currency symbol to the account of the ledger contract that
// moves balances for it.
type Token struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	Symbol    string    `gorm:"size:16;uniqueIndex:ux_tokens_symbol" json:"symbol"`
	Account   string    `gorm:"size:64" json:"account"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Token) TableName() string { return "supported_tokens" }

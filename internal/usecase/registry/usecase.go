// Package registry manages the supported-token table and the persisted
// scalar configuration (greeting text, escrow address).
package registry

import (
	"context"
	"errors"
	"log"

	settingDomain "p2plend-backend/internal/domain/setting"
	tokenDomain "p2plend-backend/internal/domain/token"

	"gorm.io/gorm"
)

type Usecase struct {
	tokens   tokenDomain.Repository
	settings settingDomain.Repository
}

func NewUsecase(tokens tokenDomain.Repository, settings settingDomain.Repository) *Usecase {
	return &Usecase{tokens: tokens, settings: settings}
}

func (u *Usecase) Greeting(ctx context.Context) (string, error) {
	v, err := u.settings.Get(ctx, settingDomain.KeyGreeting)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return v, err
}

func (u *Usecase) SetGreeting(ctx context.Context, message string) error {
	return u.settings.Set(ctx, settingDomain.KeyGreeting, message)
}

func (u *Usecase) Escrow(ctx context.Context) (string, error) {
	v, err := u.settings.Get(ctx, settingDomain.KeyEscrow)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return v, err
}

func (u *Usecase) SetEscrow(ctx context.Context, escrow string) error {
	return u.settings.Set(ctx, settingDomain.KeyEscrow, escrow)
}

func (u *Usecase) AddToken(ctx context.Context, symbol, account string) error {
	if err := u.tokens.Upsert(ctx, &tokenDomain.Token{Symbol: symbol, Account: account}); err != nil {
		return err
	}
	log.Printf("support added for token %s", symbol)
	return nil
}

func (u *Usecase) RemoveToken(ctx context.Context, symbol string) error {
	if err := u.tokens.Remove(ctx, symbol); err != nil {
		return err
	}
	log.Printf("support removed for token %s", symbol)
	return nil
}

// Symbols lists the supported token symbols.
func (u *Usecase) Symbols(ctx context.Context) ([]string, error) {
	list, err := u.tokens.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.Symbol)
	}
	return out, nil
}

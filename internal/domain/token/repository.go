package token

import "context"

type Repository interface {
	Upsert(ctx context.Context, t *Token) error
	Remove(ctx context.Context, symbol string) error
	GetBySymbol(ctx context.Context, symbol string) (*Token, error)
	List(ctx context.Context) ([]Token, error)
}

package transfer

import "context"

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByTransferID(ctx context.Context, transferID string) (*Record, error)
	Save(ctx context.Context, r *Record) error
}

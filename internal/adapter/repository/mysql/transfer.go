package mysql

import (
	"context"

	transferDomain "p2plend-backend/internal/domain/transfer"

	"gorm.io/gorm"
)

type TransferRepository struct{ db *gorm.DB }

func NewTransferRepository(db *gorm.DB) *TransferRepository { return &TransferRepository{db: db} }

func (r *TransferRepository) Create(ctx context.Context, rec *transferDomain.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *TransferRepository) Save(ctx context.Context, rec *transferDomain.Record) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *TransferRepository) GetByTransferID(ctx context.Context, transferID string) (*transferDomain.Record, error) {
	var out transferDomain.Record
	res := r.db.WithContext(ctx).Where("transfer_id = ?", transferID).First(&out)
	return &out, res.Error
}

package mysql

import (
	"context"

	tokenDomain "p2plend-backend/internal/domain/token"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository struct{ db *gorm.DB }

func NewTokenRepository(db *gorm.DB) *TokenRepository { return &TokenRepository{db: db} }

func (r *TokenRepository) Upsert(ctx context.Context, t *tokenDomain.Token) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"account", "updated_at"}),
		}).
		Create(t).Error
}

func (r *TokenRepository) Remove(ctx context.Context, symbol string) error {
	return r.db.WithContext(ctx).Where("symbol = ?", symbol).Delete(&tokenDomain.Token{}).Error
}

func (r *TokenRepository) GetBySymbol(ctx context.Context, symbol string) (*tokenDomain.Token, error) {
	var out tokenDomain.Token
	res := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&out)
	return &out, res.Error
}

func (r *TokenRepository) List(ctx context.Context) ([]tokenDomain.Token, error) {
	var out []tokenDomain.Token
	res := r.db.WithContext(ctx).Order("symbol ASC").Find(&out)
	return out, res.Error
}

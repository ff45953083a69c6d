package mysql

import (
	"context"

	settingDomain "p2plend-backend/internal/domain/setting"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository struct{ db *gorm.DB }

func NewSettingRepository(db *gorm.DB) *SettingRepository { return &SettingRepository{db: db} }

func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var out settingDomain.Setting
	res := r.db.WithContext(ctx).Where("key_name = ?", key).First(&out)
	if res.Error != nil {
		return "", res.Error
	}
	return out.Value, nil
}

func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&settingDomain.Setting{Key: key, Value: value}).Error
}

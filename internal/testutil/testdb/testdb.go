// Package testdb opens in-memory sqlite databases migrated with the
// service schema, for repository and orchestrator tests.
package testdb

import (
	"testing"

	loanDomain "p2plend-backend/internal/domain/loan"
	settingDomain "p2plend-backend/internal/domain/setting"
	tokenDomain "p2plend-backend/internal/domain/token"
	transferDomain "p2plend-backend/internal/domain/transfer"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&loanDomain.Loan{},
		&loanDomain.IndexEntry{},
		&tokenDomain.Token{},
		&settingDomain.Setting{},
		&transferDomain.Record{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

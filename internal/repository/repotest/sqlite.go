// Package repotest 为 Repository 与 Service 测试提供内存 SQLite 数据库
package repotest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"boxatlas/backend/internal/model"
)

// NewDB 创建迁移完成的内存数据库。
// 只保留一个连接：内存库随连接存在，并发事务在连接池上排队执行
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.WorkspaceMember{},
		&model.Location{},
		&model.QrCode{},
		&model.Box{},
	))
	return db
}

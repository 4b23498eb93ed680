// Package databasetest 仓储测试使用的 SQLite 数据库，表结构与线上迁移一致
package databasetest

import (
	"path/filepath"
	"testing"

	"movienight/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 在测试临时目录中创建数据库并完成迁移，测试结束后自动关闭
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "movienight.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	// 单连接，事务外的查询不会绕过事务
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := model.SetupDatabase(db); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}
	return db
}

// Seed 写入测试数据
func Seed[T any](t testing.TB, db *gorm.DB, rows ...*T) {
	t.Helper()
	for _, r := range rows {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("写入测试数据失败: %v", err)
		}
	}
}

package database

import (
	"fmt"

	"movienight/internal/config"
	"movienight/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 初始化数据库连接并迁移表结构
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	// gorm 日志桥接到 zap
	level := logger.Warn
	if cfg.Log.Development {
		level = logger.Info
	}
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             cfg.Database.SlowThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialector, err := dialectorFor(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// 自动迁移数据库结构
	if err := model.SetupDatabase(db); err != nil {
		return nil, fmt.Errorf("迁移数据库失败: %w", err)
	}

	log.Info("数据库连接成功", zap.String("driver", cfg.Database.Driver))
	return db, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %q", driver)
	}
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

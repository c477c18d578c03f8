package database

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reconaudit/backend/database/models"
)

// Open 打开 sqlite 数据库文件并迁移表结构，文件所在目录不存在时自动创建。
func Open(file string) (*gorm.DB, error) {
	if file == "" {
		return nil, errors.New("database file not configured")
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, errors.Wrap(err, "create database dir")
	}
	db, err := gorm.Open(sqlite.Open(file), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// sqlite 只允许单写，多个流水线同时落库时串行化
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.AuditRun{}); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

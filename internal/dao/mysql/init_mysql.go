// Package mysql 负责建立 MySQL 连接、迁移表结构并构造 Repository 层
package mysql

import (
	"fmt"

	"chat_gateway/internal/config"
	"chat_gateway/internal/dao/mysql/repository"

	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN 根据配置构建 MySQL 连接串
// 格式：user:password@tcp(host:port)/database?params
func DSN(conf *config.MysqlConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		conf.User,
		conf.Password,
		conf.Host,
		conf.Port,
		conf.DatabaseName,
	)
}

// Init 连接数据库、自动迁移并返回 Repository 集合
func Init(conf *config.MysqlConfig) (*gorm.DB, *repository.Repositories, error) {
	db, err := gorm.Open(mysqldriver.Open(DSN(conf)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open mysql: %w", err)
	}

	if err := repository.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("auto migrate: %w", err)
	}

	return db, repository.NewRepositories(db), nil
}

package db

import (
	"context"
	"database/sql"
	"time"

	"interest_cluster/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	DB *sql.DB       // MySQL 连接
	PG *pgxpool.Pool // PostgreSQL 连接池，driver=postgres 时使用
)

// InitMySQLWithConfig 使用配置初始化数据库连接池
func InitMySQLWithConfig(cfg *config.Config) error {
	var err error
	DB, err = sql.Open("mysql", cfg.DB.DSN)
	if err != nil {
		return err
	}

	// 从配置读取连接池参数，提供默认值保护
	maxOpenConns := cfg.DB.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 50 // 默认最大连接数
	}

	maxIdleConns := cfg.DB.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 10 // 默认最大空闲连接数
	}

	connMaxLifetime := cfg.DB.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 60 // 默认连接最大生命周期（分钟）
	}

	DB.SetMaxOpenConns(maxOpenConns)
	DB.SetMaxIdleConns(maxIdleConns)
	DB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Minute)

	return DB.Ping()
}

// InitPostgresWithConfig 初始化 PostgreSQL 连接池
func InitPostgresWithConfig(ctx context.Context, cfg *config.Config) error {
	pgCfg, err := pgxpool.ParseConfig(cfg.DB.PostgresURL)
	if err != nil {
		return err
	}
	if cfg.DB.MaxOpenConns > 0 {
		pgCfg.MaxConns = int32(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.ConnMaxLifetime > 0 {
		pgCfg.MaxConnLifetime = time.Duration(cfg.DB.ConnMaxLifetime) * time.Minute
	}

	PG, err = pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		return err
	}
	return PG.Ping(ctx)
}

// Close 关闭已打开的连接
func Close() {
	if DB != nil {
		_ = DB.Close()
	}
	if PG != nil {
		PG.Close()
	}
}

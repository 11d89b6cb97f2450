package database

import (
	"context"
	"fmt"
	"time"

	"event-ticket-ledger/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func InitDatabase(ctx context.Context, config *config.DatabaseConfig) (*pgxpool.Pool, error) {

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s timezone=%s",
		config.Host,
		config.Port,
		config.User,
		config.Password,
		config.DBName,
		config.SSLMode,
		"UTC",
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	// 設置連接池參數
	poolConfig.MaxConns = 25                      // 最大連接數
	poolConfig.MinConns = 2                       // 最小連接數
	poolConfig.MaxConnLifetime = time.Hour        // 連接最大生命週期
	poolConfig.MaxConnIdleTime = time.Minute * 30 // 最大閒置時間

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

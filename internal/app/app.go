package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/One-johnson/sheepshep-sub001/internal/attendance"
	"github.com/One-johnson/sheepshep-sub001/internal/config"
	"github.com/One-johnson/sheepshep-sub001/internal/messaging/kafka"
	"github.com/One-johnson/sheepshep-sub001/internal/middleware"
	"github.com/One-johnson/sheepshep-sub001/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BuildApp connects the infrastructure, registers the API on router and
// returns a function that releases the connections.
func BuildApp(router *gin.Engine, cfg config.Config) (func(), error) {
	logger := zap.L().Named("app")

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database, 5)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established")

	if cfg.AutoMigrate {
		if err := Migrate(context.Background(), gormDB, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		logger.Info("schema migrated")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		logger.Info("redis connection established")
	} else {
		logger.Warn("REDIS_ADDR not set, roster cache and idempotency disabled")
	}

	router.Use(middleware.ContextLogger(zap.L()))
	if err := registerModules(router, cfg, sqlDB, gormDB, rdb); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = sqlDB.Close()
	}
	return cleanup, nil
}

// Migrate creates the attendance table, its indexes and the outbox table.
func Migrate(ctx context.Context, gormDB *gorm.DB, sqlDB *sql.DB) error {
	if err := gormDB.WithContext(ctx).AutoMigrate(&attendance.Attendance{}); err != nil {
		return err
	}
	_, err := sqlDB.ExecContext(ctx, kafka.OutboxSchema)
	return err
}

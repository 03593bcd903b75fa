package main

import (
	"github.com/One-johnson/sheepshep-sub001/internal/app"
	"github.com/One-johnson/sheepshep-sub001/internal/config"
	"github.com/One-johnson/sheepshep-sub001/internal/shared/apperror"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()

	if err := app.RunConsumer(cfg); err != nil {
		logger.Fatal("run consumer failed", zap.Error(err))
	}
}

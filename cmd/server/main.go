package main

import (
	"CodeDrop/internal/config"
	"CodeDrop/internal/handlers"
	"CodeDrop/internal/middleware"
	"CodeDrop/internal/repo"
	"CodeDrop/internal/service"
	"net/http"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	exchangeRepo := repo.NewExchangeRepository(gormDB)
	codeGen := service.NewCodeGenerator()
	limits := service.Limits{
		MaxFileBytes: cfg.MaxFileBytes(),
		MaxFiles:     cfg.MaxFilesPerUpload,
	}
	exchangeService := service.NewExchangeService(exchangeRepo, codeGen, limits, sugar)

	h := handlers.NewHandler(exchangeService, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"DatabaseDSN", cfg.DatabaseDSN,
		"MaxFileSizeMB", cfg.MaxFileSizeMB,
		"MaxFilesPerUpload", cfg.MaxFilesPerUpload,
	)

	if err := http.ListenAndServe(addr, h.Router); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}

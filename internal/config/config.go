package config

import (
	"flag"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_URI"`
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Политика загрузки файлов: потолок размера одного файла и
	// максимум файлов в одном запросе.
	MaxFileSizeMB     int64 `env:"FILE_MAX_MB"`
	MaxFilesPerUpload int   `env:"MAX_FILES"`
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес сервера (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS")
	flag.Int64Var(&cfg.MaxFileSizeMB, "file-max-mb", cfg.MaxFileSizeMB, "максимальный размер одного файла, МБ")
	flag.IntVar(&cfg.MaxFilesPerUpload, "max-files", cfg.MaxFilesPerUpload, "максимум файлов в одном запросе")

	flag.Parse()

	// Defaults
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 5120 // 5 GiB
	}
	if cfg.MaxFilesPerUpload <= 0 {
		cfg.MaxFilesPerUpload = 50
	}

	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8080"
	}

	return cfg
}

// MaxFileBytes возвращает потолок размера файла в байтах.
func (c *Config) MaxFileBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

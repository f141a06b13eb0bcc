// Package config содержит логику чтения конфигурации сервиса экопей.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса экопей.
type Config struct {
	RunAddress            string `env:"RUN_ADDRESS"`
	DatabaseURI           string `env:"DATABASE_URI"`
	AuthSecret            string `env:"AUTH_SECRET"`
	PointRates            string `env:"POINT_RATES"`
	CollectionOffsetHours int    `env:"COLLECTION_OFFSET_HOURS"`
}

// Parse считывает конфигурацию из .env, флагов командной строки и переменных
// окружения. Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// .env нужен только для локального запуска, его отсутствие не ошибка.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envPointRates := cfg.PointRates
	envOffset := cfg.CollectionOffsetHours

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")
	flag.StringVar(&cfg.PointRates, "r", "", "points per kg, e.g. Plastic:30,Paper:25,Glass:30,Iron:45")
	flag.IntVar(&cfg.CollectionOffsetHours, "c", 5, "hours between submission and scheduled collection")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envPointRates != "" {
		cfg.PointRates = envPointRates
	}
	if envOffset != 0 {
		cfg.CollectionOffsetHours = envOffset
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.CollectionOffsetHours <= 0 {
		cfg.CollectionOffsetHours = 5
	}

	return cfg, nil
}

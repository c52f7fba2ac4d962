// Package config собирает конфигурацию сервера из .env-файла и переменных
// окружения. Имена переменных и значения по умолчанию совместимы с
// docker-compose окружением приложения.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config хранит конфигурацию сервера.
type Config struct {
	// Адрес, на котором слушает HTTP-сервер.
	BindAddr string `env:"BIND_ADDR" envDefault:"0.0.0.0:8080"`

	// Параметры подключения к PostgreSQL.
	PGHost     string `env:"PG_HOST" envDefault:"localhost"`
	PGPort     int    `env:"PG_PORT" envDefault:"5432"`
	PGDatabase string `env:"PG_DB" envDefault:"syezw"`
	PGUser     string `env:"PG_USER" envDefault:"postgres"`
	PGPassword string `env:"PG_PASSWORD" envDefault:"postgres"`

	// Готовая строка подключения; если задана, PG_* игнорируются.
	DatabaseDSN string `env:"DATABASE_DSN"`

	// Общий секрет для заголовка X-API-Key. Пустое значение отключает проверку.
	APIKey string `env:"API_KEY"`

	// Пути к сертификату и ключу TLS. Если заданы оба, сервер слушает HTTPS.
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`
}

// Load читает конфигурацию из окружения. Файл .env, если он существует,
// подгружается заранее; его отсутствие не является ошибкой.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора переменных окружения: %w", err)
	}

	// Случайный пробел в значении секрета — частая ошибка при копировании
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	return cfg, nil
}

// DSN возвращает строку подключения к БД: либо заданную явно,
// либо собранную из параметров PG_*.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	//nolint:nosprintfhostport // DSN - это URL, а не просто host:port
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

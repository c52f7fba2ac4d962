package main

import (
	"flag"

	"github.com/syezw/sync-backend/internal/config"
)

// parseFlags собирает конфигурацию: сначала .env и переменные окружения,
// затем флаги командной строки, которые имеют приоритет.
func parseFlags() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Определяем флаги; пустое значение означает "не задан"
	bindAddr := flag.String("bind-addr", "", "Адрес HTTP-сервера (env: BIND_ADDR)")
	databaseDSN := flag.String("database-dsn", "", "Строка подключения к базе данных (env: DATABASE_DSN)")
	apiKey := flag.String("api-key", "", "Общий секрет для заголовка X-API-Key (env: API_KEY)")
	certFile := flag.String("cert-file", "", "Путь к файлу TLS-сертификата (env: TLS_CERT_FILE)")
	keyFile := flag.String("key-file", "", "Путь к файлу TLS-ключа (env: TLS_KEY_FILE)")

	flag.Parse()

	// Флаги переопределяют значения из окружения
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}
	if *databaseDSN != "" {
		cfg.DatabaseDSN = *databaseDSN
	}
	if *apiKey != "" {
		cfg.APIKey = *apiKey
	}
	if *certFile != "" {
		cfg.TLSCertFile = *certFile
	}
	if *keyFile != "" {
		cfg.TLSKeyFile = *keyFile
	}

	return cfg, nil
}

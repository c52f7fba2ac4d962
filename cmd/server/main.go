package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/syezw/sync-backend/internal/config"
	"github.com/syezw/sync-backend/internal/handlers"
	appmiddleware "github.com/syezw/sync-backend/internal/middleware"
	"github.com/syezw/sync-backend/internal/repository"
	"github.com/syezw/sync-backend/internal/services"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second

	// Лимит тела запроса: пакеты изображений могут быть большими.
	maxRequestBody = 50 << 20 // 50 МБ
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db           *sqlx.DB
	syncHandler  *handlers.SyncHandler
	imageHandler *handlers.ImageHandler
}

// Подменяемые в тестах функции инициализации.
var (
	newPostgresDB = repository.NewPostgresDB
	runMigrations = repository.RunMigrations
)

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера синхронизации...")

	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	// Инициализация зависимостей
	deps, err := setupDependencies(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	// Отложенное закрытие соединения с БД
	defer func() {
		if deps.db != nil {
			if closeErr := deps.db.Close(); closeErr != nil {
				log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
			}
		}
	}()

	// Настройка роутера
	r := setupRouter(cfg.APIKey, deps.syncHandler, deps.imageHandler)

	server := &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	// TLS включается, только если заданы оба пути; иначе обычный HTTP
	// (сервер обычно стоит за реверс-прокси, который терминирует TLS)
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		log.Printf("Запуск HTTPS-сервера на %s...", cfg.BindAddr)
		err = server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		log.Printf("Запуск HTTP-сервера на %s...", cfg.BindAddr)
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	}
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД
	deps.db, err = newPostgresDB(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}

	// 2. Применение миграций
	if err = runMigrations(context.Background(), deps.db); err != nil {
		if closeErr := deps.db.Close(); closeErr != nil {
			log.Printf("Ошибка закрытия соединения с БД при ошибке миграций: %v", closeErr)
		}
		return nil, fmt.Errorf("ошибка миграции БД: %w", err)
	}

	// 3. Создание репозиториев
	diaryRepo := repository.NewPostgresDiaryRepository(deps.db)
	todoRepo := repository.NewPostgresTodoRepository(deps.db)
	periodRepo := repository.NewPostgresPeriodRepository(deps.db)
	imageRepo := repository.NewPostgresImageRepository(deps.db)

	// 4. Создание сервисов
	syncService := services.NewSyncService(deps.db, diaryRepo, todoRepo, periodRepo, imageRepo)
	imageService := services.NewImageService(deps.db, imageRepo)

	// 5. Создание обработчиков
	deps.syncHandler = handlers.NewSyncHandler(syncService)
	deps.imageHandler = handlers.NewImageHandler(imageService)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
// Все маршруты данных закрыты проверкой API-ключа; она выполняется
// ровно один раз на запрос, до любого обращения к хранилищу.
func setupRouter(apiKey string, syncHandler *handlers.SyncHandler, imageHandler *handlers.ImageHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(limitRequestBody)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.APIKeyAuthenticator(apiKey))

		r.Route("/sync", func(r chi.Router) {
			r.Post("/upload", syncHandler.Upload)
			r.Post("/download", syncHandler.Download)
			r.Post("/meta", syncHandler.Meta)
		})

		r.Route("/images", func(r chi.Router) {
			r.Post("/upload", imageHandler.Upload)
			r.Post("/refs", imageHandler.Refs)
			r.Post("/refs/upsert", imageHandler.UpsertRefs)
			r.Post("/hashes", imageHandler.Hashes)
			r.Post("/fetch", imageHandler.Fetch)
		})
	})
	return r
}

// limitRequestBody ограничивает размер тела запроса на границе транспорта.
func limitRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

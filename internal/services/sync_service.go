package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/syezw/sync-backend/internal/models"
	"github.com/syezw/sync-backend/internal/repository"
)

// SyncService определяет интерфейс движка синхронизации.
type SyncService interface {
	// Upload применяет пакет сущностей атомарно: либо весь пакет фиксируется,
	// либо ничего. Возвращает счетчики обработанных сущностей по видам.
	Upload(ctx context.Context, req *models.SyncUploadRequest) (models.SyncCounts, error)
	// Download вычисляет дельту: минимальный набор сущностей, которые клиент
	// должен применить, чтобы сойтись с состоянием сервера.
	Download(ctx context.Context, req *models.SyncDownloadRequest) (*models.SyncDownloadData, error)
	// Meta возвращает полный нефильтрованный список пар (ключ, updatedAt).
	Meta(ctx context.Context) (*models.SyncMetaResponse, error)
}

// syncService реализует логику синхронизации.
var _ SyncService = (*syncService)(nil) // Проверка соответствия интерфейсу

type syncService struct {
	db         *sqlx.DB
	diaryRepo  repository.DiaryRepository
	todoRepo   repository.TodoRepository
	periodRepo repository.PeriodRepository
	imageRepo  repository.ImageRepository
}

// NewSyncService создает новый экземпляр сервиса синхронизации.
func NewSyncService(
	db *sqlx.DB,
	diaryRepo repository.DiaryRepository,
	todoRepo repository.TodoRepository,
	periodRepo repository.PeriodRepository,
	imageRepo repository.ImageRepository,
) SyncService {
	return &syncService{
		db:         db,
		diaryRepo:  diaryRepo,
		todoRepo:   todoRepo,
		periodRepo: periodRepo,
		imageRepo:  imageRepo,
	}
}

// Upload применяет весь пакет в одной транзакции.
// При совпадении ключей побеждает последняя зафиксированная запись
// независимо от значений updatedAt: источник истины для last-write-wins —
// порядок фиксации, а не клиентские метки времени.
func (s *syncService) Upload(ctx context.Context, req *models.SyncUploadRequest) (models.SyncCounts, error) {
	var zero models.SyncCounts

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Printf("[SyncService] Ошибка открытия транзакции: %v", err)
		return zero, fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	// Откат безопасен и после успешного Commit
	defer func() { _ = tx.Rollback() }()

	for i := range req.Diaries {
		if err = s.diaryRepo.UpsertTx(ctx, tx, &req.Diaries[i]); err != nil {
			log.Printf("[SyncService] Ошибка сохранения записи дневника: %v", err)
			return zero, fmt.Errorf("ошибка сохранения записи дневника: %w", err)
		}
	}

	for i := range req.Todos {
		if err = s.todoRepo.UpsertTx(ctx, tx, &req.Todos[i]); err != nil {
			log.Printf("[SyncService] Ошибка сохранения задачи: %v", err)
			return zero, fmt.Errorf("ошибка сохранения задачи: %w", err)
		}
	}

	for i := range req.Periods {
		if err = s.periodRepo.UpsertTx(ctx, tx, &req.Periods[i]); err != nil {
			log.Printf("[SyncService] Ошибка сохранения записи о цикле: %v", err)
			return zero, fmt.Errorf("ошибка сохранения записи о цикле: %w", err)
		}
	}

	// Blob всегда записывается раньше ссылки в той же транзакции,
	// чтобы ссылка не могла пережить фиксацию без своего blob'а
	for i := range req.Images {
		img := &req.Images[i]
		if err = s.imageRepo.UpsertBlobTx(ctx, tx, img); err != nil {
			log.Printf("[SyncService] Ошибка сохранения изображения: %v", err)
			return zero, fmt.Errorf("ошибка сохранения изображения: %w", err)
		}
		ref := models.ImageRef{
			DiaryUUID: img.DiaryUUID,
			FileName:  img.FileName,
			Hash:      img.Hash,
			UpdatedAt: img.UpdatedAt,
		}
		if err = s.imageRepo.UpsertRefTx(ctx, tx, &ref); err != nil {
			log.Printf("[SyncService] Ошибка сохранения ссылки изображения: %v", err)
			return zero, fmt.Errorf("ошибка сохранения ссылки изображения: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[SyncService] Ошибка фиксации транзакции: %v", err)
		return zero, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	counts := models.SyncCounts{
		Diaries: len(req.Diaries),
		Todos:   len(req.Todos),
		Periods: len(req.Periods),
		Images:  len(req.Images),
	}
	log.Printf("[SyncService] Пакет применен: diaries=%d, todos=%d, periods=%d, images=%d",
		counts.Diaries, counts.Todos, counts.Periods, counts.Images)
	return counts, nil
}

// Download сравнивает хранимые записи с манифестом клиента.
// Запись попадает в дельту, если клиент её не видел либо храним более новую
// версию (строго stored.updatedAt > manifest.updatedAt; равенство означает,
// что клиент уже синхронизирован). Изображения в дельту не входят никогда —
// они скачиваются по запросу, чтобы не гонять большие blob'ы впустую.
func (s *syncService) Download(ctx context.Context, req *models.SyncDownloadRequest) (*models.SyncDownloadData, error) {
	diaryMeta := make(map[string]int64, len(req.Diaries))
	for _, m := range req.Diaries {
		diaryMeta[m.UUID] = m.UpdatedAt
	}
	todoMeta := make(map[string]int64, len(req.Todos))
	for _, m := range req.Todos {
		todoMeta[m.UUID] = m.UpdatedAt
	}
	periodMeta := make(map[string]int64, len(req.Periods))
	for _, m := range req.Periods {
		periodMeta[m.StartDate] = m.UpdatedAt
	}

	allDiaries, err := s.diaryRepo.ListAll(ctx)
	if err != nil {
		log.Printf("[SyncService] Ошибка получения записей дневника: %v", err)
		return nil, fmt.Errorf("ошибка получения записей дневника: %w", err)
	}
	allTodos, err := s.todoRepo.ListAll(ctx)
	if err != nil {
		log.Printf("[SyncService] Ошибка получения задач: %v", err)
		return nil, fmt.Errorf("ошибка получения задач: %w", err)
	}
	allPeriods, err := s.periodRepo.ListAll(ctx)
	if err != nil {
		log.Printf("[SyncService] Ошибка получения записей о циклах: %v", err)
		return nil, fmt.Errorf("ошибка получения записей о циклах: %w", err)
	}

	data := &models.SyncDownloadData{
		Diaries: make([]models.DiaryEntry, 0),
		Todos:   make([]models.TodoItem, 0),
		Periods: make([]models.PeriodRecord, 0),
		Images:  make([]models.DiaryImage, 0),
	}
	for _, item := range allDiaries {
		if known, ok := diaryMeta[item.UUID]; !ok || item.UpdatedAt > known {
			data.Diaries = append(data.Diaries, item)
		}
	}
	for _, item := range allTodos {
		if known, ok := todoMeta[item.UUID]; !ok || item.UpdatedAt > known {
			data.Todos = append(data.Todos, item)
		}
	}
	for _, item := range allPeriods {
		if known, ok := periodMeta[item.StartDate]; !ok || item.UpdatedAt > known {
			data.Periods = append(data.Periods, item)
		}
	}

	log.Printf("[SyncService] Дельта вычислена: diaries=%d, todos=%d, periods=%d",
		len(data.Diaries), len(data.Todos), len(data.Periods))
	return data, nil
}

// Meta собирает метаданные всех трех видов без фильтрации.
func (s *syncService) Meta(ctx context.Context) (*models.SyncMetaResponse, error) {
	diaries, err := s.diaryRepo.ListMeta(ctx)
	if err != nil {
		log.Printf("[SyncService] Ошибка получения метаданных дневника: %v", err)
		return nil, fmt.Errorf("ошибка получения метаданных дневника: %w", err)
	}
	todos, err := s.todoRepo.ListMeta(ctx)
	if err != nil {
		log.Printf("[SyncService] Ошибка получения метаданных задач: %v", err)
		return nil, fmt.Errorf("ошибка получения метаданных задач: %w", err)
	}
	periods, err := s.periodRepo.ListMeta(ctx)
	if err != nil {
		log.Printf("[SyncService] Ошибка получения метаданных циклов: %v", err)
		return nil, fmt.Errorf("ошибка получения метаданных циклов: %w", err)
	}

	return &models.SyncMetaResponse{
		Diaries: diaries,
		Todos:   todos,
		Periods: periods,
	}, nil
}

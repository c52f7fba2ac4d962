package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/syezw/sync-backend/internal/models"
	"github.com/syezw/sync-backend/internal/repository"
)

// ErrImageNotFound — изображение для запрошенной пары (дневник, имя файла) отсутствует.
var ErrImageNotFound = errors.New("изображение не найдено")

// ImageService определяет интерфейс контентно-адресуемого хранилища изображений.
type ImageService interface {
	// UploadImages сохраняет пакет изображений (blob + ссылка на каждый)
	// атомарно: либо все фиксируются, либо ни одно.
	UploadImages(ctx context.Context, images []models.DiaryImage) error
	// UpsertRefs сохраняет пакет ссылок атомарно.
	UpsertRefs(ctx context.Context, refs []models.ImageRef) error
	// ListHashes возвращает все различные хэши blob'ов.
	ListHashes(ctx context.Context) ([]string, error)
	// ListRefs возвращает полный манифест ссылок.
	ListRefs(ctx context.Context) ([]models.ImageRef, error)
	// Fetch возвращает изображение по точной паре (дневник, имя файла).
	Fetch(ctx context.Context, diaryUUID, fileName string) (*models.DiaryImage, error)
}

// imageService реализует логику работы с изображениями.
var _ ImageService = (*imageService)(nil) // Проверка соответствия интерфейсу

type imageService struct {
	db        *sqlx.DB
	imageRepo repository.ImageRepository
}

// NewImageService создает новый экземпляр сервиса изображений.
func NewImageService(db *sqlx.DB, imageRepo repository.ImageRepository) ImageService {
	return &imageService{db: db, imageRepo: imageRepo}
}

func (s *imageService) UploadImages(ctx context.Context, images []models.DiaryImage) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Printf("[ImageService] Ошибка открытия транзакции: %v", err)
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range images {
		img := &images[i]
		// Сначала blob, затем ссылка — в одной транзакции
		if err = s.imageRepo.UpsertBlobTx(ctx, tx, img); err != nil {
			log.Printf("[ImageService] Ошибка сохранения blob %s: %v", img.Hash, err)
			return fmt.Errorf("ошибка сохранения изображения: %w", err)
		}
		ref := models.ImageRef{
			DiaryUUID: img.DiaryUUID,
			FileName:  img.FileName,
			Hash:      img.Hash,
			UpdatedAt: img.UpdatedAt,
		}
		if err = s.imageRepo.UpsertRefTx(ctx, tx, &ref); err != nil {
			log.Printf("[ImageService] Ошибка сохранения ссылки (%s, %s): %v", img.DiaryUUID, img.FileName, err)
			return fmt.Errorf("ошибка сохранения ссылки изображения: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[ImageService] Ошибка фиксации транзакции: %v", err)
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	log.Printf("[ImageService] Загружено изображений: %d", len(images))
	return nil
}

func (s *imageService) UpsertRefs(ctx context.Context, refs []models.ImageRef) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Printf("[ImageService] Ошибка открытия транзакции: %v", err)
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range refs {
		if err = s.imageRepo.UpsertRefTx(ctx, tx, &refs[i]); err != nil {
			log.Printf("[ImageService] Ошибка сохранения ссылки (%s, %s): %v", refs[i].DiaryUUID, refs[i].FileName, err)
			return fmt.Errorf("ошибка сохранения ссылки изображения: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[ImageService] Ошибка фиксации транзакции: %v", err)
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	log.Printf("[ImageService] Сохранено ссылок: %d", len(refs))
	return nil
}

func (s *imageService) ListHashes(ctx context.Context) ([]string, error) {
	hashes, err := s.imageRepo.ListHashes(ctx)
	if err != nil {
		log.Printf("[ImageService] Ошибка получения хэшей: %v", err)
		return nil, fmt.Errorf("ошибка получения хэшей изображений: %w", err)
	}
	return hashes, nil
}

func (s *imageService) ListRefs(ctx context.Context) ([]models.ImageRef, error) {
	refs, err := s.imageRepo.ListRefs(ctx)
	if err != nil {
		log.Printf("[ImageService] Ошибка получения ссылок: %v", err)
		return nil, fmt.Errorf("ошибка получения ссылок изображений: %w", err)
	}
	return refs, nil
}

func (s *imageService) Fetch(ctx context.Context, diaryUUID, fileName string) (*models.DiaryImage, error) {
	img, err := s.imageRepo.GetByRef(ctx, diaryUUID, fileName)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			log.Printf("[ImageService] Изображение (%s, %s) не найдено", diaryUUID, fileName)
			return nil, ErrImageNotFound // Возвращаем ошибку сервисного слоя
		}
		log.Printf("[ImageService] Ошибка репозитория при поиске изображения (%s, %s): %v", diaryUUID, fileName, err)
		return nil, fmt.Errorf("ошибка получения изображения: %w", err)
	}
	return img, nil
}

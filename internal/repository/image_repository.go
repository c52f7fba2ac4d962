package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/syezw/sync-backend/internal/models"
)

// ErrImageNotFound — для пары (дневник, имя файла) нет ссылки,
// либо ссылка указывает на отсутствующий blob.
var ErrImageNotFound = errors.New("изображение не найдено")

// ImageRepository определяет методы для контентно-адресуемого хранилища изображений.
// Blob'ы хранятся по одному на хэш содержимого; ссылки (дневник, имя файла)
// указывают на blob по хэшу в отношении многие-к-одному.
type ImageRepository interface {
	// UpsertBlobTx сохраняет blob по хэшу. Повторная загрузка того же хэша —
	// идемпотентная перезапись. Выполняется внутри переданной транзакции.
	UpsertBlobTx(ctx context.Context, tx *sqlx.Tx, img *models.DiaryImage) error
	// UpsertRefTx сохраняет ссылку по составному ключу (diary_uuid, file_name);
	// повторный вызов перенаправляет существующую пару на новый хэш.
	UpsertRefTx(ctx context.Context, tx *sqlx.Tx, ref *models.ImageRef) error
	// ListHashes возвращает все различные хэши blob'ов.
	ListHashes(ctx context.Context) ([]string, error)
	// ListRefs возвращает полный манифест ссылок.
	ListRefs(ctx context.Context) ([]models.ImageRef, error)
	// GetByRef соединяет ссылку с blob'ом и возвращает изображение целиком.
	// Возвращает ErrImageNotFound, если ссылки нет или blob отсутствует.
	GetByRef(ctx context.Context, diaryUUID, fileName string) (*models.DiaryImage, error)
}

// postgresImageRepository реализует ImageRepository для PostgreSQL.
type postgresImageRepository struct {
	db *sqlx.DB
}

// NewPostgresImageRepository создает новый экземпляр репозитория изображений.
func NewPostgresImageRepository(db *sqlx.DB) ImageRepository {
	return &postgresImageRepository{db: db}
}

// imageRow — результат соединения diary_image_refs с diary_images.
type imageRow struct {
	FileName  string `db:"file_name"`
	DiaryUUID string `db:"diary_uuid"`
	Hash      string `db:"hash"`
	UpdatedAt int64  `db:"updated_at"`
	BlobIV    string `db:"blob_iv"`
	BlobData  string `db:"blob_data"`
}

func (r imageRow) toModel() models.DiaryImage {
	return models.DiaryImage{
		FileName:  r.FileName,
		DiaryUUID: r.DiaryUUID,
		Hash:      r.Hash,
		UpdatedAt: r.UpdatedAt,
		Blob:      models.EncryptedBlob{IV: r.BlobIV, Data: r.BlobData},
	}
}

func (r *postgresImageRepository) UpsertBlobTx(ctx context.Context, tx *sqlx.Tx, img *models.DiaryImage) error {
	query := `INSERT INTO diary_images (hash, blob_iv, blob_data, updated_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (hash) DO UPDATE SET
	              blob_iv = EXCLUDED.blob_iv,
	              blob_data = EXCLUDED.blob_data,
	              updated_at = EXCLUDED.updated_at`

	_, err := tx.ExecContext(ctx, query, img.Hash, img.Blob.IV, img.Blob.Data, img.UpdatedAt)
	if err != nil {
		log.Printf("[ImageRepo] Ошибка upsert blob %s: %v", img.Hash, err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение blob изображения: %w", err)
	}
	return nil
}

func (r *postgresImageRepository) UpsertRefTx(ctx context.Context, tx *sqlx.Tx, ref *models.ImageRef) error {
	query := `INSERT INTO diary_image_refs (diary_uuid, file_name, hash, updated_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (diary_uuid, file_name) DO UPDATE SET
	              hash = EXCLUDED.hash,
	              updated_at = EXCLUDED.updated_at`

	_, err := tx.ExecContext(ctx, query, ref.DiaryUUID, ref.FileName, ref.Hash, ref.UpdatedAt)
	if err != nil {
		log.Printf("[ImageRepo] Ошибка upsert ссылки (%s, %s): %v", ref.DiaryUUID, ref.FileName, err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение ссылки изображения: %w", err)
	}
	return nil
}

func (r *postgresImageRepository) ListHashes(ctx context.Context) ([]string, error) {
	hashes := make([]string, 0)
	if err := r.db.SelectContext(ctx, &hashes, `SELECT hash FROM diary_images`); err != nil {
		log.Printf("[ImageRepo] Ошибка при получении списка хэшей: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение хэшей изображений: %w", err)
	}
	return hashes, nil
}

func (r *postgresImageRepository) ListRefs(ctx context.Context) ([]models.ImageRef, error) {
	query := `SELECT diary_uuid, file_name, hash, updated_at FROM diary_image_refs`

	var rows []struct {
		DiaryUUID string `db:"diary_uuid"`
		FileName  string `db:"file_name"`
		Hash      string `db:"hash"`
		UpdatedAt int64  `db:"updated_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		log.Printf("[ImageRepo] Ошибка при получении списка ссылок: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение ссылок изображений: %w", err)
	}

	refs := make([]models.ImageRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, models.ImageRef{
			DiaryUUID: row.DiaryUUID,
			FileName:  row.FileName,
			Hash:      row.Hash,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return refs, nil
}

func (r *postgresImageRepository) GetByRef(ctx context.Context, diaryUUID, fileName string) (*models.DiaryImage, error) {
	// INNER JOIN: ссылка на отсутствующий blob равнозначна отсутствию изображения.
	// При соблюдении атомарности загрузки такого не случается, но обрабатываем.
	query := `SELECT r.file_name, r.diary_uuid, r.hash, r.updated_at, i.blob_iv, i.blob_data
	          FROM diary_image_refs r
	          JOIN diary_images i ON i.hash = r.hash
	          WHERE r.diary_uuid = $1 AND r.file_name = $2`

	var row imageRow
	err := r.db.GetContext(ctx, &row, query, diaryUUID, fileName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[ImageRepo] Изображение (%s, %s) не найдено", diaryUUID, fileName)
			return nil, ErrImageNotFound
		}
		log.Printf("[ImageRepo] Ошибка при поиске изображения (%s, %s): %v", diaryUUID, fileName, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение изображения: %w", err)
	}

	img := row.toModel()
	return &img, nil
}

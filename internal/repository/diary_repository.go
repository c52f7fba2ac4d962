package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/syezw/sync-backend/internal/models"
)

// DiaryRepository определяет методы для работы с записями дневника.
type DiaryRepository interface {
	// UpsertTx вставляет запись или перезаписывает все неключевые поля
	// при совпадении uuid. Выполняется внутри переданной транзакции.
	UpsertTx(ctx context.Context, tx *sqlx.Tx, item *models.DiaryEntry) error
	// ListAll возвращает все хранимые записи дневника.
	ListAll(ctx context.Context) ([]models.DiaryEntry, error)
	// ListMeta возвращает пары (uuid, updated_at) без payload'ов.
	ListMeta(ctx context.Context) ([]models.SyncMeta, error)
}

// postgresDiaryRepository реализует DiaryRepository для PostgreSQL.
type postgresDiaryRepository struct {
	db *sqlx.DB
}

// NewPostgresDiaryRepository создает новый экземпляр репозитория дневников.
func NewPostgresDiaryRepository(db *sqlx.DB) DiaryRepository {
	return &postgresDiaryRepository{db: db}
}

// diaryRow — строка таблицы diary_sync.
type diaryRow struct {
	UUID        string `db:"uuid"`
	Author      string `db:"author"`
	Timestamp   int64  `db:"timestamp"`
	UpdatedAt   int64  `db:"updated_at"`
	PayloadIV   string `db:"payload_iv"`
	PayloadData string `db:"payload_data"`
}

func (r diaryRow) toModel() models.DiaryEntry {
	return models.DiaryEntry{
		UUID:      r.UUID,
		Author:    r.Author,
		Timestamp: r.Timestamp,
		UpdatedAt: r.UpdatedAt,
		Payload:   models.EncryptedBlob{IV: r.PayloadIV, Data: r.PayloadData},
	}
}

func (r *postgresDiaryRepository) UpsertTx(ctx context.Context, tx *sqlx.Tx, item *models.DiaryEntry) error {
	query := `INSERT INTO diary_sync (uuid, author, timestamp, updated_at, payload_iv, payload_data)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (uuid) DO UPDATE SET
	              author = EXCLUDED.author,
	              timestamp = EXCLUDED.timestamp,
	              updated_at = EXCLUDED.updated_at,
	              payload_iv = EXCLUDED.payload_iv,
	              payload_data = EXCLUDED.payload_data`

	_, err := tx.ExecContext(ctx, query,
		item.UUID, item.Author, item.Timestamp, item.UpdatedAt, item.Payload.IV, item.Payload.Data,
	)
	if err != nil {
		log.Printf("[DiaryRepo] Ошибка upsert записи %s: %v", item.UUID, err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение записи дневника: %w", err)
	}
	return nil
}

func (r *postgresDiaryRepository) ListAll(ctx context.Context) ([]models.DiaryEntry, error) {
	query := `SELECT uuid, author, timestamp, updated_at, payload_iv, payload_data FROM diary_sync`

	var rows []diaryRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		log.Printf("[DiaryRepo] Ошибка при получении списка записей: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение записей дневника: %w", err)
	}

	items := make([]models.DiaryEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (r *postgresDiaryRepository) ListMeta(ctx context.Context) ([]models.SyncMeta, error) {
	query := `SELECT uuid, updated_at FROM diary_sync`

	var rows []struct {
		UUID      string `db:"uuid"`
		UpdatedAt int64  `db:"updated_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		log.Printf("[DiaryRepo] Ошибка при получении метаданных: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение метаданных дневника: %w", err)
	}

	meta := make([]models.SyncMeta, 0, len(rows))
	for _, row := range rows {
		meta = append(meta, models.SyncMeta{UUID: row.UUID, UpdatedAt: row.UpdatedAt})
	}
	return meta, nil
}

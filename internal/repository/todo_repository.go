package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/syezw/sync-backend/internal/models"
)

// TodoRepository определяет методы для работы с задачами.
type TodoRepository interface {
	// UpsertTx вставляет задачу или перезаписывает все неключевые поля
	// при совпадении uuid. Выполняется внутри переданной транзакции.
	UpsertTx(ctx context.Context, tx *sqlx.Tx, item *models.TodoItem) error
	// ListAll возвращает все хранимые задачи.
	ListAll(ctx context.Context) ([]models.TodoItem, error)
	// ListMeta возвращает пары (uuid, updated_at) без payload'ов.
	ListMeta(ctx context.Context) ([]models.SyncMeta, error)
}

// postgresTodoRepository реализует TodoRepository для PostgreSQL.
type postgresTodoRepository struct {
	db *sqlx.DB
}

// NewPostgresTodoRepository создает новый экземпляр репозитория задач.
func NewPostgresTodoRepository(db *sqlx.DB) TodoRepository {
	return &postgresTodoRepository{db: db}
}

// todoRow — строка таблицы todo_sync. completed_at может быть NULL.
type todoRow struct {
	UUID        string `db:"uuid"`
	Author      string `db:"author"`
	IsCompleted bool   `db:"is_completed"`
	CreatedAt   int64  `db:"created_at"`
	CompletedAt *int64 `db:"completed_at"`
	UpdatedAt   int64  `db:"updated_at"`
	PayloadIV   string `db:"payload_iv"`
	PayloadData string `db:"payload_data"`
}

func (r todoRow) toModel() models.TodoItem {
	return models.TodoItem{
		UUID:        r.UUID,
		Author:      r.Author,
		IsCompleted: r.IsCompleted,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
		UpdatedAt:   r.UpdatedAt,
		Payload:     models.EncryptedBlob{IV: r.PayloadIV, Data: r.PayloadData},
	}
}

func (r *postgresTodoRepository) UpsertTx(ctx context.Context, tx *sqlx.Tx, item *models.TodoItem) error {
	query := `INSERT INTO todo_sync (
	              uuid, author, is_completed, created_at, completed_at, updated_at, payload_iv, payload_data
	          ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (uuid) DO UPDATE SET
	              author = EXCLUDED.author,
	              is_completed = EXCLUDED.is_completed,
	              created_at = EXCLUDED.created_at,
	              completed_at = EXCLUDED.completed_at,
	              updated_at = EXCLUDED.updated_at,
	              payload_iv = EXCLUDED.payload_iv,
	              payload_data = EXCLUDED.payload_data`

	_, err := tx.ExecContext(ctx, query,
		item.UUID, item.Author, item.IsCompleted, item.CreatedAt, item.CompletedAt,
		item.UpdatedAt, item.Payload.IV, item.Payload.Data,
	)
	if err != nil {
		log.Printf("[TodoRepo] Ошибка upsert задачи %s: %v", item.UUID, err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение задачи: %w", err)
	}
	return nil
}

func (r *postgresTodoRepository) ListAll(ctx context.Context) ([]models.TodoItem, error) {
	query := `SELECT uuid, author, is_completed, created_at, completed_at, updated_at, payload_iv, payload_data
	          FROM todo_sync`

	var rows []todoRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		log.Printf("[TodoRepo] Ошибка при получении списка задач: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение задач: %w", err)
	}

	items := make([]models.TodoItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (r *postgresTodoRepository) ListMeta(ctx context.Context) ([]models.SyncMeta, error) {
	query := `SELECT uuid, updated_at FROM todo_sync`

	var rows []struct {
		UUID      string `db:"uuid"`
		UpdatedAt int64  `db:"updated_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		log.Printf("[TodoRepo] Ошибка при получении метаданных: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение метаданных задач: %w", err)
	}

	meta := make([]models.SyncMeta, 0, len(rows))
	for _, row := range rows {
		meta = append(meta, models.SyncMeta{UUID: row.UUID, UpdatedAt: row.UpdatedAt})
	}
	return meta, nil
}

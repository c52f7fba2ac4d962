package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/syezw/sync-backend/internal/models"
)

// ErrInvalidPeriodDate — дата записи о цикле не соответствует формату YYYY-MM-DD.
// Ошибка клиента: пакет, содержащий такую запись, откатывается целиком.
var ErrInvalidPeriodDate = errors.New("некорректная дата записи о цикле")

// PeriodRepository определяет методы для работы с записями о циклах.
type PeriodRepository interface {
	// UpsertTx вставляет запись или перезаписывает все неключевые поля
	// при совпадении даты начала. Обе даты обязаны иметь формат YYYY-MM-DD,
	// иначе возвращается ErrInvalidPeriodDate без обращения к БД.
	UpsertTx(ctx context.Context, tx *sqlx.Tx, item *models.PeriodRecord) error
	// ListAll возвращает все хранимые записи о циклах.
	ListAll(ctx context.Context) ([]models.PeriodRecord, error)
	// ListMeta возвращает пары (start_date, updated_at) без payload'ов.
	ListMeta(ctx context.Context) ([]models.PeriodMeta, error)
}

// postgresPeriodRepository реализует PeriodRepository для PostgreSQL.
type postgresPeriodRepository struct {
	db *sqlx.DB
}

// NewPostgresPeriodRepository создает новый экземпляр репозитория циклов.
func NewPostgresPeriodRepository(db *sqlx.DB) PeriodRepository {
	return &postgresPeriodRepository{db: db}
}

// periodRow — строка таблицы period_sync. Даты читаются как текст.
type periodRow struct {
	StartDate   string `db:"start_date"`
	EndDate     string `db:"end_date"`
	UpdatedAt   int64  `db:"updated_at"`
	PayloadIV   string `db:"payload_iv"`
	PayloadData string `db:"payload_data"`
}

func (r periodRow) toModel() models.PeriodRecord {
	return models.PeriodRecord{
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		UpdatedAt: r.UpdatedAt,
		Payload:   models.EncryptedBlob{IV: r.PayloadIV, Data: r.PayloadData},
	}
}

func (r *postgresPeriodRepository) UpsertTx(ctx context.Context, tx *sqlx.Tx, item *models.PeriodRecord) error {
	startDate, err := time.Parse(time.DateOnly, item.StartDate)
	if err != nil {
		log.Printf("[PeriodRepo] Некорректная дата начала %q: %v", item.StartDate, err)
		return fmt.Errorf("%w: дата начала %q", ErrInvalidPeriodDate, item.StartDate)
	}
	endDate, err := time.Parse(time.DateOnly, item.EndDate)
	if err != nil {
		log.Printf("[PeriodRepo] Некорректная дата окончания %q: %v", item.EndDate, err)
		return fmt.Errorf("%w: дата окончания %q", ErrInvalidPeriodDate, item.EndDate)
	}

	query := `INSERT INTO period_sync (start_date, end_date, updated_at, payload_iv, payload_data)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (start_date) DO UPDATE SET
	              end_date = EXCLUDED.end_date,
	              updated_at = EXCLUDED.updated_at,
	              payload_iv = EXCLUDED.payload_iv,
	              payload_data = EXCLUDED.payload_data`

	_, err = tx.ExecContext(ctx, query,
		startDate, endDate, item.UpdatedAt, item.Payload.IV, item.Payload.Data,
	)
	if err != nil {
		log.Printf("[PeriodRepo] Ошибка upsert записи %s: %v", item.StartDate, err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение записи о цикле: %w", err)
	}
	return nil
}

func (r *postgresPeriodRepository) ListAll(ctx context.Context) ([]models.PeriodRecord, error) {
	// Даты сериализуем обратно в текст YYYY-MM-DD на стороне БД
	query := `SELECT start_date::text AS start_date, end_date::text AS end_date, updated_at, payload_iv, payload_data
	          FROM period_sync`

	var rows []periodRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		log.Printf("[PeriodRepo] Ошибка при получении списка записей: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение записей о циклах: %w", err)
	}

	items := make([]models.PeriodRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (r *postgresPeriodRepository) ListMeta(ctx context.Context) ([]models.PeriodMeta, error) {
	query := `SELECT start_date::text AS start_date, updated_at FROM period_sync`

	var rows []struct {
		StartDate string `db:"start_date"`
		UpdatedAt int64  `db:"updated_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		log.Printf("[PeriodRepo] Ошибка при получении метаданных: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение метаданных циклов: %w", err)
	}

	meta := make([]models.PeriodMeta, 0, len(rows))
	for _, row := range rows {
		meta = append(meta, models.PeriodMeta{StartDate: row.StartDate, UpdatedAt: row.UpdatedAt})
	}
	return meta, nil
}

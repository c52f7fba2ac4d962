package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syezw/sync-backend/internal/models"
	"github.com/syezw/sync-backend/internal/repository"
)

// Вспомогательная функция для создания мока БД.
func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { _ = sqlxDB.Close() })
	return sqlxDB, mock
}

// Вспомогательная функция: открывает транзакцию на замокированной БД.
func beginTx(t *testing.T, db *sqlx.DB, mock sqlmock.Sqlmock) *sqlx.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.Beginx()
	require.NoError(t, err)
	return tx
}

func testDiaryEntry() *models.DiaryEntry {
	return &models.DiaryEntry{
		UUID:      uuid.NewString(),
		Author:    "alice",
		Timestamp: 1700000000000,
		UpdatedAt: 1700000001000,
		Payload:   models.EncryptedBlob{IV: "iv1", Data: "ciphertext"},
	}
}

func TestDiaryRepository_UpsertTx(t *testing.T) {
	item := testDiaryEntry()

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectedErr string
	}{
		{
			name: "Успешный upsert",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO diary_sync`)).
					WithArgs(item.UUID, item.Author, item.Timestamp, item.UpdatedAt, item.Payload.IV, item.Payload.Data).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "Ошибка базы данных",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO diary_sync`)).
					WithArgs(item.UUID, item.Author, item.Timestamp, item.UpdatedAt, item.Payload.IV, item.Payload.Data).
					WillReturnError(errors.New("db connection error"))
			},
			expectedErr: "ошибка выполнения запроса на сохранение записи дневника",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := repository.NewPostgresDiaryRepository(db)
			tx := beginTx(t, db, mock)
			tt.mockSetup(mock)

			err := repo.UpsertTx(context.Background(), tx, item)

			if tt.expectedErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "Не все ожидания мока были выполнены")
		})
	}
}

func TestDiaryRepository_UpsertTx_Idempotent(t *testing.T) {
	// Повторный upsert той же записи с теми же полями — тот же запрос,
	// тот же результат: в таблице остается ровно одна строка на uuid
	db, mock := setupMockDB(t)
	repo := repository.NewPostgresDiaryRepository(db)
	tx := beginTx(t, db, mock)
	item := testDiaryEntry()

	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO diary_sync`)).
			WithArgs(item.UUID, item.Author, item.Timestamp, item.UpdatedAt, item.Payload.IV, item.Payload.Data).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, repo.UpsertTx(context.Background(), tx, item))
	require.NoError(t, repo.UpsertTx(context.Background(), tx, item))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiaryRepository_ListAll(t *testing.T) {
	t.Run("Успешное получение", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPostgresDiaryRepository(db)

		rows := sqlmock.NewRows([]string{"uuid", "author", "timestamp", "updated_at", "payload_iv", "payload_data"}).
			AddRow("d1", "alice", int64(1), int64(10), "iv1", "data1").
			AddRow("d2", "bob", int64(2), int64(20), "iv2", "data2")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT uuid, author, timestamp, updated_at, payload_iv, payload_data FROM diary_sync`)).
			WillReturnRows(rows)

		items, err := repo.ListAll(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, models.DiaryEntry{
			UUID:      "d1",
			Author:    "alice",
			Timestamp: 1,
			UpdatedAt: 10,
			Payload:   models.EncryptedBlob{IV: "iv1", Data: "data1"},
		}, items[0])

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPostgresDiaryRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT uuid, author, timestamp, updated_at, payload_iv, payload_data FROM diary_sync`)).
			WillReturnError(errors.New("query failed"))

		items, err := repo.ListAll(context.Background())
		require.Error(t, err)
		assert.Nil(t, items)
		assert.Contains(t, err.Error(), "ошибка выполнения запроса")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDiaryRepository_ListMeta(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewPostgresDiaryRepository(db)

	rows := sqlmock.NewRows([]string{"uuid", "updated_at"}).
		AddRow("d1", int64(10)).
		AddRow("d2", int64(20))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT uuid, updated_at FROM diary_sync`)).WillReturnRows(rows)

	meta, err := repo.ListMeta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.SyncMeta{
		{UUID: "d1", UpdatedAt: 10},
		{UUID: "d2", UpdatedAt: 20},
	}, meta)

	assert.NoError(t, mock.ExpectationsWereMet())
}

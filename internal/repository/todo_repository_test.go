package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syezw/sync-backend/internal/models"
	"github.com/syezw/sync-backend/internal/repository"
)

func TestTodoRepository_UpsertTx(t *testing.T) {
	completedAt := int64(1700000002000)

	tests := []struct {
		name string
		item *models.TodoItem
	}{
		{
			name: "Незавершенная задача (completedAt отсутствует)",
			item: &models.TodoItem{
				UUID:      uuid.NewString(),
				Author:    "alice",
				CreatedAt: 1700000000000,
				UpdatedAt: 1700000001000,
				Payload:   models.EncryptedBlob{IV: "iv", Data: "data"},
			},
		},
		{
			name: "Завершенная задача",
			item: &models.TodoItem{
				UUID:        uuid.NewString(),
				Author:      "bob",
				IsCompleted: true,
				CreatedAt:   1700000000000,
				CompletedAt: &completedAt,
				UpdatedAt:   1700000003000,
				Payload:     models.EncryptedBlob{IV: "iv", Data: "data"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := repository.NewPostgresTodoRepository(db)
			tx := beginTx(t, db, mock)

			mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO todo_sync`)).
				WithArgs(tt.item.UUID, tt.item.Author, tt.item.IsCompleted, tt.item.CreatedAt,
					tt.item.CompletedAt, tt.item.UpdatedAt, tt.item.Payload.IV, tt.item.Payload.Data).
				WillReturnResult(sqlmock.NewResult(0, 1))

			err := repo.UpsertTx(context.Background(), tx, tt.item)
			require.NoError(t, err)

			assert.NoError(t, mock.ExpectationsWereMet(), "Не все ожидания мока были выполнены")
		})
	}

	t.Run("Ошибка базы данных", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPostgresTodoRepository(db)
		tx := beginTx(t, db, mock)

		item := tests[0].item
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO todo_sync`)).
			WillReturnError(errors.New("exec error"))

		err := repo.UpsertTx(context.Background(), tx, item)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка выполнения запроса на сохранение задачи")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTodoRepository_ListAll(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewPostgresTodoRepository(db)

	completedAt := int64(15)
	rows := sqlmock.NewRows([]string{
		"uuid", "author", "is_completed", "created_at", "completed_at", "updated_at", "payload_iv", "payload_data",
	}).
		AddRow("t1", "alice", false, int64(1), nil, int64(10), "iv1", "data1").
		AddRow("t2", "bob", true, int64(2), completedAt, int64(20), "iv2", "data2")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT uuid, author, is_completed, created_at, completed_at, updated_at`)).
		WillReturnRows(rows)

	items, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Nil(t, items[0].CompletedAt)
	require.NotNil(t, items[1].CompletedAt)
	assert.Equal(t, completedAt, *items[1].CompletedAt)
	assert.True(t, items[1].IsCompleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTodoRepository_ListMeta(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewPostgresTodoRepository(db)

	rows := sqlmock.NewRows([]string{"uuid", "updated_at"}).AddRow("t1", int64(10))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT uuid, updated_at FROM todo_sync`)).WillReturnRows(rows)

	meta, err := repo.ListMeta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.SyncMeta{{UUID: "t1", UpdatedAt: 10}}, meta)

	assert.NoError(t, mock.ExpectationsWereMet())
}

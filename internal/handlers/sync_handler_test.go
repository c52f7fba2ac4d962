package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/syezw/sync-backend/internal/handlers"
	"github.com/syezw/sync-backend/internal/models"
	"github.com/syezw/sync-backend/internal/repository"
)

// MockSyncService — мок сервиса синхронизации.
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Upload(ctx context.Context, req *models.SyncUploadRequest) (models.SyncCounts, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.SyncCounts), args.Error(1)
}

func (m *MockSyncService) Download(ctx context.Context, req *models.SyncDownloadRequest) (*models.SyncDownloadData, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncDownloadData), args.Error(1)
}

func (m *MockSyncService) Meta(ctx context.Context) (*models.SyncMetaResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncMetaResponse), args.Error(1)
}

func TestSyncHandler_Upload(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockSetup      func(s *MockSyncService)
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name: "Успешная загрузка",
			body: `{"diaries":[{"uuid":"d1","author":"alice","timestamp":1,"updatedAt":10,"payload":{"iv":"iv","data":"data"}}]}`,
			mockSetup: func(s *MockSyncService) {
				s.On("Upload", mock.Anything, mock.AnythingOfType("*models.SyncUploadRequest")).
					Return(models.SyncCounts{Diaries: 1}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp models.SyncUploadResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.True(t, resp.OK)
				assert.Equal(t, "ok", resp.Message)
				assert.Equal(t, models.SyncCounts{Diaries: 1}, resp.Counts)
			},
		},
		{
			name: "Некорректная дата цикла — ошибка клиента",
			body: `{"periods":[{"startDate":"2025-13-40","endDate":"2025-05-06","updatedAt":1,"payload":{"iv":"iv","data":"data"}}]}`,
			mockSetup: func(s *MockSyncService) {
				s.On("Upload", mock.Anything, mock.Anything).
					Return(models.SyncCounts{}, repository.ErrInvalidPeriodDate)
			},
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				var resp models.SyncUploadResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.False(t, resp.OK)
				assert.Equal(t, models.SyncCounts{}, resp.Counts, "Частичные счетчики не возвращаются")
			},
		},
		{
			name: "Ошибка хранилища — ошибка сервера",
			body: `{}`,
			mockSetup: func(s *MockSyncService) {
				s.On("Upload", mock.Anything, mock.Anything).
					Return(models.SyncCounts{}, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body []byte) {
				var resp models.SyncUploadResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.False(t, resp.OK)
			},
		},
		{
			name:           "Невалидный JSON",
			body:           `{not json`,
			mockSetup:      func(s *MockSyncService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockSyncService)
			tt.mockSetup(mockService)
			handler := handlers.NewSyncHandler(mockService)

			req := httptest.NewRequest(http.MethodPost, "/sync/upload", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			handler.Upload(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.check != nil {
				tt.check(t, rr.Body.Bytes())
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestSyncHandler_Download(t *testing.T) {
	t.Run("Успешное вычисление дельты", func(t *testing.T) {
		mockService := new(MockSyncService)
		mockService.On("Download", mock.Anything, mock.AnythingOfType("*models.SyncDownloadRequest")).
			Return(&models.SyncDownloadData{
				Diaries: []models.DiaryEntry{{UUID: "d1", Author: "alice", Timestamp: 1, UpdatedAt: 10}},
				Todos:   []models.TodoItem{},
				Periods: []models.PeriodRecord{},
				Images:  []models.DiaryImage{},
			}, nil)
		handler := handlers.NewSyncHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/sync/download", bytes.NewBufferString(`{"diaries":[]}`))
		rr := httptest.NewRecorder()

		handler.Download(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.SyncDownloadResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, models.SyncCounts{Diaries: 1}, resp.Counts)
		assert.Len(t, resp.Data.Diaries, 1)
		assert.Empty(t, resp.Data.Images, "Изображения не входят в пакетную выгрузку")
		mockService.AssertExpectations(t)
	})

	t.Run("Ошибка хранилища — конверт с пустыми данными", func(t *testing.T) {
		mockService := new(MockSyncService)
		mockService.On("Download", mock.Anything, mock.Anything).
			Return(nil, errors.New("db down"))
		handler := handlers.NewSyncHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/sync/download", bytes.NewBufferString(`{}`))
		rr := httptest.NewRecorder()

		handler.Download(rr, req)

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		var resp models.SyncDownloadResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.False(t, resp.OK)
		assert.NotEmpty(t, resp.Message)
		assert.Empty(t, resp.Data.Diaries)
		assert.Empty(t, resp.Data.Todos)
		assert.Empty(t, resp.Data.Periods)
		mockService.AssertExpectations(t)
	})

	t.Run("Невалидный JSON", func(t *testing.T) {
		mockService := new(MockSyncService)
		handler := handlers.NewSyncHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/sync/download", bytes.NewBufferString(`{not json`))
		rr := httptest.NewRecorder()

		handler.Download(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestSyncHandler_Meta(t *testing.T) {
	t.Run("Успешное получение метаданных", func(t *testing.T) {
		mockService := new(MockSyncService)
		mockService.On("Meta", mock.Anything).Return(&models.SyncMetaResponse{
			Diaries: []models.SyncMeta{{UUID: "d1", UpdatedAt: 10}},
			Todos:   []models.SyncMeta{},
			Periods: []models.PeriodMeta{{StartDate: "2025-05-01", UpdatedAt: 20}},
		}, nil)
		handler := handlers.NewSyncHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/sync/meta", http.NoBody)
		rr := httptest.NewRecorder()

		handler.Meta(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.SyncMetaResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, []models.SyncMeta{{UUID: "d1", UpdatedAt: 10}}, resp.Diaries)
		assert.Equal(t, []models.PeriodMeta{{StartDate: "2025-05-01", UpdatedAt: 20}}, resp.Periods)
		mockService.AssertExpectations(t)
	})

	t.Run("Ошибка хранилища", func(t *testing.T) {
		mockService := new(MockSyncService)
		mockService.On("Meta", mock.Anything).Return(nil, errors.New("db down"))
		handler := handlers.NewSyncHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/sync/meta", http.NoBody)
		rr := httptest.NewRecorder()

		handler.Meta(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

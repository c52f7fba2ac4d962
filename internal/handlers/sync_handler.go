package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/syezw/sync-backend/internal/models"
	"github.com/syezw/sync-backend/internal/repository"
	"github.com/syezw/sync-backend/internal/services"
)

// SyncHandler обрабатывает HTTP-запросы синхронизации.
type SyncHandler struct {
	syncService services.SyncService // Зависимость от интерфейса, а не конкретной реализации
}

// NewSyncHandler создает новый экземпляр SyncHandler.
func NewSyncHandler(s services.SyncService) *SyncHandler {
	return &SyncHandler{syncService: s}
}

// Upload обрабатывает POST /sync/upload — атомарную загрузку пакета сущностей.
// Некорректная дата в записи о цикле — ошибка клиента (400), всё остальное —
// ошибка сервера (500); в обоих случаях счетчики в ответе нулевые,
// частичные результаты не возвращаются никогда.
func (h *SyncHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req models.SyncUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[SyncHandler:Upload] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	counts, err := h.syncService.Upload(r.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrInvalidPeriodDate) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, models.SyncUploadResponse{
			OK:      false,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, models.SyncUploadResponse{
		OK:      true,
		Message: "ok",
		Counts:  counts,
	})
}

// Download обрабатывает POST /sync/download — вычисление дельты по манифесту
// клиента. При сбое хранилища возвращается конверт с ok=false и пустыми
// данными, частичные результаты по видам не синтезируются.
func (h *SyncHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req models.SyncDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[SyncHandler:Download] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	data, err := h.syncService.Download(r.Context(), &req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.SyncDownloadResponse{
			OK:      false,
			Message: err.Error(),
			Data: models.SyncDownloadData{
				Diaries: []models.DiaryEntry{},
				Todos:   []models.TodoItem{},
				Periods: []models.PeriodRecord{},
				Images:  []models.DiaryImage{},
			},
		})
		return
	}

	writeJSON(w, http.StatusOK, models.SyncDownloadResponse{
		OK:      true,
		Message: "ok",
		Counts: models.SyncCounts{
			Diaries: len(data.Diaries),
			Todos:   len(data.Todos),
			Periods: len(data.Periods),
			Images:  len(data.Images),
		},
		Data: *data,
	})
}

// Meta обрабатывает POST /sync/meta — полный список пар (ключ, updatedAt)
// без payload'ов, для легковесного опроса и клиентского вычисления дельты.
func (h *SyncHandler) Meta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.syncService.Meta(r.Context())
	if err != nil {
		log.Printf("[SyncHandler:Meta] Ошибка получения метаданных: %v", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// writeJSON сериализует ответ с заданным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handlers] Ошибка кодирования ответа: %v", err)
	}
}

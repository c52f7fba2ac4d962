package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/syezw/sync-backend/internal/models"
	"github.com/syezw/sync-backend/internal/services"
)

// ImageHandler обрабатывает HTTP-запросы к хранилищу изображений.
type ImageHandler struct {
	imageService services.ImageService
}

// NewImageHandler создает новый экземпляр ImageHandler.
func NewImageHandler(s services.ImageService) *ImageHandler {
	return &ImageHandler{imageService: s}
}

// Upload обрабатывает POST /images/upload — атомарную загрузку пакета
// изображений (blob + ссылка на каждый). Успех — 200 с пустым телом.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req models.ImageUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ImageHandler:Upload] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if err := h.imageService.UploadImages(r.Context(), req.Images); err != nil {
		log.Printf("[ImageHandler:Upload] Ошибка сервиса: %v", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// UpsertRefs обрабатывает POST /images/refs/upsert — атомарную вставку или
// перенаправление пакета ссылок. Успех — 200 с пустым телом.
func (h *ImageHandler) UpsertRefs(w http.ResponseWriter, r *http.Request) {
	var req models.ImageRefsUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ImageHandler:UpsertRefs] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if err := h.imageService.UpsertRefs(r.Context(), req.Refs); err != nil {
		log.Printf("[ImageHandler:UpsertRefs] Ошибка сервиса: %v", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Hashes обрабатывает POST /images/hashes — список всех различных хэшей.
// Клиенты используют его, чтобы понять, какие blob'ы им ещё нужны.
func (h *ImageHandler) Hashes(w http.ResponseWriter, r *http.Request) {
	hashes, err := h.imageService.ListHashes(r.Context())
	if err != nil {
		log.Printf("[ImageHandler:Hashes] Ошибка сервиса: %v", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.ImageHashesResponse{Hashes: hashes})
}

// Refs обрабатывает POST /images/refs — полный манифест ссылок.
func (h *ImageHandler) Refs(w http.ResponseWriter, r *http.Request) {
	refs, err := h.imageService.ListRefs(r.Context())
	if err != nil {
		log.Printf("[ImageHandler:Refs] Ошибка сервиса: %v", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.ImageRefsResponse{Refs: refs})
}

// Fetch обрабатывает POST /images/fetch — получение изображения по точной
// паре (дневник, имя файла). Отсутствие ссылки или blob'а — 404.
func (h *ImageHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req models.ImageFetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ImageHandler:Fetch] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	img, err := h.imageService.Fetch(r.Context(), req.DiaryUUID, req.FileName)
	if err != nil {
		if errors.Is(err, services.ErrImageNotFound) {
			log.Printf("[ImageHandler:Fetch] Изображение (%s, %s) не найдено", req.DiaryUUID, req.FileName)
			http.Error(w, "Изображение не найдено", http.StatusNotFound)
		} else {
			log.Printf("[ImageHandler:Fetch] Ошибка сервиса: %v", err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, img)
}

package models

// SyncCounts — количество обработанных сущностей по видам.
type SyncCounts struct {
	Diaries int `json:"diaries"`
	Todos   int `json:"todos"`
	Periods int `json:"periods"`
	Images  int `json:"images"`
}

// SyncUploadRequest — пакет сущностей для загрузки на сервер.
// Все списки могут быть пустыми, пустой пакет — корректный no-op.
type SyncUploadRequest struct {
	Diaries []DiaryEntry   `json:"diaries"`
	Todos   []TodoItem     `json:"todos"`
	Periods []PeriodRecord `json:"periods"`
	Images  []DiaryImage   `json:"images"`
}

// SyncUploadResponse — результат загрузки пакета.
// При ошибке ok=false, message описывает сбойную фазу, счетчики нулевые.
type SyncUploadResponse struct {
	OK      bool       `json:"ok"`
	Message string     `json:"message"`
	Counts  SyncCounts `json:"counts"`
}

// SyncDownloadRequest — манифест клиента: что и в какой версии у него уже есть.
// Отсутствие сущности в манифесте означает, что клиент её никогда не видел.
type SyncDownloadRequest struct {
	Diaries []SyncMeta   `json:"diaries"`
	Todos   []SyncMeta   `json:"todos"`
	Periods []PeriodMeta `json:"periods"`
}

// SyncDownloadData — дельта, которую клиент должен применить.
// Images всегда пуст: изображения скачиваются по запросу через /images/fetch.
type SyncDownloadData struct {
	Diaries []DiaryEntry   `json:"diaries"`
	Todos   []TodoItem     `json:"todos"`
	Periods []PeriodRecord `json:"periods"`
	Images  []DiaryImage   `json:"images"`
}

// SyncDownloadResponse — конверт ответа скачивания с флагом успеха и счетчиками.
type SyncDownloadResponse struct {
	OK      bool             `json:"ok"`
	Message string           `json:"message"`
	Counts  SyncCounts       `json:"counts"`
	Data    SyncDownloadData `json:"data"`
}

// SyncMetaResponse — полный нефильтрованный список пар (ключ, updatedAt).
// Позволяет клиенту вычислить дельту самостоятельно, без передачи payload'ов.
type SyncMetaResponse struct {
	Diaries []SyncMeta   `json:"diaries"`
	Todos   []SyncMeta   `json:"todos"`
	Periods []PeriodMeta `json:"periods"`
}

// ImageHashesResponse — все различные хэши изображений в хранилище.
type ImageHashesResponse struct {
	Hashes []string `json:"hashes"`
}

// ImageRefsResponse — полный манифест ссылок на изображения.
type ImageRefsResponse struct {
	Refs []ImageRef `json:"refs"`
}

// ImageUploadRequest — пакет изображений (blob + ссылка) для загрузки.
type ImageUploadRequest struct {
	Images []DiaryImage `json:"images"`
}

// ImageRefsUpsertRequest — пакет ссылок для вставки/перенаправления.
type ImageRefsUpsertRequest struct {
	Refs []ImageRef `json:"refs"`
}

// ImageFetchRequest — запрос изображения по точной паре (дневник, имя файла).
type ImageFetchRequest struct {
	DiaryUUID string `json:"diaryUuid"`
	FileName  string `json:"fileName"`
}

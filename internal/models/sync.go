package models

// EncryptedBlob — непрозрачный для сервера шифротекст с вектором инициализации.
// Шифрование и расшифровка выполняются исключительно на клиенте,
// сервер хранит и возвращает содержимое как есть.
type EncryptedBlob struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// DiaryEntry представляет зашифрованную запись дневника.
// Ключ — UUID, присвоенный клиентом при создании записи.
type DiaryEntry struct {
	UUID      string        `json:"uuid"`
	Author    string        `json:"author"`
	Timestamp int64         `json:"timestamp"`
	UpdatedAt int64         `json:"updatedAt"`
	Payload   EncryptedBlob `json:"payload"`
}

// TodoItem представляет зашифрованную задачу.
// CompletedAt остается nil, пока задача не завершена.
type TodoItem struct {
	UUID        string        `json:"uuid"`
	Author      string        `json:"author"`
	IsCompleted bool          `json:"isCompleted"`
	CreatedAt   int64         `json:"createdAt"`
	CompletedAt *int64        `json:"completedAt,omitempty"`
	UpdatedAt   int64         `json:"updatedAt"`
	Payload     EncryptedBlob `json:"payload"`
}

// PeriodRecord представляет запись о цикле.
// Ключом служит дата начала в формате YYYY-MM-DD: на одну дату начала
// существует ровно одна запись, повторная загрузка перезаписывает её.
type PeriodRecord struct {
	StartDate string        `json:"startDate"`
	EndDate   string        `json:"endDate"`
	UpdatedAt int64         `json:"updatedAt"`
	Payload   EncryptedBlob `json:"payload"`
}

// DiaryImage — изображение дневника вместе со ссылкой на него.
// Blob адресуется по хэшу содержимого и хранится один раз на хэш,
// сколько бы пар (дневник, имя файла) на него ни указывало.
type DiaryImage struct {
	FileName  string        `json:"fileName"`
	DiaryUUID string        `json:"diaryUuid"`
	Hash      string        `json:"hash"`
	UpdatedAt int64         `json:"updatedAt"`
	Blob      EncryptedBlob `json:"blob"`
}

// ImageRef — ссылка (дневник, имя файла) → хэш изображения.
type ImageRef struct {
	DiaryUUID string `json:"diaryUuid"`
	FileName  string `json:"fileName"`
	Hash      string `json:"hash"`
	UpdatedAt int64  `json:"updatedAt"`
}

// SyncMeta — пара (ключ, updatedAt) для дневников и задач.
type SyncMeta struct {
	UUID      string `json:"uuid"`
	UpdatedAt int64  `json:"updatedAt"`
}

// PeriodMeta — пара (дата начала, updatedAt) для записей о циклах.
type PeriodMeta struct {
	StartDate string `json:"startDate"`
	UpdatedAt int64  `json:"updatedAt"`
}

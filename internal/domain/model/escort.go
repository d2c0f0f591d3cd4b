// Пакет model — доменные модели системы регистрации сопровождающих IGD.
// Имена JSON-полей и литералы перечислений — контракт совместимости
// с существующим веб-фронтендом, менять их нельзя.
package model

import "time"

// Статусы записи о сопровождающем.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// Категории сопровождающих.
const (
	KategoriPolisi     = "Polisi"
	KategoriAmbulans   = "Ambulans"
	KategoriPerorangan = "Perorangan"
)

// Значения пола.
const (
	JenisKelaminLakiLaki  = "Laki-laki"
	JenisKelaminPerempuan = "Perempuan"
)

// Допустимые значения перечислений.
var (
	ValidStatuses     = []string{StatusPending, StatusVerified, StatusRejected}
	ValidKategori     = []string{KategoriPolisi, KategoriAmbulans, KategoriPerorangan}
	ValidJenisKelamin = []string{JenisKelaminLakiLaki, JenisKelaminPerempuan}
)

// Escort — запись о сопровождающем пациента приёмного отделения.
type Escort struct {
	ID                int64     `json:"id"`
	Status            string    `json:"status"`
	KategoriPengantar string    `json:"kategori_pengantar"`
	NamaPengantar     string    `json:"nama_pengantar"`
	JenisKelamin      string    `json:"jenis_kelamin"`
	NomorHP           string    `json:"nomor_hp"`
	PlatNomor         string    `json:"plat_nomor"`
	NamaPasien        string    `json:"nama_pasien"`
	// FotoPengantar — относительный путь к файлу фотографии (NULL, если нет)
	FotoPengantar   *string   `json:"foto_pengantar"`
	SubmissionID    *string   `json:"submission_id"`
	SubmittedFromIP *string   `json:"submitted_from_ip"`
	APISubmission   bool      `json:"api_submission"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateEscortRequest — payload создания записи.
// FotoPengantarB64 — фотография как data URL (data:<mime>;base64,...), опционально.
type CreateEscortRequest struct {
	KategoriPengantar string `json:"kategori_pengantar"`
	NamaPengantar     string `json:"nama_pengantar"`
	JenisKelamin      string `json:"jenis_kelamin"`
	NomorHP           string `json:"nomor_hp"`
	PlatNomor         string `json:"plat_nomor"`
	NamaPasien        string `json:"nama_pasien"`
	FotoPengantarB64  string `json:"foto_pengantar_base64,omitempty"`
	Status            string `json:"status,omitempty"`
}

// UpdateEscortRequest — payload частичного обновления записи.
// nil-поля не изменяются.
type UpdateEscortRequest struct {
	KategoriPengantar *string `json:"kategori_pengantar,omitempty"`
	NamaPengantar     *string `json:"nama_pengantar,omitempty"`
	JenisKelamin      *string `json:"jenis_kelamin,omitempty"`
	NomorHP           *string `json:"nomor_hp,omitempty"`
	PlatNomor         *string `json:"plat_nomor,omitempty"`
	NamaPasien        *string `json:"nama_pasien,omitempty"`
	FotoPengantarB64  *string `json:"foto_pengantar_base64,omitempty"`
}

// UpdateStatusRequest — payload смены статуса.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UploadImageRequest — payload загрузки фотографии отдельным запросом.
type UploadImageRequest struct {
	ImageBase64 string `json:"image_base64"`
}

// EscortFilters — параметры выборки списка записей.
type EscortFilters struct {
	Status            string
	KategoriPengantar string
	JenisKelamin      string
	// Search — подстрока для поиска по nama_pengantar, nama_pasien, plat_nomor
	Search string
	// SameDay — только записи за текущие сутки
	SameDay   bool
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string
}

// DashboardStats — агрегированная статистика для панели.
type DashboardStats struct {
	TotalEscorts     int64            `json:"total_escorts"`
	PendingEscorts   int64            `json:"pending_escorts"`
	VerifiedEscorts  int64            `json:"verified_escorts"`
	RejectedEscorts  int64            `json:"rejected_escorts"`
	TodaySubmissions int64            `json:"today_submissions"`
	CategoryStats    map[string]int64 `json:"category_stats"`
	RecentEscorts    []Escort         `json:"recent_escorts"`
	StatusBreakdown  map[string]int64 `json:"status_breakdown"`
}

// QRCodeRequest — payload генерации QR-кода ссылки на форму.
type QRCodeRequest struct {
	URL  string `json:"url"`
	Size int    `json:"size,omitempty"`
}

// escort.go — бизнес-логика записей о сопровождающих.
// Валидация перечисляет все некорректные поля разом, сообщения
// формируются по контракту совместимости с веб-фронтендом.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TheDex-dev/Goravel/internal/domain/model"
	"github.com/TheDex-dev/Goravel/internal/imagestore"
	"github.com/TheDex-dev/Goravel/internal/repository"
)

// Пагинация списка записей.
const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// ImageStore — хранилище фотографий сопровождающих.
// Реализуется пакетом imagestore, в тестах — моками.
type ImageStore interface {
	SaveDataURL(dataURL string) (string, error)
	LoadAsDataURL(filename string) (string, error)
	Delete(filename string) error
}

// EscortService — бизнес-логика записей о сопровождающих.
type EscortService struct {
	repo   repository.EscortRepository
	images ImageStore
	cache  *CacheService
	// Удалять ли заменённую фотографию при обновлении
	deleteReplaced bool
	logger         *slog.Logger
}

// NewEscortService создаёт сервис записей.
// cache может быть nil — тогда кэширование отключено.
func NewEscortService(
	repo repository.EscortRepository,
	images ImageStore,
	cache *CacheService,
	deleteReplaced bool,
	logger *slog.Logger,
) *EscortService {
	return &EscortService{
		repo:           repo,
		images:         images,
		cache:          cache,
		deleteReplaced: deleteReplaced,
		logger:         logger.With(slog.String("component", "escort-service")),
	}
}

// Create создаёт новую запись о сопровождающем.
// clientIP сохраняется в submitted_from_ip, submission_id генерируется
// в формате ESC_<unixtime>_<PLAT_NOMOR в верхнем регистре>.
func (s *EscortService) Create(ctx context.Context, req *model.CreateEscortRequest, clientIP string) (*model.Escort, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.StatusPending
	}

	submissionID := fmt.Sprintf("ESC_%d_%s", time.Now().Unix(), strings.ToUpper(req.PlatNomor))

	e := &model.Escort{
		Status:            status,
		KategoriPengantar: req.KategoriPengantar,
		NamaPengantar:     req.NamaPengantar,
		JenisKelamin:      req.JenisKelamin,
		NomorHP:           req.NomorHP,
		PlatNomor:         req.PlatNomor,
		NamaPasien:        req.NamaPasien,
		SubmissionID:      &submissionID,
		APISubmission:     true,
	}
	if clientIP != "" {
		e.SubmittedFromIP = &clientIP
	}

	// Фотография опциональна, но если передана — должна быть корректной
	if req.FotoPengantarB64 != "" {
		filename, err := s.saveImage("foto_pengantar_base64", req.FotoPengantarB64)
		if err != nil {
			return nil, err
		}
		e.FotoPengantar = &filename
	}

	if err := s.repo.Insert(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("Запись создана",
		slog.Int64("id", e.ID),
		slog.String("submission_id", submissionID),
	)
	return e, nil
}

// Get возвращает запись по ID, используя кэш.
func (s *EscortService) Get(ctx context.Context, id int64) (*model.Escort, error) {
	if s.cache != nil {
		if e, ok := s.cache.Get(id); ok {
			return e, nil
		}
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(id, e)
	}
	return e, nil
}

// List возвращает страницу записей и метаданные пагинации.
// page и per_page нормализуются: page >= 1, per_page в диапазоне 1..100
// (по умолчанию 10).
func (s *EscortService) List(ctx context.Context, filters model.EscortFilters) ([]model.Escort, *Pagination, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	perPage := filters.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, nil, err
	}

	list, err := s.repo.List(ctx, filters, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if list == nil {
		list = []model.Escort{}
	}

	totalPages := int(total) / perPage
	if int(total)%perPage != 0 {
		totalPages++
	}

	return list, &Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		PerPage:     perPage,
		Total:       total,
	}, nil
}

// Pagination — метаданные страницы списка.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	PerPage     int
	Total       int64
}

// Update выполняет частичное обновление записи: nil-поля не трогаются.
func (s *EscortService) Update(ctx context.Context, id int64, req *model.UpdateEscortRequest) (*model.Escort, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if req.KategoriPengantar != nil {
		e.KategoriPengantar = *req.KategoriPengantar
	}
	if req.NamaPengantar != nil {
		e.NamaPengantar = *req.NamaPengantar
	}
	if req.JenisKelamin != nil {
		e.JenisKelamin = *req.JenisKelamin
	}
	if req.NomorHP != nil {
		e.NomorHP = *req.NomorHP
	}
	if req.PlatNomor != nil {
		e.PlatNomor = *req.PlatNomor
	}
	if req.NamaPasien != nil {
		e.NamaPasien = *req.NamaPasien
	}

	var replaced string
	if req.FotoPengantarB64 != nil && *req.FotoPengantarB64 != "" {
		filename, err := s.saveImage("foto_pengantar_base64", *req.FotoPengantarB64)
		if err != nil {
			return nil, err
		}
		if e.FotoPengantar != nil {
			replaced = *e.FotoPengantar
		}
		e.FotoPengantar = &filename
	}

	if err := s.repo.Update(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.invalidate(id)
	s.cleanupReplaced(replaced)

	return e, nil
}

// UpdateStatus меняет статус записи и возвращает обновлённую запись.
func (s *EscortService) UpdateStatus(ctx context.Context, id int64, status string) (*model.Escort, error) {
	fields := map[string]string{}
	validateOneOf(fields, "status", status, true, model.ValidStatuses)
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.invalidate(id)

	// Запись могла быть удалена между обновлением и повторным чтением
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.logger.Info("Статус записи обновлён",
		slog.Int64("id", id),
		slog.String("status", status),
	)
	return e, nil
}

// Delete удаляет запись и best-effort удаляет её фотографию.
func (s *EscortService) Delete(ctx context.Context, id int64) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.invalidate(id)

	// Ошибка удаления файла не отменяет удаление записи
	if e.FotoPengantar != nil {
		if err := s.images.Delete(*e.FotoPengantar); err != nil {
			s.logger.Warn("Не удалось удалить файл фотографии",
				slog.Int64("id", id),
				slog.String("file", *e.FotoPengantar),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("Запись удалена", slog.Int64("id", id))
	return nil
}

// GetImage возвращает фотографию записи как data URL.
func (s *EscortService) GetImage(ctx context.Context, id int64) (string, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if e.FotoPengantar == nil {
		return "", ErrNotFound
	}

	dataURL, err := s.images.LoadAsDataURL(*e.FotoPengantar)
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return dataURL, nil
}

// UploadImage сохраняет фотографию для записи и возвращает обновлённую запись.
func (s *EscortService) UploadImage(ctx context.Context, id int64, dataURL string) (*model.Escort, error) {
	if dataURL == "" {
		return nil, newValidationError(map[string]string{
			"image_base64": "image_base64 is required",
		})
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	filename, err := s.saveImage("image_base64", dataURL)
	if err != nil {
		return nil, err
	}

	var replaced string
	if e.FotoPengantar != nil {
		replaced = *e.FotoPengantar
	}
	e.FotoPengantar = &filename

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	s.invalidate(id)
	s.cleanupReplaced(replaced)

	return e, nil
}

// Stats возвращает агрегированную статистику для панели.
func (s *EscortService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	return s.repo.Stats(ctx)
}

// saveImage сохраняет data URL, транслируя ошибки хранилища
// в ValidationError с сообщением по указанному полю.
func (s *EscortService) saveImage(field, dataURL string) (string, error) {
	filename, err := s.images.SaveDataURL(dataURL)
	if err == nil {
		return filename, nil
	}

	switch {
	case errors.Is(err, imagestore.ErrUnsupportedType):
		return "", newValidationError(map[string]string{
			field: field + " must be one of: image/jpeg image/jpg image/png image/gif",
		})
	case errors.Is(err, imagestore.ErrTooLarge):
		return "", newValidationError(map[string]string{
			field: field + " must not exceed 2097152 bytes",
		})
	case errors.Is(err, imagestore.ErrInvalidFormat):
		return "", newValidationError(map[string]string{
			field: field + " is invalid",
		})
	default:
		return "", err
	}
}

// cleanupReplaced удаляет заменённую фотографию, если это включено конфигурацией.
func (s *EscortService) cleanupReplaced(filename string) {
	if !s.deleteReplaced || filename == "" {
		return
	}
	if err := s.images.Delete(filename); err != nil {
		s.logger.Warn("Не удалось удалить заменённую фотографию",
			slog.String("file", filename),
			slog.String("error", err.Error()),
		)
	}
}

// invalidate убирает запись из кэша.
func (s *EscortService) invalidate(id int64) {
	if s.cache != nil {
		s.cache.Delete(id)
	}
}

// --- Валидация ---

// validateCreate проверяет все поля payload создания,
// собирая сообщения по каждому некорректному полю.
func validateCreate(req *model.CreateEscortRequest) error {
	fields := map[string]string{}

	validateOneOf(fields, "kategori_pengantar", req.KategoriPengantar, true, model.ValidKategori)
	validateLength(fields, "nama_pengantar", req.NamaPengantar, 3, 255)
	validateOneOf(fields, "jenis_kelamin", req.JenisKelamin, true, model.ValidJenisKelamin)
	validateLength(fields, "nomor_hp", req.NomorHP, 10, 20)
	validateLength(fields, "plat_nomor", req.PlatNomor, 3, 20)
	validateLength(fields, "nama_pasien", req.NamaPasien, 3, 255)
	validateOneOf(fields, "status", req.Status, false, model.ValidStatuses)

	return newValidationError(fields)
}

// validateUpdate проверяет только переданные (non-nil) поля.
func validateUpdate(req *model.UpdateEscortRequest) error {
	fields := map[string]string{}

	if req.KategoriPengantar != nil {
		validateOneOf(fields, "kategori_pengantar", *req.KategoriPengantar, true, model.ValidKategori)
	}
	if req.NamaPengantar != nil {
		validateLength(fields, "nama_pengantar", *req.NamaPengantar, 3, 255)
	}
	if req.JenisKelamin != nil {
		validateOneOf(fields, "jenis_kelamin", *req.JenisKelamin, true, model.ValidJenisKelamin)
	}
	if req.NomorHP != nil {
		validateLength(fields, "nomor_hp", *req.NomorHP, 10, 20)
	}
	if req.PlatNomor != nil {
		validateLength(fields, "plat_nomor", *req.PlatNomor, 3, 20)
	}
	if req.NamaPasien != nil {
		validateLength(fields, "nama_pasien", *req.NamaPasien, 3, 255)
	}

	return newValidationError(fields)
}

// validateLength проверяет обязательную строку на min/max длину.
func validateLength(fields map[string]string, name, value string, min, max int) {
	switch {
	case value == "":
		fields[name] = name + " is required"
	case len(value) < min:
		fields[name] = fmt.Sprintf("%s must be at least %d characters", name, min)
	case len(value) > max:
		fields[name] = fmt.Sprintf("%s must not exceed %d characters", name, max)
	}
}

// validateOneOf проверяет принадлежность значения перечислению.
// При required=false пустое значение допустимо.
func validateOneOf(fields map[string]string, name, value string, required bool, allowed []string) {
	if value == "" {
		if required {
			fields[name] = name + " is required"
		}
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	fields[name] = name + " must be one of: " + strings.Join(allowed, " ")
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/TheDex-dev/Goravel/internal/domain/model"
)

// escortColumns — список колонок таблицы escorts в порядке сканирования.
const escortColumns = `id, status, kategori_pengantar, nama_pengantar, jenis_kelamin,
	nomor_hp, plat_nomor, nama_pasien, foto_pengantar, submission_id,
	submitted_from_ip, api_submission, created_at, updated_at`

// Колонки, по которым разрешена сортировка списка.
// Произвольные значения sort_by не допускаются (SQL-инъекция через ORDER BY).
var allowedSortColumns = map[string]bool{
	"id":                 true,
	"status":             true,
	"kategori_pengantar": true,
	"nama_pengantar":     true,
	"nama_pasien":        true,
	"created_at":         true,
}

// EscortRepository — интерфейс CRUD для таблицы escorts.
type EscortRepository interface {
	// Insert создаёт новую запись. Заполняет ID, CreatedAt, UpdatedAt.
	Insert(ctx context.Context, e *model.Escort) error
	// GetByID возвращает запись по ID.
	GetByID(ctx context.Context, id int64) (*model.Escort, error)
	// Update обновляет изменяемые поля записи. Обновляет UpdatedAt.
	Update(ctx context.Context, e *model.Escort) error
	// UpdateStatus меняет статус записи.
	UpdateStatus(ctx context.Context, id int64, status string) error
	// Delete удаляет запись.
	Delete(ctx context.Context, id int64) error
	// List возвращает страницу записей с фильтрацией и сортировкой.
	List(ctx context.Context, filters model.EscortFilters, limit, offset int) ([]model.Escort, error)
	// Count возвращает количество записей с фильтрацией.
	Count(ctx context.Context, filters model.EscortFilters) (int64, error)
	// Stats возвращает агрегированную статистику для панели.
	Stats(ctx context.Context) (*model.DashboardStats, error)
}

// escortRepo — реализация EscortRepository.
type escortRepo struct {
	db DBTX
}

// NewEscortRepository создаёт репозиторий записей о сопровождающих.
func NewEscortRepository(db DBTX) EscortRepository {
	return &escortRepo{db: db}
}

func (r *escortRepo) Insert(ctx context.Context, e *model.Escort) error {
	query := `
		INSERT INTO escorts (status, kategori_pengantar, nama_pengantar, jenis_kelamin,
			nomor_hp, plat_nomor, nama_pasien, foto_pengantar, submission_id,
			submitted_from_ip, api_submission)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		e.Status, e.KategoriPengantar, e.NamaPengantar, e.JenisKelamin,
		e.NomorHP, e.PlatNomor, e.NamaPasien, e.FotoPengantar, e.SubmissionID,
		e.SubmittedFromIP, e.APISubmission,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания записи: %w", err)
	}
	return nil
}

func (r *escortRepo) GetByID(ctx context.Context, id int64) (*model.Escort, error) {
	query := fmt.Sprintf(`SELECT %s FROM escorts WHERE id = $1`, escortColumns)

	e := &model.Escort{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.Status, &e.KategoriPengantar, &e.NamaPengantar, &e.JenisKelamin,
		&e.NomorHP, &e.PlatNomor, &e.NamaPasien, &e.FotoPengantar, &e.SubmissionID,
		&e.SubmittedFromIP, &e.APISubmission, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return e, nil
}

func (r *escortRepo) Update(ctx context.Context, e *model.Escort) error {
	query := `
		UPDATE escorts
		SET status = $2, kategori_pengantar = $3, nama_pengantar = $4,
			jenis_kelamin = $5, nomor_hp = $6, plat_nomor = $7, nama_pasien = $8,
			foto_pengantar = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.Status, e.KategoriPengantar, e.NamaPengantar,
		e.JenisKelamin, e.NomorHP, e.PlatNomor, e.NamaPasien, e.FotoPengantar,
	).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления записи: %w", err)
	}
	return nil
}

func (r *escortRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE escorts SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *escortRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM escorts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildEscortWhere строит WHERE-условие и аргументы для фильтрации записей.
func buildEscortWhere(filters model.EscortFilters, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filters.Status)
		argNum++
	}
	if filters.KategoriPengantar != "" {
		conditions = append(conditions, fmt.Sprintf("kategori_pengantar = $%d", argNum))
		args = append(args, filters.KategoriPengantar)
		argNum++
	}
	if filters.JenisKelamin != "" {
		conditions = append(conditions, fmt.Sprintf("jenis_kelamin = $%d", argNum))
		args = append(args, filters.JenisKelamin)
		argNum++
	}
	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(nama_pengantar ILIKE $%d OR nama_pasien ILIKE $%d OR plat_nomor ILIKE $%d)",
			argNum, argNum, argNum))
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}
	if filters.SameDay {
		conditions = append(conditions, "DATE(created_at) = CURRENT_DATE")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// orderClause возвращает безопасное ORDER BY по allow-list колонок.
// Недопустимые значения заменяются на created_at DESC.
func orderClause(sortBy, sortOrder string) string {
	if !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s", sortBy, order)
}

func (r *escortRepo) List(ctx context.Context, filters model.EscortFilters, limit, offset int) ([]model.Escort, error) {
	where, args := buildEscortWhere(filters, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM escorts
		%s
		%s
		LIMIT $%d OFFSET $%d`,
		escortColumns, where, orderClause(filters.SortBy, filters.SortOrder), argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка записей: %w", err)
	}
	defer rows.Close()

	var result []model.Escort
	for rows.Next() {
		var e model.Escort
		if err := rows.Scan(
			&e.ID, &e.Status, &e.KategoriPengantar, &e.NamaPengantar, &e.JenisKelamin,
			&e.NomorHP, &e.PlatNomor, &e.NamaPasien, &e.FotoPengantar, &e.SubmissionID,
			&e.SubmittedFromIP, &e.APISubmission, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *escortRepo) Count(ctx context.Context, filters model.EscortFilters) (int64, error) {
	where, args := buildEscortWhere(filters, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM escorts %s`, where)

	var count int64
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей: %w", err)
	}
	return count, nil
}

func (r *escortRepo) Stats(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{
		CategoryStats:   make(map[string]int64),
		StatusBreakdown: make(map[string]int64),
	}

	// Счётчики по статусам и за текущие сутки — одним запросом
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'verified'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE DATE(created_at) = CURRENT_DATE)
		FROM escorts`

	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalEscorts, &stats.PendingEscorts, &stats.VerifiedEscorts,
		&stats.RejectedEscorts, &stats.TodaySubmissions,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}

	stats.StatusBreakdown[model.StatusPending] = stats.PendingEscorts
	stats.StatusBreakdown[model.StatusVerified] = stats.VerifiedEscorts
	stats.StatusBreakdown[model.StatusRejected] = stats.RejectedEscorts

	// Разбивка по категориям
	rows, err := r.db.Query(ctx,
		`SELECT kategori_pengantar, COUNT(*) FROM escorts GROUP BY kategori_pengantar`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики по категориям: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kategori string
		var count int64
		if err := rows.Scan(&kategori, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики: %w", err)
		}
		stats.CategoryStats[kategori] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Последние 5 записей
	recent, err := r.List(ctx, model.EscortFilters{}, 5, 0)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения последних записей: %w", err)
	}
	stats.RecentEscorts = recent
	if stats.RecentEscorts == nil {
		stats.RecentEscorts = []model.Escort{}
	}

	return stats, nil
}

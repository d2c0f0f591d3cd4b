package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/TheDex-dev/Goravel/internal/config"
	"github.com/TheDex-dev/Goravel/internal/database"
	"github.com/TheDex-dev/Goravel/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool, очистка через t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("escort_test"),
		postgres.WithUsername("igd"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("IGD_DB_HOST", host)
	os.Setenv("IGD_DB_PORT", port.Port())
	os.Setenv("IGD_DB_NAME", "escort_test")
	os.Setenv("IGD_DB_USER", "igd")
	os.Setenv("IGD_DB_PASSWORD", "test-password")
	os.Setenv("IGD_DB_SSLMODE", "disable")

	cfg, err := config.Load(8080)
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// newTestEscort возвращает корректную запись для тестов.
func newTestEscort() *model.Escort {
	subID := "ESC_1700000000_B1234XYZ"
	ip := "10.0.0.1"
	return &model.Escort{
		Status:            model.StatusPending,
		KategoriPengantar: model.KategoriPolisi,
		NamaPengantar:     "Budi Santoso",
		JenisKelamin:      model.JenisKelaminLakiLaki,
		NomorHP:           "081234567890",
		PlatNomor:         "B1234XYZ",
		NamaPasien:        "Siti Aminah",
		SubmissionID:      &subID,
		SubmittedFromIP:   &ip,
		APISubmission:     true,
	}
}

func TestEscortCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewEscortRepository(pool)

	e := newTestEscort()

	// Insert
	if err := repo.Insert(ctx, e); err != nil {
		t.Fatalf("Insert() ошибка: %v", err)
	}
	if e.ID == 0 {
		t.Error("ID не установлен")
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// GetByID
	got, err := repo.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.NamaPengantar != e.NamaPengantar {
		t.Errorf("NamaPengantar = %q, ожидается %q", got.NamaPengantar, e.NamaPengantar)
	}
	if got.SubmissionID == nil || *got.SubmissionID != *e.SubmissionID {
		t.Errorf("SubmissionID = %v, ожидается %v", got.SubmissionID, e.SubmissionID)
	}

	// Update
	got.NamaPasien = "Dewi Lestari"
	foto := "escort_12345.jpg"
	got.FotoPengantar = &foto
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	updated, err := repo.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID() после Update ошибка: %v", err)
	}
	if updated.NamaPasien != "Dewi Lestari" {
		t.Errorf("NamaPasien = %q, ожидается Dewi Lestari", updated.NamaPasien)
	}
	if updated.FotoPengantar == nil || *updated.FotoPengantar != foto {
		t.Errorf("FotoPengantar = %v, ожидается %q", updated.FotoPengantar, foto)
	}

	// UpdateStatus
	if err := repo.UpdateStatus(ctx, e.ID, model.StatusVerified); err != nil {
		t.Fatalf("UpdateStatus() ошибка: %v", err)
	}
	verified, _ := repo.GetByID(ctx, e.ID)
	if verified.Status != model.StatusVerified {
		t.Errorf("Status = %q, ожидается verified", verified.Status)
	}

	// Delete
	if err := repo.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() после Delete = %v, ожидается ErrNotFound", err)
	}
}

func TestEscortNotFound(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewEscortRepository(pool)

	if _, err := repo.GetByID(ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(999999) = %v, ожидается ErrNotFound", err)
	}
	if err := repo.UpdateStatus(ctx, 999999, model.StatusVerified); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus(999999) = %v, ожидается ErrNotFound", err)
	}
	if err := repo.Delete(ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(999999) = %v, ожидается ErrNotFound", err)
	}
}

func TestEscortListFilters(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewEscortRepository(pool)

	// Три записи с разными статусами и категориями
	seed := []struct {
		status   string
		kategori string
		nama     string
	}{
		{model.StatusPending, model.KategoriPolisi, "Budi Santoso"},
		{model.StatusVerified, model.KategoriAmbulans, "Agus Wijaya"},
		{model.StatusVerified, model.KategoriPerorangan, "Rina Marlina"},
	}
	for _, s := range seed {
		e := newTestEscort()
		e.Status = s.status
		e.KategoriPengantar = s.kategori
		e.NamaPengantar = s.nama
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() ошибка: %v", err)
		}
	}

	// Фильтр по статусу
	verified, err := repo.List(ctx, model.EscortFilters{Status: model.StatusVerified}, 10, 0)
	if err != nil {
		t.Fatalf("List(status=verified) ошибка: %v", err)
	}
	if len(verified) != 2 {
		t.Errorf("List(status=verified) вернул %d записей, ожидается 2", len(verified))
	}

	// Поиск по подстроке (регистронезависимый)
	found, err := repo.List(ctx, model.EscortFilters{Search: "budi"}, 10, 0)
	if err != nil {
		t.Fatalf("List(search=budi) ошибка: %v", err)
	}
	if len(found) != 1 || found[0].NamaPengantar != "Budi Santoso" {
		t.Errorf("List(search=budi) = %v, ожидается одна запись Budi Santoso", found)
	}

	// SameDay — все записи созданы сегодня
	today, err := repo.Count(ctx, model.EscortFilters{SameDay: true})
	if err != nil {
		t.Fatalf("Count(same_day) ошибка: %v", err)
	}
	if today != 3 {
		t.Errorf("Count(same_day) = %d, ожидается 3", today)
	}

	// Сортировка по имени по возрастанию
	sorted, err := repo.List(ctx, model.EscortFilters{SortBy: "nama_pengantar", SortOrder: "asc"}, 10, 0)
	if err != nil {
		t.Fatalf("List(sort) ошибка: %v", err)
	}
	if len(sorted) != 3 || sorted[0].NamaPengantar != "Agus Wijaya" {
		t.Errorf("List(sort) первый = %q, ожидается Agus Wijaya", sorted[0].NamaPengantar)
	}

	// Пагинация
	page2, err := repo.List(ctx, model.EscortFilters{SortBy: "id", SortOrder: "asc"}, 2, 2)
	if err != nil {
		t.Fatalf("List(page2) ошибка: %v", err)
	}
	if len(page2) != 1 {
		t.Errorf("List(page2) вернул %d записей, ожидается 1", len(page2))
	}
}

func TestEscortStats(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewEscortRepository(pool)

	statuses := []string{
		model.StatusPending, model.StatusPending,
		model.StatusVerified, model.StatusRejected,
	}
	for _, s := range statuses {
		e := newTestEscort()
		e.Status = s
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() ошибка: %v", err)
		}
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() ошибка: %v", err)
	}

	if stats.TotalEscorts != 4 {
		t.Errorf("TotalEscorts = %d, ожидается 4", stats.TotalEscorts)
	}
	if stats.PendingEscorts != 2 {
		t.Errorf("PendingEscorts = %d, ожидается 2", stats.PendingEscorts)
	}
	if stats.VerifiedEscorts != 1 {
		t.Errorf("VerifiedEscorts = %d, ожидается 1", stats.VerifiedEscorts)
	}
	if stats.TodaySubmissions != 4 {
		t.Errorf("TodaySubmissions = %d, ожидается 4", stats.TodaySubmissions)
	}
	if stats.CategoryStats[model.KategoriPolisi] != 4 {
		t.Errorf("CategoryStats[Polisi] = %d, ожидается 4", stats.CategoryStats[model.KategoriPolisi])
	}
	if stats.StatusBreakdown[model.StatusPending] != 2 {
		t.Errorf("StatusBreakdown[pending] = %d, ожидается 2", stats.StatusBreakdown[model.StatusPending])
	}
	if len(stats.RecentEscorts) != 4 {
		t.Errorf("RecentEscorts = %d записей, ожидается 4", len(stats.RecentEscorts))
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		sortBy   string
		order    string
		expected string
	}{
		{"created_at", "desc", "ORDER BY created_at DESC"},
		{"nama_pengantar", "asc", "ORDER BY nama_pengantar ASC"},
		{"id", "ASC", "ORDER BY id ASC"},
		// Недопустимая колонка заменяется на created_at
		{"updated_at; DROP TABLE escorts", "asc", "ORDER BY created_at ASC"},
		{"", "", "ORDER BY created_at DESC"},
	}

	for _, tt := range tests {
		if got := orderClause(tt.sortBy, tt.order); got != tt.expected {
			t.Errorf("orderClause(%q, %q) = %q, ожидается %q", tt.sortBy, tt.order, got, tt.expected)
		}
	}
}

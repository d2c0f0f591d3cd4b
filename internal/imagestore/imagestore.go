// Пакет imagestore — файловое хранилище фотографий сопровождающих.
// Фотографии принимаются и отдаются как data URL (data:<mime>;base64,<payload>).
package imagestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Ошибки хранилища изображений.
var (
	// ErrInvalidFormat — строка не является корректным data URL.
	ErrInvalidFormat = errors.New("некорректный формат data URL")
	// ErrUnsupportedType — MIME-тип не входит в allow-list.
	ErrUnsupportedType = errors.New("неподдерживаемый тип изображения")
	// ErrTooLarge — декодированное изображение превышает лимит.
	ErrTooLarge = errors.New("изображение превышает максимальный размер")
	// ErrNotFound — файл не найден.
	ErrNotFound = errors.New("файл изображения не найден")
)

// Расширения файлов для допустимых MIME-типов.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// MIME-типы по расширению файла (для отдачи сохранённых фотографий).
var mimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// Store — файловое хранилище фотографий в одном каталоге.
type Store struct {
	dir      string
	maxBytes int64
}

// New создаёт хранилище. Каталог создаётся при отсутствии.
func New(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога загрузок: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// SaveDataURL декодирует data URL и сохраняет изображение в файл.
// Возвращает имя сохранённого файла (без каталога).
func (s *Store) SaveDataURL(dataURL string) (string, error) {
	mime, payload, err := parseDataURL(dataURL)
	if err != nil {
		return "", err
	}

	ext, ok := allowedTypes[mime]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: некорректный base64", ErrInvalidFormat)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %d байт при лимите %d", ErrTooLarge, len(data), s.maxBytes)
	}

	filename := fmt.Sprintf("escort_%s%s", uuid.New().String(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("ошибка записи файла изображения: %w", err)
	}

	return filename, nil
}

// LoadAsDataURL читает сохранённый файл и возвращает его как data URL.
func (s *Store) LoadAsDataURL(filename string) (string, error) {
	// Защита от выхода за пределы каталога
	if filepath.Base(filename) != filename {
		return "", ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("ошибка чтения файла изображения: %w", err)
	}

	mime := mimeByExt[strings.ToLower(filepath.Ext(filename))]
	if mime == "" {
		mime = "application/octet-stream"
	}

	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)), nil
}

// Delete удаляет файл изображения. Отсутствующий файл не считается ошибкой.
func (s *Store) Delete(filename string) error {
	if filepath.Base(filename) != filename {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла изображения: %w", err)
	}
	return nil
}

// parseDataURL разбирает строку data:<mime>;base64,<payload>.
func parseDataURL(dataURL string) (mime, payload string, err error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", "", ErrInvalidFormat
	}

	rest := dataURL[len("data:"):]
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", "", ErrInvalidFormat
	}

	mime = strings.ToLower(strings.TrimSpace(rest[:sep]))
	payload = rest[sep+len(";base64,"):]
	if mime == "" || payload == "" {
		return "", "", ErrInvalidFormat
	}
	return mime, payload, nil
}

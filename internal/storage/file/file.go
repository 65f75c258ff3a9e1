// file — durable реализация storage.KV поверх JSON-файла на диске.
// Переживает перезапуск процесса так же, как localStorage переживает
// перезагрузку страницы.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pribylovaa/backoffice-console/internal/storage"
)

const appDir = "backoffice-console"

// Store хранит все ключи одним JSON-объектом в файле path.
// Запись атомарна: временный файл + rename.
type Store struct {
	mu   sync.Mutex
	path string
}

// New создаёт хранилище. Пустой path — <UserConfigDir>/backoffice-console/session.json.
func New(path string) (*Store, error) {
	const op = "storage.file.New"

	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		path = filepath.Join(dir, appDir, "session.json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{path: path}, nil
}

// Path возвращает путь к файлу.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	const op = "storage.file.Get"

	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	v, ok := data[key]
	if !ok {
		return "", storage.ErrNotFound
	}

	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	const op = "storage.file.Set"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	data[key] = value

	if err := s.write(data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	const op = "storage.file.Remove"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, ok := data[key]; !ok {
		return nil
	}

	delete(data, key)

	if err := s.write(data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// read читает файл; отсутствующий или пустой файл — пустая карта.
func (s *Store) read() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	data := map[string]string{}
	if len(b) == 0 {
		return data, nil
	}

	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorrupted, err)
	}

	return data, nil
}

func (s *Store) write(data map[string]string) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.path)
}

// storage задаёт контракт постоянного key-value хранилища сессии и
// сериализацию пары токенов поверх него.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pribylovaa/backoffice-console/internal/models"
)

var (
	// ErrNotFound — ключ отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrCorrupted — значение по ключу есть, но не разбирается как пара токенов.
	ErrCorrupted = errors.New("corrupted value")
)

// DefaultTokenKey — фиксированное имя ключа, под которым лежит пара токенов.
const DefaultTokenKey = "token"

// KV — минимальный durable key-value контракт (аналог localStorage).
type KV interface {
	// Get возвращает значение или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set перезаписывает значение.
	Set(ctx context.Context, key, value string) error
	// Remove удаляет ключ; отсутствие ключа ошибкой не считается.
	Remove(ctx context.Context, key string) error
}

// TokenStore хранит models.TokenPair в KV под фиксированным ключом.
type TokenStore struct {
	kv  KV
	key string
}

// NewTokenStore создаёт TokenStore. Пустой key заменяется на DefaultTokenKey.
func NewTokenStore(kv KV, key string) *TokenStore {
	if key == "" {
		key = DefaultTokenKey
	}

	return &TokenStore{kv: kv, key: key}
}

// Key возвращает имя ключа.
func (s *TokenStore) Key() string { return s.key }

// Load читает пару. Отсутствие — ErrNotFound, нечитаемое значение — ErrCorrupted.
func (s *TokenStore) Load(ctx context.Context) (models.TokenPair, error) {
	const op = "storage.TokenStore.Load"

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	var pair models.TokenPair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w: %v", op, ErrCorrupted, err)
	}

	if pair.Empty() {
		return models.TokenPair{}, fmt.Errorf("%s: %w: empty access token", op, ErrCorrupted)
	}

	return pair, nil
}

// Save сериализует пару в JSON и перезаписывает ключ.
func (s *TokenStore) Save(ctx context.Context, pair models.TokenPair) error {
	const op = "storage.TokenStore.Save"

	b, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.kv.Set(ctx, s.key, string(b)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Clear удаляет пару.
func (s *TokenStore) Clear(ctx context.Context) error {
	const op = "storage.TokenStore.Clear"

	if err := s.kv.Remove(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

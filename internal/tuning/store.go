package tuning

import (
	"context"
	"errors"
	"sync"

	"github.com/shaiso/tensorgraph/internal/graph"
)

// ErrNotFound — ключа нет в хранилище.
var ErrNotFound = errors.New("selection not found")

// Store — хранилище выбранных реализаций.
type Store interface {
	// Lookup возвращает сохранённую команду; found == false, если ключа нет.
	Lookup(ctx context.Context, key string) (cmd graph.Command, found bool, err error)

	// Save сохраняет команду по ключу, перезаписывая старую.
	Save(ctx context.Context, key string, cmd graph.Command) error
}

// MemoryStore — Store в памяти процесса.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]graph.Command
}

// NewMemoryStore создаёт пустой MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]graph.Command)}
}

// Lookup реализует Store.
func (s *MemoryStore) Lookup(_ context.Context, key string) (graph.Command, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cmd, ok := s.entries[key]
	return cmd, ok, nil
}

// Save реализует Store.
func (s *MemoryStore) Save(_ context.Context, key string, cmd graph.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cmd
	return nil
}

// Delete удаляет запись; ErrNotFound, если её нет.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return ErrNotFound
	}
	delete(s.entries, key)
	return nil
}

// Len возвращает число записей.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

package wallet

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore 以内存 map 缓存钱包数据，用于本地运行和测试。
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Item
}

// NewMemoryStore 创建一个空的内存缓存。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Item)}
}

// UpsertAll 幂等批量写入，已存在的 id 不做任何修改。
func (s *MemoryStore) UpsertAll(_ context.Context, items []Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := s.items[item.ID]; ok {
			continue
		}
		s.items[item.ID] = item
		inserted++
	}
	return inserted, nil
}

// List 按 id 升序返回全部缓存项。
func (s *MemoryStore) List(_ context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Close 实现 Store 接口。
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

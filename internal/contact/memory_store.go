package contact

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "LensPeer/internal/errors"
)

// MemoryStore 以内存 map 保存外呼记录，用于本地运行和测试。
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
	nextSeq int64
}

type memoryRecord struct {
	record Record
	seq    int64
}

// NewMemoryStore 创建一个空的内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*memoryRecord)}
}

// Exists 判断指定档案是否已有外呼记录。
func (s *MemoryStore) Exists(_ context.Context, profileID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[profileID]
	return ok, nil
}

// InsertIfAbsent 幂等写入，首次写入返回 true。
func (s *MemoryStore) InsertIfAbsent(_ context.Context, record *Record) (bool, error) {
	if record == nil || record.ProfileID == "" {
		return false, xerrors.New(xerrors.CodeInvalidArgument, "外呼记录缺少 profile_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ProfileID]; ok {
		return false, nil
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}
	s.nextSeq++
	stored := *record
	s.records[record.ProfileID] = &memoryRecord{record: stored, seq: s.nextSeq}
	return true, nil
}

// ListAll 按 priority_score 降序返回全部记录，分数相同保持写入顺序。
func (s *MemoryStore) ListAll(_ context.Context) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]*memoryRecord, 0, len(s.records))
	for _, entry := range s.records {
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].record.PriorityScore != entries[j].record.PriorityScore {
			return entries[i].record.PriorityScore > entries[j].record.PriorityScore
		}
		return entries[i].seq < entries[j].seq
	})

	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		recordCopy := entry.record
		records = append(records, &recordCopy)
	}
	return records, nil
}

// MarkDelivered 记录首次确认成功的投递时间。
func (s *MemoryStore) MarkDelivered(_ context.Context, profileID string, deliveredAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[profileID]
	if !ok {
		return xerrors.New(xerrors.CodeNotFound, "外呼记录不存在")
	}
	if entry.record.DeliveredAt == 0 {
		entry.record.DeliveredAt = deliveredAt
	}
	return nil
}

// Reset 清空全部记录。
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*memoryRecord)
	s.nextSeq = 0
	return nil
}

// Close 实现 Store 接口，内存实现无资源可释放。
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

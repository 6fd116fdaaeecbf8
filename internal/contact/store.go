package contact

import "context"

// Store 抽象了外呼记录的持久化接口。
// 单进程内由外呼循环独占写入，但 InsertIfAbsent 自身必须原子，
// 以便部署扩展到多个 worker 时仍然保持去重语义。
type Store interface {
	// Exists 判断指定档案是否已有外呼记录。
	Exists(ctx context.Context, profileID string) (bool, error)
	// InsertIfAbsent 幂等写入：首次写入返回 true；
	// 记录已存在时不做任何修改并返回 false，不算错误。
	InsertIfAbsent(ctx context.Context, record *Record) (bool, error)
	// ListAll 按 priority_score 降序返回全部记录，分数相同保持写入顺序。
	ListAll(ctx context.Context) ([]*Record, error)
	// MarkDelivered 记录一次确认成功的投递时间，只在首次确认时生效。
	MarkDelivered(ctx context.Context, profileID string, deliveredAt int64) error
	// Reset 清空全部状态，仅用于 schema 迁移或人工恢复。
	Reset(ctx context.Context) error
	Close() error
}

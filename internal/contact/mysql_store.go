package contact

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	xerrors "LensPeer/internal/errors"
)

// MySQLStore 使用 MySQL 持久化外呼记录。
type MySQLStore struct {
	db *sql.DB
}

// MySQLConfig 描述连接池参数。
type MySQLConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// NewMySQLStore 建立连接并确保 schema 就绪。
func NewMySQLStore(cfg MySQLConfig) (*MySQLStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// seq 列记录写入顺序，支撑分数相同记录的稳定排序。
func (s *MySQLStore) initSchema() error {
	const schema = `CREATE TABLE IF NOT EXISTS sent_profiles (
        profile_id VARCHAR(128) PRIMARY KEY,
        seq BIGINT NOT NULL AUTO_INCREMENT,
        handle VARCHAR(255) NOT NULL DEFAULT '',
        display_name VARCHAR(255) NOT NULL DEFAULT '',
        followers INT NOT NULL DEFAULT 0,
        following INT NOT NULL DEFAULT 0,
        interest_count INT NOT NULL DEFAULT 0,
        delivery_context TEXT,
        priority_score DOUBLE NOT NULL DEFAULT 0,
        created_at BIGINT NOT NULL,
        delivered_at BIGINT NOT NULL DEFAULT 0,
        UNIQUE KEY idx_profile_seq (seq),
        INDEX idx_profile_score (priority_score)
)`

	if _, err := s.db.Exec(schema); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化 sent_profiles 表失败")
	}
	return nil
}

// Exists 判断指定档案是否已有外呼记录。
func (s *MySQLStore) Exists(ctx context.Context, profileID string) (bool, error) {
	const stmt = `SELECT 1 FROM sent_profiles WHERE profile_id = ?`

	var one int
	err := s.db.QueryRowContext(ctx, stmt, profileID).Scan(&one)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询外呼记录失败")
	}
	return true, nil
}

// InsertIfAbsent 幂等写入，主键冲突视为已存在而非错误。
func (s *MySQLStore) InsertIfAbsent(ctx context.Context, record *Record) (bool, error) {
	if record == nil || record.ProfileID == "" {
		return false, xerrors.New(xerrors.CodeInvalidArgument, "外呼记录缺少 profile_id")
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}

	deliveryContext, err := record.DeliveryContext.Encode()
	if err != nil {
		return false, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "编码投递上下文失败")
	}

	const stmt = `INSERT INTO sent_profiles
        (profile_id, handle, display_name, followers, following, interest_count, delivery_context, priority_score, created_at, delivered_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`

	_, err = s.db.ExecContext(ctx, stmt,
		record.ProfileID,
		record.Handle,
		record.DisplayName,
		record.Followers,
		record.Following,
		record.InterestCount,
		deliveryContext,
		record.PriorityScore,
		record.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return false, nil
		}
		return false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入外呼记录失败")
	}
	return true, nil
}

// ListAll 按 priority_score 降序返回全部记录，分数相同按写入顺序。
func (s *MySQLStore) ListAll(ctx context.Context) ([]*Record, error) {
	const stmt = `SELECT profile_id, handle, display_name, followers, following, interest_count,
        delivery_context, priority_score, created_at, delivered_at
        FROM sent_profiles ORDER BY priority_score DESC, seq ASC`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询外呼记录列表失败")
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var record Record
		var deliveryContext sql.NullString
		if err := rows.Scan(
			&record.ProfileID,
			&record.Handle,
			&record.DisplayName,
			&record.Followers,
			&record.Following,
			&record.InterestCount,
			&deliveryContext,
			&record.PriorityScore,
			&record.CreatedAt,
			&record.DeliveredAt,
		); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析外呼记录失败")
		}
		decoded, err := DecodeDeliveryContext(deliveryContext.String)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析投递上下文失败")
		}
		record.DeliveryContext = decoded
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历外呼记录失败")
	}
	return records, nil
}

// MarkDelivered 只在首次确认成功时写入投递时间。
func (s *MySQLStore) MarkDelivered(ctx context.Context, profileID string, deliveredAt int64) error {
	const stmt = `UPDATE sent_profiles SET delivered_at = ? WHERE profile_id = ? AND delivered_at = 0`

	res, err := s.db.ExecContext(ctx, stmt, deliveredAt, profileID)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新投递时间失败")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "获取影响行数失败")
	}
	if affected == 0 {
		exists, err := s.Exists(ctx, profileID)
		if err != nil {
			return err
		}
		if !exists {
			return xerrors.New(xerrors.CodeNotFound, "外呼记录不存在")
		}
	}
	return nil
}

// Reset 重建 sent_profiles 表，仅用于 schema 迁移或人工恢复。
func (s *MySQLStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS sent_profiles`); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "删除 sent_profiles 表失败")
	}
	return s.initSchema()
}

// DB 暴露底层连接池，供钱包存储等组件复用同一 MySQL 实例。
func (s *MySQLStore) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*MySQLStore)(nil)

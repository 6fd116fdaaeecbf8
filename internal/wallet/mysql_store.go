package wallet

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"

	"github.com/go-sql-driver/mysql"

	xerrors "LensPeer/internal/errors"
)

// MySQLStore 使用 MySQL 缓存钱包参考数据。
// 与外呼记录共用同一个数据库实例。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 复用已建立的数据库连接并确保 schema 就绪。
func NewMySQLStore(db *sql.DB) (*MySQLStore, error) {
	if db == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "数据库连接不能为空")
	}
	store := &MySQLStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) initSchema() error {
	const schema = `CREATE TABLE IF NOT EXISTS wallets (
        id VARCHAR(128) PRIMARY KEY,
        name VARCHAR(255) NOT NULL DEFAULT '',
        homepage VARCHAR(512) NOT NULL DEFAULT '',
        image_id VARCHAR(255) NOT NULL DEFAULT '',
        mobile_link VARCHAR(512) NOT NULL DEFAULT '',
        desktop_link VARCHAR(512) NOT NULL DEFAULT '',
        chains TEXT
)`

	if _, err := s.db.Exec(schema); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化 wallets 表失败")
	}
	return nil
}

// UpsertAll 幂等批量写入，主键冲突表示已缓存，跳过且不覆盖属性。
func (s *MySQLStore) UpsertAll(ctx context.Context, items []Item) (int, error) {
	const stmt = `INSERT INTO wallets (id, name, homepage, image_id, mobile_link, desktop_link, chains)
        VALUES (?, ?, ?, ?, ?, ?, ?)`

	inserted := 0
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		chains, err := json.Marshal(item.Chains)
		if err != nil {
			return inserted, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "编码链列表失败")
		}
		_, err = s.db.ExecContext(ctx, stmt,
			item.ID,
			item.Name,
			item.Homepage,
			item.ImageID,
			item.MobileLink,
			item.DesktopLink,
			string(chains),
		)
		if err != nil {
			var mysqlErr *mysql.MySQLError
			if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				continue
			}
			return inserted, xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入钱包数据失败")
		}
		inserted++
	}
	return inserted, nil
}

// List 返回全部缓存的钱包数据。
func (s *MySQLStore) List(ctx context.Context) ([]Item, error) {
	const stmt = `SELECT id, name, homepage, image_id, mobile_link, desktop_link, chains
        FROM wallets ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询钱包列表失败")
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var chains sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Homepage,
			&item.ImageID,
			&item.MobileLink,
			&item.DesktopLink,
			&chains,
		); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析钱包数据失败")
		}
		if chains.Valid && chains.String != "" {
			if err := json.Unmarshal([]byte(chains.String), &item.Chains); err != nil {
				return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析链列表失败")
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历钱包数据失败")
	}
	return items, nil
}

// Close 不关闭底层连接，连接归联系人存储所有。
func (s *MySQLStore) Close() error { return nil }

var _ Store = (*MySQLStore)(nil)

// Package wallet 维护钱包参考数据的本地缓存。
// 数据从公开的参考接口周期性拉取，幂等入库，供下游功能复用。
package wallet

import (
	"context"

	xerrors "LensPeer/internal/errors"
)

// Item 表示一条钱包参考数据，写入后不再变更。
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Homepage    string   `json:"homepage"`
	ImageID     string   `json:"image_id"`
	MobileLink  string   `json:"mobile_link"`
	DesktopLink string   `json:"desktop_link"`
	Chains      []string `json:"chains"`
}

// Store 抽象了钱包参考数据的持久化接口。
type Store interface {
	// UpsertAll 幂等批量写入，忽略已存在的 id，返回新写入的条数。
	// 已有记录的属性不会被覆盖。
	UpsertAll(ctx context.Context, items []Item) (int, error)
	// List 返回全部缓存的钱包数据。
	List(ctx context.Context) ([]Item, error)
	Close() error
}

// CodeWalletFetch 表示参考接口拉取失败。
const CodeWalletFetch xerrors.Code = "WALLET_FETCH_FAILED"

func init() {
	xerrors.Register(CodeWalletFetch, xerrors.Attributes{
		Message:   "wallet reference fetch failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     false,
	})
}

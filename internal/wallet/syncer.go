package wallet

import (
	"context"
	"log/slog"

	"LensPeer/pkg/logger"
)

// Fetcher 抽象钱包参考数据的拉取能力。
type Fetcher interface {
	FetchItems(ctx context.Context) ([]Item, error)
}

// ChainProber 校验钱包声明的链是否在注册表内且可达。
// 由 internal/web3 的注册表实现，未配置时为 nil。
type ChainProber interface {
	Known(chain string) bool
	Probe(ctx context.Context, chain string) error
}

// Syncer 负责一次完整的参考数据同步：拉取、幂等入库、可选的链核对。
type Syncer struct {
	fetcher Fetcher
	store   Store
	prober  ChainProber
}

// NewSyncer 构造同步器，prober 可以为 nil。
func NewSyncer(fetcher Fetcher, store Store, prober ChainProber) *Syncer {
	return &Syncer{fetcher: fetcher, store: store, prober: prober}
}

// Sync 执行一次同步。拉取失败只记录日志，不影响外呼主流程。
func (s *Syncer) Sync(ctx context.Context) error {
	if s == nil || s.fetcher == nil || s.store == nil {
		return nil
	}

	items, err := s.fetcher.FetchItems(ctx)
	if err != nil {
		return err
	}

	inserted, err := s.store.UpsertAll(ctx, items)
	if err != nil {
		return err
	}
	logger.L().Info("钱包参考数据同步完成",
		slog.Int("fetched", len(items)),
		slog.Int("inserted", inserted),
	)

	if s.prober != nil {
		s.verifyChains(ctx, items)
	}
	return nil
}

// verifyChains 核对每个钱包声明的链：未注册或探测失败只告警，不报错。
func (s *Syncer) verifyChains(ctx context.Context, items []Item) {
	probed := make(map[string]bool)
	for _, item := range items {
		for _, chain := range item.Chains {
			if !s.prober.Known(chain) {
				logger.L().Warn("钱包声明了未注册的链",
					slog.String("wallet_id", item.ID),
					slog.String("chain", chain),
				)
				continue
			}
			if done, ok := probed[chain]; ok {
				if !done {
					logger.L().Warn("钱包声明的链当前不可达",
						slog.String("wallet_id", item.ID),
						slog.String("chain", chain),
					)
				}
				continue
			}
			err := s.prober.Probe(ctx, chain)
			probed[chain] = err == nil
			if err != nil {
				logger.L().Warn("钱包声明的链当前不可达",
					slog.String("wallet_id", item.ID),
					slog.String("chain", chain),
					slog.Any("error", err),
				)
			}
		}
	}
}

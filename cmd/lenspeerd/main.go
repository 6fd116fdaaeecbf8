package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"LensPeer/internal/api"
	"LensPeer/internal/config"
	"LensPeer/internal/contact"
	"LensPeer/internal/lens"
	"LensPeer/internal/observability/alerting"
	"LensPeer/internal/outreach"
	"LensPeer/internal/wallet"
	"LensPeer/internal/web3"
	"LensPeer/pkg/logger"
)

// main 是 LensPeer 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("lenspeerd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("LENSPEER_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "lenspeer.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()

	// 初始化联系人存储。
	contactStore, err := createContactStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := contactStore.Close(); err != nil {
			logger.L().Error("关闭联系人存储失败", slog.Any("error", err))
		}
	}()

	// 初始化外呼事件流。
	publisher, err := createPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.L().Error("关闭事件流失败", slog.Any("error", err))
		}
	}()

	lensClient, err := lens.NewClient(lens.Config{
		BaseURL:   cfg.Lens.BaseURL,
		AuthToken: cfg.ResolveAuthToken(),
		PageSize:  cfg.Lens.PageSize,
		Timeout:   cfg.Lens.Timeout(),
	})
	if err != nil {
		return err
	}

	notifiers := []alerting.Notifier{&alerting.LogNotifier{}}
	if cfg.Alerting.WebhookURL != "" {
		notifiers = append(notifiers, &alerting.WebhookNotifier{URL: cfg.Alerting.WebhookURL})
	}
	dispatcher := alerting.NewFanout(notifiers...)

	engine := outreach.NewEngine(
		lensClient,
		contact.NewWeightedScorer(),
		contactStore,
		lensClient,
		outreach.Config{
			Message:         cfg.Outreach.Message,
			CycleDelay:      cfg.Outreach.CycleDelay(),
			SendPace:        cfg.Outreach.SendPace(),
			FetchRetries:    cfg.Outreach.FetchRetries,
			FetchRetryDelay: cfg.Outreach.FetchRetryDelay(),
			ReplayMode:      outreach.ParseReplayMode(cfg.Outreach.ReplayMode),
		},
		outreach.WithPublisher(publisher),
		outreach.WithAlertDispatcher(dispatcher),
	)

	// 可选的钱包参考目录。
	var walletStore wallet.Store
	if cfg.Wallets.Enabled {
		walletStore, err = createWalletStore(cfg, contactStore)
		if err != nil {
			return err
		}
		defer func() {
			if err := walletStore.Close(); err != nil {
				logger.L().Error("关闭钱包存储失败", slog.Any("error", err))
			}
		}()

		registry, err := createChainRegistry(cfg)
		if err != nil {
			return err
		}
		if registry != nil {
			defer registry.Close()
		}

		syncer := wallet.NewSyncer(
			wallet.NewClient(cfg.Wallets.BaseURL, cfg.Lens.Timeout()),
			walletStore,
			proberOrNil(registry),
		)
		go runWalletSync(ctx, syncer, cfg)
	}

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- engine.Run(ctx)
	}()

	if cfg.Server.Enabled {
		server := api.NewServer(cfg.Server.Address, contactStore, engine, walletStore)
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return <-engineErr
}

// createContactStore 按配置选择联系人存储驱动。
func createContactStore(cfg *config.Config) (contact.Store, error) {
	switch cfg.Storage.Contacts.Driver {
	case "", "memory":
		return contact.NewMemoryStore(), nil
	case "mysql":
		return contact.NewMySQLStore(contact.MySQLConfig{
			DSN:          cfg.Storage.Contacts.DSN,
			MaxOpenConns: cfg.Storage.Contacts.MaxOpenConns,
			MaxIdleConns: cfg.Storage.Contacts.MaxIdleConns,
		})
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", cfg.Storage.Contacts.Driver)
	}
}

// createWalletStore 复用 MySQL 连接池，内存驱动下独立存储。
func createWalletStore(cfg *config.Config, contactStore contact.Store) (wallet.Store, error) {
	if cfg.Storage.Contacts.Driver == "mysql" {
		mysqlStore, ok := contactStore.(*contact.MySQLStore)
		if !ok {
			return nil, errors.New("MySQL 联系人存储初始化异常")
		}
		return wallet.NewMySQLStore(mysqlStore.DB())
	}
	return wallet.NewMemoryStore(), nil
}

// createPublisher 按配置选择外呼事件流驱动。
func createPublisher(cfg *config.Config) (outreach.Publisher, error) {
	switch cfg.Events.Driver {
	case "", "none":
		return outreach.NoopPublisher{}, nil
	case "memory":
		return outreach.NewMemoryPublisher(), nil
	case "redis":
		return outreach.NewRedisPublisher(outreach.RedisPublisherConfig{
			Address:  cfg.Events.Redis.Address,
			Password: cfg.Events.Redis.Password,
			DB:       cfg.Events.Redis.DB,
			Stream:   cfg.Events.Redis.Stream,
		})
	case "rabbitmq":
		return outreach.NewRabbitMQPublisher(outreach.RabbitMQPublisherConfig{
			URL:     cfg.Events.RabbitMQ.URL,
			Queue:   cfg.Events.RabbitMQ.Queue,
			Durable: cfg.Events.RabbitMQ.Durable,
		})
	default:
		return nil, fmt.Errorf("未知的事件流驱动: %s", cfg.Events.Driver)
	}
}

// createChainRegistry 加载可选的链注册表。
func createChainRegistry(cfg *config.Config) (*web3.Registry, error) {
	if cfg.Web3.RegistryPath == "" {
		return nil, nil
	}
	defs, err := web3.LoadChainDefinitions(cfg.Web3.RegistryPath)
	if err != nil {
		return nil, err
	}
	return web3.NewRegistry(defs), nil
}

// proberOrNil 避免把带类型的 nil 指针塞进接口。
func proberOrNil(registry *web3.Registry) wallet.ChainProber {
	if registry == nil {
		return nil
	}
	return registry
}

// runWalletSync 在启动时同步一次钱包参考数据，之后按配置的周期重复。
func runWalletSync(ctx context.Context, syncer *wallet.Syncer, cfg *config.Config) {
	if err := syncer.Sync(ctx); err != nil {
		logger.L().Warn("钱包参考数据同步失败", slog.Any("error", err))
	}
	if cfg.Wallets.SyncEveryCycles <= 0 {
		return
	}

	interval := time.Duration(cfg.Wallets.SyncEveryCycles) * cfg.Outreach.CycleDelay()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := syncer.Sync(ctx); err != nil {
				logger.L().Warn("钱包参考数据同步失败", slog.Any("error", err))
			}
		}
	}
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config 描述了 LensPeer 在启动阶段需要加载的核心配置。
type Config struct {
	Server   ServerConfig   `json:"server"`
	Lens     LensConfig     `json:"lens"`
	Storage  StorageConfig  `json:"storage"`
	Events   EventsConfig   `json:"events"`
	Outreach OutreachConfig `json:"outreach"`
	Wallets  WalletConfig   `json:"wallets"`
	Web3     Web3Config     `json:"web3"`
	Alerting AlertingConfig `json:"alerting"`
	Logging  LoggingConfig  `json:"logging"`
}

// AlertingConfig 控制告警通知渠道，日志渠道始终开启。
type AlertingConfig struct {
	WebhookURL string `json:"webhook_url" validate:"omitempty,url"`
}

// ServerConfig 控制只读 API 服务的监听地址等参数。
type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

// LensConfig 描述访问 Lens GraphQL API 所需的信息。
// 鉴权令牌可以直接写在配置中，也可以通过环境变量注入。
type LensConfig struct {
	BaseURL        string `json:"base_url" validate:"omitempty,url"`
	AuthToken      string `json:"auth_token"`
	AuthTokenEnv   string `json:"auth_token_env"`
	PageSize       int    `json:"page_size" validate:"omitempty,gt=0,lte=50"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// StorageConfig 统一描述联系人与钱包存储的后端。
type StorageConfig struct {
	Contacts StoreConfig `json:"contacts"`
}

// StoreConfig 目前提供内存实现，生产部署切换到 MySQL。
type StoreConfig struct {
	Driver       string `json:"driver" validate:"omitempty,oneof=memory mysql"`
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// EventsConfig 控制外呼事件的发布渠道。
type EventsConfig struct {
	Driver   string               `json:"driver" validate:"omitempty,oneof=none memory redis rabbitmq"`
	Redis    RedisEventsConfig    `json:"redis"`
	RabbitMQ RabbitMQEventsConfig `json:"rabbitmq"`
}

// RedisEventsConfig 描述 Redis 事件流的连接参数。
type RedisEventsConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Stream   string `json:"stream"`
}

// RabbitMQEventsConfig 描述 RabbitMQ 事件队列的连接参数。
type RabbitMQEventsConfig struct {
	URL     string `json:"url"`
	Queue   string `json:"queue"`
	Durable bool   `json:"durable"`
}

// OutreachConfig 控制外呼循环的节奏与重试策略。
type OutreachConfig struct {
	Message                string `json:"message"`
	MessageFile            string `json:"message_file"`
	CycleDelaySeconds      int    `json:"cycle_delay_seconds"`
	SendPaceSeconds        int    `json:"send_pace_seconds"`
	FetchRetries           int    `json:"fetch_retries"`
	FetchRetryDelaySeconds int    `json:"fetch_retry_delay_seconds"`
	ReplayMode             string `json:"replay_mode" validate:"omitempty,oneof=all undelivered"`
}

// WalletConfig 控制钱包参考数据的同步。
type WalletConfig struct {
	Enabled         bool   `json:"enabled"`
	BaseURL         string `json:"base_url" validate:"omitempty,url"`
	SyncEveryCycles int    `json:"sync_every_cycles"`
}

// Web3Config 指向可选的链注册表文件，用于核对钱包声明的链列表。
type Web3Config struct {
	RegistryPath string `json:"registry_path"`
}

// LoggingConfig 映射到 pkg/logger 的初始化参数。
type LoggingConfig struct {
	Level       string      `json:"level"`
	Format      string      `json:"format"`
	OutputPaths []string    `json:"output_paths"`
	Audit       AuditConfig `json:"audit"`
}

// AuditConfig 控制审计日志输出。
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Load 负责解析指定路径的 JSON 配置文件并做启动期校验。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	baseDir := filepath.Dir(path)
	cfg.applyDefaults()

	if cfg.Outreach.MessageFile != "" {
		messagePath := cfg.Outreach.MessageFile
		if !filepath.IsAbs(messagePath) {
			messagePath = filepath.Join(baseDir, messagePath)
		}
		text, err := os.ReadFile(messagePath)
		if err != nil {
			return nil, fmt.Errorf("读取消息模板失败: %w", err)
		}
		cfg.Outreach.Message = strings.TrimSpace(string(text))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Lens.BaseURL == "" {
		c.Lens.BaseURL = "https://api-v2.lens.dev"
	}
	if c.Lens.PageSize <= 0 {
		c.Lens.PageSize = 10
	}
	if c.Lens.TimeoutSeconds <= 0 {
		c.Lens.TimeoutSeconds = 15
	}

	if c.Storage.Contacts.Driver == "" {
		c.Storage.Contacts.Driver = "memory"
	}

	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.Events.Redis.Stream == "" {
		c.Events.Redis.Stream = "lenspeer:events"
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "lenspeer.events"
	}

	if c.Outreach.CycleDelaySeconds <= 0 {
		c.Outreach.CycleDelaySeconds = 600
	}
	if c.Outreach.SendPaceSeconds <= 0 {
		c.Outreach.SendPaceSeconds = 2
	}
	if c.Outreach.FetchRetries <= 0 {
		c.Outreach.FetchRetries = 3
	}
	if c.Outreach.FetchRetryDelaySeconds <= 0 {
		c.Outreach.FetchRetryDelaySeconds = 2
	}
	if c.Outreach.ReplayMode == "" {
		c.Outreach.ReplayMode = "undelivered"
	}

	if c.Wallets.BaseURL == "" {
		c.Wallets.BaseURL = c.Lens.BaseURL
	}
	if c.Wallets.SyncEveryCycles < 0 {
		c.Wallets.SyncEveryCycles = 0
	}
}

// Validate 在进程启动时做一次性校验。
// 缺失鉴权令牌是唯一会阻止进程启动的配置错误。
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if c.ResolveAuthToken() == "" {
		return errors.New("未配置 Lens 鉴权令牌（auth_token 或 auth_token_env）")
	}
	if strings.TrimSpace(c.Outreach.Message) == "" {
		return errors.New("未配置外呼消息模板（message 或 message_file）")
	}
	return nil
}

// ResolveAuthToken 返回生效的鉴权令牌，优先使用配置内联值。
func (c *Config) ResolveAuthToken() string {
	if token := strings.TrimSpace(c.Lens.AuthToken); token != "" {
		return token
	}
	if c.Lens.AuthTokenEnv != "" {
		return strings.TrimSpace(os.Getenv(c.Lens.AuthTokenEnv))
	}
	return ""
}

// CycleDelay 返回循环间隔。
func (c *OutreachConfig) CycleDelay() time.Duration {
	return time.Duration(c.CycleDelaySeconds) * time.Second
}

// SendPace 返回两次发送之间的最小间隔。
func (c *OutreachConfig) SendPace() time.Duration {
	return time.Duration(c.SendPaceSeconds) * time.Second
}

// FetchRetryDelay 返回拉取重试之间的等待时间。
func (c *OutreachConfig) FetchRetryDelay() time.Duration {
	return time.Duration(c.FetchRetryDelaySeconds) * time.Second
}

// Timeout 返回 Lens API 调用的超时时间。
func (c *LensConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

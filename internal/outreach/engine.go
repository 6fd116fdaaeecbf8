package outreach

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"LensPeer/internal/contact"
	xerrors "LensPeer/internal/errors"
	"LensPeer/internal/observability/alerting"
	"LensPeer/pkg/logger"
)

// Source 抽象候选档案的拉取能力，单次调用不重试。
type Source interface {
	FetchCandidates(ctx context.Context) ([]contact.Candidate, error)
}

// Messenger 抽象单次消息投递能力。
type Messenger interface {
	SendMessage(ctx context.Context, profileID, message string, deliveryCtx contact.DeliveryContext) error
}

// ReplayMode 控制补投阶段覆盖的记录范围。
type ReplayMode string

const (
	// ReplayUndelivered 只补投尚未确认成功的记录，是默认模式。
	ReplayUndelivered ReplayMode = "undelivered"
	// ReplayAll 每轮向所有已记录档案重新发送，保留最初的产品行为。
	ReplayAll ReplayMode = "all"
)

// ParseReplayMode 解析配置值，未知值回落到默认模式。
func ParseReplayMode(raw string) ReplayMode {
	if ReplayMode(strings.ToLower(strings.TrimSpace(raw))) == ReplayAll {
		return ReplayAll
	}
	return ReplayUndelivered
}

// Config 控制外呼循环的节奏与重试策略。
type Config struct {
	Message         string
	CycleDelay      time.Duration
	SendPace        time.Duration
	FetchRetries    int
	FetchRetryDelay time.Duration
	ReplayMode      ReplayMode
}

// Stats 是引擎自启动以来的累计计数，供只读 API 使用。
type Stats struct {
	Cycles           int64     `json:"cycles"`
	CandidatesSeen   int64     `json:"candidates_seen"`
	ContactsRecorded int64     `json:"contacts_recorded"`
	SendsAttempted   int64     `json:"sends_attempted"`
	SendsSucceeded   int64     `json:"sends_succeeded"`
	FetchFailures    int64     `json:"fetch_failures"`
	LastCycleID      string    `json:"last_cycle_id,omitempty"`
	LastCycleAt      time.Time `json:"last_cycle_at,omitzero"`
}

// CycleSummary 描述单轮执行的结果。
type CycleSummary struct {
	CycleID          string
	Fetched          int
	ContactsRecorded int
	Delivered        int
	ReplayAttempts   int
	Failures         int
}

// Engine 按固定节奏编排 拉取 → 评分 → 入库 → 投递 → 补投。
// 单逻辑线程：一轮完整结束后才开始下一轮，任何阶段的错误
// 都在循环边界被吞掉并记录，进程绝不因瞬时故障退出。
type Engine struct {
	source    Source
	scorer    contact.Scorer
	store     contact.Store
	messenger Messenger
	cfg       Config

	clock     Clock
	limiter   *rate.Limiter
	publisher Publisher
	alerter   alerting.Dispatcher

	mu    sync.Mutex
	stats Stats
}

// Option 定义可选配置。
type Option func(*Engine)

// WithClock 注入时钟，测试用。
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithPublisher 配置外呼事件流。
func WithPublisher(publisher Publisher) Option {
	return func(e *Engine) {
		if publisher != nil {
			e.publisher = publisher
		}
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) Option {
	return func(e *Engine) {
		e.alerter = dispatcher
	}
}

// NewEngine 构造外呼引擎。
func NewEngine(source Source, scorer contact.Scorer, store contact.Store, messenger Messenger, cfg Config, opts ...Option) *Engine {
	if cfg.FetchRetries <= 0 {
		cfg.FetchRetries = 3
	}
	if cfg.FetchRetryDelay <= 0 {
		cfg.FetchRetryDelay = 2 * time.Second
	}
	if cfg.CycleDelay <= 0 {
		cfg.CycleDelay = 10 * time.Minute
	}
	if cfg.ReplayMode == "" {
		cfg.ReplayMode = ReplayUndelivered
	}

	e := &Engine{
		source:    source,
		scorer:    scorer,
		store:     store,
		messenger: messenger,
		cfg:       cfg,
		clock:     NewRealClock(),
		publisher: NoopPublisher{},
	}
	if cfg.SendPace > 0 {
		e.limiter = rate.NewLimiter(rate.Every(cfg.SendPace), 1)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Run 持续运行外呼循环，直到上下文取消。
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.RunCycle(ctx)
		if err := e.clock.Sleep(ctx, e.cfg.CycleDelay); err != nil {
			return err
		}
	}
}

// RunCycle 执行一轮完整的外呼流程。
func (e *Engine) RunCycle(ctx context.Context) CycleSummary {
	summary := CycleSummary{CycleID: uuid.NewString()}
	log := logger.L().With(slog.String("cycle_id", summary.CycleID))
	log.Info("开始新一轮外呼")

	candidates := e.fetchWithRetry(ctx, summary.CycleID, log)
	summary.Fetched = len(candidates)

	for i := range candidates {
		candidates[i].PriorityScore = e.scorer.Score(
			candidates[i].Followers,
			candidates[i].Following,
			candidates[i].InterestCount,
		)
	}

	e.persistAndDeliver(ctx, candidates, &summary, log)
	e.replayStored(ctx, &summary, log)

	e.publish(ctx, Event{
		ID:         uuid.NewString(),
		Type:       EventCycleCompleted,
		CycleID:    summary.CycleID,
		OccurredAt: e.clock.Now(),
	}, log)

	logger.Audit().Info("外呼循环完成",
		slog.String("cycle_id", summary.CycleID),
		slog.Int("fetched", summary.Fetched),
		slog.Int("contacts_recorded", summary.ContactsRecorded),
		slog.Int("delivered", summary.Delivered),
		slog.Int("replay_attempts", summary.ReplayAttempts),
		slog.Int("failures", summary.Failures),
	)

	e.mu.Lock()
	e.stats.Cycles++
	e.stats.CandidatesSeen += int64(summary.Fetched)
	e.stats.ContactsRecorded += int64(summary.ContactsRecorded)
	e.stats.LastCycleID = summary.CycleID
	e.stats.LastCycleAt = e.clock.Now()
	e.mu.Unlock()

	return summary
}

// Stats 返回累计计数的快照。
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// fetchWithRetry 对可重试的拉取故障做有界重试。
// 重试耗尽或遇到结构性错误时记录日志并返回空，循环继续走补投阶段。
func (e *Engine) fetchWithRetry(ctx context.Context, cycleID string, log *slog.Logger) []contact.Candidate {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.FetchRetries; attempt++ {
		candidates, err := e.source.FetchCandidates(ctx)
		if err == nil {
			log.Info("候选档案拉取成功",
				slog.Int("count", len(candidates)),
				slog.Int("attempt", attempt),
			)
			return candidates
		}
		lastErr = err
		log.Warn("候选档案拉取失败",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", e.cfg.FetchRetries),
			slog.Any("error", err),
		)
		if !xerrors.RetryableError(err) {
			break
		}
		if attempt < e.cfg.FetchRetries {
			if sleepErr := e.clock.Sleep(ctx, e.cfg.FetchRetryDelay); sleepErr != nil {
				return nil
			}
		}
	}

	e.mu.Lock()
	e.stats.FetchFailures++
	e.mu.Unlock()

	if lastErr != nil {
		e.alert(ctx, alerting.Event{
			Code:       xerrors.CodeOf(lastErr),
			Message:    lastErr.Error(),
			Severity:   xerrors.SeverityOf(lastErr),
			CycleID:    cycleID,
			Metadata:   map[string]string{"stage": "fetch"},
			OccurredAt: e.clock.Now(),
		})
	}
	return nil
}

// persistAndDeliver 对每个候选先落库再投递。
// 先记录后发送是刻意的取舍：崩溃后宁可"已记录未发送"，
// 也不能"已发送未记录"——去重记录是事实来源，补投阶段负责收口。
func (e *Engine) persistAndDeliver(ctx context.Context, candidates []contact.Candidate, summary *CycleSummary, log *slog.Logger) {
	for _, candidate := range candidates {
		exists, err := e.store.Exists(ctx, candidate.ProfileID)
		if err != nil {
			log.Error("查询外呼记录失败，本轮跳过该候选",
				slog.String("profile_id", candidate.ProfileID),
				slog.Any("error", err),
			)
			summary.Failures++
			continue
		}
		if exists {
			continue
		}

		record := contact.RecordOf(candidate)
		record.CreatedAt = e.clock.Now().Unix()
		inserted, err := e.store.InsertIfAbsent(ctx, record)
		if err != nil {
			// 该候选尚未成为记录，不会丢：下轮拉到时重试。
			log.Error("写入外呼记录失败，本轮跳过该候选",
				slog.String("profile_id", candidate.ProfileID),
				slog.Any("error", err),
			)
			summary.Failures++
			continue
		}
		if !inserted {
			continue
		}
		summary.ContactsRecorded++

		e.publish(ctx, Event{
			ID:         uuid.NewString(),
			Type:       EventContactRecorded,
			CycleID:    summary.CycleID,
			ProfileID:  record.ProfileID,
			OccurredAt: e.clock.Now(),
		}, log)

		if e.deliver(ctx, summary.CycleID, record, "new", log) {
			summary.Delivered++
		} else {
			summary.Failures++
		}
	}
}

// replayStored 按优先级顺序补投已记录的档案，收口崩溃或瞬时失败留下的缺口。
func (e *Engine) replayStored(ctx context.Context, summary *CycleSummary, log *slog.Logger) {
	records, err := e.store.ListAll(ctx)
	if err != nil {
		log.Error("读取外呼记录列表失败，本轮跳过补投", slog.Any("error", err))
		summary.Failures++
		return
	}

	for _, record := range records {
		if e.cfg.ReplayMode == ReplayUndelivered && record.Delivered() {
			continue
		}
		summary.ReplayAttempts++
		if e.deliver(ctx, summary.CycleID, record, "replay", log) {
			summary.Delivered++
		} else {
			summary.Failures++
		}
	}
}

// deliver 执行一次限速的消息投递，成功后记录投递时间。
func (e *Engine) deliver(ctx context.Context, cycleID string, record *contact.Record, phase string, log *slog.Logger) bool {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return false
		}
	}

	e.mu.Lock()
	e.stats.SendsAttempted++
	e.mu.Unlock()

	message := e.renderMessage(record)
	err := e.messenger.SendMessage(ctx, record.ProfileID, message, record.DeliveryContext)
	if err != nil {
		log.Warn("消息投递失败",
			slog.String("profile_id", record.ProfileID),
			slog.String("phase", phase),
			slog.String("error_code", string(xerrors.CodeOf(err))),
			slog.Any("error", err),
		)
		e.publish(ctx, Event{
			ID:         uuid.NewString(),
			Type:       EventDeliveryFailed,
			CycleID:    cycleID,
			ProfileID:  record.ProfileID,
			Phase:      phase,
			Detail:     err.Error(),
			OccurredAt: e.clock.Now(),
		}, log)
		if xerrors.ShouldAlert(err) {
			e.alert(ctx, alerting.Event{
				Code:       xerrors.CodeOf(err),
				Message:    err.Error(),
				Severity:   xerrors.SeverityOf(err),
				CycleID:    cycleID,
				ProfileID:  record.ProfileID,
				Metadata:   map[string]string{"stage": phase},
				OccurredAt: e.clock.Now(),
			})
		}
		return false
	}

	if err := e.store.MarkDelivered(ctx, record.ProfileID, e.clock.Now().Unix()); err != nil {
		// 投递已经发生，记录失败只影响补投范围，不影响去重。
		log.Error("记录投递时间失败",
			slog.String("profile_id", record.ProfileID),
			slog.Any("error", err),
		)
	}

	e.mu.Lock()
	e.stats.SendsSucceeded++
	e.mu.Unlock()

	logger.Audit().Info("消息投递成功",
		slog.String("cycle_id", cycleID),
		slog.String("profile_id", record.ProfileID),
		slog.String("handle", record.Handle),
		slog.String("phase", phase),
		slog.Float64("priority_score", record.PriorityScore),
	)
	e.publish(ctx, Event{
		ID:         uuid.NewString(),
		Type:       EventDelivered,
		CycleID:    cycleID,
		ProfileID:  record.ProfileID,
		Phase:      phase,
		OccurredAt: e.clock.Now(),
	}, log)
	return true
}

// renderMessage 把档案字段代入消息模板。
func (e *Engine) renderMessage(record *contact.Record) string {
	replacer := strings.NewReplacer(
		"{handle}", record.Handle,
		"{display_name}", record.DisplayName,
	)
	return replacer.Replace(e.cfg.Message)
}

func (e *Engine) publish(ctx context.Context, event Event, log *slog.Logger) {
	if err := e.publisher.Publish(ctx, event); err != nil {
		log.Warn("外呼事件发布失败",
			slog.String("event_type", string(event.Type)),
			slog.Any("error", err),
		)
	}
}

func (e *Engine) alert(ctx context.Context, event alerting.Event) {
	if e.alerter == nil {
		return
	}
	if err := e.alerter.Notify(ctx, event); err != nil {
		logger.L().Error("告警通知失败",
			slog.String("code", string(event.Code)),
			slog.Any("error", err),
		)
	}
}

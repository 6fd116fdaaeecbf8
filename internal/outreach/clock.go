package outreach

import (
	"context"
	"time"
)

// Clock 抽象时间来源，让测试可以注入快速时钟。
type Clock interface {
	Now() time.Time
	// Sleep 阻塞指定时长，上下文取消时提前返回。
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// NewRealClock 返回基于系统时间的时钟。
func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package runner

import (
	"context"
	"sync/atomic"
	"trade_guard/pkg/logger"

	"github.com/sourcegraph/conc"
)

// GuardianPool держит фоновые задачи гардианов. Единственная отмена: Stop процесса.
type GuardianPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
	active atomic.Int64
	m      *Metrics
}

func NewGuardianPool(m *Metrics) *GuardianPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &GuardianPool{ctx: ctx, cancel: cancel, m: m}
}

// Go запускает fn на контексте пула, а не запроса: гардиан переживает HTTP-вызов.
func (p *GuardianPool) Go(fn func(ctx context.Context)) {
	p.active.Add(1)
	if p.m != nil {
		p.m.guardiansActive.Inc()
	}
	p.wg.Go(func() {
		defer func() {
			p.active.Add(-1)
			if p.m != nil {
				p.m.guardiansActive.Dec()
			}
		}()
		fn(p.ctx)
	})
}

func (p *GuardianPool) Active() int64 { return p.active.Load() }

// Stop отменяет все задачи и ждёт их до конца ctx.
func (p *GuardianPool) Stop(ctx context.Context) error {
	p.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if r := p.wg.WaitAndRecover(); r != nil {
			logger.Error("[GUARDIAN] panic: %v\n%s", r.Value, r.Stack)
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait: только для тестов: ждёт завершения без отмены.
func (p *GuardianPool) Wait() {
	if r := p.wg.WaitAndRecover(); r != nil {
		logger.Error("[GUARDIAN] panic: %v\n%s", r.Value, r.Stack)
	}
}

package runner

import (
	"context"
	"time"
	"trade_guard/internal/exchange"
	"trade_guard/internal/models"
	"trade_guard/pkg/logger"
	"trade_guard/pkg/tracing"

	"github.com/shopspring/decimal"
)

type Stage int

const (
	StageWait1 Stage = iota
	Stage1
	Stage2
)

type Outcome string

const (
	OutcomeProtected   Outcome = "protected"    // TP и SL на месте с первой проверки
	OutcomeFlat        Outcome = "flat"         // позиции уже нет
	OutcomeReprotected Outcome = "reprotected"  // перевыставили на stage 1
	OutcomeForceClosed Outcome = "force_closed" // закрыли по рынку на stage 2
	OutcomeCloseFailed Outcome = "close_failed"
	OutcomeCancelled   Outcome = "cancelled" // остановка процесса
)

// Guardian: фоновая сверка защиты одной сделки: WAIT1 -> CHECK1 -> re-place -> WAIT2 -> CHECK2 -> close.
// rec: копия на момент запуска, общая память защиты после этого не читается.
type Guardian struct {
	TradeID string
	Symbol  string
	Side    models.PositionSide
	rec     models.ProtectionRecord

	gw     exchange.Gateway
	placer protectionPlacer
	sink   EventSink
	m      *Metrics

	firstDelay  time.Duration
	secondDelay time.Duration
	checkRetry  time.Duration

	SpawnedAt time.Time
	stage     Stage
	closed    bool
	closes    int
}

func (r *Runner) newGuardian(tradeID, symbol string, side models.PositionSide, rec models.ProtectionRecord) *Guardian {
	return &Guardian{
		TradeID:     tradeID,
		Symbol:      symbol,
		Side:        side,
		rec:         rec,
		gw:          r.gw,
		placer:      r.placer,
		sink:        r.sink,
		m:           r.m,
		firstDelay:  r.set.GuardianFirstDelay,
		secondDelay: r.set.GuardianSecondDelay,
		checkRetry:  r.set.GuardianCheckRetry,
		SpawnedAt:   r.now(),
	}
}

// Run доводит задачу до терминального исхода. Ошибки биржи только логируются.
func (g *Guardian) Run(ctx context.Context) Outcome {
	span, ctx := tracing.StartSpan(ctx, "guardian.Run", g.Symbol, string(g.Side))
	defer span.Finish()

	out, qty, errMsg := g.run(ctx)
	span.SetTag("outcome", string(out))

	g.m.guardianOutcome.WithLabelValues(string(out)).Inc()
	logger.Info("[GUARDIAN] %s %s %s outcome=%s", g.TradeID, g.Symbol, g.Side, out)
	g.sink.Emit(context.WithoutCancel(ctx), models.Event{
		Type:      models.EventGuardianOutcome,
		TradeID:   g.TradeID,
		Symbol:    g.Symbol,
		Side:      g.Side,
		Quantity:  qty,
		TP:        g.rec.TakeProfit,
		SL:        g.rec.StopLoss,
		Outcome:   string(out),
		Error:     errMsg,
		CreatedAt: time.Now(),
	})
	return out
}

func (g *Guardian) run(ctx context.Context) (Outcome, decimal.Decimal, string) {
	// WAIT1
	if !sleepCtx(ctx, g.firstDelay) {
		return OutcomeCancelled, decimal.Zero, ""
	}

	// CHECK1
	g.stage = Stage1
	hasTP, hasSL := g.check(ctx)
	if hasTP && hasSL {
		return OutcomeProtected, decimal.Zero, ""
	}

	// STAGE1_RETRY
	pos, err := g.gw.GetPosition(ctx, g.Symbol, g.Side)
	switch {
	case err != nil:
		logger.Error("[GUARDIAN] %s %s position query failed, skip re-place: %v", g.TradeID, g.Symbol, err)
	case !pos.Exists:
		return OutcomeFlat, decimal.Zero, ""
	default:
		logger.Warn("[GUARDIAN] %s %s missing tp=%v sl=%v, re-place on qty=%s", g.TradeID, g.Symbol, !hasTP, !hasSL, pos.Quantity)
		_ = g.placer.place(ctx, g.Symbol, g.Side, pos.Quantity, g.rec, missingKinds(hasTP, hasSL)...)
	}

	// WAIT2
	if !sleepCtx(ctx, g.secondDelay) {
		return OutcomeCancelled, decimal.Zero, ""
	}

	// CHECK2
	g.stage = Stage2
	hasTP, hasSL = g.check(ctx)
	if hasTP && hasSL {
		return OutcomeReprotected, decimal.Zero, ""
	}

	// STAGE2_CLOSE
	pos, err = g.gw.GetPosition(ctx, g.Symbol, g.Side)
	if err != nil {
		logger.Error("[GUARDIAN] %s %s position query before close failed: %v", g.TradeID, g.Symbol, err)
		return OutcomeCloseFailed, decimal.Zero, err.Error()
	}
	if !pos.Exists {
		return OutcomeFlat, decimal.Zero, ""
	}
	if err := g.closeOnce(ctx, pos.Quantity); err != nil {
		return OutcomeCloseFailed, pos.Quantity, err.Error()
	}
	return OutcomeForceClosed, pos.Quantity, ""
}

// check: запрос ордеров с одним повтором. Две ошибки подряд = защиты нет.
func (g *Guardian) check(ctx context.Context) (hasTP, hasSL bool) {
	orders, err := g.gw.GetOpenOrders(ctx, g.Symbol)
	if err != nil {
		logger.Warn("[GUARDIAN] %s %s open orders query failed, retry in %s: %v", g.TradeID, g.Symbol, g.checkRetry, err)
		if !sleepCtx(ctx, g.checkRetry) {
			return false, false
		}
		orders, err = g.gw.GetOpenOrders(ctx, g.Symbol)
	}
	if err != nil {
		logger.Error("[GUARDIAN] %s %s open orders query failed twice: %v", g.TradeID, g.Symbol, err)
		return false, false
	}
	return exchange.ClassifyProtection(orders, g.Side)
}

// closeOnce: не больше одного закрытия на задачу, даже если первое упало.
func (g *Guardian) closeOnce(ctx context.Context, qty decimal.Decimal) error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.closes++

	id, err := g.gw.ClosePosition(ctx, g.Symbol, g.Side, qty)
	g.m.observeClose("guardian", err)
	if err != nil {
		logger.Error("[GUARDIAN] %s %s force close qty=%s failed: %v", g.TradeID, g.Symbol, qty, err)
		return err
	}
	logger.Warn("[GUARDIAN] %s %s force closed qty=%s order=%s", g.TradeID, g.Symbol, qty, id)
	return nil
}

func (g *Guardian) Stage() Stage { return g.stage }
func (g *Guardian) Closed() bool { return g.closed }

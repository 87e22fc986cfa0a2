package runner

import (
	"context"
	"fmt"
	"time"
	"trade_guard/internal/exchange"
	"trade_guard/internal/helper"
	"trade_guard/internal/models"
	"trade_guard/pkg/logger"
	"trade_guard/pkg/tracing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settings: константы оркестратора и гардиана.
type Settings struct {
	DefaultLeverage     int
	FillPollInterval    time.Duration
	FillTimeout         time.Duration
	GuardianFirstDelay  time.Duration
	GuardianSecondDelay time.Duration
	GuardianCheckRetry  time.Duration // 0 => повтор сразу
	CloseOnMismatch     bool
}

type Options struct {
	Gateway   exchange.Gateway
	Precision *exchange.PrecisionResolver
	Locks     SymbolLocker
	Memory    *ProtectionMemory
	Pool      *GuardianPool
	Sink      EventSink
	Metrics   *Metrics
	Settings  Settings
}

// Runner: оркестратор сделки. Всё общее состояние принадлежит ему, глобальных мап нет.
type Runner struct {
	gw        exchange.Gateway
	precision *exchange.PrecisionResolver
	locks     SymbolLocker
	memory    *ProtectionMemory
	pool      *GuardianPool
	sink      EventSink
	m         *Metrics
	set       Settings
	placer    protectionPlacer

	newID func() string
	now   func() time.Time
}

func New(o Options) *Runner {
	if o.Sink == nil {
		o.Sink = NopSink{}
	}
	if o.Metrics == nil {
		o.Metrics = NewMetrics()
	}
	if o.Memory == nil {
		o.Memory = NewProtectionMemory()
	}
	if o.Locks == nil {
		o.Locks = NewMemoryLocks()
	}
	if o.Pool == nil {
		o.Pool = NewGuardianPool(o.Metrics)
	}
	if o.Precision == nil {
		o.Precision = exchange.NewPrecisionResolver(o.Gateway, exchange.DefaultPrecision, 0)
	}
	return &Runner{
		gw:        o.Gateway,
		precision: o.Precision,
		locks:     o.Locks,
		memory:    o.Memory,
		pool:      o.Pool,
		sink:      o.Sink,
		m:         o.Metrics,
		set:       o.Settings,
		placer:    protectionPlacer{gw: o.Gateway, m: o.Metrics},
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Result: итог синхронной части.
type Result struct {
	TradeID    string
	Quantity   decimal.Decimal // фактический объём позиции
	EntryPrice decimal.Decimal
}

// Execute проводит сигнал до защищённой позиции под локом символа.
// После старта не отменяется: ctx запроса используется только для значений (трейсинг).
func (r *Runner) Execute(ctx context.Context, in models.TradeIntent) (res Result, err error) {
	ctx = context.WithoutCancel(ctx)
	// один инструмент = один ключ лока, памяти и точности, как бы ни прислали символ
	in.Symbol = helper.DashSymbol(in.Symbol)
	side := in.Side.PositionSide()
	res.TradeID = r.newID()

	span, ctx := tracing.StartSpan(ctx, "runner.Execute", in.Symbol, string(side))
	span.SetTag("trade_id", res.TradeID)
	started := r.now()
	defer func() {
		tracing.Fail(span, err)
		span.Finish()
		r.m.observeTrade(err, r.now().Sub(started))
		if err != nil {
			logger.Warn("[RUNNER] %s %s %s rejected: %v", res.TradeID, in.Symbol, side, err)
			r.emit(ctx, models.Event{
				Type:     models.EventTradeRejected,
				TradeID:  res.TradeID,
				Symbol:   in.Symbol,
				Side:     side,
				Quantity: res.Quantity,
				Price:    res.EntryPrice,
				TP:       in.TakeProfit,
				SL:       in.StopLoss,
				Error:    err.Error(),
			})
		}
	}()

	// 1. лок символа, без ожидания
	release, ok, lerr := r.locks.TryLock(ctx, in.Symbol)
	if lerr != nil {
		return res, newTradeError("lock", in.Symbol, ErrLockContention, lerr)
	}
	if !ok {
		return res, newTradeError("lock", in.Symbol, ErrLockContention, nil)
	}
	defer release()

	r.emit(ctx, models.Event{
		Type:    models.EventTradeAccepted,
		TradeID: res.TradeID,
		Symbol:  in.Symbol,
		Side:    side,
		TP:      in.TakeProfit,
		SL:      in.StopLoss,
	})

	// 2. количество
	digits := r.precision.Resolve(ctx, in.Symbol)
	qty := calcQuantity(in.Notional, in.TakeProfit, in.StopLoss, digits)
	if !qty.IsPositive() {
		return res, newTradeError("quantity", in.Symbol, ErrInvalidQuantity,
			fmt.Errorf("notional %s rounds to zero at %d digits", in.Notional, digits))
	}

	// 3. плечо, best-effort
	leverage := in.Leverage
	if leverage <= 0 {
		leverage = r.set.DefaultLeverage
	}
	if leverage > 0 {
		if err := r.gw.SetLeverage(ctx, in.Symbol, side, leverage); err != nil {
			logger.Warn("[RUNNER] %s set leverage %dx failed, continue: %v", in.Symbol, leverage, err)
		}
	}

	// 4. вход по рынку; ответ биржи: ещё не fill
	orderID, err := r.gw.PlaceMarketOrder(ctx, in.Symbol, side, qty)
	if err != nil {
		return res, newTradeError("entry", in.Symbol, ErrGateway, err)
	}
	logger.Info("[RUNNER] %s %s %s market qty=%s lev=%dx order=%s", res.TradeID, in.Symbol, side, qty, leverage, orderID)

	// 5. ждём позицию
	pos, err := r.awaitFill(ctx, in.Symbol, side)
	if err != nil {
		return res, newTradeError("fill", in.Symbol, ErrFillTimeout, err)
	}
	res.Quantity, res.EntryPrice = pos.Quantity, pos.AvgEntryPrice
	r.emit(ctx, models.Event{
		Type:     models.EventTradeFilled,
		TradeID:  res.TradeID,
		Symbol:   in.Symbol,
		Side:     side,
		Quantity: pos.Quantity,
		Price:    pos.AvgEntryPrice,
	})

	// 6. TP/SL против фактической цены входа
	if verr := validateProtection(side, pos.AvgEntryPrice, in.TakeProfit, in.StopLoss); verr != nil {
		if r.set.CloseOnMismatch {
			r.closeMismatch(ctx, res.TradeID, in, side, pos)
		}
		return res, newTradeError("validate", in.Symbol, ErrTpSlMismatch, verr)
	}

	// 7. защита на весь фактический объём
	rec := models.ProtectionRecord{TakeProfit: in.TakeProfit, StopLoss: in.StopLoss}
	placeErr := r.placer.place(ctx, in.Symbol, side, pos.Quantity, rec, exchange.KindTakeProfit, exchange.KindStopLoss)
	r.memory.Record(in.Symbol, rec)

	// 8. гардиан получает свою копию rec
	r.spawnGuardian(res.TradeID, in.Symbol, side, rec)

	if placeErr != nil {
		r.emit(ctx, models.Event{
			Type:     models.EventProtectionFailed,
			TradeID:  res.TradeID,
			Symbol:   in.Symbol,
			Side:     side,
			Quantity: pos.Quantity,
			Price:    pos.AvgEntryPrice,
			TP:       rec.TakeProfit,
			SL:       rec.StopLoss,
			Error:    placeErr.Error(),
		})
		return res, newTradeError("protect", in.Symbol, ErrGateway, placeErr)
	}

	r.emit(ctx, models.Event{
		Type:     models.EventProtectionPlaced,
		TradeID:  res.TradeID,
		Symbol:   in.Symbol,
		Side:     side,
		Quantity: pos.Quantity,
		Price:    pos.AvgEntryPrice,
		TP:       rec.TakeProfit,
		SL:       rec.StopLoss,
	})
	logger.Info("[RUNNER] %s %s %s protected qty=%s entry=%s tp=%s sl=%s",
		res.TradeID, in.Symbol, side, pos.Quantity, pos.AvgEntryPrice, rec.TakeProfit, rec.StopLoss)
	return res, nil
}

// awaitFill опрашивает позицию, пока не появится ненулевой объём.
func (r *Runner) awaitFill(ctx context.Context, symbol string, side models.PositionSide) (models.Position, error) {
	var pos models.Position
	err := pollUntil(ctx, r.set.FillPollInterval, r.set.FillTimeout, func(ctx context.Context) (bool, error) {
		p, err := r.gw.GetPosition(ctx, symbol, side)
		if err != nil {
			logger.Warn("[RUNNER] %s position poll: %v", symbol, err)
			return false, err
		}
		if p.Exists && p.Quantity.IsPositive() {
			pos = p
			return true, nil
		}
		return false, nil
	})
	return pos, err
}

// closeMismatch закрывает позицию, для которой TP/SL не подходят к цене входа.
func (r *Runner) closeMismatch(ctx context.Context, tradeID string, in models.TradeIntent, side models.PositionSide, pos models.Position) {
	ev := models.Event{
		Type:     models.EventMismatchClosed,
		TradeID:  tradeID,
		Symbol:   in.Symbol,
		Side:     side,
		Quantity: pos.Quantity,
		Price:    pos.AvgEntryPrice,
		TP:       in.TakeProfit,
		SL:       in.StopLoss,
		Outcome:  "closed",
	}

	id, err := r.gw.ClosePosition(ctx, in.Symbol, side, pos.Quantity)
	r.m.observeClose("mismatch", err)
	if err != nil {
		logger.Error("[RUNNER] %s %s mismatch close failed, position UNPROTECTED: %v", tradeID, in.Symbol, err)
		ev.Outcome, ev.Error = "close_failed", err.Error()
	} else {
		logger.Warn("[RUNNER] %s %s mismatch: closed qty=%s order=%s", tradeID, in.Symbol, pos.Quantity, id)
	}
	r.emit(ctx, ev)
}

func (r *Runner) spawnGuardian(tradeID, symbol string, side models.PositionSide, rec models.ProtectionRecord) {
	g := r.newGuardian(tradeID, symbol, side, rec)
	r.emit(context.Background(), models.Event{
		Type:    models.EventGuardianStarted,
		TradeID: tradeID,
		Symbol:  symbol,
		Side:    side,
		TP:      rec.TakeProfit,
		SL:      rec.StopLoss,
	})
	r.pool.Go(func(ctx context.Context) { g.Run(ctx) })
}

func (r *Runner) emit(ctx context.Context, e models.Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	r.sink.Emit(ctx, e)
}

// Protection: снимок памяти защиты для /api/protection.
func (r *Runner) Protection() map[string]models.ProtectionRecord { return r.memory.Snapshot() }

// ActiveGuardians: для /healthz.
func (r *Runner) ActiveGuardians() int64 { return r.pool.Active() }

package journal

import (
	"context"
	"fmt"
	"time"
	"trade_guard/internal/models"
	"trade_guard/pkg/db"
	"trade_guard/pkg/logger"

	"github.com/jackc/pgx/v5"
)

// Journal пишет события сделок. Ошибки журнала не влияют на торговлю.
type Journal interface {
	Write(ctx context.Context, e models.Event) error
}

const schema = `
CREATE TABLE IF NOT EXISTS trade_events (
	id          BIGSERIAL PRIMARY KEY,
	trade_id    TEXT        NOT NULL DEFAULT '',
	type        TEXT        NOT NULL,
	symbol      TEXT        NOT NULL,
	side        TEXT        NOT NULL DEFAULT '',
	quantity    NUMERIC     NOT NULL DEFAULT 0,
	price       NUMERIC     NOT NULL DEFAULT 0,
	tp          NUMERIC     NOT NULL DEFAULT 0,
	sl          NUMERIC     NOT NULL DEFAULT 0,
	outcome     TEXT        NOT NULL DEFAULT '',
	error       TEXT        NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const schemaIndex = `CREATE INDEX IF NOT EXISTS trade_events_trade_id_idx ON trade_events (trade_id)`

const insertEvent = `
INSERT INTO trade_events (trade_id, type, symbol, side, quantity, price, tp, sl, outcome, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

type Postgres struct {
	tm  db.TxManager
	now func() time.Time
}

func NewPostgres(tm db.TxManager) *Postgres {
	return &Postgres{tm: tm, now: time.Now}
}

// Migrate создаёт таблицу и индекс в одной транзакции.
func (p *Postgres) Migrate(ctx context.Context) error {
	return p.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctxTx, schema); err != nil {
			return fmt.Errorf("create trade_events: %w", err)
		}
		if _, err := tx.Exec(ctxTx, schemaIndex); err != nil {
			return fmt.Errorf("create trade_events index: %w", err)
		}
		return nil
	})
}

func (p *Postgres) Write(ctx context.Context, e models.Event) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = p.now()
	}
	_, err := p.tm.Conn().Exec(ctx, insertEvent,
		e.TradeID,
		string(e.Type),
		e.Symbol,
		string(e.Side),
		e.Quantity.String(),
		e.Price.String(),
		e.TP.String(),
		e.SL.String(),
		e.Outcome,
		e.Error,
		created,
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Type, err)
	}
	return nil
}

// Nop: журнал без базы.
type Nop struct{}

func (Nop) Write(context.Context, models.Event) error { return nil }

// Subscriber превращает журнал в подписчика шины.
func Subscriber(j Journal) func(ctx context.Context, e models.Event) {
	return func(ctx context.Context, e models.Event) {
		if err := j.Write(ctx, e); err != nil {
			logger.Error("[JOURNAL] %v", err)
		}
	}
}

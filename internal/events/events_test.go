package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
	"trade_guard/internal/models"
	"trade_guard/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	logger.Nop()
	os.Exit(m.Run())
}

func TestBus_FanOut(t *testing.T) {
	b := NewBus()

	var (
		mu       sync.Mutex
		all      []models.EventType
		outcomes int
	)
	b.SubscribeAll(func(_ context.Context, e models.Event) {
		mu.Lock()
		all = append(all, e.Type)
		mu.Unlock()
	})
	b.Subscribe(models.EventGuardianOutcome, func(_ context.Context, e models.Event) {
		mu.Lock()
		outcomes++
		mu.Unlock()
	})
	b.Subscribe(models.EventTradeFilled, func(context.Context, models.Event) { panic("bad subscriber") })

	b.Emit(context.Background(), models.Event{Type: models.EventTradeFilled})
	b.Emit(context.Background(), models.Event{Type: models.EventGuardianOutcome, Outcome: "protected"})
	b.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(all) != 2 {
		t.Errorf("all = %v", all)
	}
	if outcomes != 1 {
		t.Errorf("outcomes = %d", outcomes)
	}
}

func TestBus_CancelledContextStillDelivers(t *testing.T) {
	b := NewBus()
	got := make(chan error, 1)
	b.SubscribeAll(func(ctx context.Context, _ models.Event) { got <- ctx.Err() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Emit(ctx, models.Event{Type: models.EventTradeAccepted})
	b.Wait()

	if err := <-got; err != nil {
		t.Errorf("subscriber ctx err = %v", err)
	}
}

func TestHub_BroadcastsToClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(context.Background(), models.Event{
		Type:     models.EventTradeFilled,
		Symbol:   "BTC-USDT",
		Quantity: decimal.RequireFromString("0.0007"),
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got models.Event
	if err := sonic.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	if got.Type != models.EventTradeFilled || got.Symbol != "BTC-USDT" || !got.Quantity.Equal(decimal.RequireFromString("0.0007")) {
		t.Errorf("event = %+v", got)
	}
}

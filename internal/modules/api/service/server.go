package service

import (
	"context"
	"net/http"
	"time"
	"trade_guard/internal/models"
	"trade_guard/internal/runner"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trader: то, что нужно HTTP-слою от оркестратора.
type Trader interface {
	Execute(ctx context.Context, in models.TradeIntent) (runner.Result, error)
	Protection() map[string]models.ProtectionRecord
	ActiveGuardians() int64
}

type Deps struct {
	Trader      Trader
	State       *State
	Gatherer    prometheus.Gatherer
	Events      http.HandlerFunc // websocket, может быть nil
	SignalToken string
	CORSOrigins []string
	Release     bool
}

type Server struct {
	router *gin.Engine
	trader Trader
	state  *State
	token  string
}

func NewServer(d Deps) *Server {
	if d.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(d.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = d.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", signalTokenHeader}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router: router,
		trader: d.Trader,
		state:  d.State,
		token:  d.SignalToken,
	}
	s.setupRoutes(d)
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes(d Deps) {
	s.router.GET("/livez", func(c *gin.Context) {
		// liveness: процесс жив
		c.String(http.StatusOK, "ok")
	})
	s.router.GET("/readyz", func(c *gin.Context) {
		if !s.state.Ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "ready")
	})
	s.router.GET("/healthz", s.handleHealth)

	if d.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	if d.Events != nil {
		s.router.GET("/ws/events", gin.WrapF(d.Events))
	}

	api := s.router.Group("/api")
	api.POST("/order", s.handleOrder)
	api.POST("/bingx_order", s.handleOrder) // старый путь вебхука
	api.GET("/protection", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.trader.Protection())
	})
}

// handleHealth: JSON для отладки.
func (s *Server) handleHealth(c *gin.Context) {
	var lastTrade int64
	if t := s.state.LastTrade(); !t.IsZero() {
		lastTrade = t.Unix()
	}
	c.JSON(http.StatusOK, gin.H{
		"ready":           s.state.Ready(),
		"exchange":        s.state.Exchange(),
		"activeGuardians": s.trader.ActiveGuardians(),
		"uptimeSec":       int64(s.state.Uptime() / time.Second),
		"lastTradeUnix":   lastTrade,
	})
}

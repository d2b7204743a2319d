package api

import (
	"context"
	"html/template"
	"time"

	"spellgate/common/http"
	"spellgate/engine"
	"spellgate/poll"
)

// Prober 探测引擎是否可达，engine.Transport 实现了它
type Prober interface {
	Probe(ctx context.Context) error
}

type Options struct {
	JwtSecret       string
	AllowTestHeader bool
	AllowMock       bool
	PollInterval    time.Duration
	// Limiter 为空时不限流
	Limiter http.Limiter
}

// Gateway 所有路由共享的依赖，本身不保存任何游戏状态
type Gateway struct {
	client *engine.Client
	prober Prober
	pages  *template.Template
	opts   Options
}

func New(client *engine.Client, prober Prober, opts Options) (*Gateway, error) {
	pages, err := Templates()
	if err != nil {
		return nil, err
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = poll.DefaultInterval
	}
	return &Gateway{
		client: client,
		prober: prober,
		pages:  pages,
		opts:   opts,
	}, nil
}

// RegisterRoutes 注册所有路由，除 ping/health 外都需要认证
func RegisterRoutes(server *http.HttpServer, gw *Gateway) {
	server.SetHTMLTemplate(gw.pages)
	server.Use(
		http.RequestIDMiddleware(),
		http.LoggerMiddleware(),
		http.CorsMiddleware(),
		http.SecurityMiddleware(),
	)

	server.GET("/ping", PingHandler)
	server.GET("/health", gw.HealthHandler)

	auth := http.AuthMiddleware(gw.opts.JwtSecret, gw.opts.AllowTestHeader)
	actions := []http.MiddlewareFunc{}
	if gw.opts.Limiter != nil {
		actions = append(actions, http.RateLimitMiddleware(gw.opts.Limiter))
	}

	// API v1 路由组
	v1 := server.Group("/api/v1/game", auth)
	{
		v1.GET("/state", gw.StateHandler)

		act := v1.Group("", actions...)
		act.POST("/start", gw.StartHandler)
		act.POST("/answer", gw.AnswerHandler)
		act.POST("/cast", gw.CastHandler)
		act.POST("/endturn", gw.EndTurnHandler)
		act.POST("/end", gw.EndGameHandler)
	}

	// 页面
	pages := server.Group("", auth)
	{
		pages.GET("/", gw.LobbyHandler)
		pages.GET("/games/:id", gw.ShowGameHandler)
		pages.GET("/games/:id/stream", gw.StreamHandler)
		pages.Group("", actions...).POST("/games", gw.CreateGameHandler)
	}
}

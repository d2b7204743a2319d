package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"spellgate/api"
	"spellgate/common/config"
	"spellgate/common/database"
	"spellgate/common/discovery"
	"spellgate/common/http"
	"spellgate/common/log"
	"spellgate/common/rpc"
	"spellgate/common/utils"
	"spellgate/engine"
)

const (
	discoveryTimeout = 5 * time.Second
	sweepEvery       = time.Minute
)

func Run(ctx context.Context, conf *config.Config, observer engine.Observer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	baseURL, err := resolveEngineURL(ctx, conf)
	if err != nil {
		return err
	}
	transport := engine.NewTransport(baseURL, engine.WithTimeout(conf.Engine.Timeout))
	client := engine.NewClient(transport,
		engine.WithObserver(observer),
		engine.WithReadRetry(conf.Engine.RetryReads),
	)
	log.Info("游戏引擎: %s, 超时 %v", transport.BaseURL(), conf.Engine.Timeout)

	limiter, closeLimiter := newLimiter(ctx, conf)
	defer closeLimiter()

	var health *rpc.HealthServer
	if conf.GrpcPort > 0 {
		health = rpc.NewHealthServer()
		go func() {
			if err := health.Serve(conf.GrpcPort); err != nil {
				log.Error("grpc 健康检查服务退出: %v", err)
			}
		}()
		go health.RunProbe(ctx, transport, conf.Engine.ProbeEvery, conf.Engine.Timeout)
	}

	gw, err := api.New(client, transport, api.Options{
		JwtSecret:       conf.JwtConf.Secret,
		AllowTestHeader: conf.JwtConf.AllowTestHeader,
		AllowMock:       conf.Dev.AllowMock,
		PollInterval:    conf.Poll.Interval,
		Limiter:         limiter,
	})
	if err != nil {
		return fmt.Errorf("加载页面模板失败: %w", err)
	}

	// 使用 common 封装的 gin 库 http-server
	server := http.NewHttpServer(
		http.WithPort(conf.HttpPort),
		http.WithMode(ginMode(conf.Log.Level)),
	)
	api.RegisterRoutes(server, gw)

	go func() {
		log.Info("启动 HTTP 服务器，端口: %d", conf.HttpPort)
		if err := server.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatal("HTTP 服务器启动失败: %v", err)
		}
	}()

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP 服务器关闭失败: %v", err)
		} else {
			log.Info("HTTP 服务器已优雅关闭")
		}
		if health != nil {
			health.Stop()
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(c)
	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case s := <-c:
			switch s {
			case syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT:
				stop()
				log.Info("中断信号，服务停止")
				return nil
			case syscall.SIGHUP:
				stop()
				log.Info("挂起信号，服务停止")
				return nil
			default:
				return nil
			}
		}
	}
}

// resolveEngineURL 配置了 discoveryKey 时从 etcd 解析，失败再退回 baseUrl
func resolveEngineURL(ctx context.Context, conf *config.Config) (string, error) {
	if conf.Engine.DiscoveryKey == "" {
		return conf.Engine.BaseURL, nil
	}
	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	url, err := discovery.ResolveEngineURL(ctx, conf.EtcdConf, conf.Engine.DiscoveryKey)
	if err == nil {
		return url, nil
	}
	if conf.Engine.BaseURL == "" {
		return "", fmt.Errorf("etcd 发现游戏引擎失败: %w", err)
	}
	log.Warn("etcd 发现游戏引擎失败，使用配置的 baseUrl %s, err:%v", conf.Engine.BaseURL, err)
	return conf.Engine.BaseURL, nil
}

// newLimiter rate<=0 时不限流；配置了 redis 时多实例共享计数，否则单机令牌桶
func newLimiter(ctx context.Context, conf *config.Config) (http.Limiter, func()) {
	if conf.RateLimit.Rate <= 0 {
		return nil, func() {}
	}
	if conf.RedisConf.Addr != "" {
		manager, err := database.NewRedis(ctx, conf.RedisConf, conf.RateLimit)
		if err == nil {
			log.Info("动作限流使用 redis %s, 每 %v 最多 %d 次", conf.RedisConf.Addr, manager.Window, manager.Limit)
			return manager, func() { _ = manager.Close() }
		}
		log.Warn("redis 不可用，动作限流退回单机模式, err:%v", err)
	}

	local := utils.NewKeyedLimiter(conf.RateLimit.Rate, conf.RateLimit.Burst)
	go local.RunSweeper(ctx, sweepEvery)
	log.Info("动作限流使用单机令牌桶, rate=%d burst=%d", conf.RateLimit.Rate, conf.RateLimit.Burst)
	return local, func() {}
}

func ginMode(level string) string {
	if strings.EqualFold(level, "debug") {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}

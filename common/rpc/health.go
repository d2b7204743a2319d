package rpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"spellgate/common/log"
)

// EngineService 健康检查里代表游戏引擎可达性的服务名
const EngineService = "spellgate.engine"

// HealthServer 给编排系统用的 grpc 健康检查。
// "" 代表网关进程本身，EngineService 跟随引擎探测结果
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

func NewHealthServer() *HealthServer {
	hs := health.NewServer()
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(EngineService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{server: server, health: hs}
}

// SetEngineReachable 更新引擎状态
func (h *HealthServer) SetEngineReachable(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(EngineService, status)
}

// Check 直接查询当前状态，不经过网络
func (h *HealthServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve 在 port 上监听，阻塞直到 Stop
func (h *HealthServer) Serve(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("grpc 监听端口 %d 失败: %w", port, err)
	}
	log.Info("grpc 健康检查服务监听 %d", port)
	return h.server.Serve(lis)
}

// Stop 所有服务置为 NOT_SERVING 后优雅关闭
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}

// Prober 探测一次引擎是否可达
type Prober interface {
	Probe(ctx context.Context) error
}

// RunProbe 立即探测一次，之后每个 every 探测一次，ctx 结束时退出
func (h *HealthServer) RunProbe(ctx context.Context, prober Prober, every, timeout time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	last := -1
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := prober.Probe(probeCtx)
		ok := err == nil
		h.SetEngineReachable(ok)

		state := 0
		if ok {
			state = 1
		}
		if state != last {
			if ok {
				log.Info("游戏引擎可达")
			} else {
				log.Warn("游戏引擎不可达, err:%v", err)
			}
			last = state
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

package api

import (
	"context"
	nethttp "net/http"
	"time"

	"spellgate/common/http"
)

const healthProbeTimeout = 2 * time.Second

// PingHandler ping 检查
func PingHandler(c *http.Context) error {
	c.Success(map[string]any{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
		"service":   "spellgate",
	})
	return nil
}

// HealthHandler 健康检查，包含游戏引擎是否可达
func (g *Gateway) HealthHandler(c *http.Context) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthProbeTimeout)
	defer cancel()

	engineStatus := "ok"
	healthy := true
	if err := g.prober.Probe(ctx); err != nil {
		engineStatus = "unreachable"
		healthy = false
	}
	status := map[string]any{
		"healthy": healthy,
		"services": map[string]string{
			"engine": engineStatus,
		},
		"timestamp": time.Now().Unix(),
	}

	if healthy {
		c.Success(status)
	} else {
		c.JSON(nethttp.StatusServiceUnavailable, status)
	}
	return nil
}

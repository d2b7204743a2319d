package metrics

import (
	"net/http"
	"time"

	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine 引擎调用指标，实现 engine.Observer
type Engine struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewEngine() *Engine {
	return &Engine{
		Calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spellgate",
				Subsystem: "engine",
				Name:      "calls_total",
				Help:      "Engine calls by operation and outcome (ok, transport, protocol, malformed)",
			},
			[]string{"op", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "spellgate",
				Subsystem: "engine",
				Name:      "call_duration_seconds",
				Help:      "Engine round trip duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

func (m *Engine) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Calls, m.Duration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Engine) ObserveCall(op, outcome string, elapsed time.Duration) {
	m.Calls.WithLabelValues(op, outcome).Inc()
	m.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler statsviz 面板挂在 /debug/statsviz/，prometheus 指标挂在 /metrics
func Handler(gatherer prometheus.Gatherer) (http.Handler, error) {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return nil, err
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux, nil
}

// Serve 启动监控服务，阻塞
func Serve(addr string, gatherer prometheus.Gatherer) error {
	handler, err := Handler(gatherer)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

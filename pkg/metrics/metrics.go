// Package metrics 注册服务的 Prometheus 指标。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests 按路由与状态码统计请求数
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "horario_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	// HTTPDuration 请求耗时
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "horario_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// PlannerOps 排课操作结果（place / remove / clear / reconstruct）
	PlannerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "horario_planner_operations_total",
		Help: "Planner operations by operation and result",
	}, []string{"operation", "result"})

	// RemoteDuration 远端存储调用耗时
	RemoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "horario_remote_call_duration_seconds",
		Help:    "Remote row store call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms ~ 8s
	}, []string{"operation"})

	// DroppedRows 重建时被丢弃的脏数据行
	DroppedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "horario_reconstruct_dropped_rows_total",
		Help: "Rows dropped during schedule reconstruction, by reason",
	}, []string{"reason"})

	// ActiveSessions 当前内存中的排课会话数
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "horario_active_sessions",
		Help: "Planner sessions held in memory",
	})
)

// ObserveRemote 记录一次远端调用耗时
func ObserveRemote(operation string, start time.Time) {
	RemoteDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler /metrics 暴露端点
func Handler() http.Handler {
	return promhttp.Handler()
}

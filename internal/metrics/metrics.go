// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証パイプラインの判定結果ラベル。
const (
	AuthOutcomeAuthenticated = "authenticated"
	AuthOutcomeUnauthorized  = "unauthorized"
	AuthOutcomeForbidden     = "forbidden"
	AuthOutcomeUnavailable   = "unavailable"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordAuthOutcome(strategy, outcome string)
	RecordRegistration(outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	reg            prometheus.Registerer
	authOutcomes   *prometheus.CounterVec
	registrations  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reg: reg,
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_auth_requests_total",
			Help: "認証パイプラインの判定結果別のリクエスト数",
		}, []string{"strategy", "outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_registrations_total",
			Help: "ユーザー登録の結果別の件数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authgate_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.authOutcomes,
		c.registrations,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RegisterActiveSessions は有効セッション数のゲージを登録する。
// 値はスクレイプ時にcountから取得する。
func (c *Collector) RegisterActiveSessions(count func() int) {
	c.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "authgate_active_sessions",
		Help: "プロセス内の有効なセッション数",
	}, func() float64 {
		return float64(count())
	}))
}

// RecordAuthOutcome は認証パイプラインの判定結果を記録する。
func (c *Collector) RecordAuthOutcome(strategy, outcome string) {
	c.authOutcomes.WithLabelValues(strategy, outcome).Inc()
}

// RecordRegistration はユーザー登録の結果を記録する。
func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

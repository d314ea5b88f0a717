package server

import (
	"sync"
	"time"

	"github.com/Trinoooo/eggie_echo/consts"
	"github.com/Trinoooo/eggie_echo/server/logs"
	"github.com/Trinoooo/eggie_echo/server/poller"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

type MetricsHelper struct {
	registry *prometheus.Registry
	pool     gopool.Pool
	stop     chan struct{}
	once     sync.Once

	ConnectionAcceptCounter prometheus.Counter     // socket accept qps
	ConnectionCloseCounter  *prometheus.CounterVec // 按拆链原因
	AcceptFailureCounter    prometheus.Counter
	BytesReceivedCounter    prometheus.Counter
	BytesSentCounter        prometheus.Counter
	InterestChangeCounter   *prometheus.CounterVec // 按目标模式
	ActiveConnections       prometheus.Gauge
}

var _ Observer = &MetricsHelper{}

func NewMetricsHelper() *MetricsHelper {
	mh := &MetricsHelper{
		registry: prometheus.NewRegistry(),
		pool:     gopool.NewPool("metrics", 1, gopool.NewConfig()),
		stop:     make(chan struct{}),
		ConnectionAcceptCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eggie_echo_connection_accept_counter",
		}),
		ConnectionCloseCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eggie_echo_connection_close_counter",
		}, []string{consts.LogFieldReason}),
		AcceptFailureCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eggie_echo_accept_failure_counter",
		}),
		BytesReceivedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eggie_echo_bytes_received_counter",
		}),
		BytesSentCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eggie_echo_bytes_sent_counter",
		}),
		InterestChangeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eggie_echo_interest_change_counter",
		}, []string{consts.LogFieldTo}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eggie_echo_active_connections",
		}),
	}

	mh.registry.MustRegister(
		mh.ConnectionAcceptCounter,
		mh.ConnectionCloseCounter,
		mh.AcceptFailureCounter,
		mh.BytesReceivedCounter,
		mh.BytesSentCounter,
		mh.InterestChangeCounter,
		mh.ActiveConnections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return mh
}

func (mh *MetricsHelper) Gatherer() prometheus.Gatherer {
	return mh.registry
}

// StartPusher 定期把指标推送到 pushgateway。推送在独立 goroutine 上进行，
// 只读取 collector，不触碰 registry 中的连接。
func (mh *MetricsHelper) StartPusher(url string, interval time.Duration) {
	pusher := push.New(url, consts.AppName).Gatherer(mh.registry)
	mh.pool.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-mh.stop:
				return
			case <-ticker.C:
				if err := pusher.Add(); err != nil {
					logs.Warn("prometheus pusher push failed", zap.Error(err))
				}
			}
		}
	})
}

func (mh *MetricsHelper) Stop() {
	mh.once.Do(func() {
		close(mh.stop)
	})
}

func (mh *MetricsHelper) OnAccept(*Connection) {
	mh.ConnectionAcceptCounter.Inc()
	mh.ActiveConnections.Inc()
}

func (mh *MetricsHelper) OnAcceptFailure(error) {
	mh.AcceptFailureCounter.Inc()
}

func (mh *MetricsHelper) OnReceive(_ *Connection, n int) {
	mh.BytesReceivedCounter.Add(float64(n))
}

func (mh *MetricsHelper) OnSend(_ *Connection, n int) {
	mh.BytesSentCounter.Add(float64(n))
}

func (mh *MetricsHelper) OnInterestChange(_ *Connection, _, to poller.Interest) {
	mh.InterestChangeCounter.WithLabelValues(to.String()).Inc()
}

func (mh *MetricsHelper) OnClose(_ *Connection, reason error) {
	mh.ConnectionCloseCounter.WithLabelValues(ReasonLabel(reason)).Inc()
	mh.ActiveConnections.Dec()
}

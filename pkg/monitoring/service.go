package monitoring

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	prometheus_metrics "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
)

const (
	MetricsNamespaceServer = "server"
	MetricsNamespaceAPI    = "api"
	scannerMetricsSubsystem = "scanner"
	platformMetricsSubsystem = "platform"
	apiMetricsSubsystem     = "api"
	hostLabel       = "host"
	outcomeLabel    = "outcome"
	taskLabel       = "task"
	ruleLabel       = "rule"
	// below is copy from go-http-metrics prometheus.go since they are not exposed publicly
	statusCodeLabel = "code"
	methodLabel     = "label"
	handlerIDLabel  = "handler"
	serviceLabel    = "service"
)

type Service struct {
	Registry               *prometheus.Registry
	fineAPIMiddleware      middleware.Middleware
	coarseServerMiddleware middleware.Middleware
	apiErrorCounter        *prometheus.CounterVec
	fetchOutcomeCounter    *prometheus.CounterVec
	sweepFailureCounter    *prometheus.CounterVec
	scanDurationHistogram  *prometheus.HistogramVec
	alertsSentCounter      *prometheus.CounterVec
	hitRatioGauge          *prometheus.GaugeVec
	sqliteHealthGauge      *prometheus.GaugeVec
	rankedHostGauge        *prometheus.GaugeVec
}

var _ common.PlatformMetrics = (*Service)(nil)
var _ common.APIMetrics = (*Service)(nil)

func traceID() string {
	return xid.New().String()
}

func Logged(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		ctx, _ := common.TraceContextFunc(r.Context(), traceID)

		// NOTE: these data (path, method, time) are now available as prometheus metrics
		slog.Log(ctx, common.LevelTrace, "Started request", "path", r.URL.Path, "method", r.Method)
		defer func() {
			slog.Log(ctx, common.LevelTrace, "Finished request", "path", r.URL.Path, "method", r.Method,
				"duration", time.Since(t).Milliseconds())
		}()

		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func Traced(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, tid := common.TraceContextFunc(r.Context(), traceID)
		headers := w.Header()
		headers[common.HeaderTraceID] = []string{tid}
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func NewService() *Service {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	apiErrorCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fine", // this is the same as fine http metrics below to match go-http-metrics logic
			Subsystem: apiMetricsSubsystem,
			Name:      "error_total",
			Help:      "Total number of read API errors",
		},
		[]string{handlerIDLabel, statusCodeLabel, methodLabel, serviceLabel},
	)
	reg.MustRegister(apiErrorCounter)

	fetchOutcomeCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespaceServer,
			Subsystem: scannerMetricsSubsystem,
			Name:      "fetch_outcome_total",
			Help:      "Outcome of instance HTTP fetches",
		},
		[]string{hostLabel, outcomeLabel},
	)
	reg.MustRegister(fetchOutcomeCounter)

	sweepFailureCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespaceServer,
			Subsystem: scannerMetricsSubsystem,
			Name:      "sweep_failure_total",
			Help:      "Number of scanner tasks that failed to complete",
		},
		[]string{taskLabel},
	)
	reg.MustRegister(sweepFailureCounter)

	scanDurationHistogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespaceServer,
			Subsystem: scannerMetricsSubsystem,
			Name:      "task_duration_seconds",
			Help:      "Duration of a scanner task sweep",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{taskLabel},
	)
	reg.MustRegister(scanDurationHistogram)

	alertsSentCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespaceServer,
			Subsystem: scannerMetricsSubsystem,
			Name:      "alerts_sent_total",
			Help:      "Number of alert mails sent",
		},
		[]string{ruleLabel},
	)
	reg.MustRegister(alertsSentCounter)

	sqliteHealthGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespaceServer,
			Subsystem: platformMetricsSubsystem,
			Name:      "health_sqlite",
			Help:      "Health status of the sqlite store",
		},
		[]string{},
	)
	reg.MustRegister(sqliteHealthGauge)

	hitRatioGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespaceServer,
			Subsystem: platformMetricsSubsystem,
			Name:      "cache_hit_ratio",
			Help:      "Version-check cache hit ratio",
		},
		[]string{},
	)
	reg.MustRegister(hitRatioGauge)

	rankedHostGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespaceServer,
			Subsystem: scannerMetricsSubsystem,
			Name:      "ranked_hosts",
			Help:      "Number of hosts in the latest ranking snapshot",
		},
		[]string{},
	)
	reg.MustRegister(rankedHostGauge)

	fineRecorder := prometheus_metrics.NewRecorder(prometheus_metrics.Config{
		Prefix:          "fine",
		Registry:        reg,
		DurationBuckets: []float64{.05, .1, .25, .5, 1, 2.5},
	})

	coarseRecorder := prometheus_metrics.NewRecorder(prometheus_metrics.Config{
		Prefix:          "coarse",
		Registry:        reg,
		DurationBuckets: []float64{.05, .1, .5, 1, 2.5},
	})

	return &Service{
		Registry: reg,
		fineAPIMiddleware: middleware.New(middleware.Config{
			// this is added as Service label
			Service:            MetricsNamespaceAPI,
			DisableMeasureSize: true,
			Recorder:           fineRecorder,
		}),
		coarseServerMiddleware: middleware.New(middleware.Config{
			// this is added as Service label
			Service:                MetricsNamespaceServer,
			GroupedStatus:          true,
			DisableMeasureSize:     true,
			DisableMeasureInflight: true,
			Recorder:               coarseRecorder,
		}),
		apiErrorCounter:       apiErrorCounter,
		fetchOutcomeCounter:   fetchOutcomeCounter,
		sweepFailureCounter:   sweepFailureCounter,
		scanDurationHistogram: scanDurationHistogram,
		alertsSentCounter:     alertsSentCounter,
		hitRatioGauge:         hitRatioGauge,
		sqliteHealthGauge:     sqliteHealthGauge,
		rankedHostGauge:       rankedHostGauge,
	}
}

// this belongs only to APIMetrics interface (at this time)
func (s *Service) Handler(h http.Handler) http.Handler {
	// handlerID is taken from the request path in this case
	return std.Handler("", s.fineAPIMiddleware, h)
}

func (s *Service) IgnoredHandler(h http.Handler) http.Handler {
	return std.Handler("_ignored", s.coarseServerMiddleware, h)
}

func (s *Service) ObserveApiError(handlerID string, method string, code int) {
	s.apiErrorCounter.With(prometheus.Labels{
		handlerIDLabel:  handlerID,
		statusCodeLabel: strconv.Itoa(code),
		methodLabel:     method,
		serviceLabel:    MetricsNamespaceAPI,
	}).Inc()
}

func (s *Service) ObserveFetchOutcome(host, outcome string) {
	s.fetchOutcomeCounter.With(prometheus.Labels{
		hostLabel:    host,
		outcomeLabel: outcome,
	}).Inc()
}

func (s *Service) ObserveSweepFailure(task string) {
	s.sweepFailureCounter.With(prometheus.Labels{taskLabel: task}).Inc()
}

func (s *Service) ObserveScanDuration(task string, d time.Duration) {
	s.scanDurationHistogram.With(prometheus.Labels{taskLabel: task}).Observe(d.Seconds())
}

func (s *Service) ObserveAlertSent(rule string) {
	s.alertsSentCounter.With(prometheus.Labels{ruleLabel: rule}).Inc()
}

func (s *Service) ObserveRankedHosts(count int) {
	s.rankedHostGauge.With(prometheus.Labels{}).Set(float64(count))
}

func (s *Service) ObserveCacheHitRatio(ratio float64) {
	s.hitRatioGauge.With(prometheus.Labels{}).Set(ratio)
}

func (s *Service) ObserveHealth(sqliteUp bool) {
	var val float64
	if sqliteUp {
		val = 1
	}

	s.sqliteHealthGauge.With(prometheus.Labels{}).Set(val)
}

func (s *Service) Setup(mux *http.ServeMux) {
	mux.Handle(http.MethodGet+" /metrics", common.Recovered(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})))
	s.setupProfiling(mux)
}

func (s *Service) setupProfiling(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
}

package dashboard

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dashcast/dashcast/pipeline"
	"github.com/dashcast/dashcast/series"
	"github.com/dashcast/dashcast/stocks"
	"github.com/dashcast/dashcast/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the dashboards
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	FitDuration     prometheus.Histogram
	BandAnomalies   prometheus.Counter
	PipelineErrors  *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashcast_http_requests_total",
				Help: "Number of HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashcast_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		FitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashcast_forecast_fit_duration_seconds",
			Help:    "Duration of forecast model fits",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		BandAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Name: "dashcast_forecast_band_anomalies_total",
			Help: "Number of forecast rows whose band did not contain the point forecast",
		}),
		PipelineErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashcast_pipeline_errors_total",
				Help: "Number of failed dashboard requests by error kind",
			},
			[]string{"kind"},
		),
	}
}

// Handler serves the collectors of gatherer in the Prometheus text format
func (m *Metrics) Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(route string, status int, dur time.Duration) {
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(dur.Seconds())
}

func (m *Metrics) observeResult(res *pipeline.Result) {
	m.FitDuration.Observe(res.FitDuration.Seconds())
	m.BandAnomalies.Add(float64(res.BandAnomalies))
}

func (m *Metrics) observeError(err error) {
	m.PipelineErrors.WithLabelValues(errorKind(err)).Inc()
}

// errorKind names the error for the pipeline error counter
func errorKind(err error) string {
	switch {
	case errors.Is(err, table.ErrUnsupportedFileFormat):
		return "unsupported_file_format"
	case errors.Is(err, table.ErrEmptyTable):
		return "empty_table"
	case errors.Is(err, series.ErrMissingColumn):
		return "missing_column"
	case errors.Is(err, series.ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, series.ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, series.ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, pipeline.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, pipeline.ErrInvalidHorizon):
		return "invalid_horizon"
	case errors.Is(err, pipeline.ErrEmptyComparisonSet):
		return "empty_comparison_set"
	case errors.Is(err, stocks.ErrNoData):
		return "no_stock_data"
	case errors.Is(err, stocks.ErrUpstream):
		return "stock_upstream"
	case errors.Is(err, ErrInvalidForm):
		return "invalid_form"
	}
	return "internal"
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gin-gonic/gin"
)

type MetricsMiddleware struct {
	requestCounter     *metrics.Counter
	responseTimeHist   *metrics.Histogram
	requestSizeHist    *metrics.Histogram
	responseSizeHist   *metrics.Histogram
	statusCodeCounters map[int]*metrics.Counter
	screeningsCounter  *metrics.Counter
}

// NewMetricsMiddleware registers the HTTP metrics. GetOrCreate keeps
// repeated construction (tests, restarts of the router) from panicking
// on duplicate registration.
func NewMetricsMiddleware() *MetricsMiddleware {
	m := &MetricsMiddleware{
		requestCounter:     metrics.GetOrCreateCounter("http_requests_total"),
		responseTimeHist:   metrics.GetOrCreateHistogram("http_response_time_seconds"),
		requestSizeHist:    metrics.GetOrCreateHistogram("http_request_size_bytes"),
		responseSizeHist:   metrics.GetOrCreateHistogram("http_response_size_bytes"),
		statusCodeCounters: make(map[int]*metrics.Counter),
		screeningsCounter:  metrics.GetOrCreateCounter("screening_requests_total"),
	}

	// Initialize status code counters for the codes the API produces
	for _, code := range []int{200, 202, 400, 401, 404, 409, 500, 502, 503} {
		m.statusCodeCounters[code] = metrics.GetOrCreateCounter(
			"http_response_status_total{code=\"" + strconv.Itoa(code) + "\"}",
		)
	}

	return m
}

// WithMetrics records request/response sizes, latency and status codes
// for every request, plus a dedicated counter for screening calls.
func (m *MetricsMiddleware) WithMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		if c.Request.ContentLength > 0 {
			m.requestSizeHist.Update(float64(c.Request.ContentLength))
		}
		m.requestCounter.Inc()

		c.Next()

		m.responseTimeHist.Update(time.Since(start).Seconds())

		if counter, exists := m.statusCodeCounters[c.Writer.Status()]; exists {
			counter.Inc()
		}
		if size := c.Writer.Size(); size > 0 {
			m.responseSizeHist.Update(float64(size))
		}

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/screen") || strings.HasPrefix(path, "/api/v1/screen") {
			m.screeningsCounter.Inc()
		}
	}
}

func (m *MetricsMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w, true)
}

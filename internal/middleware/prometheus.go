package middleware

import (
	"strconv"
	"time"

	"sdgallery/internal/metrics"

	"github.com/labstack/echo/v4"
)

// PrometheusMetrics пишет счётчик и длительность запросов. c.Path()
// возвращает шаблон маршрута (/images/:id), поэтому uuid не раздувают
// кардинальность меток.
func PrometheusMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start).Seconds()

		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
			status = he.Code
		}

		path := c.Path()
		if path == "" {
			path = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request().Method,
			path,
			strconv.Itoa(status),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request().Method,
			path,
		).Observe(duration)

		return err
	}
}

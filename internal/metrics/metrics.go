package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdgallery_http_requests_total",
			Help: "Общее количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdgallery_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// StoreOperations считает мутации и загрузки хранилища изображений
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdgallery_store_operations_total",
			Help: "Операции над локальным хранилищем изображений",
		},
		[]string{"op", "result"},
	)

	RenderJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdgallery_render_jobs_total",
			Help: "Задания отрисовки страницы галереи по исходу",
		},
		[]string{"result"},
	)

	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdgallery_backend_requests_total",
			Help: "Запросы к API генерации",
		},
		[]string{"endpoint", "status"},
	)
)

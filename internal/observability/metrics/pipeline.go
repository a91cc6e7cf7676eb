package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

type PipelineMetrics struct {
	registry *prometheus.Registry

	ingestTotal        *prometheus.CounterVec
	ingestDuration     *prometheus.HistogramVec
	ingestInFlight     prometheus.Gauge
	chunksCreated      *prometheus.CounterVec
	vectorsStored      *prometheus.CounterVec
	duplicatesSkipped  *prometheus.CounterVec
	degradedEmbeddings *prometheus.CounterVec
	retrievalDuration  *prometheus.HistogramVec
	retrievedResults   *prometheus.HistogramVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kp",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total ingested documents by status.",
		},
		[]string{"service", "status"},
	)
	ingestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kp",
			Subsystem: "ingest",
			Name:      "document_duration_seconds",
			Help:      "Document ingestion duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	ingestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kp",
			Subsystem: "ingest",
			Name:      "documents_in_flight",
			Help:      "Number of documents currently being ingested.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunksCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kp",
			Subsystem: "ingest",
			Name:      "chunks_created_total",
			Help:      "Total chunks produced by segmentation.",
		},
		[]string{"service"},
	)
	vectorsStored := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kp",
			Subsystem: "ingest",
			Name:      "vectors_stored_total",
			Help:      "Total vectors written to the store.",
		},
		[]string{"service"},
	)
	duplicatesSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kp",
			Subsystem: "ingest",
			Name:      "duplicates_skipped_total",
			Help:      "Total chunks skipped because an identical point was already stored.",
		},
		[]string{"service"},
	)
	degradedEmbeddings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kp",
			Subsystem: "ingest",
			Name:      "degraded_embeddings_total",
			Help:      "Total chunks stored with placeholder embeddings.",
		},
		[]string{"service"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kp",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievedResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kp",
			Subsystem: "retrieval",
			Name:      "results",
			Help:      "Distribution of returned results per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		ingestTotal,
		ingestDuration,
		ingestInFlight,
		chunksCreated,
		vectorsStored,
		duplicatesSkipped,
		degradedEmbeddings,
		retrievalDuration,
		retrievedResults,
	)

	return &PipelineMetrics{
		registry:           registry,
		ingestTotal:        ingestTotal,
		ingestDuration:     ingestDuration,
		ingestInFlight:     ingestInFlight,
		chunksCreated:      chunksCreated,
		vectorsStored:      vectorsStored,
		duplicatesSkipped:  duplicatesSkipped,
		degradedEmbeddings: degradedEmbeddings,
		retrievalDuration:  retrievalDuration,
		retrievedResults:   retrievedResults,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartDocument() {
	m.ingestInFlight.Inc()
}

func (m *PipelineMetrics) FinishDocument(service string, report domain.IngestionReport, err error) {
	m.ingestInFlight.Dec()

	status := "success"
	if err != nil || report.Failed() {
		status = "error"
	}

	m.ingestTotal.WithLabelValues(service, status).Inc()
	m.ingestDuration.WithLabelValues(service, status).Observe(report.Duration.Seconds())
	m.chunksCreated.WithLabelValues(service).Add(float64(report.ChunksCreated))
	m.vectorsStored.WithLabelValues(service).Add(float64(report.VectorsStored))
	m.duplicatesSkipped.WithLabelValues(service).Add(float64(report.SkippedDuplicates))
	m.degradedEmbeddings.WithLabelValues(service).Add(float64(report.DegradedEmbeddings))
}

func (m *PipelineMetrics) ObserveRetrieval(service string, resultCount int, duration time.Duration) {
	m.retrievalDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.retrievedResults.WithLabelValues(service).Observe(float64(resultCount))
}

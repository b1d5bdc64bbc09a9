// Package metrics exposes Prometheus collectors for validations and loads.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "validadores_"

	// ResultValid labels an accepted document.
	ResultValid = "valido"

	// ResultInvalid labels a document refused by its collection rule.
	ResultInvalid = "invalido"

	// ResultDuplicate labels a document whose _id was already stored.
	ResultDuplicate = "duplicado"

	// ResultNotFound labels a replacement whose _id is not stored.
	ResultNotFound = "inexistente"

	// ResultError labels any other failure.
	ResultError = "erro"
)

var (
	registerOnce sync.Once

	validations   *prometheus.CounterVec
	insertLatency *prometheus.HistogramVec
	loadDocuments *prometheus.CounterVec
	loadStatus    prometheus.Gauge
)

// Init registers the collectors on the default registry.
func Init() {
	registerOnce.Do(func() {
		validations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validacoes_total",
				Help: "Total document validations by collection and result",
			},
			[]string{"colecao", "resultado"},
		)
		insertLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "insercao_latencia_segundos",
				Help:    "Insert latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"colecao", "resultado"},
		)
		loadDocuments = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "carga_documentos_total",
				Help: "Documents handled by load jobs by collection and result",
			},
			[]string{"colecao", "resultado"},
		)
		loadStatus = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "carga_status",
				Help: "Current load job status (0 idle, 1 collecting, 2 processing)",
			},
		)
		prometheus.MustRegister(validations, insertLatency, loadDocuments, loadStatus)
	})
}

// ObserveValidation counts one validation.
func ObserveValidation(collection string, valid bool) {
	if validations == nil {
		return
	}
	result := ResultValid
	if !valid {
		result = ResultInvalid
	}
	validations.WithLabelValues(collection, result).Inc()
}

// ObserveInsert records an insert or replacement and its outcome.
func ObserveInsert(collection, result string, duration time.Duration) {
	if insertLatency == nil {
		return
	}
	insertLatency.WithLabelValues(collection, result).Observe(duration.Seconds())
}

// AddLoad counts the documents a load job inserted and rejected.
func AddLoad(collection string, inserted, rejected int) {
	if loadDocuments == nil {
		return
	}
	loadDocuments.WithLabelValues(collection, ResultValid).Add(float64(inserted))
	loadDocuments.WithLabelValues(collection, ResultInvalid).Add(float64(rejected))
}

// SetLoadStatus publishes the load job state.
func SetLoadStatus(status int) {
	if loadStatus == nil {
		return
	}
	loadStatus.Set(float64(status))
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "adocstore", Name: "ingest_total", Help: "Document ingestions by result."},
		[]string{"result"},
	)
	RetrievalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "adocstore", Name: "retrieval_total", Help: "Document reads by operation and result."},
		[]string{"op", "result"},
	)
	RateLimitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "adocstore", Name: "rate_limit_total", Help: "Rate limiter decisions by limiter type."},
		[]string{"limiter", "result"},
	)
	UntranslatedDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "adocstore", Name: "untranslated_documents", Help: "Documents without a translation seen by the last audit."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(IngestTotal)
	reg.MustRegister(RetrievalTotal)
	reg.MustRegister(RateLimitTotal)
	reg.MustRegister(UntranslatedDocuments)
}

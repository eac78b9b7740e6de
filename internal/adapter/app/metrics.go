package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookPayloadsReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gupshup_adapter",
			Name:      "webhook_payloads_received_total",
			Help:      "Total inbound webhook payloads received.",
		},
		[]string{"type"},
	)

	inboundTranslatedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gupshup_adapter",
			Name:      "inbound_translated_total",
			Help:      "Total inbound payloads translated to canonical messages.",
		},
		[]string{"outcome"}, // "translated", "skipped", "error"
	)

	outboundProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gupshup_adapter",
			Name:      "outbound_processed_total",
			Help:      "Total outbound canonical messages processed.",
		},
		[]string{"outcome"}, // "sent", "skipped", "error"
	)

	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gupshup_adapter",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of outbound provider round trips.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"state"},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsStored tracks the number of distinct connections per database.
	ConnectionsStored = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transit_connections_stored",
			Help: "Number of distinct connections stored in the connections database",
		},
		[]string{"database"},
	)

	ConnectionWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_connection_writes_total",
			Help: "Number of AddOrUpdate calls against the connections database",
		},
		[]string{"database"},
	)
)

var (
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transit_query_duration_seconds",
			Help:    "Wall time spent answering one journey query",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"kind"},
	)

	ConnectionsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_connections_scanned_total",
			Help: "Number of connections the scanners consumed from the departure enumerator",
		},
		[]string{"kind"},
	)

	JourneysFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_journeys_found_total",
			Help: "Number of journeys returned to callers",
		},
		[]string{"kind"},
	)

	QueriesTruncated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_queries_truncated_total",
			Help: "Number of queries cut short by their deadline",
		},
		[]string{"kind"},
	)
)

var (
	FeedRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_feed_refreshes_total",
			Help: "Feed ingestion attempts by outcome (success or failure)",
		},
		[]string{"feed", "outcome"},
	)

	FeedConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transit_feed_connections",
			Help: "Number of connections the last ingestion run produced for a feed",
		},
		[]string{"feed"},
	)

	FeedStops = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transit_feed_stops",
			Help: "Number of stops registered from a feed",
		},
		[]string{"feed"},
	)

	RealtimeUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_realtime_updates_total",
			Help: "Connections rewritten from realtime trip updates",
		},
		[]string{"feed"},
	)
)

var (
	OutgoingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transit_outgoing_request_duration_seconds",
			Help:    "Latency of outgoing HTTP requests to feed and config endpoints",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"url", "method", "status"},
	)
)

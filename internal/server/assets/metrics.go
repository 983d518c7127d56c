package assets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// promotionsTotal counts Promote outcomes by result.
	promotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallerist_asset_promotions_total",
			Help: "Asset promotions by result",
		},
		[]string{"result"},
	)

	cleanupFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallerist_asset_cleanup_failures_total",
			Help: "Post-commit asset cleanup actions that failed",
		},
		[]string{"op"},
	)

	signFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallerist_asset_sign_fallbacks_total",
			Help: "View capabilities that could not be minted and fell back to the unsigned reference",
		},
	)

	storeCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallerist_object_store_call_duration_seconds",
			Help:    "Duration of object store calls made by the lifecycle manager",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

const (
	resultPromoted      = "promoted"
	resultAlreadyFinal  = "already_permanent"
	resultSourceMissing = "source_missing"
	resultVerified      = "verified"
	resultError         = "error"
)

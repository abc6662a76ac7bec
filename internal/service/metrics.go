package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 写冲突类型
const (
	conflictSibling = "sibling"
	conflictRename  = "rename"
	conflictQrClaim = "qr_claim"
)

var (
	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxatlas",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of rejected writes broken down by conflict kind.",
	}, []string{"kind"})

	cascadeUnassignedBoxes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boxatlas",
		Subsystem: "location",
		Name:      "cascade_unassigned_boxes_total",
		Help:      "Total number of boxes unassigned because their location was deleted.",
	})

	qrCodesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boxatlas",
		Subsystem: "qr",
		Name:      "codes_generated_total",
		Help:      "Total number of QR codes generated.",
	})

	membershipCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxatlas",
		Subsystem: "membership_cache",
		Name:      "requests_total",
		Help:      "Total number of membership cache lookups broken down by hit/miss/error.",
	}, []string{"result"})
)

func recordWriteConflict(kind string) {
	writeConflicts.WithLabelValues(kind).Inc()
}

func recordMembershipCache(result string) {
	membershipCacheRequests.WithLabelValues(result).Inc()
}

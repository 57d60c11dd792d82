package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rayzum/internal/store"
)

var integrityGauges = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "rayzum",
		Subsystem: "integrity",
		Name:      "dangling_refs",
		Help:      "巡检统计出的悬空/陈旧引用数量。",
	},
	[]string{"owner_id", "kind"},
)

// RecordIntegrityReport 将一次巡检结果写入指标。
func RecordIntegrityReport(ownerID uint, report *store.IntegrityReport) {
	owner := strconv.FormatUint(uint64(ownerID), 10)
	integrityGauges.WithLabelValues(owner, "name_ref").Set(float64(report.DanglingNameRefs))
	integrityGauges.WithLabelValues(owner, "phone_ref").Set(float64(report.DanglingPhoneRefs))
	integrityGauges.WithLabelValues(owner, "email_ref").Set(float64(report.DanglingEmailRefs))
	integrityGauges.WithLabelValues(owner, "stale_highlight").Set(float64(report.StaleHighlightRefs))
	integrityGauges.WithLabelValues(owner, "orphan_instance").Set(float64(report.OrphanInstances))
	integrityGauges.WithLabelValues(owner, "orphan_education_link").Set(float64(report.OrphanEducationLinks))
}

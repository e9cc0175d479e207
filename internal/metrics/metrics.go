package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tuplan"

// Registry holds every TuPlan metric and backs the /metrics endpoint.
var Registry = prometheus.NewRegistry()

// AppInfo is always 1; the build is described by its labels.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// PolicyDenialsTotal counts requests refused by the access policy.
var PolicyDenialsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_denials_total",
		Help:      "Total number of operations refused by the access policy",
	},
	[]string{"operation", "role", "kind"}, // kind: forbidden|invalid_role|missing_scope
)

var registerRuntime sync.Once

// Init registers the Go and process collectors and publishes build info. It
// is safe to call more than once.
func Init(version, commit, buildDate string) {
	registerRuntime.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	AppInfo.Reset()
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}

func RecordPolicyDenial(operation, role, kind string) {
	if role == "" {
		role = "unknown"
	}
	PolicyDenialsTotal.WithLabelValues(operation, role, kind).Inc()
}

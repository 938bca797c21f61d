package livesync

import "github.com/prometheus/client_golang/prometheus"

var (
	batchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livesync_batches_total",
		Help: "Sync batches started.",
	})

	// matchSyncsTotal counts per-match outcomes; result is "ok" or "error".
	matchSyncsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livesync_match_syncs_total",
		Help: "Per-match sync passes by result.",
	}, []string{"result"})

	entriesInsertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livesync_entries_inserted_total",
		Help: "Live-blog entries written by the sync engine.",
	})

	transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livesync_transitions_total",
		Help: "Status transitions detected, by action.",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(batchesTotal, matchSyncsTotal, entriesInsertedTotal, transitionsTotal)
}

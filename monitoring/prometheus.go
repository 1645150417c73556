package monitoring

import (
	"net/http"
	"time"

	"github.com/mezonai/ledgerstore/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CatchUpOutcome string

var (
	CatchUpNoop   CatchUpOutcome = "noop"
	CatchUpSynced CatchUpOutcome = "synced"
	CatchUpFailed CatchUpOutcome = "failed"
)

// Role labels metrics of primary and secondary ledgers opened in one process
type Role string

var (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

type ledgerPromMetrics struct {
	upUnixSeconds    prometheus.Gauge
	blockHeight      *prometheus.GaugeVec
	commitmentCount  *prometheus.GaugeVec
	catchUpCount     *prometheus.CounterVec
	treeRebuildTime  prometheus.Histogram
	insertedBlocks   prometheus.Counter
	commitmentsInBlk prometheus.Histogram
	panicCount       prometheus.Counter
}

func newLedgerPromMetrics() *ledgerPromMetrics {
	return &ledgerPromMetrics{
		upUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledgerstore_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the process start",
			},
		),
		blockHeight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ledgerstore_block_height",
				Help: "The in-memory block height of the ledger",
			},
			[]string{"role"},
		),
		commitmentCount: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ledgerstore_commitment_tree_leaves",
				Help: "Number of leaves in the published commitment tree",
			},
			[]string{"role"},
		),
		catchUpCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerstore_secondary_catch_up_count",
				Help: "Secondary catch-up attempts by outcome",
			},
			[]string{"outcome"},
		),
		treeRebuildTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "ledgerstore_tree_rebuild_seconds",
				Help: "Duration of a full commitment rescan and tree rebuild",
			},
		),
		insertedBlocks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ledgerstore_inserted_block_count",
				Help: "The total number of blocks written by this process",
			},
		),
		commitmentsInBlk: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "ledgerstore_commitments_in_block",
				Help: "Number of commitments created by an inserted block",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ledgerstore_panic_count",
				Help: "The total number of recovered panics",
			},
		),
	}
}

// Collectors register with the default registry once, so recording before
// InitMetrics is safe.
var ledgerMetrics = newLedgerPromMetrics()

// InitMetrics stamps the start time. Metrics are exposed by RegisterMetrics.
func InitMetrics() {
	ledgerMetrics.upUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetBlockHeight(role Role, blockHeight uint32) {
	ledgerMetrics.blockHeight.With(prometheus.Labels{"role": string(role)}).Set(float64(blockHeight))
}

func SetCommitmentCount(role Role, count int) {
	ledgerMetrics.commitmentCount.With(prometheus.Labels{"role": string(role)}).Set(float64(count))
}

func RecordCatchUp(outcome CatchUpOutcome) {
	ledgerMetrics.catchUpCount.With(prometheus.Labels{
		"outcome": string(outcome),
	}).Inc()
}

func RecordTreeRebuild(duration time.Duration) {
	ledgerMetrics.treeRebuildTime.Observe(duration.Seconds())
}

func RecordInsertedBlock(commitments int) {
	ledgerMetrics.insertedBlocks.Inc()
	ledgerMetrics.commitmentsInBlk.Observe(float64(commitments))
}

func IncreasePanicCount() {
	ledgerMetrics.panicCount.Inc()
}

package observability

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Placement labels for BlobBytes.
const (
	PlacementAttribute = "attribute"
	PlacementDataset   = "dataset"
)

var set = metrics.NewSet()

// CountDump records one dispatched dump for the given handler family.
func CountDump(family string) {
	set.GetOrCreateCounter(fmt.Sprintf(`hpickle_dump_total{family=%q}`, family)).Inc()
}

// CountLoad records one dispatched load for the given handler family.
func CountLoad(family string) {
	set.GetOrCreateCounter(fmt.Sprintf(`hpickle_load_total{family=%q}`, family)).Inc()
}

// BlobBytes records n opaque blob bytes written with the given placement.
func BlobBytes(placement string, n int) {
	set.GetOrCreateCounter(fmt.Sprintf(`hpickle_blob_bytes_total{placement=%q}`, placement)).Add(n)
}

// CountCommit records one committed container for the given backend.
func CountCommit(backend string) {
	set.GetOrCreateCounter(fmt.Sprintf(`hpickle_commit_total{backend=%q}`, backend)).Inc()
}

// Counter returns the current value of a counter, 0 if it was never touched.
func Counter(name string) uint64 {
	return set.GetOrCreateCounter(name).Get()
}

// WritePrometheus writes all hpickle metrics in Prometheus text format.
func WritePrometheus(w io.Writer) {
	set.WritePrometheus(w)
}

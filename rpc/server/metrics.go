package server

import (
	"fmt"
	"io"
	"sort"

	"github.com/ValentinKolb/mkv/lib/middleware/cache"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/store"
	gometrics "github.com/rcrowley/go-metrics"
)

// WriteMetrics writes all metrics of the server in the Prometheus text format:
// request counters of the server, call timers of every store and the metrics
// of every cache
func (s *RPCServer) WriteMetrics(w io.Writer) {
	s.metrics.WritePrometheus(w)

	var names []string
	s.collections.Range(func(name string, _ *store.Store) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)

	for _, name := range names {
		st, ok := s.collections.Load(name)
		if !ok {
			continue
		}
		writeStoreMetrics(w, st)

		if mw, err := st.Middleware(cache.Name); err == nil {
			if c, ok := mw.(*cache.Middleware); ok && c.Metrics() != nil {
				c.Metrics().WritePrometheus(w)
			}
		}
	}
}

// writeStoreMetrics converts the go-metrics timers of a store into prometheus lines
func writeStoreMetrics(w io.Writer, st *store.Store) {
	registry := st.Registry()
	prefix := "store." + st.Name() + "."

	for _, m := range payload.Methods {
		timer, ok := registry.Get(prefix + string(m)).(gometrics.Timer)
		if !ok || timer.Count() == 0 {
			continue
		}
		snap := timer.Snapshot()
		labels := fmt.Sprintf(`{store=%q,method=%q}`, st.Name(), m)
		fmt.Fprintf(w, "mkv_store_calls_total%s %d\n", labels, snap.Count())
		fmt.Fprintf(w, "mkv_store_call_duration_seconds_mean%s %g\n", labels, snap.Mean()/1e9)
		fmt.Fprintf(w, "mkv_store_call_duration_seconds_p99%s %g\n", labels, snap.Percentile(0.99)/1e9)
	}

	if meter, ok := registry.Get(prefix + "errors").(gometrics.Meter); ok {
		fmt.Fprintf(w, "mkv_store_errors_total{store=%q} %d\n", st.Name(), meter.Count())
	}
}

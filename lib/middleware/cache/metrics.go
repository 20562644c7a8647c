package cache

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// Eviction reasons, used as metric label
const (
	reasonExpired  = "expired"
	reasonOverflow = "overflow"
	reasonDeleted  = "deleted"
	reasonInvalid  = "invalid"
)

// cacheMetrics holds the metrics of one cache middleware
type cacheMetrics struct {
	set       *metrics.Set
	hits      *metrics.Counter
	misses    *metrics.Counter
	evictions map[string]*metrics.Counter
}

func newMetrics(store string, size func() float64) *cacheMetrics {
	set := metrics.NewSet()
	m := &cacheMetrics{
		set:       set,
		hits:      set.NewCounter(fmt.Sprintf(`mkv_cache_hits_total{store=%q}`, store)),
		misses:    set.NewCounter(fmt.Sprintf(`mkv_cache_misses_total{store=%q}`, store)),
		evictions: make(map[string]*metrics.Counter),
	}
	for _, reason := range []string{reasonExpired, reasonOverflow, reasonDeleted, reasonInvalid} {
		m.evictions[reason] = set.NewCounter(fmt.Sprintf(`mkv_cache_evictions_total{store=%q,reason=%q}`, store, reason))
	}
	set.NewGauge(fmt.Sprintf(`mkv_cache_entries{store=%q}`, store), size)
	return m
}

func (m *cacheMetrics) evicted(reason string) {
	m.evictions[reason].Inc()
}

// Stats is a point in time view of the cache counters
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions map[string]uint64
	Size      int
}

// HitRate returns the ratio of hits to all lookups
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

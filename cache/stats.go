package cache

// Stats is a point-in-time snapshot of one cache's counters.
type Stats struct {
	Hits   uint64
	Misses uint64
	// HitRate is Hits/(Hits+Misses)*100, or 0 before the first Get.
	HitRate float64

	// TotalSize is the summed size of every resident entry, in bytes.
	TotalSize int64
	// MaxSize is the budget in bytes.
	MaxSize    int64
	EntryCount int

	// Evictions counts entries removed to satisfy the size budget.
	Evictions uint64
	// Expirations counts entries removed because their TTL elapsed.
	Expirations uint64
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// add accumulates o into s and recomputes the hit rate.
func (s Stats) add(o Stats) Stats {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.TotalSize += o.TotalSize
	s.MaxSize += o.MaxSize
	s.EntryCount += o.EntryCount
	s.Evictions += o.Evictions
	s.Expirations += o.Expirations
	s.HitRate = hitRate(s.Hits, s.Misses)
	return s
}

package memory

import "sync/atomic"

type poolCounters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	flushes   atomic.Uint64
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Capacity    int
	Resident    int
	Dirty       int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Flushes     uint64
	LiveWriters int
}

// HitRatio is hits over total lookups, 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (bp *BufferPool) Stats() Stats {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	return Stats{
		Capacity:    bp.opts.MaxPages,
		Resident:    bp.cache.Size(),
		Dirty:       bp.dirtyCountLocked(),
		Hits:        bp.stats.hits.Load(),
		Misses:      bp.stats.misses.Load(),
		Evictions:   bp.stats.evictions.Load(),
		Flushes:     bp.stats.flushes.Load(),
		LiveWriters: len(bp.dirtyPages),
	}
}

func (bp *BufferPool) dirtyCountLocked() int {
	n := 0
	for _, pages := range bp.dirtyPages {
		n += len(pages)
	}
	return n
}

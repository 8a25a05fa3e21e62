package engine

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of the operation counters.
type Stats struct {
	GetCount uint64
	PutCount uint64

	AvgGetMicros float64
	AvgPutMicros float64

	MaxGetMicros uint64
	MaxPutMicros uint64
}

// counters are updated outside the tree's lock with relaxed atomics;
// they order nothing.
type counters struct {
	getCount       atomic.Uint64
	putCount       atomic.Uint64
	totalGetMicros atomic.Uint64
	totalPutMicros atomic.Uint64
	maxGetMicros   atomic.Uint64
	maxPutMicros   atomic.Uint64
}

func (c *counters) recordGet(d time.Duration) {
	us := uint64(d.Microseconds())

	c.getCount.Add(1)
	c.totalGetMicros.Add(us)
	storeMax(&c.maxGetMicros, us)
}

func (c *counters) recordPut(d time.Duration) {
	us := uint64(d.Microseconds())

	c.putCount.Add(1)
	c.totalPutMicros.Add(us)
	storeMax(&c.maxPutMicros, us)
}

func (c *counters) snapshot() Stats {
	s := Stats{
		GetCount:     c.getCount.Load(),
		PutCount:     c.putCount.Load(),
		MaxGetMicros: c.maxGetMicros.Load(),
		MaxPutMicros: c.maxPutMicros.Load(),
	}

	if s.GetCount > 0 {
		s.AvgGetMicros = float64(c.totalGetMicros.Load()) / float64(s.GetCount)
	}
	if s.PutCount > 0 {
		s.AvgPutMicros = float64(c.totalPutMicros.Load()) / float64(s.PutCount)
	}

	return s
}

func storeMax(a *atomic.Uint64, v uint64) {
	for {
		cur := a.Load()
		if v <= cur || a.CompareAndSwap(cur, v) {
			return
		}
	}
}

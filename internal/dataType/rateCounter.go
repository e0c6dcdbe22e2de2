package dataType

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// timeSegment holds the count for one second of a key's ring.
type timeSegment struct {
	timestamp int64
	count     int64
}

type counterElement struct {
	segments    []timeSegment
	lastUpdated int64
}

func newCounterElement(size int64) *counterElement {
	return &counterElement{segments: make([]timeSegment, size)}
}

func (c *counterElement) add(ts int64, value int64) {
	idx := ts % int64(len(c.segments))
	if c.segments[idx].timestamp != ts {
		c.segments[idx] = timeSegment{timestamp: ts, count: value}
	} else {
		c.segments[idx].count += value
	}
	c.lastUpdated = ts
}

// sum adds the counts of the last lastN seconds up to and including now.
func (c *counterElement) sum(lastN int64, now int64) int64 {
	size := int64(len(c.segments))
	if lastN > size {
		lastN = size
	}
	var total int64
	for sec := now - lastN + 1; sec <= now; sec++ {
		seg := c.segments[sec%size]
		if seg.timestamp == sec {
			total += seg.count
		}
	}
	return total
}

type counterBucket struct {
	mu       sync.RWMutex
	counters map[uint64]*counterElement
}

// Counter is a sliding-window event counter keyed by string. Keys are spread over
// buckets by xxhash so concurrent requests for different IPs rarely contend.
type Counter struct {
	buckets []*counterBucket
	segSize int64
	now     func() time.Time
}

// NewCounter creates a counter able to answer windows of up to size seconds.
func NewCounter(bucketCount int, size int64) *Counter {
	if bucketCount < 1 {
		bucketCount = 1
	}
	if size < 1 {
		size = 1
	}
	tc := &Counter{
		buckets: make([]*counterBucket, bucketCount),
		segSize: size,
		now:     time.Now,
	}
	for i := range tc.buckets {
		tc.buckets[i] = &counterBucket{counters: make(map[uint64]*counterElement)}
	}
	return tc
}

// WithClock replaces the time source; used by tests.
func (tc *Counter) WithClock(now func() time.Time) *Counter {
	tc.now = now
	return tc
}

func (tc *Counter) locate(key string) (*counterBucket, uint64) {
	h := xxhash.Sum64String(key)
	return tc.buckets[h%uint64(len(tc.buckets))], h
}

func (tc *Counter) Add(key string, value int64) {
	now := tc.now().Unix()
	bucket, hashKey := tc.locate(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	counter, exists := bucket.counters[hashKey]
	if !exists {
		counter = newCounterElement(tc.segSize)
		bucket.counters[hashKey] = counter
	}
	counter.add(now, value)
}

// Query returns the number of events for key in the last lastN seconds.
func (tc *Counter) Query(key string, lastN int64) int64 {
	now := tc.now().Unix()
	bucket, hashKey := tc.locate(key)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()
	if counter, exists := bucket.counters[hashKey]; exists {
		return counter.sum(lastN, now)
	}
	return 0
}

func (tc *Counter) Reset(key string) {
	bucket, hashKey := tc.locate(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	delete(bucket.counters, hashKey)
}

// GC drops keys that have not been updated for a full window.
func (tc *Counter) GC() {
	expireThreshold := tc.now().Unix() - tc.segSize
	for _, bucket := range tc.buckets {
		bucket.mu.Lock()
		for key, counter := range bucket.counters {
			if counter.lastUpdated < expireThreshold {
				delete(bucket.counters, key)
			}
		}
		bucket.mu.Unlock()
	}
}

func StartCounterGC(counter *Counter, interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			counter.GC()
		case <-stopCh:
			return
		}
	}
}

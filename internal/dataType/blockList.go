package dataType

import (
	"sync"
	"time"
)

// BlockList holds temporarily blocked IPs. Expirations are also filed in
// per-second buckets so Cleanup only touches the seconds that have passed.
type BlockList struct {
	mu         sync.RWMutex
	blockedIPs map[string]int64
	buckets    map[int64][]string
	lastCheck  int64
	now        func() time.Time
}

func NewBlockList() *BlockList {
	return NewBlockListWithClock(time.Now)
}

func NewBlockListWithClock(now func() time.Time) *BlockList {
	return &BlockList{
		blockedIPs: make(map[string]int64),
		buckets:    make(map[int64][]string),
		lastCheck:  now().Unix(),
		now:        now,
	}
}

// Block blocks ip for duration seconds. An existing longer block is kept.
func (bl *BlockList) Block(ip string, duration int64) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	expiration := bl.now().Unix() + duration
	if existingExp, exists := bl.blockedIPs[ip]; exists && existingExp >= expiration {
		return
	}

	bl.blockedIPs[ip] = expiration
	bl.buckets[expiration] = append(bl.buckets[expiration], ip)
}

func (bl *BlockList) IsBlocked(ip string) bool {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	expiration, exists := bl.blockedIPs[ip]
	if !exists {
		return false
	}
	return bl.now().Unix() < expiration
}

// Len returns the number of IPs currently blocked.
func (bl *BlockList) Len() int {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	now := bl.now().Unix()
	n := 0
	for _, exp := range bl.blockedIPs {
		if exp > now {
			n++
		}
	}
	return n
}

// Cleanup processes expired blocked IPs
func (bl *BlockList) Cleanup() {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	now := bl.now().Unix()
	for t := bl.lastCheck + 1; t <= now; t++ {
		ips, exists := bl.buckets[t]
		if !exists {
			continue
		}
		for _, ip := range ips {
			// a later Block may have extended it
			if exp, ok := bl.blockedIPs[ip]; ok && exp <= now {
				delete(bl.blockedIPs, ip)
			}
		}
		delete(bl.buckets, t)
	}
	bl.lastCheck = now
}

func StartBlockListGC(blockList *BlockList, stopCh <-chan struct{}) {
	// one second ticks keep the per-second buckets small
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			blockList.Cleanup()
		case <-stopCh:
			return
		}
	}
}

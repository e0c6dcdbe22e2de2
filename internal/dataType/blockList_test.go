package dataType

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlockListExpiry(t *testing.T) {
	clock := newFakeClock()
	bl := NewBlockListWithClock(clock.Now)

	bl.Block("10.0.0.1", 30)
	assert.True(t, bl.IsBlocked("10.0.0.1"))
	assert.False(t, bl.IsBlocked("10.0.0.2"))
	assert.Equal(t, 1, bl.Len())

	clock.Advance(29 * time.Second)
	assert.True(t, bl.IsBlocked("10.0.0.1"))

	clock.Advance(time.Second)
	assert.False(t, bl.IsBlocked("10.0.0.1"))
	assert.Equal(t, 0, bl.Len())
}

func TestBlockListKeepsLongerBlock(t *testing.T) {
	clock := newFakeClock()
	bl := NewBlockListWithClock(clock.Now)

	bl.Block("10.0.0.1", 100)
	bl.Block("10.0.0.1", 10)
	clock.Advance(50 * time.Second)
	assert.True(t, bl.IsBlocked("10.0.0.1"))
}

func TestBlockListCleanup(t *testing.T) {
	clock := newFakeClock()
	bl := NewBlockListWithClock(clock.Now)

	bl.Block("a", 5)
	bl.Block("b", 5)
	bl.Block("b", 60)

	clock.Advance(10 * time.Second)
	bl.Cleanup()

	_, hasA := bl.blockedIPs["a"]
	assert.False(t, hasA)
	assert.True(t, bl.IsBlocked("b"), "extended block survives cleanup of its old bucket")
	assert.Len(t, bl.buckets, 1)
}

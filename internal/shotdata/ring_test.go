package shotdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_RecentReturnsNewestLast(t *testing.T) {
	r := NewRing()
	for i := uint64(1); i <= 5; i++ {
		r.Add(ShotData{ShotNumber: i})
	}
	recent := r.Recent(0)
	require.Len(t, recent, 5)
	for i, shot := range recent {
		assert.Equal(t, uint64(i+1), shot.ShotNumber)
	}
}

func TestRing_RecentRespectsLimit(t *testing.T) {
	r := NewRing()
	for i := uint64(1); i <= 5; i++ {
		r.Add(ShotData{ShotNumber: i})
	}
	recent := r.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(4), recent[0].ShotNumber)
	assert.Equal(t, uint64(5), recent[1].ShotNumber)
}

func TestRing_FIFOEvictionAtCapacity(t *testing.T) {
	r := NewRing()
	for i := uint64(1); i <= ringCapacity+10; i++ {
		r.Add(ShotData{ShotNumber: i})
	}
	recent := r.Recent(0)
	require.Len(t, recent, ringCapacity)
	assert.Equal(t, uint64(11), recent[0].ShotNumber)
	assert.Equal(t, uint64(ringCapacity+10), recent[len(recent)-1].ShotNumber)
}

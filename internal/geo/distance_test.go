package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// One degree of latitude on a 6371 km sphere.
	assert.InDelta(t, 111194.93, HaversineDistance(0, 0, 1, 0), 0.5)

	assert.Zero(t, HaversineDistance(37.7749, -122.4194, 37.7749, -122.4194))

	sym1 := HaversineDistance(37.7749, -122.4194, 40.7128, -74.0060)
	sym2 := HaversineDistance(40.7128, -74.0060, 37.7749, -122.4194)
	assert.InDelta(t, sym1, sym2, 1e-6)
	// San Francisco to New York is a little over 4100 km.
	assert.InDelta(t, 4129000, sym1, 5000)
}

package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vapi/internal/apperr"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lng       float64
		precision int
		want      string
	}{
		{
			name:      "San Francisco",
			lat:       37.7749,
			lng:       -122.4194,
			precision: 6,
			want:      "9q8yyk",
		},
		{
			name:      "New York",
			lat:       40.7128,
			lng:       -74.0060,
			precision: 6,
			want:      "dr5reg",
		},
		{
			name:      "London",
			lat:       51.5074,
			lng:       -0.1278,
			precision: 6,
			want:      "gcpvj0",
		},
		{
			name:      "Area precision is a prefix",
			lat:       37.7749,
			lng:       -122.4194,
			precision: 5,
			want:      "9q8yy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.lat, tt.lng, tt.precision)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_LengthMatchesPrecision(t *testing.T) {
	for p := 1; p <= MaxPrecision; p++ {
		hash, err := Encode(-34.6037, -58.3816, p)
		require.NoError(t, err)
		assert.Len(t, hash, p)
	}

	for _, p := range []int{-1, 0, MaxPrecision + 1, 40} {
		hash, err := Encode(-34.6037, -58.3816, p)
		assert.True(t, apperr.Is(err, apperr.InvalidRequest), "precision %d: got %v", p, err)
		assert.Empty(t, hash)
	}
}

func TestEncode_InvalidCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
	}{
		{"latitude above range", 90.0001, 0},
		{"latitude below range", -91, 0},
		{"longitude above range", 0, 180.5},
		{"longitude below range", 0, -181},
		{"NaN", math.NaN(), 0},
		{"infinite", 0, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.lat, tt.lng, 6)
			require.Error(t, err)
			assert.Equal(t, apperr.InvalidCoordinate, apperr.KindOf(err))
		})
	}
}

func TestEncode_RangeEdges(t *testing.T) {
	for _, pt := range [][2]float64{{90, 180}, {-90, -180}, {90, -180}, {-90, 180}} {
		hash, err := Encode(pt[0], pt[1], 6)
		require.NoError(t, err)
		box, err := BoundingBox(hash)
		require.NoError(t, err)
		assert.True(t, box.Contains(pt[0], pt[1]), "box of %s should contain %v", hash, pt)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		hash      string
		wantLat   float64
		wantLng   float64
		tolerance float64
	}{
		{
			name:      "San Francisco",
			hash:      "9q8yyk",
			wantLat:   37.7749,
			wantLng:   -122.4194,
			tolerance: 0.01,
		},
		{
			name:      "New York",
			hash:      "dr5reg",
			wantLat:   40.7128,
			wantLng:   -74.0060,
			tolerance: 0.01,
		},
		{
			name:      "Upper case input",
			hash:      "DR5REG",
			wantLat:   40.7128,
			wantLng:   -74.0060,
			tolerance: 0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLat, gotLng, err := Decode(tt.hash)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLat, gotLat, tt.tolerance)
			assert.InDelta(t, tt.wantLng, gotLng, tt.tolerance)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, hash := range []string{"", "9q8yya", "abc", "0123456789bcd"} {
		_, _, err := Decode(hash)
		assert.Equal(t, apperr.InvalidCoordinate, apperr.KindOf(err), "hash %q", hash)
	}
}

// For every point, the decoded center of its cell must fall inside that
// cell's bounding box, and so must the original point.
func TestEncodeDecode_WithinBoundingBox(t *testing.T) {
	for lat := -89.5; lat <= 89.5; lat += 7.3 {
		for lng := -179.5; lng <= 179.5; lng += 11.9 {
			hash, err := Encode(lat, lng, ReportPrecision)
			require.NoError(t, err)

			box, err := BoundingBox(hash)
			require.NoError(t, err)
			centerLat, centerLng, err := Decode(hash)
			require.NoError(t, err)

			assert.True(t, box.Contains(centerLat, centerLng), "center of %s outside its box", hash)
			assert.True(t, box.Contains(lat, lng), "(%v,%v) outside box of %s", lat, lng, hash)
		}
	}
}

func TestBoundingBox_Precision6Size(t *testing.T) {
	box, err := BoundingBox("9q8yyk")
	require.NoError(t, err)

	assert.InDelta(t, 180.0/32768, box.MaxLat-box.MinLat, 1e-12)
	assert.InDelta(t, 360.0/32768, box.MaxLng-box.MinLng, 1e-12)
}

func TestNeighbors_KnownValues(t *testing.T) {
	got, err := Neighbors("s")
	require.NoError(t, err)

	// Clockwise from north.
	assert.Equal(t, []string{"u", "v", "t", "m", "k", "7", "e", "g"}, got)
}

func TestNeighbors_Properties(t *testing.T) {
	cells := []string{"9q8yyk", "69y6q3", "gcpvj0", "s", "zzzzzz", "000000", "pbpbpb", "bpbpbp", "u4pruydq"}

	for _, cell := range cells {
		t.Run(cell, func(t *testing.T) {
			neighbors, err := Neighbors(cell)
			require.NoError(t, err)
			require.Len(t, neighbors, 8)

			seen := make(map[string]bool)
			for _, n := range neighbors {
				assert.Len(t, n, len(cell))
				assert.NotEqual(t, cell, n)
				assert.False(t, seen[n], "duplicate neighbor %s", n)
				seen[n] = true
			}

			again, err := Neighbors(cell)
			require.NoError(t, err)
			assert.Equal(t, neighbors, again, "order must be stable")
		})
	}
}

func TestNeighbor_IsAdjacent(t *testing.T) {
	center := "9q8yyk"
	box, err := BoundingBox(center)
	require.NoError(t, err)
	height := box.MaxLat - box.MinLat
	width := box.MaxLng - box.MinLng
	cLat, cLng := box.Center()

	tests := []struct {
		dir        Direction
		dLat, dLng float64
	}{
		{North, height, 0},
		{South, -height, 0},
		{East, 0, width},
		{West, 0, -width},
		{NorthEast, height, width},
		{SouthWest, -height, -width},
	}

	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			n, err := Neighbor(center, tt.dir)
			require.NoError(t, err)
			lat, lng, err := Decode(n)
			require.NoError(t, err)
			assert.InDelta(t, cLat+tt.dLat, lat, 1e-9)
			assert.InDelta(t, cLng+tt.dLng, lng, 1e-9)
		})
	}

	north, err := Neighbor(center, North)
	require.NoError(t, err)
	back, err := Neighbor(north, South)
	require.NoError(t, err)
	assert.Equal(t, center, back)
}

func TestNeighbor_WrapsAntimeridian(t *testing.T) {
	cell, err := Encode(0.1, 179.99, 6)
	require.NoError(t, err)

	east, err := Neighbor(cell, East)
	require.NoError(t, err)
	_, lng, err := Decode(east)
	require.NoError(t, err)
	assert.Less(t, lng, -179.9)
}

func TestNeighbor_UnknownDirection(t *testing.T) {
	_, err := Neighbor("9q8yyk", Direction("up"))
	assert.Equal(t, apperr.InvalidEnum, apperr.KindOf(err))
}

func TestSearchCells(t *testing.T) {
	cells, err := SearchCells("9q8yyk")
	require.NoError(t, err)
	require.Len(t, cells, 9)
	assert.Equal(t, "9q8yyk", cells[0])
}

func TestAreaHash(t *testing.T) {
	assert.Equal(t, "9q8yy", AreaHash("9q8yyk"))
	assert.Equal(t, "9q8", AreaHash("9q8"))

	area, err := AreaHashOf(37.7749, -122.4194)
	require.NoError(t, err)
	assert.Equal(t, "9q8yy", area)
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Encode(37.7749, -122.4194, 6)
	}
}

func BenchmarkNeighbors(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Neighbors("9q8yyk")
	}
}

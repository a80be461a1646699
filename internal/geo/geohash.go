// Package geo implements the geohash codec, the street-side resolver and
// great-circle distance used to bucket and search parking reports.
//
// Go Learning Note — What is a Geohash?
// A geohash is a way to encode a latitude/longitude pair into a short string.
// The key property is that nearby locations share a common prefix. For example,
// two points 100m apart might both start with "9q8yyk", while a point 10km away
// might start with "9q8yz". This lets you use string prefix matching for fast
// proximity searches instead of computing distances between all pairs.
//
// Precision determines the cell size:
//
//	1 → ~5000 km    4 → ~39 km     7 → ~153 m    10 → ~1.2 m
//	2 → ~1250 km    5 → ~5 km      8 → ~19 m     11 → ~15 cm
//	3 → ~156 km     6 → ~1.2 km    9 → ~2.4 m    12 → ~1.9 cm
//
// Reports are grouped at precision 6, live-update subscriptions use the
// coarser precision 5 "area", and the side fallback looks at precision 8.
package geo

import (
	"math"
	"strings"

	"vapi/internal/apperr"
)

const (
	// ReportPrecision is the cell size used to group reports.
	ReportPrecision = 6
	// AreaPrecision scopes real-time subscriptions.
	AreaPrecision = 5
	// SidePrecision feeds the hash-derived side fallback.
	SidePrecision = 8
	// MaxPrecision keeps both bit indices inside a uint64.
	MaxPrecision = 12
)

// base32 is the geohash character set (32 characters). Note that 'a', 'i',
// 'l', and 'o' are excluded to avoid confusion with digits 0/1.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// base32Index maps a byte back to its 5-bit value, or -1 for bytes outside
// the alphabet.
var base32Index [256]int8

// init() runs automatically when the package is first imported, before main().
//
// Go Learning Note — init() Functions:
// Every Go package can have one or more init() functions. They run once, in
// dependency order, when the program starts. Here we pre-compute a reverse
// lookup table from base32 characters to their index positions. A fixed-size
// array indexed by byte is cheaper than a map for this kind of table.
func init() {
	for i := range base32Index {
		base32Index[i] = -1
	}
	for i := 0; i < len(base32); i++ {
		base32Index[base32[i]] = int8(i)
	}
}

// Box is the rectangular region a cell covers.
type Box struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// Contains reports whether the point lies inside the box (edges included).
func (b Box) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Center returns the midpoint of the box.
func (b Box) Center() (lat, lng float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLng + b.MaxLng) / 2
}

// ValidateCoordinate rejects latitudes outside [-90, 90], longitudes outside
// [-180, 180], and NaN or infinite values.
func ValidateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return apperr.New(apperr.InvalidCoordinate, "coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return apperr.New(apperr.InvalidCoordinate, "latitude %v out of range [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return apperr.New(apperr.InvalidCoordinate, "longitude %v out of range [-180, 180]", lng)
	}
	return nil
}

// Encode converts latitude and longitude to a geohash string of exactly
// precision characters. Precision must be between 1 and MaxPrecision.
//
// Algorithm overview (binary interleaving):
//  1. Start with the full range: lat [-90, 90], lon [-180, 180]
//  2. Alternate between longitude (even bits) and latitude (odd bits)
//  3. For each step, bisect the range and set bit=1 if value >= midpoint
//  4. Every 5 bits are encoded as one base32 character
//
// Go Learning Note — strings.Builder:
// strings.Builder is the idiomatic way to efficiently build strings in Go.
// It minimizes memory allocations by using an internal byte buffer. Never
// build strings with repeated concatenation (s += "x") in a loop; that
// creates a new string (and allocation) each iteration because Go strings
// are immutable.
func Encode(lat, lng float64, precision int) (string, error) {
	if err := ValidateCoordinate(lat, lng); err != nil {
		return "", err
	}
	if precision < 1 || precision > MaxPrecision {
		return "", apperr.New(apperr.InvalidRequest, "geohash precision %d out of range [1, %d]", precision, MaxPrecision)
	}

	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0

	var hash strings.Builder
	hash.Grow(precision)
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLng + maxLng) / 2
			if lng >= mid {
				ch |= 1 << (4 - bit)
				minLng = mid
			} else {
				maxLng = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == 5 {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String(), nil
}

// cellIndex is a cell expressed as integer row/column indices on the grid of
// its precision. Longitude takes the even bits, so it gets the extra bit
// whenever the total bit count is odd.
type cellIndex struct {
	lat, lng         uint64
	latBits, lngBits uint
}

func parseCell(cell string) (cellIndex, error) {
	var idx cellIndex
	if len(cell) == 0 || len(cell) > MaxPrecision {
		return idx, apperr.New(apperr.InvalidCoordinate, "geohash %q must have 1 to %d characters", cell, MaxPrecision)
	}

	isEven := true
	for i := 0; i < len(cell); i++ {
		cd := base32Index[cell[i]]
		if cd < 0 {
			return idx, apperr.New(apperr.InvalidCoordinate, "geohash %q contains invalid character %q", cell, cell[i])
		}
		for j := 4; j >= 0; j-- {
			bit := uint64(cd>>j) & 1
			if isEven {
				idx.lng = idx.lng<<1 | bit
				idx.lngBits++
			} else {
				idx.lat = idx.lat<<1 | bit
				idx.latBits++
			}
			isEven = !isEven
		}
	}
	return idx, nil
}

func (idx cellIndex) String() string {
	precision := int(idx.latBits+idx.lngBits) / 5
	buf := make([]byte, 0, precision)

	latLeft, lngLeft := idx.latBits, idx.lngBits
	isEven := true
	ch := 0
	for n := 0; n < precision*5; n++ {
		var bit uint64
		if isEven {
			lngLeft--
			bit = (idx.lng >> lngLeft) & 1
		} else {
			latLeft--
			bit = (idx.lat >> latLeft) & 1
		}
		ch = ch<<1 | int(bit)
		isEven = !isEven
		if n%5 == 4 {
			buf = append(buf, base32[ch])
			ch = 0
		}
	}
	return string(buf)
}

func (idx cellIndex) box() Box {
	latSize := 180.0 / float64(uint64(1)<<idx.latBits)
	lngSize := 360.0 / float64(uint64(1)<<idx.lngBits)
	minLat := -90.0 + float64(idx.lat)*latSize
	minLng := -180.0 + float64(idx.lng)*lngSize
	return Box{
		MinLat: minLat,
		MaxLat: minLat + latSize,
		MinLng: minLng,
		MaxLng: minLng + lngSize,
	}
}

// shift moves the index by whole cells. Both axes wrap around: east of the
// antimeridian column is the westernmost column and north of the top row is
// the bottom row, so every cell has eight distinct neighbors.
func (idx cellIndex) shift(dLat, dLng int) cellIndex {
	latN := uint64(1) << idx.latBits
	lngN := uint64(1) << idx.lngBits
	idx.lat = (idx.lat + latN + uint64(int64(dLat))) % latN
	idx.lng = (idx.lng + lngN + uint64(int64(dLng))) % lngN
	return idx
}

// BoundingBox returns the region covered by cell.
func BoundingBox(cell string) (Box, error) {
	idx, err := parseCell(strings.ToLower(cell))
	if err != nil {
		return Box{}, err
	}
	return idx.box(), nil
}

// Decode converts a geohash string back to the center latitude and longitude
// of the encoded cell.
//
// Go Learning Note — Named Return Values:
// The signature `(lat, lng float64, err error)` uses named return values.
// This serves as documentation (the caller knows which float64 is latitude
// vs longitude). Named returns are idiomatic for short functions, but for
// longer functions, explicit returns are often clearer.
func Decode(cell string) (lat, lng float64, err error) {
	box, err := BoundingBox(cell)
	if err != nil {
		return 0, 0, err
	}
	lat, lng = box.Center()
	return lat, lng, nil
}

// Direction names one of the eight compass-adjacent cells.
type Direction string

const (
	North     Direction = "n"
	NorthEast Direction = "ne"
	East      Direction = "e"
	SouthEast Direction = "se"
	South     Direction = "s"
	SouthWest Direction = "sw"
	West      Direction = "w"
	NorthWest Direction = "nw"
)

// Directions lists the neighbor directions in the order Neighbors returns
// them: clockwise starting at north.
var Directions = []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var offsets = map[Direction][2]int{
	North:     {1, 0},
	NorthEast: {1, 1},
	East:      {0, 1},
	SouthEast: {-1, 1},
	South:     {-1, 0},
	SouthWest: {-1, -1},
	West:      {0, -1},
	NorthWest: {1, -1},
}

// Neighbor returns the adjacent cell of the same precision in direction d.
func Neighbor(cell string, d Direction) (string, error) {
	off, ok := offsets[d]
	if !ok {
		return "", apperr.New(apperr.InvalidEnum, "unknown direction %q", d)
	}
	idx, err := parseCell(strings.ToLower(cell))
	if err != nil {
		return "", err
	}
	return idx.shift(off[0], off[1]).String(), nil
}

// Neighbors returns the eight compass-adjacent cells of cell in Directions
// order. The result never contains cell itself and never contains duplicates.
func Neighbors(cell string) ([]string, error) {
	idx, err := parseCell(strings.ToLower(cell))
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(Directions))
	for _, d := range Directions {
		off := offsets[d]
		out = append(out, idx.shift(off[0], off[1]).String())
	}
	return out, nil
}

// SearchCells returns cell followed by its eight neighbors: the 3x3 block of
// candidate cells scanned by a nearby search. At precision 6 each cell is
// roughly 1.2 km x 0.6 km, so the block covers a few kilometers around the
// center cell.
func SearchCells(cell string) ([]string, error) {
	neighbors, err := Neighbors(cell)
	if err != nil {
		return nil, err
	}
	return append([]string{strings.ToLower(cell)}, neighbors...), nil
}

// AreaHash returns the precision-5 area a longer cell belongs to. Geohash
// prefixes nest, so truncating is the same as re-encoding at precision 5.
func AreaHash(cell string) string {
	if len(cell) <= AreaPrecision {
		return cell
	}
	return cell[:AreaPrecision]
}

// AreaHashOf encodes a point at AreaPrecision.
func AreaHashOf(lat, lng float64) (string, error) {
	return Encode(lat, lng, AreaPrecision)
}

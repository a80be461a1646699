package geo

import (
	"math"

	"vapi/internal/apperr"
	"vapi/internal/domain/entities"
)

// fallbackSides maps (code point of the last precision-8 character) mod 4 to
// a side.
var fallbackSides = [4]entities.Side{
	entities.SideNorth,
	entities.SideEast,
	entities.SideSouth,
	entities.SideWest,
}

// DetermineSide assigns a street side to a point.
//
// With a bearing (degrees, any real value) the bearing is normalized to
// [0, 360) and mapped to a quadrant:
//
//	[315, 360) ∪ [0, 45) → N
//	[45, 135)            → E
//	[135, 225)           → S
//	[225, 315)           → W
//
// Without one, the side is derived from the last character of the point's
// precision-8 geohash. That fallback is deterministic but coarse: it does
// not look at street geometry at all and only keeps nearby reports from
// collapsing onto one side.
//
// Go Learning Note — Optional Parameters:
// Go has no default arguments. A pointer parameter is the usual way to say
// "this value may be absent": nil means not provided, and a non-nil pointer
// carries the value even when it is the zero value (a bearing of exactly 0
// is a real, meaningful input here).
func DetermineSide(lat, lng float64, bearing *float64) (entities.Side, error) {
	if bearing != nil {
		return SideForBearing(*bearing)
	}

	hash, err := Encode(lat, lng, SidePrecision)
	if err != nil {
		return "", err
	}
	last := rune(hash[len(hash)-1])
	return fallbackSides[int(last)%4], nil
}

// SideForBearing maps a bearing in degrees to a side.
func SideForBearing(bearing float64) (entities.Side, error) {
	if math.IsNaN(bearing) || math.IsInf(bearing, 0) {
		return "", apperr.New(apperr.InvalidCoordinate, "bearing must be a finite number")
	}

	b := math.Mod(bearing, 360)
	if b < 0 {
		b += 360
	}
	// math.Mod of a tiny negative value plus 360 can round up to 360.
	if b >= 360 {
		b = 0
	}

	switch {
	case b >= 315 || b < 45:
		return entities.SideNorth, nil
	case b < 135:
		return entities.SideEast, nil
	case b < 225:
		return entities.SideSouth, nil
	default:
		return entities.SideWest, nil
	}
}

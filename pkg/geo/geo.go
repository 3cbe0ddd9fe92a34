package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the mean Earth radius used for great-circle distances.
	EarthRadiusKm float64 = 6371

	// nativeScale converts provider coordinates to degrees.
	nativeScale float64 = 10000000
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FromNative converts a provider coordinate pair (x is longitude, y is
// latitude) to degrees.
func FromNative(mapx, mapy int64) Point {
	return Point{
		Lat: float64(mapy) / nativeScale,
		Lng: float64(mapx) / nativeScale,
	}
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// FormatDistance renders sub-kilometer distances in whole meters and
// everything else in kilometers with one decimal.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%.0fm", km*1000)
	}

	return fmt.Sprintf("%.1fkm", km)
}

func toRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// Bounds is the smallest box containing every point it was extended with.
type Bounds struct {
	SouthWest Point `json:"sw"`
	NorthEast Point `json:"ne"`
	Padding   int   `json:"padding"`

	empty bool
}

func NewBounds(padding int) *Bounds {
	return &Bounds{Padding: padding, empty: true}
}

func (b *Bounds) Extend(p Point) {
	if b.empty {
		b.SouthWest = p
		b.NorthEast = p
		b.empty = false
		return
	}

	b.SouthWest.Lat = math.Min(b.SouthWest.Lat, p.Lat)
	b.SouthWest.Lng = math.Min(b.SouthWest.Lng, p.Lng)
	b.NorthEast.Lat = math.Max(b.NorthEast.Lat, p.Lat)
	b.NorthEast.Lng = math.Max(b.NorthEast.Lng, p.Lng)
}

func (b *Bounds) Empty() bool {
	return b.empty
}
